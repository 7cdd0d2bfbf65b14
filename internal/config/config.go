// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds.
const (
	SourceUDP    = "udp"
	SourceSerial = "serial"
	SourcePCAP   = "pcap"
)

// Surface kinds.
const (
	SurfaceWeb  = "web"
	SurfaceOLED = "oled"
	SurfaceTerm = "term"
	SurfaceNone = "none"
)

// Config holds all application configuration values.
type Config struct {
	// Input
	SourceKind     string
	UDPListenAddr  string
	UDPMaxDatagram int
	SerialPort     string
	SerialBaudRate int
	PCAPFile       string
	PCAPRealtime   bool

	// Log sinks
	LogFilePath   string
	LogSQLitePath string // empty disables the SQLite copy

	// Rendering
	FrameRate     float64 // frames per second
	BoxDimensions [3]float64

	// Silence timeouts
	InitialTimeoutSeconds float64
	SteadyTimeoutSeconds  float64

	// Surfaces
	Surfaces      []string
	WebServerPort int
	WebStaticDir  string
	OLEDI2CBus    string // empty opens the first bus

	// MQTT relay, disabled when MQTTBroker is empty
	MQTTBroker       string
	MQTTClientID     string
	TopicOrientation string
	TopicIMU         string
	TopicGPS         string

	HistoryPlotPath string // empty disables the end-of-session plot
	Verbose         bool

	// Simulator
	SimTargetAddr string
	SimIntervalMS int
}

// Defaults returns the values used for keys a file does not set.
func Defaults() *Config {
	return &Config{
		SourceKind:            SourceUDP,
		UDPListenAddr:         ":5555",
		UDPMaxDatagram:        8192,
		SerialBaudRate:        115200,
		PCAPRealtime:          true,
		LogFilePath:           "log_file.csv",
		FrameRate:             10,
		BoxDimensions:         [3]float64{0.8, 0.4, 0.1},
		InitialTimeoutSeconds: 10,
		SteadyTimeoutSeconds:  1,
		Surfaces:              []string{SurfaceWeb},
		WebServerPort:         8080,
		WebStaticDir:          "web",
		MQTTClientID:          "phone-orientation",
		TopicOrientation:      "phone/orientation",
		TopicIMU:              "phone/imu",
		TopicGPS:              "phone/gps",
		SimTargetAddr:         "255.255.255.255:5555",
		SimIntervalMS:         50,
	}
}

// Load reads the configuration file on top of Defaults. Files ending in
// .yaml or .yml are YAML maps with the same keys; anything else is
// KEY=VALUE lines. An empty path returns the defaults.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()
	if configPath == "" {
		return cfg, cfg.validate()
	}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = cfg.readYAML(file)
	default:
		err = cfg.readKeyValue(file)
	}
	if err != nil {
		return nil, err
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readKeyValue(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

func (c *Config) readYAML(r io.Reader) error {
	raw := map[string]interface{}{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return fmt.Errorf("error reading config file: %w", err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := c.setValue(key, yamlScalar(raw[key])); err != nil {
			return fmt.Errorf("config key %s: %w", key, err)
		}
	}
	return nil
}

// yamlScalar flattens a YAML value into the KEY=VALUE text form.
// Lists become comma separated.
func yamlScalar(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []interface{}:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = yamlScalar(e)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Input
	case "SOURCE_KIND":
		c.SourceKind = strings.ToLower(value)
	case "UDP_LISTEN_ADDR":
		c.UDPListenAddr = value
	case "UDP_MAX_DATAGRAM":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid UDP_MAX_DATAGRAM %q: %w", value, err)
		}
		c.UDPMaxDatagram = n
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		c.SerialBaudRate = n
	case "PCAP_FILE":
		c.PCAPFile = value
	case "PCAP_REALTIME":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid PCAP_REALTIME %q: %w", value, err)
		}
		c.PCAPRealtime = b

	// Log sinks
	case "LOG_FILE_PATH":
		c.LogFilePath = value
	case "LOG_SQLITE_PATH":
		c.LogSQLitePath = value

	// Rendering
	case "FRAME_RATE":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FRAME_RATE %q: %w", value, err)
		}
		c.FrameRate = f
	case "BOX_DIMENSIONS":
		parts := strings.Split(value, ",")
		if len(parts) != 3 {
			return fmt.Errorf("BOX_DIMENSIONS needs 3 values, got %q", value)
		}
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return fmt.Errorf("invalid BOX_DIMENSIONS %q: %w", value, err)
			}
			c.BoxDimensions[i] = f
		}

	// Timeouts
	case "INITIAL_TIMEOUT_SECONDS":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid INITIAL_TIMEOUT_SECONDS %q: %w", value, err)
		}
		c.InitialTimeoutSeconds = f
	case "STEADY_TIMEOUT_SECONDS":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid STEADY_TIMEOUT_SECONDS %q: %w", value, err)
		}
		c.SteadyTimeoutSeconds = f

	// Surfaces
	case "SURFACES":
		c.Surfaces = nil
		for _, s := range strings.Split(value, ",") {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				c.Surfaces = append(c.Surfaces, s)
			}
		}
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port
	case "WEB_STATIC_DIR":
		c.WebStaticDir = value
	case "OLED_I2C_BUS":
		c.OLEDI2CBus = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_ORIENTATION":
		c.TopicOrientation = value
	case "TOPIC_IMU":
		c.TopicIMU = value
	case "TOPIC_GPS":
		c.TopicGPS = value

	case "HISTORY_PLOT_PATH":
		c.HistoryPlotPath = value
	case "VERBOSE":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid VERBOSE %q: %w", value, err)
		}
		c.Verbose = b

	// Simulator
	case "SIM_TARGET_ADDR":
		c.SimTargetAddr = value
	case "SIM_INTERVAL_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SIM_INTERVAL_MS %q: %w", value, err)
		}
		c.SimIntervalMS = ms

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	switch c.SourceKind {
	case SourceUDP:
		if c.UDPListenAddr == "" {
			return fmt.Errorf("UDP_LISTEN_ADDR is required")
		}
	case SourceSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required when SOURCE_KIND=serial")
		}
		if c.SerialBaudRate <= 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE must be positive, got %d", c.SerialBaudRate)
		}
	case SourcePCAP:
		if c.PCAPFile == "" {
			return fmt.Errorf("PCAP_FILE is required when SOURCE_KIND=pcap")
		}
	default:
		return fmt.Errorf("unknown SOURCE_KIND %q (want udp, serial or pcap)", c.SourceKind)
	}

	if c.UDPMaxDatagram <= 0 {
		return fmt.Errorf("UDP_MAX_DATAGRAM must be positive, got %d", c.UDPMaxDatagram)
	}
	if c.LogFilePath == "" {
		return fmt.Errorf("LOG_FILE_PATH is required")
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("FRAME_RATE must be positive, got %g", c.FrameRate)
	}
	for i, d := range c.BoxDimensions {
		if d <= 0 {
			return fmt.Errorf("BOX_DIMENSIONS[%d] must be positive, got %g", i, d)
		}
	}
	if c.InitialTimeoutSeconds <= 0 || c.SteadyTimeoutSeconds <= 0 {
		return fmt.Errorf("timeouts must be positive, got initial %g steady %g",
			c.InitialTimeoutSeconds, c.SteadyTimeoutSeconds)
	}
	for _, s := range c.Surfaces {
		switch s {
		case SurfaceWeb, SurfaceOLED, SurfaceTerm, SurfaceNone:
		default:
			return fmt.Errorf("unknown surface %q in SURFACES", s)
		}
	}
	if c.SimIntervalMS <= 0 {
		return fmt.Errorf("SIM_INTERVAL_MS must be positive, got %d", c.SimIntervalMS)
	}
	return nil
}

// FramePeriod is the time between two redraws.
func (c *Config) FramePeriod() time.Duration {
	return time.Duration(float64(time.Second) / c.FrameRate)
}

func (c *Config) InitialTimeout() time.Duration {
	return time.Duration(c.InitialTimeoutSeconds * float64(time.Second))
}

func (c *Config) SteadyTimeout() time.Duration {
	return time.Duration(c.SteadyTimeoutSeconds * float64(time.Second))
}

func (c *Config) SimInterval() time.Duration {
	return time.Duration(c.SimIntervalMS) * time.Millisecond
}

// UDPPort is the port of UDPListenAddr. It is also the port replayed from
// a capture file.
func (c *Config) UDPPort() (uint16, error) {
	_, port, err := net.SplitHostPort(c.UDPListenAddr)
	if err != nil {
		return 0, fmt.Errorf("invalid UDP_LISTEN_ADDR %q: %w", c.UDPListenAddr, err)
	}
	n, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid UDP_LISTEN_ADDR port %q: %w", port, err)
	}
	return uint16(n), nil
}

// HasSurface reports whether name is in SURFACES.
func (c *Config) HasSurface(name string) bool {
	for _, s := range c.Surfaces {
		if s == name {
			return true
		}
	}
	return false
}
