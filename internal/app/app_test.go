// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/relabs-tech/phone_orientation/internal/config"
	"github.com/relabs-tech/phone_orientation/internal/ingest"
	"github.com/relabs-tech/phone_orientation/internal/orientation"
	"github.com/relabs-tech/phone_orientation/internal/packet"
	"github.com/relabs-tech/phone_orientation/internal/render"
)

func writeCapture(t *testing.T, dir string, payloads ...string) string {
	t.Helper()

	path := filepath.Join(dir, "session.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	base := time.Now()
	for i, p := range payloads {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
			DstMAC:       net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP,
			SrcIP: net.IPv4(10, 0, 0, 2), DstIP: net.IPv4(10, 0, 0, 255)}
		udp := &layers.UDP{SrcPort: 40000, DstPort: 5555}
		require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

		buf := gopacket.NewSerializeBuffer()
		require.NoError(t, gopacket.SerializeLayers(buf,
			gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true},
			eth, ip, udp, gopacket.Payload(p)))
		data := buf.Bytes()
		ci := gopacket.CaptureInfo{Timestamp: base.Add(time.Duration(i) * 10 * time.Millisecond),
			CaptureLength: len(data), Length: len(data)}
		require.NoError(t, w.WritePacket(ci, data))
	}
	return path
}

// frameLog keeps the orientation of every flushed frame.
type frameLog struct {
	mu     sync.Mutex
	frames []orientation.Orientation
}

func (l *frameLog) surface() render.Surface {
	return render.NewRecorder(func(f render.Frame) error {
		l.mu.Lock()
		l.frames = append(l.frames, f.Orientation)
		l.mu.Unlock()
		return nil
	}, nil)
}

func (l *frameLog) last() orientation.Orientation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames[len(l.frames)-1]
}

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.SourceKind = config.SourcePCAP
	cfg.PCAPRealtime = false
	cfg.Surfaces = []string{config.SurfaceNone}
	cfg.LogFilePath = filepath.Join(dir, "log_file.csv")
	cfg.FrameRate = 50
	cfg.InitialTimeoutSeconds = 1
	cfg.SteadyTimeoutSeconds = 0.2
	return cfg
}

func TestStreamer_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.PCAPFile = writeCapture(t, dir, "81,360,0,0", "3,1,2,3,81,90,0,0")
	cfg.LogSQLitePath = filepath.Join(dir, "readings.db")
	cfg.HistoryPlotPath = filepath.Join(dir, "history.png")

	frames := &frameLog{}
	s := &streamer{
		cfg:           cfg,
		session:       "3f1c2d8e-0000-4000-8000-000000000001",
		splashDelay:   20 * time.Millisecond,
		extraSurfaces: []render.Surface{frames.surface()},
	}
	require.NoError(t, s.run(context.Background()))

	b, err := os.ReadFile(cfg.LogFilePath)
	require.NoError(t, err)
	want := strings.Join(packet.Header(packet.Channels), ",") + "\n360,0,0\n1,2,90,0,0\n"
	if diff := cmp.Diff(want, string(b)); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}

	db, err := sql.Open("sqlite", cfg.LogSQLitePath)
	require.NoError(t, err)
	defer db.Close()
	var rows int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM readings WHERE session = ?`, s.session).Scan(&rows))
	assert.Equal(t, 2, rows)

	assert.Equal(t, orientation.Orientation{Alpha: 90}, frames.last())
	_, err = os.Stat(cfg.HistoryPlotPath)
	assert.NoError(t, err)
}

func TestStreamer_FirstFramesShowDefault(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.PCAPFile = writeCapture(t, dir)
	cfg.InitialTimeoutSeconds = 0.1

	frames := &frameLog{}
	s := &streamer{cfg: cfg, session: "s", splashDelay: 50 * time.Millisecond,
		extraSurfaces: []render.Surface{frames.surface()}}
	require.NoError(t, s.run(context.Background()))

	require.NotEmpty(t, frames.frames)
	assert.Equal(t, orientation.Default, frames.frames[0])
	assert.Equal(t, orientation.Default, frames.last())
}

func TestStreamer_SurfaceFailureKeepsLogging(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.PCAPFile = writeCapture(t, dir, "81,360,0,0", "81,10,0,0", "3,1,2,3,81,90,0,0")

	errGone := errors.New("surface gone")
	var flushes int
	broken := render.NewRecorder(func(render.Frame) error {
		flushes++
		if flushes > 1 {
			return errGone
		}
		return nil
	}, nil)

	// The renderer fails at its second tick, well before ingestion starts.
	s := &streamer{cfg: cfg, session: "s", splashDelay: 150 * time.Millisecond,
		extraSurfaces: []render.Surface{broken}}
	err := s.run(context.Background())
	assert.ErrorIs(t, err, errGone)

	b, rerr := os.ReadFile(cfg.LogFilePath)
	require.NoError(t, rerr)
	want := strings.Join(packet.Header(packet.Channels), ",") + "\n360,0,0\n10,0,0\n1,2,90,0,0\n"
	if diff := cmp.Diff(want, string(b)); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestStreamer_SourceOpenFails(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.PCAPFile = filepath.Join(dir, "missing.pcap")

	s := &streamer{cfg: cfg, session: "s"}
	err := s.run(context.Background())

	var bindErr *ingest.SocketBindError
	assert.True(t, errors.As(err, &bindErr), "got %v", err)
}

func TestStreamer_Cancelled(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.SourceKind = config.SourceUDP
	cfg.UDPListenAddr = "127.0.0.1:0"
	cfg.InitialTimeoutSeconds = 30

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	s := &streamer{cfg: cfg, session: "s", splashDelay: 10 * time.Millisecond}
	start := time.Now()
	err := s.run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPhoneSim_PacketsParse(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time {
		clock = clock.Add(50 * time.Millisecond)
		return clock
	}
	sim := newPhoneSim(orientation.NewMockSource(), now)

	for i := 0; i < 20; i++ {
		line, err := sim.next()
		require.NoError(t, err)

		pkt, _, err := packet.Parse([]byte(line))
		require.NoError(t, err, line)
		require.NotNil(t, pkt.Orientation, line)
		assert.Len(t, pkt.Unlabeled, 1)
		for _, id := range []int{packet.AccelerometerID, packet.GyroscopeID, packet.MagneticFieldID} {
			rec, ok := pkt.Record(id)
			require.True(t, ok, "channel %d in %s", id, line)
			assert.Len(t, rec.Values, 3)
		}
	}
}

func TestClean_AvoidsMarkers(t *testing.T) {
	got := clean([]float64{3, 81.0001, 4.5, 5})
	for _, v := range got {
		_, isMarker := packet.Lookup(v)
		assert.False(t, isMarker, "%v", v)
	}
	assert.InDelta(t, 4.5, got[2], 1e-9)
}

func TestRunSimulator_Loopback(t *testing.T) {
	src, err := ingest.ListenUDP(context.Background(), ingest.BroadcastSocketFactory{}, "127.0.0.1:0", 0)
	require.NoError(t, err)
	defer src.Close()

	cfg := config.Defaults()
	cfg.SimTargetAddr = src.LocalAddr().String()
	cfg.SimIntervalMS = 5

	require.NoError(t, RunSimulator(context.Background(), cfg, 3))

	for i := 0; i < 3; i++ {
		raw, err := src.ReadPacket(time.Now().Add(2 * time.Second))
		require.NoError(t, err)
		pkt, _, err := packet.Parse(raw)
		require.NoError(t, err)
		assert.NotNil(t, pkt.Orientation)
	}
}

func TestRunMockConsole(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, RunMockConsole(context.Background(), &sb, time.Millisecond, 4))

	scanner := bufio.NewScanner(strings.NewReader(sb.String()))
	n := 0
	for scanner.Scan() {
		_, _, err := packet.Parse(scanner.Bytes())
		assert.NoError(t, err)
		n++
	}
	assert.Equal(t, 4, n)
}

func TestConsoleFormatters(t *testing.T) {
	line, err := formatOrientation([]byte(`{"alpha":90,"beta":-10.5,"gamma":3}`))
	require.NoError(t, err)
	assert.Equal(t, "[POSE]  ALPHA=  90.00  BETA= -10.50  GAMMA=   3.00", line)

	line, err = formatIMU([]byte(`{"source":"s","accel":{"x":0.1,"y":9.8,"z":0.2}}`))
	require.NoError(t, err)
	assert.Equal(t, "[IMU ]  acc=(0.100, 9.800, 0.200)  gyro=-  mag=-", line)

	line, err = formatFix([]byte(`{"sentence":"RMC","time":"22:05:16.0000","lat":51.5,"lon":-0.7,"validity":"A"}`))
	require.NoError(t, err)
	assert.Contains(t, line, "lat=51.500000 lon=-0.700000")

	_, err = formatOrientation([]byte(`not json`))
	assert.Error(t, err)
}
