// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/phone_orientation/internal/config"
	"github.com/relabs-tech/phone_orientation/internal/gps"
	"github.com/relabs-tech/phone_orientation/internal/imu"
	"github.com/relabs-tech/phone_orientation/internal/orientation"
	"github.com/relabs-tech/phone_orientation/internal/relay"
)

// RunConsoleMQTT prints everything the streamer relays until ctx is done.
func RunConsoleMQTT(ctx context.Context, cfg *config.Config) error {
	if cfg.MQTTBroker == "" {
		return errors.New("console: MQTT_BROKER is not set")
	}

	client, err := relay.Connect(cfg.MQTTBroker, cfg.MQTTClientID+"-console")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	subs := []struct {
		topic  string
		format func([]byte) (string, error)
	}{
		{cfg.TopicOrientation, formatOrientation},
		{cfg.TopicIMU, formatIMU},
		{cfg.TopicGPS, formatFix},
	}

	for _, sub := range subs {
		if sub.topic == "" {
			continue
		}
		topic, format := sub.topic, sub.format
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			line, err := format(msg.Payload())
			if err != nil {
				log.Printf("console: %s unmarshal error: %v", topic, err)
				return
			}
			fmt.Println(line)
		})
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("console: subscribed to %s", topic)
	}

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}

// parseOrientation requires all three angles, so a partial message never
// reaches a mailbox.
func parseOrientation(payload []byte, o *orientation.Orientation) error {
	var raw struct {
		Alpha, Beta, Gamma *float64
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return err
	}
	if raw.Alpha == nil || raw.Beta == nil || raw.Gamma == nil {
		return fmt.Errorf("incomplete orientation %s", payload)
	}
	*o = orientation.Orientation{Alpha: *raw.Alpha, Beta: *raw.Beta, Gamma: *raw.Gamma}
	return nil
}

func formatOrientation(payload []byte) (string, error) {
	var o orientation.Orientation
	if err := parseOrientation(payload, &o); err != nil {
		return "", err
	}
	return fmt.Sprintf("[POSE]  ALPHA=%7.2f  BETA=%7.2f  GAMMA=%7.2f", o.Alpha, o.Beta, o.Gamma), nil
}

func formatIMU(payload []byte) (string, error) {
	var r imu.Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return "", err
	}
	return fmt.Sprintf("[IMU ]  acc=%s  gyro=%s  mag=%s", vec(r.Accel), vec(r.Gyro), vec(r.Mag)), nil
}

func vec(v *imu.Vec3) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

func formatFix(payload []byte) (string, error) {
	var f gps.Fix
	if err := json.Unmarshal(payload, &f); err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"[GPS ]  %s time=%s lat=%.6f lon=%.6f speed=%.1fkn course=%.1f° validity=%s",
		f.Sentence, f.Time, f.Latitude, f.Longitude, f.SpeedKnots, f.CourseDeg, f.Validity,
	), nil
}
