// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"math"
	"net"
	"time"

	"github.com/relabs-tech/phone_orientation/internal/config"
	"github.com/relabs-tech/phone_orientation/internal/ingest"
	"github.com/relabs-tech/phone_orientation/internal/orientation"
	"github.com/relabs-tech/phone_orientation/internal/packet"
)

const gravity = 9.81

// RunSimulator stands in for the phone app: it sends packets in the app's
// format to cfg.SimTargetAddr every cfg.SimInterval until ctx is done.
// count > 0 stops after that many packets.
func RunSimulator(ctx context.Context, cfg *config.Config, count int) error {
	target, err := net.ResolveUDPAddr("udp4", cfg.SimTargetAddr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", cfg.SimTargetAddr, err)
	}

	conn, err := ingest.ListenBroadcast(ctx, ":0")
	if err != nil {
		return fmt.Errorf("open simulator socket: %w", err)
	}
	defer conn.Close()

	log.Printf("simulator: sending to %s every %s", target, cfg.SimInterval())

	sim := newPhoneSim(orientation.NewMockSource(), time.Now)
	ticker := time.NewTicker(cfg.SimInterval())
	defer ticker.Stop()

	for sent := 0; count <= 0 || sent < count; sent++ {
		line, err := sim.next()
		if err != nil {
			return err
		}
		if _, err := conn.WriteToUDP([]byte(line), target); err != nil {
			return fmt.Errorf("send: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// phoneSim derives plausible accelerometer, gyroscope and magnetometer
// readings from an orientation source.
type phoneSim struct {
	src  orientation.Source
	now  func() time.Time
	prev *orientation.Orientation
	last time.Time
}

func newPhoneSim(src orientation.Source, now func() time.Time) *phoneSim {
	return &phoneSim{src: src, now: now}
}

func (p *phoneSim) next() (string, error) {
	o, err := p.src.Next()
	if err != nil {
		return "", err
	}
	now := p.now()

	a, b, g := rad(o.Alpha), rad(o.Beta), rad(o.Gamma)
	accel := []float64{
		-gravity * math.Sin(g) * math.Cos(b),
		gravity * math.Sin(b),
		gravity * math.Cos(g) * math.Cos(b),
	}
	mag := []float64{
		30 * math.Cos(a),
		-30 * math.Sin(a),
		-40,
	}
	gyro := []float64{0, 0, 0}
	if p.prev != nil {
		if dt := now.Sub(p.last).Seconds(); dt > 0 {
			gyro = []float64{
				rad(o.Beta-p.prev.Beta) / dt,
				rad(o.Gamma-p.prev.Gamma) / dt,
				rad(wrap180(o.Alpha-p.prev.Alpha)) / dt,
			}
		}
	}
	p.prev = &o
	p.last = now

	ts := float64(now.UnixMilli()) / 1000
	return packet.Format([]float64{ts}, []packet.SensorRecord{
		{ID: packet.AccelerometerID, Values: clean(accel)},
		{ID: packet.GyroscopeID, Values: clean(gyro)},
		{ID: packet.MagneticFieldID, Values: clean(mag)},
		{ID: packet.OrientationID, Values: clean([]float64{o.Alpha, o.Beta, o.Gamma})},
	}), nil
}

// clean rounds to the app's three decimals and nudges any value that would
// read as a channel id.
func clean(vs []float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		v = math.Round(v*1000) / 1000
		if _, isMarker := packet.Lookup(v); isMarker {
			v += 0.001
		}
		out[i] = v
	}
	return out
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

func wrap180(deg float64) float64 {
	return math.Mod(deg+540, 360) - 180
}
