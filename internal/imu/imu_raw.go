// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import "github.com/relabs-tech/phone_orientation/internal/packet"

// Vec3 is one three-axis reading in the phone's units.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Reading collects the motion channels of one phone packet.
// A channel the packet did not carry is nil.
type Reading struct {
	Source string `json:"source"`

	Accel *Vec3 `json:"accel,omitempty"` // m/s²
	Gyro  *Vec3 `json:"gyro,omitempty"`  // rad/s
	Mag   *Vec3 `json:"mag,omitempty"`   // µT
}

// FromPacket extracts the accelerometer, gyroscope and magnetometer records.
// ok is false when the packet carried none of them.
func FromPacket(source string, p packet.Packet) (r Reading, ok bool) {
	r.Source = source
	r.Accel = vec(p, packet.AccelerometerID)
	r.Gyro = vec(p, packet.GyroscopeID)
	r.Mag = vec(p, packet.MagneticFieldID)
	return r, r.Accel != nil || r.Gyro != nil || r.Mag != nil
}

func vec(p packet.Packet, id int) *Vec3 {
	rec, found := p.Record(id)
	ch, declared := packet.ByID(id)
	if !found || !declared || len(rec.Values) < ch.Columns {
		return nil
	}
	return &Vec3{X: rec.Values[0], Y: rec.Values[1], Z: rec.Values[2]}
}
