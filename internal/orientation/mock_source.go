// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"time"
)

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a mock orientation source that
// generates smooth changing values.
func NewMockSource() Source {
	return newMockSource(time.Now)
}

func newMockSource(now func() time.Time) *mockSource {
	return &mockSource{start: now(), now: now}
}

func (m *mockSource) Next() (Orientation, error) {
	elapsed := m.now().Sub(m.start).Seconds()

	// alpha behaves like a compass heading, beta/gamma like tilt.
	return Orientation{
		Alpha: math.Mod(elapsed*30, 360),
		Beta:  20 * math.Sin(elapsed),
		Gamma: 15 * math.Cos(elapsed*0.7),
	}, nil
}
