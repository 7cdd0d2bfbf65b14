// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import "fmt"

// Orientation is the device attitude as sent by the phone: alpha, beta and
// gamma Euler angles in degrees. Values are kept exactly as received.
type Orientation struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

// Default is what the renderer shows before the first orientation packet
// arrives. It matches the "81,360,0,0" seed the phone app starts from.
var Default = Orientation{Alpha: 360, Beta: 0, Gamma: 0}

func (o Orientation) String() string {
	return fmt.Sprintf("alpha=%.2f beta=%.2f gamma=%.2f", o.Alpha, o.Beta, o.Gamma)
}

// Source is anything that can provide orientations over time.
// The phone simulator uses it; the streamer gets its values from the network.
type Source interface {
	Next() (Orientation, error)
}
