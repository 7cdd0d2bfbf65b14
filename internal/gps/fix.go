// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Sentence   string  `json:"sentence"`              // NMEA sentence type it came from, "RMC" or "GGA"
	Time       string  `json:"time"`                  // e.g. "12:34:56.0000"
	Date       string  `json:"date,omitempty"`        // RMC only
	Latitude   float64 `json:"lat"`                   // decimal degrees
	Longitude  float64 `json:"lon"`                   // decimal degrees
	Altitude   float64 `json:"alt_m,omitempty"`       // GGA only
	Satellites int64   `json:"satellites,omitempty"`  // GGA only
	SpeedKnots float64 `json:"speed_knots,omitempty"` // RMC only
	CourseDeg  float64 `json:"course_deg,omitempty"`  // RMC only
	Validity   string  `json:"validity,omitempty"`    // "A" (valid) / "V" (void)
}
