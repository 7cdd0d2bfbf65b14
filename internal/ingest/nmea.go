// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ingest

import (
	"bytes"
	"fmt"
	"strings"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/phone_orientation/internal/gps"
)

// isNMEA reports whether a datagram carries NMEA sentences instead of
// sensor values. Some phone apps interleave the location on the same port.
func isNMEA(raw []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(raw, " \t\r\n"), []byte("$"))
}

// parseFixes converts every RMC or GGA sentence in the datagram. Other
// sentence types are skipped. The first parse error is returned together
// with whatever fixes were decoded before it.
func parseFixes(raw []byte) ([]gps.Fix, error) {
	var fixes []gps.Fix
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			return fixes, fmt.Errorf("nmea: %w", err)
		}

		switch sentence.DataType() {
		case nmea.TypeRMC:
			m := sentence.(nmea.RMC)
			fixes = append(fixes, gps.Fix{
				Sentence:   "RMC",
				Time:       m.Time.String(),
				Date:       m.Date.String(),
				Latitude:   m.Latitude,
				Longitude:  m.Longitude,
				SpeedKnots: m.Speed,
				CourseDeg:  m.Course,
				Validity:   string(m.Validity),
			})
		case nmea.TypeGGA:
			m := sentence.(nmea.GGA)
			fixes = append(fixes, gps.Fix{
				Sentence:   "GGA",
				Time:       m.Time.String(),
				Latitude:   m.Latitude,
				Longitude:  m.Longitude,
				Altitude:   m.Altitude,
				Satellites: m.NumSatellites,
			})
		}
	}
	return fixes, nil
}
