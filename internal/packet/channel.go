// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package packet

import "strconv"

// Channel describes one sensor stream in the phone's packet format: the
// numeric id sent before its values and how many values it carries.
type Channel struct {
	Name    string
	ID      int
	Columns int
}

// Channel ids reserved by the wire format.
const (
	AccelerometerID = 3
	GyroscopeID     = 4
	MagneticFieldID = 5
	OrientationID   = 81
)

// Channels lists the declared channels in log-column order.
var Channels = []Channel{
	{Name: "Accelerometer", ID: AccelerometerID, Columns: 3},
	{Name: "GyroScope", ID: GyroscopeID, Columns: 3},
	{Name: "Magnetic Field", ID: MagneticFieldID, Columns: 3},
	{Name: "Orientation", ID: OrientationID, Columns: 3},
}

// Lookup reports whether v is a reserved channel id.
//
// Any numeric token equal to an id is treated as a marker, even when it is
// really a sensor value that happens to equal 3, 4, 5 or 81. The wire format
// has no way to tell the two apart.
func Lookup(v float64) (Channel, bool) {
	for _, ch := range Channels {
		if v == float64(ch.ID) {
			return ch, true
		}
	}
	return Channel{}, false
}

// ByID returns the declared channel with the given id.
func ByID(id int) (Channel, bool) {
	return Lookup(float64(id))
}

// Header returns the log header fields: a Time column followed by one
// column per channel value ("Accelerometer 0", ...). The last field is empty
// so the joined header ends with a comma, as the original logs do.
func Header(channels []Channel) []string {
	fields := []string{"Time"}
	for _, ch := range channels {
		for i := 0; i < ch.Columns; i++ {
			fields = append(fields, ch.Name+" "+strconv.Itoa(i))
		}
	}
	return append(fields, "")
}
