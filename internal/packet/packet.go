// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package packet parses the comma-separated datagrams sent by the phone app.
//
// A datagram looks like
//
//	1584435040.25, 3, 0.154, 9.800, 0.326, 4, ..., 81, 12.0, -3.5, 0.7
//
// Leading values are unlabeled (the app puts a timestamp there). After that a
// reserved id marks the start of a channel and the values up to the next id
// belong to it. The last token, if it is not a number, is a free-form trailer.
package packet

import (
	"math"
	"strconv"
	"strings"

	"github.com/relabs-tech/phone_orientation/internal/orientation"
)

// SensorRecord is one channel's readings from a single datagram.
type SensorRecord struct {
	ID     int
	Values []float64
}

// Packet is everything parsed out of one datagram.
type Packet struct {
	// Unlabeled holds the values that precede the first channel marker.
	Unlabeled []float64
	Records   []SensorRecord
	// Orientation is set when the datagram carried a complete orientation channel.
	Orientation *orientation.Orientation
	Trailer     string
}

// Record returns the first record for the given channel id.
func (p Packet) Record(id int) (SensorRecord, bool) {
	for _, r := range p.Records {
		if r.ID == id {
			return r, true
		}
	}
	return SensorRecord{}, false
}

// Parse splits one datagram into typed records and the line written to the
// CSV log. The log line is every token except the channel markers, in
// order and unchanged, joined by commas.
//
// On error nothing from the datagram should be logged or published.
func Parse(raw []byte) (Packet, string, error) {
	tokens := strings.Split(strings.TrimRight(string(raw), "\r\n"), ",")

	var (
		pkt     Packet
		kept    = make([]string, 0, len(tokens))
		current *SensorRecord
		channel Channel
	)

	for i, tok := range tokens {
		v, err := parseValue(tok)
		if err != nil {
			if i == len(tokens)-1 {
				pkt.Trailer = tok
				kept = append(kept, tok)
				break
			}
			return Packet{}, "", &MalformedPacketError{Index: i, Token: tok, Err: err}
		}

		if ch, ok := Lookup(v); ok {
			if current != nil {
				if err := pkt.closeRecord(*current, channel, false); err != nil {
					return Packet{}, "", err
				}
			}
			current = &SensorRecord{ID: ch.ID}
			channel = ch
			continue
		}

		kept = append(kept, tok)
		if current == nil {
			pkt.Unlabeled = append(pkt.Unlabeled, v)
		} else {
			current.Values = append(current.Values, v)
		}
	}

	if current != nil {
		if err := pkt.closeRecord(*current, channel, true); err != nil {
			return Packet{}, "", err
		}
	}

	return pkt, strings.Join(kept, ","), nil
}

// parseValue accepts finite numbers only.
func parseValue(tok string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

// closeRecord finishes the record for ch. A channel that runs into the end
// of the datagram must be complete; one cut short by the next marker is only
// an error for orientation, which needs all three angles.
func (p *Packet) closeRecord(rec SensorRecord, ch Channel, atEnd bool) error {
	short := len(rec.Values) < ch.Columns
	if short && (atEnd || ch.ID == OrientationID) {
		return &TruncatedPacketError{Channel: ch, Got: len(rec.Values)}
	}

	if ch.ID == OrientationID && p.Orientation == nil {
		p.Orientation = &orientation.Orientation{
			Alpha: rec.Values[0],
			Beta:  rec.Values[1],
			Gamma: rec.Values[2],
		}
	}

	p.Records = append(p.Records, rec)
	return nil
}

// Format renders unlabeled values followed by each record as a datagram in
// the phone app's format. It is the inverse of Parse for well-formed input.
func Format(unlabeled []float64, records []SensorRecord) string {
	var b strings.Builder
	write := func(s string) {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s)
	}

	for _, v := range unlabeled {
		write(strconv.FormatFloat(v, 'f', -1, 64))
	}
	for _, r := range records {
		write(strconv.Itoa(r.ID))
		for _, v := range r.Values {
			write(strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return b.String()
}
