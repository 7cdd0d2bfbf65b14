// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/phone_orientation/internal/orientation"
)

// RunMockConsole writes the packets the simulator would send, one per line,
// without touching the network. Handy for producing a test capture:
//
//	console -count 200 > packets.txt
func RunMockConsole(ctx context.Context, w io.Writer, interval time.Duration, count int) error {
	sim := newPhoneSim(orientation.NewMockSource(), time.Now)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; count <= 0 || n < count; n++ {
		line, err := sim.next()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}

		if count > 0 && n == count-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
