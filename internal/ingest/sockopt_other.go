// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

//go:build !unix

package ingest

import "syscall"

// Broadcast reception works without extra options on the other platforms
// we build for; address reuse is not available there.
func setBroadcastReuse(network, address string, c syscall.RawConn) error {
	return nil
}
