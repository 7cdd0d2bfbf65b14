// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import "sync"

// Mailbox is a single-slot store for the most recent orientation.
//
// The ingester publishes into it and the renderer reads from it. A publish
// overwrites whatever is held (no queue, no back-pressure) and a read returns
// a copy of the whole triple taken under the lock, so a reader never sees
// alpha from one publish mixed with beta from another.
type Mailbox struct {
	mu      sync.RWMutex
	current Orientation
	version uint64
}

// NewMailbox returns a mailbox holding initial until the first Publish.
func NewMailbox(initial Orientation) *Mailbox {
	return &Mailbox{current: initial}
}

// Publish replaces the held orientation.
func (m *Mailbox) Publish(o Orientation) {
	m.mu.Lock()
	m.current = o
	m.version++
	m.mu.Unlock()
}

// Read returns the most recently published orientation, or the initial
// value if nothing has been published yet. It never waits for a new value.
func (m *Mailbox) Read() Orientation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Snapshot returns the held orientation together with the number of
// publishes seen so far.
func (m *Mailbox) Snapshot() (Orientation, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.version
}

// Version is the number of publishes so far. Surfaces use it to skip
// pushing a frame that shows nothing new.
func (m *Mailbox) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}
