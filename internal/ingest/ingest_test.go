// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/phone_orientation/internal/gps"
	"github.com/relabs-tech/phone_orientation/internal/logsink"
	"github.com/relabs-tech/phone_orientation/internal/orientation"
	"github.com/relabs-tech/phone_orientation/internal/packet"
)

type recordingObserver struct {
	packets []packet.Packet
	fixes   []gps.Fix
}

func (r *recordingObserver) OnPacket(p packet.Packet) { r.packets = append(r.packets, p) }
func (r *recordingObserver) OnFix(f gps.Fix)          { r.fixes = append(r.fixes, f) }

type harness struct {
	sock    *mockSocket
	csvPath string
	mailbox *orientation.Mailbox
	obs     *recordingObserver
	in      *Ingestor
}

func newHarness(t *testing.T, initial, steady time.Duration, script ...mockDatagram) *harness {
	t.Helper()

	sock := newMockSocket(script...)
	src, err := ListenUDP(context.Background(), mockFactory{sock: sock}, DefaultUDPAddr, 0)
	require.NoError(t, err)

	csvPath := filepath.Join(t.TempDir(), "log_file.csv")
	sink, err := logsink.OpenCSV(csvPath, packet.Header(packet.Channels))
	require.NoError(t, err)

	h := &harness{
		sock:    sock,
		csvPath: csvPath,
		mailbox: orientation.NewMailbox(orientation.Default),
		obs:     &recordingObserver{},
	}
	h.in, err = New(Config{
		Source:         src,
		Sink:           sink,
		Mailbox:        h.mailbox,
		InitialTimeout: initial,
		SteadyTimeout:  steady,
		Observers:      []Observer{h.obs},
		Logf:           t.Logf,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) csvLines(t *testing.T) []string {
	t.Helper()
	b, err := os.ReadFile(h.csvPath)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

func TestRun_LogsAndPublishes(t *testing.T) {
	h := newHarness(t, time.Second, 50*time.Millisecond,
		mockDatagram{Data: "81,360,0,0"},
		mockDatagram{After: 5 * time.Millisecond, Data: "3,1,2,3,81,90,0,0"},
	)

	err := h.in.Run(context.Background())
	require.ErrorIs(t, err, ErrStreamTimeout)

	want := []string{
		strings.Join(packet.Header(packet.Channels), ","),
		"360,0,0",
		"1,2,90,0,0",
	}
	if diff := cmp.Diff(want, h.csvLines(t)); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, orientation.Orientation{Alpha: 90}, h.mailbox.Read())
	assert.Len(t, h.obs.packets, 2)
	assert.True(t, h.sock.isClosed())
}

func TestRun_SteadyTimeoutAfterLastDatagram(t *testing.T) {
	const steady = 80 * time.Millisecond
	h := newHarness(t, time.Second, steady, mockDatagram{Data: "81,1,2,7"})

	start := time.Now()
	err := h.in.Run(context.Background())
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrStreamTimeout)
	assert.GreaterOrEqual(t, elapsed, steady)
	assert.Less(t, elapsed, steady+time.Second/2)
}

func TestRun_InitialTimeout(t *testing.T) {
	const initial = 60 * time.Millisecond
	h := newHarness(t, initial, 10*time.Millisecond)

	start := time.Now()
	err := h.in.Run(context.Background())

	require.ErrorIs(t, err, ErrStreamTimeout)
	assert.GreaterOrEqual(t, time.Since(start), initial)
	assert.Equal(t, orientation.Default, h.mailbox.Read())
	assert.Len(t, h.csvLines(t), 1, "only the header")
}

func TestRun_EveryDatagramResetsSilence(t *testing.T) {
	// Gaps below the steady timeout that add up to well above it.
	script := make([]mockDatagram, 6)
	for i := range script {
		script[i] = mockDatagram{After: 30 * time.Millisecond, Data: "81,10,20,30"}
	}
	script[3].Data = "not,a,packet"

	h := newHarness(t, time.Second, 60*time.Millisecond, script...)
	require.ErrorIs(t, h.in.Run(context.Background()), ErrStreamTimeout)

	assert.Len(t, h.csvLines(t), 1+5)
	snap := h.in.Stats().Snapshot()
	assert.EqualValues(t, 6, snap.Packets)
	assert.EqualValues(t, 5, snap.Logged)
	assert.EqualValues(t, 1, snap.Malformed)
}

func TestRun_BadPacketsAreDropped(t *testing.T) {
	h := newHarness(t, time.Second, 40*time.Millisecond,
		mockDatagram{Data: "81,10,11,12"},
		mockDatagram{Data: "1.5,abc,81,1,1,1"},
		mockDatagram{Data: "81,1,2"},
	)
	require.ErrorIs(t, h.in.Run(context.Background()), ErrStreamTimeout)

	assert.Equal(t, []string{strings.Join(packet.Header(packet.Channels), ","), "10,11,12"}, h.csvLines(t))
	assert.Equal(t, orientation.Orientation{Alpha: 10, Beta: 11, Gamma: 12}, h.mailbox.Read())
	snap := h.in.Stats().Snapshot()
	assert.EqualValues(t, 1, snap.Malformed)
	assert.EqualValues(t, 1, snap.Truncated)
}

func TestRun_NonFiniteOrientationIsDropped(t *testing.T) {
	h := newHarness(t, time.Second, 40*time.Millisecond,
		mockDatagram{Data: "81,10,11,12"},
		mockDatagram{Data: "81,NaN,0,0"},
		mockDatagram{Data: "81,0,+Inf,0"},
		mockDatagram{Data: "81,20,21,22"},
	)
	require.ErrorIs(t, h.in.Run(context.Background()), ErrStreamTimeout)

	assert.Equal(t, []string{strings.Join(packet.Header(packet.Channels), ","), "10,11,12", "20,21,22"}, h.csvLines(t))
	assert.Equal(t, orientation.Orientation{Alpha: 20, Beta: 21, Gamma: 22}, h.mailbox.Read())
	assert.EqualValues(t, 2, h.in.Stats().Snapshot().Malformed)
}

func TestRun_ContextCancel(t *testing.T) {
	h := newHarness(t, 10*time.Second, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	err := h.in.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, h.sock.isClosed())
}

func TestRun_NMEAGoesToObservers(t *testing.T) {
	h := newHarness(t, time.Second, 40*time.Millisecond,
		mockDatagram{Data: "$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*70\r\n"},
	)
	require.ErrorIs(t, h.in.Run(context.Background()), ErrStreamTimeout)

	require.Len(t, h.obs.fixes, 1)
	fix := h.obs.fixes[0]
	assert.Equal(t, "RMC", fix.Sentence)
	assert.InDelta(t, 51.5637, fix.Latitude, 1e-3)
	assert.InDelta(t, -0.704, fix.Longitude, 1e-3)
	assert.Equal(t, "A", fix.Validity)
	assert.Len(t, h.csvLines(t), 1)
	assert.EqualValues(t, 1, h.in.Stats().Snapshot().NMEA)
}

func TestListenUDP_BindError(t *testing.T) {
	_, err := ListenUDP(context.Background(), mockFactory{err: syscall.EADDRINUSE}, ":5555", 0)

	var bindErr *SocketBindError
	require.True(t, errors.As(err, &bindErr))
	assert.Equal(t, ":5555", bindErr.Addr)
	assert.ErrorIs(t, err, syscall.EADDRINUSE)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
