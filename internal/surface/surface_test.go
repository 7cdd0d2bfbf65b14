// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package surface

import (
	"encoding/json"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/phone_orientation/internal/orientation"
	"github.com/relabs-tech/phone_orientation/internal/render"
)

func drawFrame(t *testing.T, s render.Surface, o orientation.Orientation) {
	t.Helper()
	sched, err := render.NewScheduler(render.Config{
		Mailbox: orientation.NewMailbox(o),
		Surface: s,
		Logf:    t.Logf,
	})
	require.NoError(t, err)
	require.NoError(t, sched.Tick())
}

func TestWeb_NoDataYet(t *testing.T) {
	web := NewWeb(WebConfig{Logf: t.Logf})
	srv := httptest.NewServer(web.Handler())
	defer srv.Close()

	for _, path := range []string{"/api/orientation", "/api/frame.png"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestWeb_ServesLatestFrame(t *testing.T) {
	web := NewWeb(WebConfig{Logf: t.Logf})
	srv := httptest.NewServer(web.Handler())
	defer srv.Close()

	drawFrame(t, web, orientation.Orientation{Alpha: 90, Beta: 10, Gamma: -20})

	resp, err := http.Get(srv.URL + "/api/orientation")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got orientation.Orientation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, orientation.Orientation{Alpha: 90, Beta: 10, Gamma: -20}, got)

	png, err := http.Get(srv.URL + "/api/frame.png")
	require.NoError(t, err)
	defer png.Body.Close()
	assert.Equal(t, "image/png", png.Header.Get("Content-Type"))
	body, err := io.ReadAll(png.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "\x89PNG"))
}

func TestWeb_BuiltInPage(t *testing.T) {
	web := NewWeb(WebConfig{StaticDir: t.TempDir() + "/missing", Logf: t.Logf})
	srv := httptest.NewServer(web.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "/ws/frames")
}

func TestWeb_WebsocketPushesFrames(t *testing.T) {
	web := NewWeb(WebConfig{Logf: t.Logf})
	srv := httptest.NewServer(web.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/frames"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration happens in the handler; wait until it is visible.
	require.Eventually(t, func() bool {
		web.mu.RLock()
		defer web.mu.RUnlock()
		return len(web.clients) == 1
	}, time.Second, 5*time.Millisecond)

	drawFrame(t, web, orientation.Orientation{Alpha: 45})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f render.Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.EqualValues(t, 1, f.Seq)
	assert.Equal(t, orientation.Orientation{Alpha: 45}, f.Orientation)
	assert.Len(t, f.Segments, 3)

	require.NoError(t, web.Close())
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func dialFrames(t *testing.T, web *Web, srvURL string, clients int) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srvURL, "http") + "/ws/frames"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		web.mu.RLock()
		defer web.mu.RUnlock()
		return len(web.clients) == clients
	}, time.Second, 5*time.Millisecond)
	return conn
}

func TestWeb_SkipsUnchangedFrames(t *testing.T) {
	web := NewWeb(WebConfig{Logf: t.Logf})
	srv := httptest.NewServer(web.Handler())
	defer srv.Close()
	conn := dialFrames(t, web, srv.URL, 1)
	defer conn.Close()

	mb := orientation.NewMailbox(orientation.Default)
	sched, err := render.NewScheduler(render.Config{Mailbox: mb, Surface: web, Logf: t.Logf})
	require.NoError(t, err)

	require.NoError(t, sched.Tick())
	require.NoError(t, sched.Tick())
	mb.Publish(orientation.Orientation{Alpha: 10})
	require.NoError(t, sched.Tick())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first, second render.Frame
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))
	assert.EqualValues(t, 1, first.Seq)
	assert.EqualValues(t, 0, first.Version)
	assert.EqualValues(t, 3, second.Seq)
	assert.EqualValues(t, 1, second.Version)
	assert.Equal(t, orientation.Orientation{Alpha: 10}, second.Orientation)

	// The skipped frame still counts as the latest for polling clients.
	f, ok := web.lastFrame()
	require.True(t, ok)
	assert.EqualValues(t, 3, f.Seq)

	web.mu.RLock()
	assert.EqualValues(t, 2, web.pushed)
	assert.EqualValues(t, 1, web.skipped)
	web.mu.RUnlock()
}

func TestWeb_LateClientGetsLastFrame(t *testing.T) {
	web := NewWeb(WebConfig{Logf: t.Logf})
	srv := httptest.NewServer(web.Handler())
	defer srv.Close()

	drawFrame(t, web, orientation.Orientation{Alpha: 75})

	conn := dialFrames(t, web, srv.URL, 1)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f render.Frame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, orientation.Orientation{Alpha: 75}, f.Orientation)
}

type fakeDisplay struct {
	draws  int
	last   image.Image
	halted bool
}

func (d *fakeDisplay) Bounds() image.Rectangle { return image.Rect(0, 0, 128, 64) }

func (d *fakeDisplay) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	d.draws++
	d.last = src
	return nil
}

func (d *fakeDisplay) Halt() error {
	d.halted = true
	return nil
}

func TestOLED_DrawsEveryFrame(t *testing.T) {
	dev := &fakeDisplay{}
	o := NewOLED(dev)

	require.NoError(t, o.splash())
	drawFrame(t, o, orientation.Default)
	drawFrame(t, o, orientation.Orientation{Alpha: 120})

	assert.Equal(t, 3, dev.draws)
	require.NotNil(t, dev.last)
	assert.Equal(t, image.Rect(0, 0, 128, 64), dev.last.Bounds())

	require.NoError(t, o.Close())
	assert.True(t, dev.halted)
}

func TestTermLines(t *testing.T) {
	rec := render.NewRecorder(func(f render.Frame) error {
		lines := termLines(f, 80, 24)
		assert.Len(t, lines, 6*4+3)
		area := image.Rect(0, 0, 80*dotsX, 24*dotsY)
		for _, l := range lines {
			assert.True(t, l.from.In(area), "%v", l.from)
			assert.True(t, l.to.In(area), "%v", l.to)
		}
		return nil
	}, nil)
	drawFrame(t, rec, orientation.Orientation{Alpha: 30, Beta: 45, Gamma: 60})
}
