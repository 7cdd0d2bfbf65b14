// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package surface

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/phone_orientation/internal/raster"
	"github.com/relabs-tech/phone_orientation/internal/render"
)

//go:embed static
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const (
	framePNGSize = 480
	clientQueue  = 4
	writeWait    = time.Second
)

type WebConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// StaticDir is served at "/". When empty or missing the built-in page is used.
	StaticDir string
	Logf      func(format string, v ...any)
}

// Web serves the latest frame over HTTP and pushes frames to websocket
// clients as JSON. A frame drawn from the same mailbox version as the last
// pushed one is not pushed again; a client that connects gets the last
// frame straight away.
type Web struct {
	*render.Recorder

	cfg    WebConfig
	server *http.Server

	mu      sync.RWMutex
	last    render.Frame
	have    bool
	payload []byte
	pushed  uint64
	skipped uint64
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewWeb(cfg WebConfig) *Web {
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	w := &Web{cfg: cfg, clients: make(map[*wsClient]struct{})}
	w.Recorder = render.NewRecorder(w.present, w.close)
	return w
}

// Handler returns the HTTP routes.
func (w *Web) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orientation", w.handleOrientation)
	mux.HandleFunc("/api/frame.png", w.handleFramePNG)
	mux.HandleFunc("/ws/frames", w.handleFramesWS)
	mux.Handle("/", http.FileServer(w.staticFS()))
	return mux
}

func (w *Web) staticFS() http.FileSystem {
	if w.cfg.StaticDir != "" {
		if st, err := os.Stat(w.cfg.StaticDir); err == nil && st.IsDir() {
			return http.Dir(w.cfg.StaticDir)
		}
		w.cfg.Logf("web: static dir %s not found, using built-in page", w.cfg.StaticDir)
	}
	sub, _ := fs.Sub(staticFiles, "static")
	return http.FS(sub)
}

// Start binds the listen address and serves in the background.
func (w *Web) Start() error {
	ln, err := net.Listen("tcp", w.cfg.Addr)
	if err != nil {
		return err
	}
	w.server = &http.Server{Handler: w.Handler(), ReadHeaderTimeout: 5 * time.Second}
	w.cfg.Logf("web: server listening on %s", ln.Addr())

	go func() {
		if err := w.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.cfg.Logf("web: server error: %v", err)
		}
	}()
	return nil
}

func (w *Web) present(f render.Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	unchanged := w.have && f.Version == w.last.Version
	w.last = f
	w.have = true
	w.payload = payload
	if unchanged {
		w.skipped++
		return nil
	}

	w.pushed++
	for c := range w.clients {
		select {
		case c.send <- payload:
		default:
			// slow client, it gets the next frame
		}
	}
	return nil
}

func (w *Web) lastFrame() (render.Frame, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last, w.have
}

func (w *Web) handleOrientation(rw http.ResponseWriter, r *http.Request) {
	f, ok := w.lastFrame()
	if !ok {
		http.Error(rw, "no data yet", http.StatusServiceUnavailable)
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(f.Orientation); err != nil {
		w.cfg.Logf("web: json encode error: %v", err)
	}
}

func (w *Web) handleFramePNG(rw http.ResponseWriter, r *http.Request) {
	f, ok := w.lastFrame()
	if !ok {
		http.Error(rw, "no data yet", http.StatusServiceUnavailable)
		return
	}

	b, err := raster.PNG(f, framePNGSize, framePNGSize)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "image/png")
	rw.Header().Set("Cache-Control", "no-store")
	rw.Write(b)
}

func (w *Web) handleFramesWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.cfg.Logf("web: websocket upgrade error: %v", err)
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientQueue)}
	w.mu.Lock()
	if w.payload != nil {
		c.send <- w.payload
	}
	w.clients[c] = struct{}{}
	w.mu.Unlock()

	go w.writeLoop(c)

	// Clients never send anything; reading only notices the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	w.drop(c)
}

func (w *Web) writeLoop(c *wsClient) {
	defer c.conn.Close()
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			w.cfg.Logf("web: websocket write error: %v", err)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended"),
		time.Now().Add(writeWait))
}

func (w *Web) drop(c *wsClient) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.clients[c]; ok {
		delete(w.clients, c)
		close(c.send)
	}
}

func (w *Web) close() error {
	w.mu.Lock()
	w.cfg.Logf("web: pushed %d frames, %d unchanged not pushed", w.pushed, w.skipped)
	for c := range w.clients {
		delete(w.clients, c)
		close(c.send)
	}
	w.mu.Unlock()

	if w.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return w.server.Shutdown(ctx)
}
