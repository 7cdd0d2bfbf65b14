// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/phone_orientation/internal/config"
	"github.com/relabs-tech/phone_orientation/internal/geometry"
	"github.com/relabs-tech/phone_orientation/internal/history"
	"github.com/relabs-tech/phone_orientation/internal/ingest"
	"github.com/relabs-tech/phone_orientation/internal/logsink"
	"github.com/relabs-tech/phone_orientation/internal/orientation"
	"github.com/relabs-tech/phone_orientation/internal/packet"
	"github.com/relabs-tech/phone_orientation/internal/relay"
	"github.com/relabs-tech/phone_orientation/internal/render"
	"github.com/relabs-tech/phone_orientation/internal/surface"
)

// splashDelay lets the first frame reach the surfaces before the ingester
// starts waiting for the phone.
const splashDelay = 500 * time.Millisecond

// RunStreamer receives the phone stream, logs it and draws it until the
// phone goes quiet or ctx is cancelled. A quiet phone is a normal end and
// returns nil.
func RunStreamer(ctx context.Context, cfg *config.Config) error {
	s := &streamer{
		cfg:         cfg,
		session:     uuid.NewString(),
		splashDelay: splashDelay,
	}
	return s.run(ctx)
}

type streamer struct {
	cfg         *config.Config
	session     string
	splashDelay time.Duration

	// extraSurfaces are drawn on in addition to the configured ones.
	extraSurfaces []render.Surface

	closers []func() error
}

func (s *streamer) run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Printf("streamer: session %s", s.session)
	defer func() {
		for i := len(s.closers) - 1; i >= 0; i-- {
			if cerr := s.closers[i](); cerr != nil {
				log.Printf("streamer: shutdown: %v", cerr)
			}
		}
	}()

	mailbox := orientation.NewMailbox(orientation.Default)

	src, err := s.openSource(ctx)
	if err != nil {
		return err
	}
	sink, err := s.openSinks()
	if err != nil {
		src.Close()
		return err
	}
	surf, err := s.openSurfaces(ctx, cancel)
	if err != nil {
		src.Close()
		sink.Close()
		return err
	}
	observers, err := s.openObservers()
	if err != nil {
		src.Close()
		sink.Close()
		surf.Close()
		return err
	}

	ing, err := ingest.New(ingest.Config{
		Source:         src,
		Sink:           sink,
		Mailbox:        mailbox,
		InitialTimeout: s.cfg.InitialTimeout(),
		SteadyTimeout:  s.cfg.SteadyTimeout(),
		Observers:      observers,
		Verbose:        s.cfg.Verbose,
	})
	if err != nil {
		src.Close()
		sink.Close()
		surf.Close()
		return err
	}
	sched, err := render.NewScheduler(render.Config{
		Mailbox:     mailbox,
		FramePeriod: s.cfg.FramePeriod(),
		Dimensions:  geometry.Dimensions(s.cfg.BoxDimensions),
		Surface:     surf,
	})
	if err != nil {
		src.Close()
		sink.Close()
		surf.Close()
		return err
	}

	// The renderer never stops ingestion: a failed surface is logged and
	// reported once the phone goes quiet.
	renderCtx, stopRender := context.WithCancel(ctx)
	defer stopRender()
	var g errgroup.Group
	g.Go(func() error {
		err := sched.Run(renderCtx)
		if err != nil && !isContextErr(err) {
			log.Printf("streamer: renderer stopped: %v", err)
			return err
		}
		return nil
	})

	select {
	case <-time.After(s.splashDelay):
	case <-ctx.Done():
	}

	ingErr := ing.Run(ctx)
	stopRender()
	renderErr := g.Wait()
	log.Printf("streamer: %d orientation updates, %d frames drawn", mailbox.Version(), sched.Frames())

	switch {
	case errors.Is(ingErr, ingest.ErrStreamTimeout):
		log.Printf("streamer: %v", ingErr)
		return renderErr
	case ingErr != nil:
		return ingErr
	default:
		return renderErr
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (s *streamer) openSource(ctx context.Context) (ingest.Source, error) {
	switch s.cfg.SourceKind {
	case config.SourceSerial:
		return ingest.OpenSerial(s.cfg.SerialPort, uint(s.cfg.SerialBaudRate))
	case config.SourcePCAP:
		port, err := s.cfg.UDPPort()
		if err != nil {
			return nil, err
		}
		return ingest.OpenPCAP(s.cfg.PCAPFile, port, s.cfg.PCAPRealtime)
	default:
		return ingest.ListenUDP(ctx, ingest.BroadcastSocketFactory{}, s.cfg.UDPListenAddr, s.cfg.UDPMaxDatagram)
	}
}

func (s *streamer) openSinks() (logsink.Sink, error) {
	csv, err := logsink.OpenCSV(s.cfg.LogFilePath, packet.Header(packet.Channels))
	if err != nil {
		return nil, err
	}
	log.Printf("streamer: logging to %s", s.cfg.LogFilePath)
	if s.cfg.LogSQLitePath == "" {
		return csv, nil
	}

	db, err := logsink.OpenSQLite(s.cfg.LogSQLitePath, s.session)
	if err != nil {
		csv.Close()
		return nil, err
	}
	log.Printf("streamer: also logging to %s", s.cfg.LogSQLitePath)
	return logsink.Multi(csv, db), nil
}

// openSurfaces opens every configured surface. stop is called when the
// terminal surface asks to quit.
func (s *streamer) openSurfaces(ctx context.Context, stop context.CancelFunc) (render.Surface, error) {
	var surfaces []render.Surface
	fail := func(err error) (render.Surface, error) {
		for _, surf := range surfaces {
			surf.Close()
		}
		return nil, err
	}

	if s.cfg.HasSurface(config.SurfaceTerm) {
		restore, err := s.redirectLog()
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, restore)
	}

	for _, kind := range s.cfg.Surfaces {
		switch kind {
		case config.SurfaceWeb:
			web := surface.NewWeb(surface.WebConfig{
				Addr:      fmt.Sprintf(":%d", s.cfg.WebServerPort),
				StaticDir: s.cfg.WebStaticDir,
			})
			if err := web.Start(); err != nil {
				return fail(fmt.Errorf("web surface: %w", err))
			}
			surfaces = append(surfaces, web)

		case config.SurfaceOLED:
			oled, err := surface.OpenOLED(s.cfg.OLEDI2CBus)
			if err != nil {
				return fail(fmt.Errorf("oled surface: %w", err))
			}
			surfaces = append(surfaces, oled)

		case config.SurfaceTerm:
			term, err := surface.OpenTerminal()
			if err != nil {
				return fail(fmt.Errorf("terminal surface: %w", err))
			}
			go func() {
				select {
				case <-term.Quit():
					stop()
				case <-ctx.Done():
				}
			}()
			surfaces = append(surfaces, term)
		}
	}

	surfaces = append(surfaces, s.extraSurfaces...)
	if len(surfaces) == 0 {
		return render.Discard{}, nil
	}
	return render.MultiSurface(surfaces...), nil
}

// redirectLog sends the standard logger to a file next to the CSV log
// while the terminal is in raw mode.
func (s *streamer) redirectLog() (func() error, error) {
	path := filepath.Join(filepath.Dir(s.cfg.LogFilePath), "streamer.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	log.Printf("streamer: terminal surface active, logging to %s", path)
	log.SetOutput(f)
	return func() error {
		log.SetOutput(os.Stderr)
		return f.Close()
	}, nil
}

func (s *streamer) openObservers() ([]ingest.Observer, error) {
	var observers []ingest.Observer

	if s.cfg.MQTTBroker != "" {
		client, err := relay.Connect(s.cfg.MQTTBroker, s.cfg.MQTTClientID+"-"+s.session[:8])
		if err != nil {
			return nil, err
		}
		pub := relay.NewPublisher(client, relay.Topics{
			Orientation: s.cfg.TopicOrientation,
			IMU:         s.cfg.TopicIMU,
			GPS:         s.cfg.TopicGPS,
		}, s.session)
		observers = append(observers, pub)
		s.closers = append(s.closers, pub.Close)
	}

	if s.cfg.HistoryPlotPath != "" {
		rec := history.NewRecorder(0)
		observers = append(observers, rec)
		path := s.cfg.HistoryPlotPath
		s.closers = append(s.closers, func() error {
			err := rec.WritePlot(path)
			if errors.Is(err, history.ErrNoSamples) {
				log.Printf("streamer: no orientation received, skipping %s", path)
				return nil
			}
			if err == nil {
				log.Printf("streamer: orientation history written to %s", path)
			}
			return err
		})
	}

	return observers, nil
}
