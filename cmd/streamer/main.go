// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/phone_orientation/internal/app"
	"github.com/relabs-tech/phone_orientation/internal/config"
)

func main() {
	configPath := flag.String("config", "", "config file (KEY=VALUE or .yaml); defaults are used when empty")
	flag.Parse()

	log.Println("starting phone orientation streamer")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = app.RunStreamer(ctx, cfg)
	switch {
	case errors.Is(err, context.Canceled):
		log.Println("interrupted")
	case err != nil:
		log.Fatalf("fatal: %v", err)
	}
}
