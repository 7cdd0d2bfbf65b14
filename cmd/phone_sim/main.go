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
	configPath := flag.String("config", "", "config file (KEY=VALUE or .yaml)")
	target := flag.String("target", "", "override SIM_TARGET_ADDR, e.g. 127.0.0.1:5555")
	count := flag.Int("count", 0, "stop after this many packets (0 = run until interrupted)")
	flag.Parse()

	log.Println("starting phone simulator")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *target != "" {
		cfg.SimTargetAddr = *target
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunSimulator(ctx, cfg, *count); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("fatal: %v", err)
	}
}
