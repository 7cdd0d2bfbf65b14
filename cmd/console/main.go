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
	"time"

	"github.com/relabs-tech/phone_orientation/internal/app"
)

func main() {
	interval := flag.Duration("interval", 50*time.Millisecond, "time between packets")
	count := flag.Int("count", 0, "stop after this many packets (0 = run until interrupted)")
	flag.Parse()

	log.Println("starting phone orientation mock console")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunMockConsole(ctx, os.Stdout, *interval, *count); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("fatal: %v", err)
	}
}
