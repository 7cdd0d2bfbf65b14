// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/phone_orientation/internal/config"
	"github.com/relabs-tech/phone_orientation/internal/geometry"
	"github.com/relabs-tech/phone_orientation/internal/orientation"
	"github.com/relabs-tech/phone_orientation/internal/relay"
	"github.com/relabs-tech/phone_orientation/internal/render"
	"github.com/relabs-tech/phone_orientation/internal/surface"
)

// RunWebViewer serves the web surface on a machine other than the one
// running the streamer. Orientations arrive over MQTT instead of UDP.
func RunWebViewer(ctx context.Context, cfg *config.Config) error {
	if cfg.MQTTBroker == "" || cfg.TopicOrientation == "" {
		return errors.New("web: MQTT_BROKER and TOPIC_ORIENTATION are required")
	}

	client, err := relay.Connect(cfg.MQTTBroker, cfg.MQTTClientID+"-web")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	mailbox := orientation.NewMailbox(orientation.Default)
	token := client.Subscribe(cfg.TopicOrientation, 0, orientationHandler(mailbox))
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to MQTT topic %s", cfg.TopicOrientation)

	web := surface.NewWeb(surface.WebConfig{
		Addr:      fmt.Sprintf(":%d", cfg.WebServerPort),
		StaticDir: cfg.WebStaticDir,
	})
	if err := web.Start(); err != nil {
		return fmt.Errorf("web surface: %w", err)
	}

	sched, err := render.NewScheduler(render.Config{
		Mailbox:     mailbox,
		FramePeriod: cfg.FramePeriod(),
		Dimensions:  geometry.Dimensions(cfg.BoxDimensions),
		Surface:     web,
	})
	if err != nil {
		web.Close()
		return err
	}

	err = sched.Run(ctx)
	if isContextErr(err) {
		return nil
	}
	return err
}

// orientationHandler publishes every well-formed orientation message.
// The callback is the only writer of the viewer's mailbox.
func orientationHandler(mb *orientation.Mailbox) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		var o orientation.Orientation
		if err := parseOrientation(msg.Payload(), &o); err != nil {
			log.Printf("web: MQTT payload unmarshal error: %v", err)
			return
		}
		mb.Publish(o)
	}
}
