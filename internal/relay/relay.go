// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package relay republishes what the streamer receives to an MQTT broker.
package relay

import (
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/phone_orientation/internal/gps"
	"github.com/relabs-tech/phone_orientation/internal/imu"
	"github.com/relabs-tech/phone_orientation/internal/packet"
)

type Topics struct {
	Orientation string
	IMU         string
	GPS         string
}

// Connect opens a client to broker, e.g. "tcp://localhost:1883".
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Printf("relay: connected to MQTT broker at %s", broker)
	return client, nil
}

// Publisher is an ingest observer. It never waits for the broker: a
// publish that has already failed is logged, anything else is left to
// the client.
type Publisher struct {
	client mqtt.Client
	topics Topics
	source string

	published atomic.Uint64
	failed    atomic.Uint64
}

// NewPublisher publishes on client. source tags IMU readings, typically the
// session id.
func NewPublisher(client mqtt.Client, topics Topics, source string) *Publisher {
	return &Publisher{client: client, topics: topics, source: source}
}

func (p *Publisher) OnPacket(pkt packet.Packet) {
	if pkt.Orientation != nil && p.topics.Orientation != "" {
		p.publish(p.topics.Orientation, true, pkt.Orientation)
	}
	if p.topics.IMU == "" {
		return
	}
	if r, ok := imu.FromPacket(p.source, pkt); ok {
		p.publish(p.topics.IMU, false, r)
	}
}

func (p *Publisher) OnFix(f gps.Fix) {
	if p.topics.GPS != "" {
		p.publish(p.topics.GPS, true, f)
	}
}

func (p *Publisher) publish(topic string, retained bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("relay: %s marshal error: %v", topic, err)
		return
	}

	token := p.client.Publish(topic, 0, retained, payload)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			p.failed.Add(1)
			log.Printf("relay: %s publish error: %v", topic, err)
			return
		}
	default:
	}
	p.published.Add(1)
}

// Counts returns how many publishes were handed to the client and how many
// are known to have failed.
func (p *Publisher) Counts() (published, failed uint64) {
	return p.published.Load(), p.failed.Load()
}

// Close disconnects, giving in-flight messages 250 ms.
func (p *Publisher) Close() error {
	p.client.Disconnect(250)
	published, failed := p.Counts()
	log.Printf("relay: disconnected after %d publishes (%d failed)", published, failed)
	return nil
}
