// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/gesture_arm/internal/bridge"
	"github.com/relabs-tech/gesture_arm/internal/orientation"
)

const disconnectQuiesceMs = 250

func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", broker, token.Error())
	}
	return client, nil
}

// subscribeJSON subscribes to topic and decodes every payload into a fresh T.
func subscribeJSON[T any](client mqtt.Client, topic string, logger zerolog.Logger, fn func(T)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var v T
		if err := json.Unmarshal(msg.Payload(), &v); err != nil {
			logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("payload unmarshal error")
			return
		}
		fn(v)
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	logger.Info().Str("topic", topic).Msg("subscribed")
	return nil
}

// MQTTPublisher mirrors bridge decisions and peripheral poses to MQTT.
// Publishing never blocks the caller's loop.
type MQTTPublisher struct {
	client       mqtt.Client
	topicPose    string
	topicCommand string
	logger       zerolog.Logger
}

// NewMQTTPublisher wraps a connected client.
func NewMQTTPublisher(client mqtt.Client, topicPose, topicCommand string, logger zerolog.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client:       client,
		topicPose:    topicPose,
		topicCommand: topicCommand,
		logger:       logger,
	}
}

// Report publishes d on the command topic and its pose on the pose topic.
func (p *MQTTPublisher) Report(d bridge.Decision) {
	p.publish(p.topicCommand, d)
	p.publish(p.topicPose, d.Pose())
}

// PublishPose publishes pose on the pose topic.
func (p *MQTTPublisher) PublishPose(pose orientation.Pose) {
	p.publish(p.topicPose, pose)
}

func (p *MQTTPublisher) publish(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Error().Err(err).Str("topic", topic).Msg("json marshal error")
		return
	}

	token := p.client.Publish(topic, 0, false, payload)
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			p.logger.Warn().Err(err).Str("topic", topic).Msg("MQTT publish error")
		}
	}()
}

// Close disconnects the underlying client.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(disconnectQuiesceMs)
}
