package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTSink publishes alerts to "<prefix>/<kind>" for push bridges that
// relay them to handsets.
type MQTTSink struct {
	client mqtt.Client
	prefix string
	qos    byte
}

// NewMQTTSink connects to broker and returns a ready sink.
func NewMQTTSink(broker, clientID, prefix string) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)

	c := mqtt.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	return &MQTTSink{client: c, prefix: strings.TrimSuffix(prefix, "/"), qos: 1}, nil
}

func (s *MQTTSink) Publish(ctx context.Context, a Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert %s: %w", a.ID, err)
	}

	tok := s.client.Publish(topicFor(s.prefix, a.Kind), s.qos, false, body)
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}

func topicFor(prefix string, k Kind) string {
	if prefix == "" {
		return string(k)
	}
	return prefix + "/" + string(k)
}
