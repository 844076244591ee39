package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/i474232898/site-aqi-monitor/internal/aqi"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultKeepAlive         = 60 * time.Second
	defaultDisconnectQuiesce = 500 // milliseconds

	alertQoS = 1
)

var (
	// ErrNotConnected is returned when publishing on a disconnected client.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when the initial connection attempt fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when a publish is not acknowledged.
	ErrPublishFailed = errors.New("mqtt: publish failed")
)

// MQTTConfig configures the MQTT notifier.
type MQTTConfig struct {
	Broker   string // e.g. tcp://localhost:1883
	Topic    string
	ClientID string
}

// MQTT publishes alerts as JSON to a broker topic.
type MQTT struct {
	client pahomqtt.Client
	topic  string
}

// alertPayload is the wire shape of a published alert.
type alertPayload struct {
	ID      string   `json:"id"`
	Time    string   `json:"time"`
	PM25    *float64 `json:"pm25"`
	PM10    *float64 `json:"pm10"`
	Message string   `json:"message"`
}

// ConnectMQTT connects to the broker and returns a ready notifier.
// The client reconnects automatically after the first successful connect.
func ConnectMQTT(cfg MQTTConfig) (*MQTT, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Printf("WARN: mqtt: connection lost: %v", err)
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	log.Printf("INFO: mqtt: connected to %s, alerts on %s", cfg.Broker, cfg.Topic)
	return &MQTT{client: client, topic: cfg.Topic}, nil
}

func (m *MQTT) Notify(ctx context.Context, a aqi.Alert) error {
	if !m.client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(alertPayload{
		ID:      a.ID,
		Time:    aqi.FormatTime(a.Time),
		PM25:    a.PM25,
		PM10:    a.PM10,
		Message: a.Message,
	})
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}

	token := m.client.Publish(m.topic, alertQoS, false, payload)
	select {
	case <-token.Done():
	case <-time.After(defaultPublishTimeout):
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrPublishFailed, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.client.Disconnect(defaultDisconnectQuiesce)
}
