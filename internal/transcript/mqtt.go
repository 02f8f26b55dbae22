package transcript

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultTopicPrefix matches the teacher's MQTT transport default.
const DefaultTopicPrefix = "corerouter"

// MQTTConfig configures an MQTTSink.
type MQTTConfig struct {
	// Broker is the MQTT broker URL (e.g. "tcp://broker.example.com:1883").
	Broker string
	// Username/Password are optional MQTT credentials.
	Username string
	Password string
	// ClientID defaults to a random "corerouter-<12 chars>" id.
	ClientID string
	// TopicPrefix defaults to DefaultTopicPrefix. Records publish to
	// "{TopicPrefix}/drones/{drone_id}/events".
	TopicPrefix string
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// MQTTSink publishes one message per recorded event to a per-drone
// MQTT topic, grounded on transport/mqtt.Transport's client-options
// and publish shape, simplified to a write-only publisher.
type MQTTSink struct {
	client paho.Client
	prefix string
	log    *slog.Logger
}

// OpenMQTTSink connects to cfg.Broker and returns a ready-to-use sink.
func OpenMQTTSink(cfg MQTTConfig) (*MQTTSink, error) {
	if cfg.Broker == "" {
		return nil, errors.New("transcript: broker URL is required")
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.WithGroup("transcript.mqtt")

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "corerouter-" + randomString(12)
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(60 * time.Second).
		SetOrderMatters(false)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return nil, errors.New("transcript: connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("transcript: connecting to broker: %w", err)
	}

	log.Info("connected to MQTT broker", "broker", cfg.Broker)
	return &MQTTSink{client: client, prefix: cfg.TopicPrefix, log: log}, nil
}

// Record publishes one JSON message for record to its drone's topic.
func (s *MQTTSink) Record(record Record) error {
	data, err := encode(record)
	if err != nil {
		return err
	}

	topic := fmt.Sprintf("%s/drones/%d/events", s.prefix, record.DroneID)
	token := s.client.Publish(topic, 0, false, data)
	if !token.WaitTimeout(10 * time.Second) {
		return errors.New("transcript: timeout publishing to MQTT")
	}
	return token.Error()
}

// Close disconnects from the broker.
func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}

func randomString(n int) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}
