package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTopic is used when no MQTT topic is configured.
const DefaultTopic = "athany/prayers"

const connectTimeout = 10 * time.Second

// PublishTimeout bounds how long Notify waits for the broker to acknowledge
// a publish. While the client is reconnecting, QoS 1 tokens stay pending.
const PublishTimeout = 5 * time.Second

// ErrPublishTimeout is returned when the broker did not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Message is the JSON payload published for each notification.
type Message struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// MQTT publishes notifications to a broker topic with QoS 1, so displays
// and home automation can react to the call to prayer.
type MQTT struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewMQTT connects to broker (e.g. "tcp://localhost:1883").
func NewMQTT(broker, topic string, logger *zap.Logger) (*MQTT, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID("athany-" + uuid.NewString())
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.OnConnect = func(mqtt.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", broker))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", broker, err)
	}

	return NewMQTTFromClient(client, topic, logger), nil
}

// NewMQTTFromClient publishes through an existing client.
func NewMQTTFromClient(client mqtt.Client, topic string, logger *zap.Logger) *MQTT {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTT{client: client, topic: topic, timeout: PublishTimeout, logger: logger, now: time.Now}
}

// Notify publishes one message and waits at most PublishTimeout for the
// broker's acknowledgement.
func (m *MQTT) Notify(ctx context.Context, title, message string) error {
	payload, err := json.Marshal(Message{
		ID:      uuid.NewString(),
		Title:   title,
		Message: message,
		Time:    m.now(),
	})
	if err != nil {
		return err
	}

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	token := m.client.Publish(m.topic, 1, false, payload)
	select {
	case <-token.Done():
	case <-timer.C:
		return fmt.Errorf("%w: %s after %s", ErrPublishTimeout, m.topic, m.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", m.topic, err)
	}
	m.logger.Debug("Published notification", zap.String("topic", m.topic))
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
