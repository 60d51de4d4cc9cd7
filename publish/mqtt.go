package publish

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"straincap/capture"
	"straincap/report"
)

type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	// Timeout bounds connect and the summary publish.
	Timeout time.Duration
}

// Publisher mirrors a capture to an MQTT broker: raw device lines as they
// arrive and the summary once the session is done.
type Publisher struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
}

func Connect(cfg Config) (*Publisher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(cfg.Timeout)
	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out after %s", cfg.Broker, cfg.Timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return NewPublisher(client, cfg.TopicPrefix, cfg.Timeout), nil
}

func NewPublisher(client mqtt.Client, prefix string, timeout time.Duration) *Publisher {
	if prefix == "" {
		prefix = "straincap"
	}
	return &Publisher{client: client, prefix: prefix, timeout: timeout}
}

func (p *Publisher) LinesTopic() string   { return p.prefix + "/lines" }
func (p *Publisher) SummaryTopic() string { return p.prefix + "/summary" }

// Write publishes p as one message without waiting for the broker, so it
// can sit behind a log writer or observer inside the read loop.
func (p *Publisher) Write(b []byte) (int, error) {
	payload := make([]byte, len(b))
	copy(payload, b)
	p.client.Publish(p.LinesTopic(), 0, false, payload)
	return len(b), nil
}

// LineObserver returns an observer that forwards each device line.
func (p *Publisher) LineObserver() capture.LineObserver {
	return func(line string) {
		_, _ = p.Write([]byte(line))
	}
}

// PublishSummary sends the summary as retained JSON and waits for the
// broker to acknowledge it.
func (p *Publisher) PublishSummary(sum report.Summary) error {
	payload, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	token := p.client.Publish(p.SummaryTopic(), 1, true, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish summary: timed out after %s", p.timeout)
	}
	return token.Error()
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
