package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/joeydtaylor/certipop/pkg/codec"
	"go.uber.org/zap"
)

// Config is the [audit] block of the manifest.
type Config struct {
	Topic         string            `toml:"topic"`
	Targets       []string          `toml:"targets"` // host:port; ELECTRICIAN_TARGET wins when set
	TLS           bool              `toml:"tls"`
	TLSClientCert string            `toml:"tls_client_cert"`
	TLSClientKey  string            `toml:"tls_client_key"`
	TLSCA         string            `toml:"tls_ca"`
	Compress      string            `toml:"compress"` // "snappy" | ""
	Encrypt       string            `toml:"encrypt"`  // "aesgcm" | ""; key from ELECTRICIAN_AES256_KEY_HEX
	StaticHeaders map[string]string `toml:"static_headers"`
}

const (
	DefaultTopic   = "certipop.audit"
	publishTimeout = 5 * time.Second
)

// Publisher emits audit events until Close.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close()                               {}

// RelayPublisher encodes events as JSON and hands them to a Relay.
type RelayPublisher struct {
	relay Relay
	topic string
	log   *zap.Logger
}

func NewRelayPublisher(r Relay, topic string, log *zap.Logger) *RelayPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RelayPublisher{relay: r, topic: topic, log: log}
}

// Publish encodes ev as JSON. The event carries its own ID and request ID;
// topic and content type are fixed per relay.
func (p *RelayPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := codec.JSONStrict.Marshal(ev)
	if err != nil {
		return fmt.Errorf("audit encode: %w", err)
	}
	rr := RelayRequest{Topic: p.topic, Body: body, Timeout: publishTimeout}
	if err := p.relay.Publish(ctx, rr); err != nil {
		p.log.Warn("audit publish failed", zap.String("topic", p.topic), zap.String("eventId", ev.ID), zap.Error(err))
		return err
	}
	return nil
}

// Close stops the underlying relay.
func (p *RelayPublisher) Close() { p.relay.Close() }

// New returns a relay-backed Publisher when a target is configured and Noop
// otherwise.
func New(cfg Config, log *zap.Logger) (Publisher, error) {
	r, err := NewRelay(cfg)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return Noop{}, nil
	}
	return NewRelayPublisher(r, orDefault(cfg.Topic, DefaultTopic), log), nil
}
