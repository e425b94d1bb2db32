package audit

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeydtaylor/certipop/pkg/codec"
	"github.com/joeydtaylor/electrician/pkg/builder"
)

// Env keys read by NewRelay.
const (
	EnvTarget = "ELECTRICIAN_TARGET"         // comma-separated host:port, overrides audit.targets
	EnvAESKey = "ELECTRICIAN_AES256_KEY_HEX" // 64 hex chars, required with encrypt = "aesgcm"
)

// HeaderTopic carries the audit topic on every relayed message.
const HeaderTopic = "X-Audit-Topic"

// RelayRequest is one encoded event on its way to the relay.
type RelayRequest struct {
	Topic   string
	Body    []byte
	Timeout time.Duration
}

// Relay moves encoded events off the process until Close.
type Relay interface {
	Publish(ctx context.Context, rr RelayRequest) error
	Close()
}

// wireRelay feeds an electrician wire drained by a forward relay bound to a
// single topic. The topic and content type travel as static headers since
// the forward relay carries no per-message metadata.
type wireRelay struct {
	topic  string
	submit func(context.Context, []byte) error
	stop   func()
}

func (w *wireRelay) Publish(ctx context.Context, rr RelayRequest) error {
	if rr.Topic != w.topic {
		return fmt.Errorf("relay: topic %q not served (bound to %q)", rr.Topic, w.topic)
	}
	if rr.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rr.Timeout)
		defer cancel()
	}
	return w.submit(ctx, rr.Body)
}

func (w *wireRelay) Close() {
	if w.stop != nil {
		w.stop()
	}
}

// relayHeaders merges the configured static headers with the topic and
// content type; the latter two always win.
func relayHeaders(cfg Config, topic string) map[string]string {
	h := make(map[string]string, len(cfg.StaticHeaders)+2)
	for k, v := range cfg.StaticHeaders {
		h[k] = v
	}
	h[HeaderTopic] = topic
	h["Content-Type"] = codec.JSONStrict.ContentType()
	return h
}

// NewRelay starts a wire and a forward relay draining it towards the configured
// targets. It returns (nil, nil) when there is no target.
func NewRelay(cfg Config) (Relay, error) {
	targets := cfg.Targets
	if raw := os.Getenv(EnvTarget); strings.TrimSpace(raw) != "" {
		targets = splitCSV(raw)
	}
	if len(targets) == 0 {
		return nil, nil
	}

	encrypt := strings.EqualFold(cfg.Encrypt, "aesgcm")
	var aesKey string
	if encrypt {
		k, err := hex.DecodeString(strings.TrimSpace(os.Getenv(EnvAESKey)))
		if err != nil || len(k) != 32 {
			return nil, fmt.Errorf("%s must be 64 hex chars (32 bytes)", EnvAESKey)
		}
		aesKey = string(k)
	}
	topic := orDefault(cfg.Topic, DefaultTopic)

	ctx, cancel := context.WithCancel(context.Background())
	log := builder.NewLogger(builder.LoggerWithDevelopment(false))
	wire := builder.NewWire[[]byte](ctx, builder.WireWithLogger[[]byte](log))
	fwd := builder.NewForwardRelay[[]byte](
		ctx,
		builder.ForwardRelayWithLogger[[]byte](log),
		builder.ForwardRelayWithTarget[[]byte](targets...),
		builder.ForwardRelayWithPerformanceOptions[[]byte](
			builder.NewPerformanceOptions(strings.EqualFold(cfg.Compress, "snappy"), builder.COMPRESS_SNAPPY),
		),
		builder.ForwardRelayWithSecurityOptions[[]byte](
			builder.NewSecurityOptions(encrypt, builder.ENCRYPTION_AES_GCM), aesKey,
		),
		builder.ForwardRelayWithTLSConfig[[]byte](builder.NewTlsClientConfig(
			cfg.TLS,
			orDefault(cfg.TLSClientCert, "keys/tls/client.crt"),
			orDefault(cfg.TLSClientKey, "keys/tls/client.key"),
			orDefault(cfg.TLSCA, "keys/tls/ca.crt"),
			tls.VersionTLS13, tls.VersionTLS13,
		)),
		builder.ForwardRelayWithStaticHeaders[[]byte](relayHeaders(cfg, topic)),
		builder.ForwardRelayWithInput(wire),
	)

	if err := wire.Start(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("audit wire start: %w", err)
	}
	if err := fwd.Start(ctx); err != nil {
		wire.Stop()
		cancel()
		return nil, fmt.Errorf("audit relay start: %w", err)
	}
	return &wireRelay{
		topic:  topic,
		submit: wire.Submit,
		// stop in reverse of start
		stop: func() {
			fwd.Stop()
			wire.Stop()
			cancel()
		},
	}, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
