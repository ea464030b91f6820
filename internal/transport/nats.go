package transport

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Config is the NATS connection configuration for the control loop's bus.
type Config struct {
	URL           string
	ReconnectWait time.Duration
	MaxReconnects int
}

// DefaultConfig returns sane connection defaults for a co-located NATS
// server.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // retry indefinitely
	}
}

// Bus wraps a NATS connection with JSON-encoded publish/subscribe helpers.
// The autopilot core never sees *nats.Conn directly.
type Bus struct {
	cfg Config
	log *logrus.Logger
	nc  *nats.Conn
}

// NewBus builds an unconnected Bus.
func NewBus(cfg Config, log *logrus.Logger) *Bus {
	return &Bus{cfg: cfg, log: log}
}

// Connect dials the NATS server, wiring reconnect/disconnect diagnostics.
func (b *Bus) Connect() error {
	opts := []nats.Option{
		nats.ReconnectWait(b.cfg.ReconnectWait),
		nats.MaxReconnects(b.cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			b.log.WithError(err).Warn("transport: disconnected from nats")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			b.log.WithField("url", nc.ConnectedUrl()).Info("transport: reconnected to nats")
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			b.log.Warn("transport: nats connection closed")
		}),
	}

	nc, err := nats.Connect(b.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("transport: connect: %w", err)
	}
	b.nc = nc
	return nil
}

// Close drains and closes the connection.
func (b *Bus) Close() {
	if b.nc == nil {
		return
	}
	if err := b.nc.Drain(); err != nil {
		b.log.WithError(err).Warn("transport: drain failed")
	}
}

// IsConnected reports whether the bus currently has a live connection.
func (b *Bus) IsConnected() bool { return b.nc != nil && b.nc.IsConnected() }

// PresenceSubject derives the request-reply probe subject an operator/C2
// client answers on to signal it is listening on subject.
func PresenceSubject(subject string) string { return subject + ".presence" }

// ProbeSubscriber sends a single presence request and reports whether
// anything answered within timeout.
func (b *Bus) ProbeSubscriber(subject string, timeout time.Duration) bool {
	_, err := b.nc.Request(PresenceSubject(subject), nil, timeout)
	return err == nil
}

// WaitForSubscriber polls for a responder on subject until one answers or
// grace elapses, returning false on timeout.
func (b *Bus) WaitForSubscriber(subject string, grace, pollInterval time.Duration) bool {
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if b.ProbeSubscriber(subject, pollInterval) {
			return true
		}
	}
	return false
}

// PublishJSON marshals v and publishes it on subject. Each publish is
// tagged with a fresh correlation id in the log line so a message's path
// through the bus can be traced even though the wire payload itself stays
// schema-stable.
func (b *Bus) PublishJSON(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("transport: encode %s: %w", subject, err)
	}
	if err := b.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("transport: publish %s: %w", subject, err)
	}
	b.log.WithFields(logrus.Fields{
		"subject":        subject,
		"correlation_id": uuid.NewString(),
	}).Trace("transport: published message")
	return nil
}

// SubscribeJSON decodes every message on subject as a T and invokes handler.
// Decode failures are logged and the message is dropped, matching the
// core's "log and drop on runtime decode failure" error policy.
func SubscribeJSON[T any](b *Bus, subject string, handler func(T)) (*nats.Subscription, error) {
	return b.nc.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			b.log.WithError(err).WithField("subject", subject).Warn("transport: dropped malformed message")
			return
		}
		handler(v)
	})
}
