package jetstream

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Sogo28/chaincode-blockchain/internal/adapter"
	"github.com/Sogo28/chaincode-blockchain/internal/domain"
	"github.com/Sogo28/chaincode-blockchain/internal/logger"
	"github.com/Sogo28/chaincode-blockchain/internal/messaging"
)

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	// PublishMaxRetries bounds the retry of a failed publish; emission
	// stays fire-and-forget for the engine either way
	PublishMaxRetries uint64
}

type publisher struct {
	nc         adapter.NatsConn
	js         adapter.JetStream
	streamName string
	json       adapter.JSON
	maxRetries uint64
}

// NewPublisher creates a new NATS JetStream publisher
func NewPublisher(cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON) (messaging.Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	return &publisher{
		nc:         nc,
		js:         js,
		streamName: cfg.StreamName,
		json:       jsonAdapter,
		maxRetries: cfg.PublishMaxRetries,
	}, nil
}

// PublishEvent publishes a title event to NATS JetStream
func (p *publisher) PublishEvent(ctx context.Context, event *domain.TitleEvent) error {
	logger.Debug("Publishing title event", zap.Any("event", event))

	data, err := p.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := p.buildSubject(event)

	publish := func() error {
		_, err := p.js.Publish(ctx, subject, data)
		return err
	}
	err = backoff.Retry(publish, backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.maxRetries), ctx))
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// buildSubject constructs the NATS subject based on the event type.
// Format: registry.titles.{event_type}, e.g. registry.titles.titlecreated
func (p *publisher) buildSubject(event *domain.TitleEvent) string {
	return fmt.Sprintf("registry.titles.%s", strings.ToLower(string(event.Type)))
}

// Close closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}

	p.nc.Close()
}
