package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"studyhub/backend/pkg/logger"
)

// NatsConfig describes the JetStream stream outbox events land in
type NatsConfig struct {
	URL           string
	Stream        string
	SubjectPrefix string
}

// NatsPublisher publishes outbox events to a JetStream stream. Every publish
// waits for the server ack, and the event id doubles as the message id so
// the stream drops redeliveries.
type NatsPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *zap.Logger
}

// NewNatsPublisher connects and makes sure the stream exists
func NewNatsPublisher(ctx context.Context, cfg NatsConfig) (*NatsPublisher, error) {
	log := logger.Named("nats")

	nc, err := nats.Connect(cfg.URL,
		nats.Name("studyhub-outbox"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to init JetStream: %w", err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(streamCtx, jetstream.StreamConfig{
		Name:       cfg.Stream,
		Subjects:   []string{subjectFilter(cfg.SubjectPrefix)},
		Storage:    jetstream.FileStorage,
		Replicas:   1,
		Duplicates: 10 * time.Minute,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream %s: %w", cfg.Stream, err)
	}

	log.Info("JetStream publisher ready",
		zap.String("stream", cfg.Stream),
		zap.String("subjects", subjectFilter(cfg.SubjectPrefix)),
	)
	return &NatsPublisher{nc: nc, js: js, logger: log}, nil
}

// Publish sends one message and waits for the stream to persist it
func (p *NatsPublisher) Publish(ctx context.Context, subject, msgID string, data []byte) error {
	ack, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID))
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	if ack.Duplicate {
		p.logger.Debug("Stream dropped duplicate event",
			zap.String("subject", subject),
			zap.String("msg_id", msgID),
		)
	}
	return nil
}

// Close flushes pending messages and closes the connection
func (p *NatsPublisher) Close() error {
	return p.nc.Drain()
}

func subjectFilter(prefix string) string {
	if prefix == "" {
		return ">"
	}
	return prefix + ".>"
}
