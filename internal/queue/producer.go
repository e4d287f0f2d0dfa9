package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"regwatch.co/sentinel/internal/model"
)

// AlertMessage is the payload published for every emitted alert. The
// external notification dispatcher consumes the stream; it flips the
// alert's notified flag through the HTTP API once delivery succeeds.
type AlertMessage struct {
	AlertID      int64
	SourceID     string
	Jurisdiction string
	Severity     model.Severity
	Summary      string
}

type Publisher interface {
	Publish(ctx context.Context, msg AlertMessage) error
	Close() error
}

type redisPublisher struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisPublisher(client *redis.Client, stream string, logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisPublisher{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisPublisher) Publish(ctx context.Context, msg AlertMessage) error {
	fields := map[string]any{
		"alert_id":     msg.AlertID,
		"source_id":    msg.SourceID,
		"jurisdiction": msg.Jurisdiction,
		"severity":     string(msg.Severity),
		"summary":      msg.Summary,
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}

	p.logger.InfoContext(ctx, "published alert", "alert_id", msg.AlertID, "source_id", msg.SourceID, "severity", msg.Severity)
	return nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}
