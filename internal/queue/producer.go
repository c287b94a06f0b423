package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// BuildMessage is what the executor reads from the build stream.
type BuildMessage struct {
	BuildID    int64
	Job        string
	CauseKind  string
	Cause      json.RawMessage
	Parameters map[string]string
	Revision   string
	PendingKey string
	NotBefore  time.Time
	TraceID    *string
}

type Producer interface {
	Enqueue(ctx context.Context, msg BuildMessage) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, msg BuildMessage) error {
	fields, err := BuildValues(msg)
	if err != nil {
		return err
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue build: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued build", "build_id", msg.BuildID, "job", msg.Job, "cause_kind", msg.CauseKind, "not_before", msg.NotBefore)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

// BuildValues flattens msg into stream fields.
func BuildValues(msg BuildMessage) (map[string]any, error) {
	params, err := json.Marshal(msg.Parameters)
	if err != nil {
		return nil, fmt.Errorf("marshal parameters: %w", err)
	}

	fields := map[string]any{
		"build_id":    msg.BuildID,
		"job":         msg.Job,
		"cause_kind":  msg.CauseKind,
		"cause":       string(msg.Cause),
		"parameters":  string(params),
		"pending_key": msg.PendingKey,
		"not_before":  strconv.FormatInt(msg.NotBefore.UnixMilli(), 10),
	}
	if msg.Revision != "" {
		fields["revision"] = msg.Revision
	}
	if msg.TraceID != nil && *msg.TraceID != "" {
		fields["trace_id"] = *msg.TraceID
	}
	return fields, nil
}
