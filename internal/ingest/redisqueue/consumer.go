// Package redisqueue consumes incident submissions from a Redis list
// and feeds them into the triage service, mirroring the HTTP submit
// path for event-bus ingress.
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/beacon/internal/incident"
	"github.com/linnemanlabs/beacon/internal/pipeline"
)

// Config configures the Redis consumer.
type Config struct {
	Addr         string
	Password     string
	DB           int
	Queue        string
	BlockTimeout time.Duration
}

// Submitter accepts decoded submissions; satisfied by pipeline.Service.
type Submitter interface {
	Submit(ctx context.Context, sub *incident.Submission) (*pipeline.SubmitResult, error)
}

// Consumer pops submission events off a Redis list.
type Consumer struct {
	client       *redis.Client
	queue        string
	blockTimeout time.Duration
	svc          Submitter
	logger       log.Logger
}

// New creates a Redis consumer for list-based ingestion queues.
func New(cfg Config, svc Submitter, logger log.Logger) (*Consumer, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if cfg.Queue == "" {
		return nil, fmt.Errorf("redis queue key is required")
	}
	if cfg.BlockTimeout == 0 {
		cfg.BlockTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = log.Nop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Consumer{
		client:       client,
		queue:        cfg.Queue,
		blockTimeout: cfg.BlockTimeout,
		svc:          svc,
		logger:       logger,
	}, nil
}

// Run pops and submits events until the context is canceled. A malformed
// or rejected event is logged and skipped; it never stops the loop.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		raw, err := c.pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error(ctx, err, "queue pop failed", "queue", c.queue)
			continue
		}
		if raw == nil {
			continue
		}

		sub, err := decode(raw)
		if err != nil {
			c.logger.Warn(ctx, "dropping malformed submission event",
				"queue", c.queue, "error", err.Error())
			continue
		}

		if _, err := c.svc.Submit(ctx, sub); err != nil {
			var ve *pipeline.ValidationError
			if errors.As(err, &ve) {
				c.logger.Warn(ctx, "dropping invalid submission event",
					"queue", c.queue, "error", ve.Error())
				continue
			}
			c.logger.Error(ctx, err, "queued submission failed", "queue", c.queue)
		}
	}
}

func (c *Consumer) pop(ctx context.Context) ([]byte, error) {
	res, err := c.client.BLPop(ctx, c.blockTimeout, c.queue).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

// Close closes the consumer.
func (c *Consumer) Close() error {
	return c.client.Close()
}

func decode(raw []byte) (*incident.Submission, error) {
	var sub incident.Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}
	if sub.Source == "" {
		sub.Source = "event_bus"
	}
	return &sub, nil
}
