// Package queue implements the Redis-backed reprice queue: a sorted set keyed
// by availability time, with per-cart deduplication so a burst of catalog
// changes enqueues each cart at most once per window.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// RepriceTask asks the worker to reprice one cart against the current catalog.
type RepriceTask struct {
	CartID string `json:"cartId"`
	Reason string `json:"reason,omitempty"`
}

type message struct {
	Task        RepriceTask `json:"task"`
	Attempt     int         `json:"attempt"`
	MaxAttempts int         `json:"maxAttempts"`
	AvailableAt int64       `json:"availableAt"`
}

// Enqueuer publishes reprice tasks.
type Enqueuer struct {
	R           *redis.Client
	Prefix      string
	DedupTTL    time.Duration
	MaxAttempts int
}

// Enqueue schedules the task after delay. A cart already queued within the
// deduplication window is skipped silently.
func (e Enqueuer) Enqueue(ctx context.Context, t RepriceTask, delay time.Duration) error {
	if e.R == nil {
		return errors.New("queue: redis client not configured")
	}
	if t.CartID == "" {
		return errors.New("queue: cart id is required")
	}
	ttl := e.DedupTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	ok, err := e.R.SetNX(ctx, dedupKey(e.Prefix, t.CartID), "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("queue: dedup check: %w", err)
	}
	if !ok {
		return nil
	}
	msg := message{
		Task:        t,
		MaxAttempts: e.MaxAttempts,
		AvailableAt: time.Now().Add(delay).UnixNano(),
	}
	if msg.MaxAttempts <= 0 {
		msg.MaxAttempts = 5
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return e.R.ZAdd(ctx, queueKey(e.Prefix), redis.Z{Score: float64(msg.AvailableAt), Member: raw}).Err()
}

// Worker drains the reprice queue. Failed tasks are retried with exponential
// backoff until their attempt budget runs out, then parked on a dead letter
// list for inspection.
type Worker struct {
	R            *redis.Client
	Prefix       string
	PollInterval time.Duration
	RetryBase    time.Duration
	Handler      func(context.Context, RepriceTask) error
}

// Run processes tasks until the context is cancelled.
func (w Worker) Run(ctx context.Context) error {
	if w.R == nil {
		return errors.New("queue: worker redis client not configured")
	}
	if w.Handler == nil {
		return errors.New("queue: worker handler not configured")
	}
	poll := w.PollInterval
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		processed, err := w.ProcessOne(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if !processed {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(poll):
			}
		}
	}
}

// ProcessOne pops and handles at most one due task. It reports whether a task
// was handled so callers can back off when the queue is idle.
func (w Worker) ProcessOne(ctx context.Context) (bool, error) {
	key := queueKey(w.Prefix)
	res, err := w.R.ZPopMin(ctx, key, 1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if len(res) == 0 {
		return false, nil
	}
	raw, ok := res[0].Member.(string)
	if !ok {
		return false, nil
	}
	var msg message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		// poison entry, drop it
		return false, nil
	}
	if msg.AvailableAt > time.Now().UnixNano() {
		_ = w.R.ZAdd(ctx, key, redis.Z{Score: float64(msg.AvailableAt), Member: raw}).Err()
		return false, nil
	}

	msg.Attempt++
	if err := w.Handler(ctx, msg.Task); err != nil {
		w.retryOrPark(ctx, msg)
		return true, nil
	}
	_ = w.R.Del(ctx, dedupKey(w.Prefix, msg.Task.CartID)).Err()
	return true, nil
}

func (w Worker) retryOrPark(ctx context.Context, msg message) {
	if msg.Attempt >= msg.MaxAttempts {
		raw, err := json.Marshal(msg)
		if err != nil {
			return
		}
		_ = w.R.LPush(ctx, dlqKey(w.Prefix), raw).Err()
		_ = w.R.Del(ctx, dedupKey(w.Prefix, msg.Task.CartID)).Err()
		return
	}
	base := w.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	delay := base << (msg.Attempt - 1)
	delay += time.Duration(rand.Int63n(int64(base)))
	msg.AvailableAt = time.Now().Add(delay).UnixNano()
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = w.R.ZAdd(ctx, queueKey(w.Prefix), redis.Z{Score: float64(msg.AvailableAt), Member: raw}).Err()
}

func queueKey(prefix string) string {
	if prefix == "" {
		return "queue:reprice"
	}
	return prefix + ":queue:reprice"
}

func dedupKey(prefix, cartID string) string {
	if prefix == "" {
		return "queue:reprice:dedup:" + cartID
	}
	return prefix + ":queue:reprice:dedup:" + cartID
}

func dlqKey(prefix string) string {
	if prefix == "" {
		return "queue:reprice:dlq"
	}
	return prefix + ":queue:reprice:dlq"
}
