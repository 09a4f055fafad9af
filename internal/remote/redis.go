package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/roach88/electromanage/internal/snapshot"
)

// DefaultNamespace prefixes every redis key and channel.
const DefaultNamespace = "electromanage"

// RedisConfig configures a Redis adapter.
type RedisConfig struct {
	Namespace string
	UserID    string
	Origin    string
	Timeout   time.Duration
}

// Redis keeps the document under <namespace>:doc:<user> and announces
// every push on <namespace>:changes:<user>.
type Redis struct {
	client redis.UniversalClient
	cfg    RedisConfig
	logger *slog.Logger
}

// NewRedis creates a Redis adapter over client. The caller owns client.
func NewRedis(client redis.UniversalClient, cfg RedisConfig, logger *slog.Logger) *Redis {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, cfg: cfg, logger: logger}
}

// Name returns "redis".
func (r *Redis) Name() string { return "redis" }

func (r *Redis) docKey() string {
	return fmt.Sprintf("%s:doc:%s", r.cfg.Namespace, r.cfg.UserID)
}

func (r *Redis) channel() string {
	return fmt.Sprintf("%s:changes:%s", r.cfg.Namespace, r.cfg.UserID)
}

// Push stores doc and publishes it in one MULTI/EXEC. The last writer wins.
func (r *Redis) Push(ctx context.Context, doc snapshot.Document) error {
	return call(ctx, r.Name(), "push", r.cfg.Timeout, func(ctx context.Context) error {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}

		_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, r.docKey(), data, 0)
			p.Publish(ctx, r.channel(), data)
			return nil
		})
		if err != nil {
			return fmt.Errorf("store document: %w", err)
		}
		return nil
	})
}

// Pull reads the stored document. It returns nil, nil when the key is absent.
func (r *Redis) Pull(ctx context.Context) (*snapshot.Document, error) {
	var doc *snapshot.Document
	err := call(ctx, r.Name(), "pull", r.cfg.Timeout, func(ctx context.Context) error {
		data, err := r.client.Get(ctx, r.docKey()).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}

		parsed, err := snapshot.Parse(r.docKey(), data)
		if err != nil {
			return err
		}
		doc = &parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Subscribe listens on the change channel and calls fn for every valid
// document published by another session. Own echoes and malformed payloads
// are skipped.
func (r *Redis) Subscribe(ctx context.Context, fn Listener) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)
	pubsub := r.client.Subscribe(subCtx, r.channel())

	err := call(ctx, r.Name(), "subscribe", r.cfg.Timeout, func(ctx context.Context) error {
		// Wait for the subscription confirmation.
		_, err := pubsub.Receive(ctx)
		return err
	})
	if err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				doc, err := snapshot.Parse(msg.Channel, []byte(msg.Payload))
				if err != nil {
					r.logger.Warn("dropping malformed change message",
						"channel", msg.Channel,
						"error", err,
					)
					continue
				}
				if !foreign(doc, r.cfg.Origin) {
					continue
				}
				fn(doc)
			}
		}
	}()

	r.logger.Debug("subscribed to change channel", "channel", r.channel())

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
	return stop, nil
}
