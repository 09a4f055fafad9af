// Package app wires the store, the task engine, the domain services and the
// sync backend into one Session per process.
//
// Every operation runs as a task on the engine, so operations never
// interleave within a process. Mutations notify the auto-syncer when the
// autoSync setting is on; inbound remote documents are applied as tasks too
// and never trigger a push.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/roach88/electromanage/internal/cart"
	"github.com/roach88/electromanage/internal/checkout"
	"github.com/roach88/electromanage/internal/config"
	"github.com/roach88/electromanage/internal/engine"
	"github.com/roach88/electromanage/internal/inventory"
	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/remote"
	"github.com/roach88/electromanage/internal/settings"
	"github.com/roach88/electromanage/internal/store"
)

// ErrNoBackend is wrapped by sync operations when sync.backend is none.
var ErrNoBackend = errors.New("no sync backend configured")

// Options configures Open. Zero fields get production defaults.
type Options struct {
	Config     config.Config
	Logger     *slog.Logger
	IDs        model.IDGenerator
	Clock      model.Clock
	Origin     string
	HTTPClient *http.Client

	// Adapter replaces the backend selected by Config.Sync.Backend.
	Adapter remote.Adapter
}

// Session is the application context for one process.
type Session struct {
	cfg    config.Config
	logger *slog.Logger
	clock  model.Clock
	origin string

	store   *store.Store
	engine  *engine.Engine
	stopRun context.CancelFunc
	runDone chan error

	inventory *inventory.Service
	cart      *cart.Service
	checkout  *checkout.Service
	settings  *settings.Service

	adapter remote.Adapter
	redis   *redis.Client
	syncer  *remote.AutoSyncer

	closeOnce sync.Once
	closeErr  error
}

// Open opens the database and starts the engine.
func Open(opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.IDs == nil {
		opts.IDs = model.UUIDv7Generator{}
	}
	if opts.Clock == nil {
		opts.Clock = model.SystemClock{}
	}
	if opts.Origin == "" {
		opts.Origin = model.UUIDv7Generator{}.NewID()
	}

	st, err := store.Open(opts.Config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	s := &Session{
		cfg:     opts.Config,
		logger:  opts.Logger,
		clock:   opts.Clock,
		origin:  opts.Origin,
		store:   st,
		engine:  engine.New(engine.WithLogger(opts.Logger)),
		runDone: make(chan error, 1),
	}

	s.inventory = inventory.New(st, opts.IDs, opts.Clock, opts.Logger)
	s.cart = cart.New(st, s.inventory, opts.Clock, opts.Logger)
	s.checkout = checkout.New(st, s.inventory, s.cart, opts.IDs, opts.Clock, opts.Logger,
		checkout.Transactional(st, func(ex store.Executor) checkout.Stock { return s.inventory.With(ex) }))
	s.settings = settings.New(st, opts.Clock, opts.Logger)

	if err := s.openAdapter(opts); err != nil {
		st.Close()
		return nil, err
	}
	if s.adapter != nil {
		s.syncer = remote.NewAutoSyncer(s.cfg.Sync.Debounce, s.autoPush, opts.Logger)
	}

	var runCtx context.Context
	runCtx, s.stopRun = context.WithCancel(context.Background())
	go func() {
		s.runDone <- s.engine.Run(runCtx)
	}()

	s.logger.Debug("session opened",
		"db", s.cfg.Database.Path,
		"backend", s.Backend(),
		"origin", s.origin,
	)
	return s, nil
}

func (s *Session) openAdapter(opts Options) error {
	if opts.Adapter != nil {
		s.adapter = opts.Adapter
		return nil
	}

	sc := s.cfg.Sync
	switch sc.Backend {
	case "", config.BackendNone:
		return nil
	case config.BackendGist:
		s.adapter = remote.NewGist(remote.GistConfig{
			BaseURL:      sc.Gist.URL,
			Token:        sc.Gist.Token,
			Origin:       s.origin,
			Timeout:      sc.Timeout,
			PollInterval: sc.PollInterval,
		}, documentIDs{s}, opts.HTTPClient, s.logger)
	case config.BackendRedis:
		s.redis = redis.NewClient(&redis.Options{
			Addr:     sc.Redis.Addr,
			Password: sc.Redis.Password,
			DB:       sc.Redis.DB,
		})
		s.adapter = remote.NewRedis(s.redis, remote.RedisConfig{
			Namespace: sc.Redis.Namespace,
			UserID:    sc.Redis.UserID,
			Origin:    s.origin,
			Timeout:   sc.Timeout,
		}, s.logger)
	default:
		return fmt.Errorf("unknown sync backend %q", sc.Backend)
	}
	return nil
}

// Backend names the sync backend in use, or "none".
func (s *Session) Backend() string {
	if s.adapter == nil {
		return config.BackendNone
	}
	return s.adapter.Name()
}

// Origin is the id stamped on documents this session pushes.
func (s *Session) Origin() string {
	return s.origin
}

// Logger returns the session's logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// Close flushes a pending auto-sync push, drains the engine and closes the
// store. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		var errs []error

		if s.syncer != nil {
			if err := s.syncer.Close(ctx); err != nil {
				s.logger.Warn("final sync push failed", "error", err)
			}
		}

		s.engine.Stop()
		select {
		case err := <-s.runDone:
			if err != nil && !errors.Is(err, context.Canceled) {
				errs = append(errs, err)
			}
		case <-ctx.Done():
			s.stopRun()
			<-s.runDone
		}
		s.stopRun()

		st := s.engine.Stats()
		s.logger.Debug("session closed",
			"tasks", st.Submitted,
			"failed", st.Failed,
			"skipped", st.Skipped,
		)

		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close redis: %w", err))
			}
		}
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// view runs a task without notifying the auto-syncer. Reads and
// device-local writes go through view.
func view[T any](ctx context.Context, s *Session, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := s.engine.Do(ctx, name, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

// mutate runs a writing task and notifies the auto-syncer on success.
func mutate[T any](ctx context.Context, s *Session, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := s.engine.Do(ctx, name, func(ctx context.Context) error {
		var err error
		if out, err = fn(ctx); err != nil {
			return err
		}
		s.changed(ctx)
		return nil
	})
	return out, err
}

func (s *Session) changed(ctx context.Context) {
	if s.syncer == nil {
		return
	}
	on, err := s.settings.AutoSync(ctx)
	if err != nil {
		s.logger.Warn("read autoSync setting", "error", err)
		return
	}
	if on {
		s.syncer.Notify()
	}
}

// documentIDs routes gist id reads and writes through the engine.
type documentIDs struct{ s *Session }

func (d documentIDs) RemoteDocumentID(ctx context.Context) (string, error) {
	return view(ctx, d.s, "settings.remoteDocumentId", d.s.settings.RemoteDocumentID)
}

func (d documentIDs) SetRemoteDocumentID(ctx context.Context, id string) error {
	_, err := view(ctx, d.s, "settings.setRemoteDocumentId", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.s.settings.SetRemoteDocumentID(ctx, id)
	})
	return err
}
