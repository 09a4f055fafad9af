package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/roach88/electromanage/internal/config"
	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/snapshot"
	"github.com/roach88/electromanage/internal/store"
)

// PushResult describes a successful push.
type PushResult struct {
	Backend    string    `json:"backend"`
	Components int       `json:"components"`
	CartLines  int       `json:"cartLines"`
	PushedAt   time.Time `json:"pushedAt"`
}

// PullResult describes a pull. Found is false when no remote document exists.
type PullResult struct {
	Backend string          `json:"backend"`
	Found   bool            `json:"found"`
	Report  snapshot.Report `json:"report"`
}

// Push captures the remote-scope snapshot and overwrites the remote
// document with it. On success lastPush and lastSync are updated.
func (s *Session) Push(ctx context.Context) (PushResult, error) {
	if s.adapter == nil {
		return PushResult{}, model.SyncFailed(config.BackendNone, "push", ErrNoBackend)
	}

	doc, err := view(ctx, s, "sync.capture", func(ctx context.Context) (snapshot.Document, error) {
		doc, err := snapshot.Capture(ctx, s.store, snapshot.ScopeRemote)
		if err != nil {
			return snapshot.Document{}, err
		}
		now := s.clock.Now()
		doc.LastUpdated = &now
		doc.Origin = s.origin
		stamp, err := json.Marshal(now)
		if err != nil {
			return snapshot.Document{}, err
		}
		doc.Settings[model.SettingLastSync] = stamp
		return doc, nil
	})
	if err != nil {
		return PushResult{}, err
	}

	if err := s.adapter.Push(ctx, doc); err != nil {
		s.logger.Warn("sync push failed", "backend", s.adapter.Name(), "error", err)
		return PushResult{}, err
	}

	pushedAt := *doc.LastUpdated
	_, err = view(ctx, s, "sync.pushed", func(ctx context.Context) (none, error) {
		if err := s.settings.SetLastPush(ctx, pushedAt); err != nil {
			return none{}, err
		}
		return none{}, s.settings.SetLastSync(ctx, pushedAt)
	})
	if err != nil {
		return PushResult{}, err
	}

	s.logger.Info("pushed snapshot",
		"backend", s.adapter.Name(),
		"components", len(doc.Components),
		"cart_lines", len(doc.Cart),
	)
	return PushResult{
		Backend:    s.adapter.Name(),
		Components: len(doc.Components),
		CartLines:  len(doc.Cart),
		PushedAt:   pushedAt,
	}, nil
}

func (s *Session) autoPush(ctx context.Context) error {
	_, err := s.Push(ctx)
	return err
}

// Pull fetches the remote document and applies it.
func (s *Session) Pull(ctx context.Context) (PullResult, error) {
	if s.adapter == nil {
		return PullResult{}, model.SyncFailed(config.BackendNone, "pull", ErrNoBackend)
	}

	doc, err := s.adapter.Pull(ctx)
	if err != nil {
		s.logger.Warn("sync pull failed", "backend", s.adapter.Name(), "error", err)
		return PullResult{}, err
	}
	res := PullResult{Backend: s.adapter.Name(), Report: snapshot.Report{Replaced: []store.Collection{}}}
	if doc == nil {
		return res, nil
	}

	report, err := s.applyInbound(ctx, *doc)
	if err != nil {
		return PullResult{}, err
	}
	res.Found = true
	res.Report = report
	return res, nil
}

// Watch applies every inbound document from other sessions until stop is
// called, reporting each application to fn. fn may be nil.
func (s *Session) Watch(ctx context.Context, fn func(snapshot.Report)) (stop func(), err error) {
	if s.adapter == nil {
		return nil, model.SyncFailed(config.BackendNone, "subscribe", ErrNoBackend)
	}

	return s.adapter.Subscribe(ctx, func(doc snapshot.Document) {
		report, err := s.applyInbound(ctx, doc)
		if err != nil {
			s.logger.Warn("inbound snapshot not applied", "origin", doc.Origin, "error", err)
			return
		}
		if fn != nil {
			fn(report)
		}
	})
}

// applyInbound merges a remote document. Only the synced settings are taken
// from it and remote transactions are ignored.
func (s *Session) applyInbound(ctx context.Context, doc snapshot.Document) (snapshot.Report, error) {
	doc.Transactions = nil
	if doc.Settings != nil {
		synced := snapshot.Settings{}
		for _, key := range snapshot.RemoteSettings {
			if v, ok := doc.Settings[key]; ok {
				synced[key] = v
			}
		}
		doc.Settings = synced
	}

	return view(ctx, s, "sync.apply", func(ctx context.Context) (snapshot.Report, error) {
		since, err := s.settings.LastPush(ctx)
		if err != nil {
			return snapshot.Report{}, err
		}
		report, err := snapshot.ApplyInbound(ctx, s.store, doc, since, s.clock, s.logger)
		if err != nil {
			return snapshot.Report{}, err
		}
		if err := s.settings.SetLastSync(ctx, s.clock.Now()); err != nil {
			return snapshot.Report{}, err
		}
		s.logger.Info("applied inbound snapshot",
			"origin", doc.Origin,
			"replaced", len(report.Replaced),
			"flagged", len(report.Flagged),
		)
		return report, nil
	})
}
