// Package settings provides typed access to the settings collection.
//
// Settings are stored as one record per key with a raw JSON value, so
// unknown keys survive import and sync untouched. Known keys are validated
// on Set and fall back to defaults when absent.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/store"
)

// Table is the typed view over the settings collection.
var Table = store.NewTable(store.Settings,
	func(s *model.Setting) string { return s.Key },
	nil,
)

// Defaults for known keys.
const (
	DefaultCurrency          = "INR"
	DefaultLowStockThreshold = 5
	DefaultAutoSync          = false
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Service reads and writes settings.
type Service struct {
	ex     store.Executor
	clock  model.Clock
	logger *slog.Logger
}

// New creates a settings Service.
func New(ex store.Executor, clock model.Clock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ex: ex, clock: clock, logger: logger}
}

// Get returns the stored raw value for key and whether it was present.
func (s *Service) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	rec, err := Table.Get(ctx, s.ex, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return rec.Value, true, nil
}

// Set validates and stores value under key.
func (s *Service) Set(ctx context.Context, key string, value json.RawMessage) error {
	if key == "" {
		return model.Validation("setting", "key is required")
	}
	if err := Validate(key, value); err != nil {
		return err
	}
	return s.put(ctx, key, value)
}

// All returns every stored setting plus defaults for absent known keys.
func (s *Service) All(ctx context.Context) (map[string]json.RawMessage, error) {
	out := map[string]json.RawMessage{
		model.SettingCurrency:          mustJSON(DefaultCurrency),
		model.SettingLowStockThreshold: mustJSON(DefaultLowStockThreshold),
		model.SettingAutoSync:          mustJSON(DefaultAutoSync),
	}

	all, err := Table.All(ctx, s.ex)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	for _, st := range all {
		out[st.Key] = st.Value
	}
	return out, nil
}

// Keys returns the sorted keys of m.
func Keys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Currency returns the ISO currency code.
func (s *Service) Currency(ctx context.Context) (string, error) {
	var v string
	ok, err := s.decode(ctx, model.SettingCurrency, &v)
	if err != nil || !ok || v == "" {
		return DefaultCurrency, err
	}
	return v, nil
}

// LowStockThreshold returns the stock level below which a component is low.
// Values stored as numeric strings are accepted.
func (s *Service) LowStockThreshold(ctx context.Context) (int, error) {
	raw, ok, err := s.Get(ctx, model.SettingLowStockThreshold)
	if err != nil || !ok {
		return DefaultLowStockThreshold, err
	}
	n, perr := parseInt(raw)
	if perr != nil || n < 0 {
		s.logger.Warn("ignoring invalid low stock threshold", "value", string(raw))
		return DefaultLowStockThreshold, nil
	}
	return n, nil
}

// AutoSync reports whether mutations trigger a push.
func (s *Service) AutoSync(ctx context.Context) (bool, error) {
	var v bool
	ok, err := s.decode(ctx, model.SettingAutoSync, &v)
	if err != nil || !ok {
		return DefaultAutoSync, err
	}
	return v, nil
}

// RemoteDocumentID returns the stored remote document id, or "".
func (s *Service) RemoteDocumentID(ctx context.Context) (string, error) {
	var v string
	_, err := s.decode(ctx, model.SettingRemoteDocumentID, &v)
	return v, err
}

// SetRemoteDocumentID stores the remote document id.
func (s *Service) SetRemoteDocumentID(ctx context.Context, id string) error {
	return s.put(ctx, model.SettingRemoteDocumentID, mustJSON(id))
}

// LastSync returns the time of the last successful push or pull, or the zero time.
func (s *Service) LastSync(ctx context.Context) (time.Time, error) {
	return s.timeValue(ctx, model.SettingLastSync)
}

// SetLastSync records t as the last successful sync.
func (s *Service) SetLastSync(ctx context.Context, t time.Time) error {
	return s.put(ctx, model.SettingLastSync, mustJSON(t.UTC()))
}

// LastPush returns the time of the last successful push, or the zero time.
func (s *Service) LastPush(ctx context.Context) (time.Time, error) {
	return s.timeValue(ctx, model.SettingLastPush)
}

// SetLastPush records t as the last successful push.
func (s *Service) SetLastPush(ctx context.Context, t time.Time) error {
	return s.put(ctx, model.SettingLastPush, mustJSON(t.UTC()))
}

// ReviewQueue returns the items flagged for manual review.
func (s *Service) ReviewQueue(ctx context.Context) ([]model.ReviewItem, error) {
	items := []model.ReviewItem{}
	if _, err := s.decode(ctx, model.SettingReviewQueue, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// AppendReview adds items to the review queue.
func (s *Service) AppendReview(ctx context.Context, items ...model.ReviewItem) error {
	if len(items) == 0 {
		return nil
	}
	queue, err := s.ReviewQueue(ctx)
	if err != nil {
		return err
	}
	queue = append(queue, items...)
	return s.put(ctx, model.SettingReviewQueue, mustJSON(queue))
}

// ClearReview empties the review queue and returns how many items it held.
func (s *Service) ClearReview(ctx context.Context) (int, error) {
	queue, err := s.ReviewQueue(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.ex.Delete(ctx, store.Settings, model.SettingReviewQueue); err != nil {
		return 0, fmt.Errorf("clear review queue: %w", err)
	}
	return len(queue), nil
}

func (s *Service) put(ctx context.Context, key string, value json.RawMessage) error {
	st := model.Setting{Key: key, Value: value, UpdatedAt: s.clock.Now()}
	if _, err := Table.Put(ctx, s.ex, st); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	s.logger.Debug("setting stored", "key", key)
	return nil
}

func (s *Service) decode(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode setting %q: %w", key, err)
	}
	return true, nil
}

func (s *Service) timeValue(ctx context.Context, key string) (time.Time, error) {
	var t time.Time
	ok, err := s.decode(ctx, key, &t)
	if err != nil || !ok {
		return time.Time{}, err
	}
	return t, nil
}

// Validate checks value against the rules for key. Unknown keys accept
// any well-formed JSON.
func Validate(key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return model.Validation(key, "value is not valid JSON")
	}

	switch key {
	case model.SettingCurrency:
		var v string
		if err := json.Unmarshal(value, &v); err != nil || !currencyCode.MatchString(v) {
			return model.Validation(key, "currency must be a 3-letter ISO code, got %s", value)
		}
	case model.SettingLowStockThreshold:
		n, err := parseInt(value)
		if err != nil || n < 0 {
			return model.Validation(key, "threshold must be a non-negative integer, got %s", value)
		}
	case model.SettingAutoSync:
		var v bool
		if err := json.Unmarshal(value, &v); err != nil {
			return model.Validation(key, "autoSync must be true or false, got %s", value)
		}
	case model.SettingLastSync, model.SettingLastPush:
		var v time.Time
		if err := json.Unmarshal(value, &v); err != nil {
			return model.Validation(key, "expected an RFC 3339 timestamp, got %s", value)
		}
	case model.SettingRemoteDocumentID:
		var v string
		if err := json.Unmarshal(value, &v); err != nil {
			return model.Validation(key, "expected a string, got %s", value)
		}
	case model.SettingReviewQueue:
		var v []model.ReviewItem
		if err := json.Unmarshal(value, &v); err != nil {
			return model.Validation(key, "expected a list of review items")
		}
	}
	return nil
}

// parseInt accepts a JSON integer or a JSON string holding one.
func parseInt(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("settings: marshal %T: %v", v, err))
	}
	return b
}
