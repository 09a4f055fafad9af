package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/electromanage/internal/checkout"
	"github.com/roach88/electromanage/internal/config"
	"github.com/roach88/electromanage/internal/inventory"
	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/testutil"
)

func openSession(t *testing.T, idPrefix string, mutate func(*config.Config)) *Session {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "electromanage.db")
	if mutate != nil {
		mutate(&cfg)
	}

	s, err := Open(Options{
		Config: cfg,
		IDs:    testutil.NewSequentialIDs(idPrefix),
		Clock:  testutil.NewStepClock(testutil.Epoch, time.Second),
		Origin: "session-" + idPrefix,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func addPart(t *testing.T, s *Session, name string, stock int, cost string) model.Component {
	t.Helper()
	c, err := s.AddComponent(context.Background(), inventory.NewComponent{
		Name:     name,
		Category: "Sensors",
		Stock:    stock,
		Cost:     decimal.RequireFromString(cost),
	})
	require.NoError(t, err)
	return c
}

func TestSession_CheckoutFlow(t *testing.T) {
	ctx := context.Background()
	s := openSession(t, "c", nil)

	sensor := addPart(t, s, "HC-SR04 Ultrasonic Sensor", 5, "3.50")
	_, err := s.AddToCart(ctx, sensor.ID, 5)
	require.NoError(t, err)

	view, err := s.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, view.Totals.Items)
	assert.Equal(t, "INR", view.Currency)
	assert.True(t, view.Totals.Total.Equal(decimal.RequireFromString("17.50")))

	res, err := s.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, checkout.StateCommitted, res.State)

	got, err := s.Component(ctx, sensor.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)

	view, err = s.Cart(ctx)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)

	history, err := s.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.Transaction.ID, history[0].ID)

	_, err = s.AddToCart(ctx, sensor.ID, 1)
	assert.True(t, model.IsInsufficientStock(err))
}

func TestSession_MutationsAreSerialised(t *testing.T) {
	ctx := context.Background()
	s := openSession(t, "c", nil)
	part := addPart(t, s, "Resistor 220Ω", 10, "0.05")

	var wg sync.WaitGroup
	var mu sync.Mutex
	failures := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AdjustStock(ctx, part.ID, -1); err != nil {
				assert.True(t, model.IsInsufficientStock(err))
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, failures)
	got, err := s.Component(ctx, part.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestSession_StatsUseThresholdSetting(t *testing.T) {
	ctx := context.Background()
	s := openSession(t, "c", nil)
	addPart(t, s, "A", 3, "1.00")
	addPart(t, s, "B", 8, "1.00")

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.LowStockItems)

	require.NoError(t, s.SetSetting(ctx, model.SettingLowStockThreshold, json.RawMessage(`10`)))
	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.LowStockItems)
}

func TestSession_ExportImportReset(t *testing.T) {
	ctx := context.Background()
	s := openSession(t, "c", nil)
	n, err := s.Seed(ctx)
	require.NoError(t, err)
	require.Equal(t, len(inventory.DemoComponents), n)

	var backup bytes.Buffer
	require.NoError(t, s.Export(ctx, &backup))

	require.NoError(t, s.Reset(ctx))
	all, err := s.Components(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)

	report, err := s.Import(ctx, &backup, "backup.json")
	require.NoError(t, err)
	assert.Equal(t, n, report.Components)

	all, err = s.Components(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, n)
}

func TestSession_SyncWithoutBackend(t *testing.T) {
	ctx := context.Background()
	s := openSession(t, "c", nil)
	assert.Equal(t, config.BackendNone, s.Backend())

	_, err := s.Push(ctx)
	assert.True(t, model.IsSync(err))
	assert.ErrorIs(t, err, ErrNoBackend)

	_, err = s.Pull(ctx)
	assert.ErrorIs(t, err, ErrNoBackend)

	_, err = s.Watch(ctx, nil)
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s := openSession(t, "c", nil)
	require.NoError(t, s.Close(context.Background()))
	require.NoError(t, s.Close(context.Background()))

	_, err := s.Components(context.Background(), "")
	assert.Error(t, err, "operations fail after close")
}

func TestSession_LoggerIsTheConfiguredOne(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "electromanage.db")
	s, err := Open(Options{Config: cfg, Logger: logger})
	require.NoError(t, err)
	defer s.Close(context.Background())

	assert.Same(t, logger, s.Logger())
	assert.Contains(t, buf.String(), "session opened")
}
