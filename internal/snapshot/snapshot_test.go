package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/electromanage/internal/cart"
	"github.com/roach88/electromanage/internal/checkout"
	"github.com/roach88/electromanage/internal/inventory"
	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/settings"
	"github.com/roach88/electromanage/internal/store"
	"github.com/roach88/electromanage/internal/testutil"
)

type fixture struct {
	store    *store.Store
	clock    *testutil.StepClock
	inv      *inventory.Service
	cart     *cart.Service
	settings *settings.Service
}

func setup(t *testing.T) fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := testutil.NewStepClock(testutil.Epoch, time.Second)
	inv := inventory.New(s, testutil.NewSequentialIDs("comp"), clock, nil)
	return fixture{
		store:    s,
		clock:    clock,
		inv:      inv,
		cart:     cart.New(s, inv, clock, nil),
		settings: settings.New(s, clock, nil),
	}
}

func (f fixture) seedSmall(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := f.inv.AddComponent(ctx, inventory.NewComponent{
		Name: "Breadboard", Category: "Tools & Equipment", Stock: 18,
		Cost: decimal.RequireFromString("8.50"), Description: "400-point solderless breadboard",
	})
	require.NoError(t, err)
	servo, err := f.inv.AddComponent(ctx, inventory.NewComponent{
		Name: "SG90 Servo Motor", Category: "Actuators", Stock: 20,
		Cost: decimal.RequireFromString("4.25"), Description: "Micro servo motor",
	})
	require.NoError(t, err)
	_, err = f.cart.Add(ctx, servo.ID, 2)
	require.NoError(t, err)
	require.NoError(t, f.settings.Set(ctx, model.SettingCurrency, json.RawMessage(`"USD"`)))
}

func TestExport_Golden(t *testing.T) {
	f := setup(t)
	f.seedSmall(t)

	var buf bytes.Buffer
	require.NoError(t, Export(context.Background(), f.store, &buf, f.clock))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "export", buf.Bytes())
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "electromanage-backup-2024-03-01.json", ExportFilename(testutil.Epoch))
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := setup(t)
	src.seedSmall(t)

	var buf bytes.Buffer
	require.NoError(t, Export(ctx, src.store, &buf, src.clock))

	dst := setup(t)
	report, err := Import(ctx, dst.store, &buf, "backup.json", dst.clock)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Components)
	assert.Equal(t, 1, report.CartLines)

	want, err := src.inv.ListAll(ctx)
	require.NoError(t, err)
	got, err := dst.inv.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Stock, got[i].Stock)
		assert.True(t, want[i].Cost.Equal(got[i].Cost))
	}

	wantSettings, err := src.settings.All(ctx)
	require.NoError(t, err)
	gotSettings, err := dst.settings.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, wantSettings, gotSettings)
}

func TestImport_SubsetLeavesOthersUntouched(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedSmall(t)

	doc := `{"components":[{"id":"x-1","name":"ESP32","category":"Microcontrollers","stock":4,"cost":6.5}]}`
	report, err := Import(ctx, f.store, strings.NewReader(doc), "partial.json", f.clock)
	require.NoError(t, err)
	assert.Equal(t, []store.Collection{store.Components}, report.Replaced)

	components, err := f.inv.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, components, 1)
	assert.Equal(t, "ESP32", components[0].Name)
	assert.True(t, components[0].Cost.Equal(decimal.RequireFromString("6.50")))

	lines, err := f.cart.Lines(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 1, "cart absent from document stays")

	currency, err := f.settings.Currency(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USD", currency)
}

func TestImport_SettingsArrayMergesPerKey(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	require.NoError(t, f.settings.Set(ctx, model.SettingCurrency, json.RawMessage(`"USD"`)))
	require.NoError(t, f.settings.Set(ctx, "theme", json.RawMessage(`"dark"`)))

	doc := `{"settings":[{"key":"currency","value":"EUR"},{"key":"lowStockThreshold","value":"8"}]}`
	_, err := Import(ctx, f.store, strings.NewReader(doc), "settings.json", f.clock)
	require.NoError(t, err)

	currency, err := f.settings.Currency(ctx)
	require.NoError(t, err)
	assert.Equal(t, "EUR", currency)

	threshold, err := f.settings.LowStockThreshold(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, threshold)

	theme, ok, err := f.settings.Get(ctx, "theme")
	require.NoError(t, err)
	require.True(t, ok, "keys absent from the document survive")
	assert.JSONEq(t, `"dark"`, string(theme))
}

func TestImport_RejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":                 `{"components": [`,
		"top-level array":          `[1, 2, 3]`,
		"negative stock":           `{"components":[{"id":"a","name":"A","category":"X","stock":-1,"cost":1}]}`,
		"missing id":               `{"components":[{"name":"A","category":"X","stock":1,"cost":1}]}`,
		"zero cart quantity":       `{"cart":[{"componentId":"a","name":"A","price":1,"quantity":0}]}`,
		"bad money string":         `{"components":[{"id":"a","name":"A","category":"X","stock":1,"cost":"1,50"}]}`,
		"bad currency":             `{"settings":{"currency":"dollars"}}`,
		"components object":        `{"components":{"id":"a"}}`,
		"duplicate component id":   `{"components":[{"id":"c1","name":"A","category":"X","stock":1,"cost":1},{"id":"c1","name":"B","category":"X","stock":2,"cost":1}]}`,
		"cart line id mismatch":    `{"cart":[{"id":"a","componentId":"c1","name":"A","price":1,"quantity":3}]}`,
		"duplicate cart component": `{"cart":[{"componentId":"c1","name":"A","price":1,"quantity":3},{"id":"c1","componentId":"c1","name":"A","price":1,"quantity":3}]}`,
		"duplicate transaction id": `{"transactions":[{"id":"t1","lines":[],"total":0,"date":"2024-03-01T09:00:00Z"},{"id":"t1","lines":[],"total":0,"date":"2024-03-02T09:00:00Z"}]}`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := setup(t)
			f.seedSmall(t)

			_, err := Import(ctx, f.store, strings.NewReader(doc), "bad.json", f.clock)
			require.Error(t, err)
			assert.True(t, model.IsImportFormat(err), "expected import format error, got %v", err)

			components, err := f.inv.ListAll(ctx)
			require.NoError(t, err)
			assert.Len(t, components, 2, "nothing applied")

			currency, err := f.settings.Currency(ctx)
			require.NoError(t, err)
			assert.Equal(t, "USD", currency)
		})
	}
}

func TestImport_NormalisesLegacyCartLines(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	doc := `{"cart":[{"componentId":"a","name":"A","price":"2.00","quantity":3}]}`
	_, err := Import(ctx, f.store, strings.NewReader(doc), "legacy.json", f.clock)
	require.NoError(t, err)

	lines, err := f.cart.Lines(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "a", lines[0].ID)
	assert.Equal(t, 3, lines[0].MaxQuantity)
}

func TestCapture_RemoteScope(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedSmall(t)
	require.NoError(t, f.settings.SetRemoteDocumentID(ctx, "gist-1"))
	require.NoError(t, f.settings.SetLastSync(ctx, testutil.Epoch))

	doc, err := Capture(ctx, f.store, ScopeRemote)
	require.NoError(t, err)

	assert.Len(t, doc.Components, 2)
	assert.Len(t, doc.Cart, 1)
	assert.Nil(t, doc.Transactions, "orders are not synced")
	assert.Equal(t, []string{"currency", "lastSync", "lowStockThreshold"}, settings.Keys(doc.Settings))

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "transactions")
	assert.NotContains(t, string(data), "gist-1")
}

func TestDocument_AbsentVersusEmpty(t *testing.T) {
	data, err := json.Marshal(Document{Components: []model.Component{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"components":[]}`, string(data))

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(`{"components":[],"cart":null}`), &doc))
	assert.NotNil(t, doc.Components)
	assert.Empty(t, doc.Components)
	assert.Nil(t, doc.Cart)
	assert.Nil(t, doc.Transactions)
}

func TestApply_EmptyComponentsClearsInventory(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.seedSmall(t)

	report, err := Apply(ctx, f.store, Document{Components: []model.Component{}}, f.clock)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Components)

	components, err := f.inv.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, components)
}

func TestApplyInbound_ReconcilesUnpushedOrders(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	a, err := f.inv.AddComponent(ctx, inventory.NewComponent{Name: "A", Category: "X", Stock: 5, Cost: decimal.NewFromInt(1)})
	require.NoError(t, err)
	b, err := f.inv.AddComponent(ctx, inventory.NewComponent{Name: "B", Category: "X", Stock: 5, Cost: decimal.NewFromInt(1)})
	require.NoError(t, err)

	lastPush := f.clock.Now()

	// A local order the remote has not seen yet.
	_, err = checkout.Table.Add(ctx, f.store, model.Transaction{
		ID: "tx-local",
		Lines: []model.TransactionLine{
			{ComponentID: a.ID, Name: "A", Price: decimal.NewFromInt(1), Quantity: 2},
			{ComponentID: b.ID, Name: "B", Price: decimal.NewFromInt(1), Quantity: 3},
		},
		Total: decimal.NewFromInt(5),
		Date:  f.clock.Now(),
	})
	require.NoError(t, err)

	// An older order that was already pushed.
	_, err = checkout.Table.Add(ctx, f.store, model.Transaction{
		ID:    "tx-old",
		Lines: []model.TransactionLine{{ComponentID: a.ID, Name: "A", Price: decimal.NewFromInt(1), Quantity: 1}},
		Total: decimal.NewFromInt(1),
		Date:  lastPush.Add(-time.Hour),
	})
	require.NoError(t, err)

	// Another device sold most of B and pushed before us.
	inbound := Document{
		Components: []model.Component{
			{ID: a.ID, Name: "A", Category: "X", Stock: 5, Cost: decimal.NewFromInt(1)},
			{ID: b.ID, Name: "B", Category: "X", Stock: 1, Cost: decimal.NewFromInt(1)},
		},
		Origin: "other-device",
	}

	report, err := ApplyInbound(ctx, f.store, inbound, lastPush, f.clock, nil)
	require.NoError(t, err)

	gotA, err := f.inv.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, gotA.Stock, "local order re-applied")

	gotB, err := f.inv.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, gotB.Stock, "shortfall clamped to zero")

	require.Len(t, report.Flagged, 1)
	assert.Equal(t, "tx-local", report.Flagged[0].TransactionID)
	assert.Equal(t, b.ID, report.Flagged[0].ComponentID)
	assert.Equal(t, 3, report.Flagged[0].Requested)
	assert.Equal(t, 1, report.Flagged[0].Applied)

	queue, err := f.settings.ReviewQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "tx-local", queue[0].TransactionID)

	history, err := checkout.History(ctx, f.store)
	require.NoError(t, err)
	assert.Len(t, history, 2, "transactions are never rewritten")
}

func TestParse_RejectsNegativeInboundStock(t *testing.T) {
	data := []byte(`{"components":[{"id":"n-1","name":"N","category":"X","stock":-2,"cost":0}],"origin":"other"}`)

	_, err := Parse("redis", data)
	require.Error(t, err)
	assert.True(t, model.IsImportFormat(err), "expected import format error, got %v", err)
}

func TestParse_KeysCartLinesByComponent(t *testing.T) {
	t.Run("two lines for one component", func(t *testing.T) {
		data := []byte(`{
			"components":[{"id":"c1","name":"Servo","category":"X","stock":5,"cost":1}],
			"cart":[
				{"id":"a","componentId":"c1","name":"Servo","price":1,"quantity":3},
				{"id":"b","componentId":"c1","name":"Servo","price":1,"quantity":3}
			]}`)
		_, err := Parse("backup.json", data)
		require.Error(t, err)
		assert.True(t, model.IsImportFormat(err))
		assert.Contains(t, err.Error(), "c1")
	})

	t.Run("legacy line without id", func(t *testing.T) {
		data := []byte(`{"cart":[{"componentId":"c1","name":"Servo","price":1,"quantity":3}]}`)
		doc, err := Parse("backup.json", data)
		require.NoError(t, err)
		require.Len(t, doc.Cart, 1)
		assert.Equal(t, "c1", doc.Cart[0].ID)
	})
}

func TestApplyInbound_WithoutComponentsSkipsReconcile(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	report, err := ApplyInbound(ctx, f.store, Document{Settings: Settings{"currency": json.RawMessage(`"GBP"`)}}, time.Time{}, f.clock, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Flagged)
	assert.Equal(t, 1, report.Settings)

	currency, err := f.settings.Currency(ctx)
	require.NoError(t, err)
	assert.Equal(t, "GBP", currency)
}
