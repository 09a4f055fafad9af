package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/electromanage/internal/model"
)

// Version is the document format version written by Export.
const Version = 1

// Scope selects what Capture includes.
type Scope int

const (
	// ScopeExport captures every collection, transactions included.
	ScopeExport Scope = iota
	// ScopeRemote captures components, cart and the synced settings.
	ScopeRemote
)

// RemoteSettings are the settings carried by the remote document.
var RemoteSettings = []string{
	model.SettingCurrency,
	model.SettingLowStockThreshold,
	model.SettingLastSync,
}

// Document is a backup file or remote sync document.
//
// A nil collection is absent; a non-nil empty one is present and empty.
type Document struct {
	Components   []model.Component
	Cart         []model.CartLine
	Settings     Settings
	Transactions []model.Transaction
	ExportDate   *time.Time
	LastUpdated  *time.Time
	Version      int
	Origin       string
}

type wireDocument struct {
	Components   *[]model.Component   `json:"components,omitempty"`
	Cart         *[]model.CartLine    `json:"cart,omitempty"`
	Settings     Settings             `json:"settings,omitempty"`
	Transactions *[]model.Transaction `json:"transactions,omitempty"`
	ExportDate   *time.Time           `json:"exportDate,omitempty"`
	LastUpdated  *time.Time           `json:"lastUpdated,omitempty"`
	Version      int                  `json:"version,omitempty"`
	Origin       string               `json:"origin,omitempty"`
}

// MarshalJSON omits absent collections and keeps present empty ones as [].
func (d Document) MarshalJSON() ([]byte, error) {
	w := wireDocument{
		Settings:    d.Settings,
		ExportDate:  d.ExportDate,
		LastUpdated: d.LastUpdated,
		Version:     d.Version,
		Origin:      d.Origin,
	}
	if d.Components != nil {
		w.Components = &d.Components
	}
	if d.Cart != nil {
		w.Cart = &d.Cart
	}
	if d.Transactions != nil {
		w.Transactions = &d.Transactions
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON decodes a document. Missing or null collections stay nil.
func (d *Document) UnmarshalJSON(b []byte) error {
	var w wireDocument
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*d = Document{
		Settings:    w.Settings,
		ExportDate:  w.ExportDate,
		LastUpdated: w.LastUpdated,
		Version:     w.Version,
		Origin:      w.Origin,
	}
	if w.Components != nil {
		d.Components = nonNil(*w.Components)
	}
	if w.Cart != nil {
		d.Cart = nonNil(*w.Cart)
	}
	if w.Transactions != nil {
		d.Transactions = nonNil(*w.Transactions)
	}
	return nil
}

// normalize repairs fields older documents leave out.
func (d *Document) normalize() {
	for i := range d.Cart {
		l := &d.Cart[i]
		if l.ID == "" {
			l.ID = l.ComponentID
		}
		if l.MaxQuantity < l.Quantity {
			l.MaxQuantity = l.Quantity
		}
	}
	for i := range d.Components {
		d.Components[i].Cost = model.RoundMoney(d.Components[i].Cost)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Settings maps setting keys to raw JSON values.
//
// On input both an object and a [{key, value}] array are accepted.
// Output is always an object.
type Settings map[string]json.RawMessage

// UnmarshalJSON accepts an object or an array of {key, value} pairs.
func (s *Settings) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var pairs []struct {
			Key   string          `json:"key"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(trimmed, &pairs); err != nil {
			return fmt.Errorf("settings array: %w", err)
		}
		out := make(Settings, len(pairs))
		for _, p := range pairs {
			if p.Value == nil {
				p.Value = json.RawMessage("null")
			}
			out[p.Key] = p.Value
		}
		*s = out
		return nil
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return fmt.Errorf("settings object: %w", err)
	}
	*s = Settings(m)
	return nil
}
