package remote

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/snapshot"
)

// sampleDoc returns a remote-scope document with one component.
func sampleDoc(origin string, stock int) snapshot.Document {
	now := time.Now().UTC()
	return snapshot.Document{
		Components: []model.Component{{
			ID:        "c1",
			Name:      "Arduino Uno R3",
			Category:  "Microcontrollers",
			Stock:     stock,
			Cost:      decimal.RequireFromString("23.00"),
			CreatedAt: now,
			UpdatedAt: now,
		}},
		Cart:        []model.CartLine{},
		Settings:    snapshot.Settings{model.SettingCurrency: []byte(`"INR"`)},
		LastUpdated: &now,
		Origin:      origin,
	}
}
