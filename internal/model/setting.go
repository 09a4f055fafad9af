package model

import (
	"encoding/json"
	"time"
)

// Setting keys understood by electromanage. Unknown keys are stored as-is.
const (
	SettingCurrency          = "currency"
	SettingLowStockThreshold = "lowStockThreshold"
	SettingAutoSync          = "autoSync"
	SettingRemoteDocumentID  = "remoteDocumentId"
	SettingLastSync          = "lastSync"
	SettingLastPush          = "lastPush"
	SettingReviewQueue       = "reviewQueue"
)

// Setting is a key with an arbitrary JSON value.
type Setting struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ReviewItem flags a transaction whose stock decrement could not be fully
// re-applied on top of an inbound snapshot.
type ReviewItem struct {
	TransactionID string    `json:"transactionId"`
	ComponentID   string    `json:"componentId"`
	Requested     int       `json:"requested"`
	Applied       int       `json:"applied"`
	FlaggedAt     time.Time `json:"flaggedAt"`
}
