// internal/core/domain/reject.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// RejectItem is master data for damaged or rejected goods. Reject stock is a
// separate ledger and never affects InventoryItem quantities.
type RejectItem struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	SKU         string    `json:"sku"`
	Category    string    `json:"category"`
	BaseUnit    string    `json:"baseUnit"`
	Quantity    int       `json:"quantity" validate:"gte=0"`
	LastUpdated Timestamp `json:"lastUpdated"`
}

// RejectLogItem is one line of a reject log
type RejectLogItem struct {
	RejectItemID string `json:"rejectItemId" validate:"required"`
	ItemName     string `json:"itemName"`
	Quantity     int    `json:"quantity" validate:"gt=0"`
	Unit         string `json:"unit"`
	Reason       string `json:"reason"`
}

// RejectLog records a batch of rejected goods
type RejectLog struct {
	ID        string          `json:"id" validate:"required"`
	Date      string          `json:"date" validate:"required"`
	Items     []RejectLogItem `json:"items" validate:"required,min=1,dive"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt Timestamp       `json:"createdAt"`
}

// Validate performs domain validation on the reject item
func (r *RejectItem) Validate() error {
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	return ValidateStruct(r)
}

// PrepareForStorage assigns an id if missing and stamps LastUpdated
func (r *RejectItem) PrepareForStorage(now time.Time) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.LastUpdated = NewTimestamp(now)
}

// Validate performs domain validation on the reject log
func (r *RejectLog) Validate() error {
	return ValidateStruct(r)
}

// PrepareForStorage assigns an id, a date and a creation stamp if missing
func (r *RejectLog) PrepareForStorage(now time.Time) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Date == "" {
		r.Date = now.UTC().Format("2006-01-02")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = NewTimestamp(now)
	}
}
