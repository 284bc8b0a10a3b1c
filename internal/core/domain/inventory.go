// internal/core/domain/inventory.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemStatus represents whether an item is still stocked
type ItemStatus string

// Status constants
const (
	StatusActive   ItemStatus = "active"
	StatusInactive ItemStatus = "inactive"
)

// DefaultCategory is assigned to items saved without a category
const DefaultCategory = "General"

// UnitConversion expresses an alternate unit as a multiple of the base unit
type UnitConversion struct {
	Name  string `json:"name" validate:"required"`
	Ratio int    `json:"ratio" validate:"gt=0"`
}

// InventoryItem represents a single stocked item. Quantity is always
// denominated in BaseUnit.
type InventoryItem struct {
	ID          string           `json:"id" validate:"required"`
	Name        string           `json:"name" validate:"required"`
	SKU         string           `json:"sku"`
	Category    string           `json:"category"`
	Quantity    int              `json:"quantity" validate:"gte=0"`
	BaseUnit    string           `json:"baseUnit" validate:"required"`
	Units       []UnitConversion `json:"units,omitempty" validate:"dive"`
	MinLevel    int              `json:"minLevel" validate:"gte=0"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"`
	Location    string           `json:"location"`
	LastUpdated Timestamp        `json:"lastUpdated"`
	Status      ItemStatus       `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
}

// Validate performs domain validation on the inventory item
func (i *InventoryItem) Validate() error {
	if i.Category == "" {
		i.Category = DefaultCategory
	}
	if i.Status == "" {
		i.Status = StatusActive
	}
	if i.UnitPrice.IsNegative() {
		return fmt.Errorf("unitPrice cannot be negative")
	}
	seen := make(map[string]bool, len(i.Units))
	for _, u := range i.Units {
		if u.Name == i.BaseUnit {
			return fmt.Errorf("unit %q duplicates the base unit", u.Name)
		}
		if seen[u.Name] {
			return fmt.Errorf("unit %q declared twice", u.Name)
		}
		seen[u.Name] = true
	}
	return ValidateStruct(i)
}

// PrepareForStorage assigns an id if missing and stamps LastUpdated
func (i *InventoryItem) PrepareForStorage(now time.Time) {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	i.LastUpdated = NewTimestamp(now)
}

// Ratio returns the base-unit multiple of the named unit. The base unit
// itself has ratio 1.
func (i *InventoryItem) Ratio(unit string) (int, bool) {
	if unit == "" || unit == i.BaseUnit {
		return 1, true
	}
	for _, u := range i.Units {
		if u.Name == unit {
			return u.Ratio, true
		}
	}
	return 0, false
}

// IsLowStock reports whether the item sits at or below its reorder threshold
func (i *InventoryItem) IsLowStock() bool {
	return i.MinLevel > 0 && i.Quantity <= i.MinLevel
}

// StockValue returns quantity times unit price
func (i *InventoryItem) StockValue() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
