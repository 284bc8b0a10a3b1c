// internal/core/domain/transaction.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionType represents the stock direction of a transaction
type TransactionType string

// Transaction type constants
const (
	TransactionIn  TransactionType = "IN"
	TransactionOut TransactionType = "OUT"
)

// TransactionItemDetail is one line of a transaction. ItemName is a snapshot
// taken at submission time and may drift from the live item name.
type TransactionItemDetail struct {
	ItemID            string `json:"itemId" validate:"required"`
	ItemName          string `json:"itemName"`
	QuantityInput     int    `json:"quantityInput" validate:"gt=0"`
	SelectedUnit      string `json:"selectedUnit"`
	ConversionRatio   int    `json:"conversionRatio" validate:"gt=0"`
	TotalBaseQuantity int    `json:"totalBaseQuantity" validate:"gt=0"`
}

// Transaction is one append-only stock movement
type Transaction struct {
	ID            string                  `json:"id" validate:"required"`
	Date          string                  `json:"date" validate:"required"`
	Type          TransactionType         `json:"type" validate:"required,oneof=IN OUT"`
	Items         []TransactionItemDetail `json:"items" validate:"required,min=1,dive"`
	Notes         string                  `json:"notes,omitempty"`
	CreatedAt     Timestamp               `json:"createdAt"`
	SupplierName  string                  `json:"supplierName,omitempty"`
	PONumber      string                  `json:"poNumber,omitempty"`
	ReceiptNumber string                  `json:"riNumber,omitempty"`
	Photos        []string                `json:"photos,omitempty"`
}

// BaseQuantity converts a quantity in an alternate unit to base units
func BaseQuantity(quantityInput, ratio int) int {
	return quantityInput * ratio
}

// NewTransactionItem builds a line for item in the selected unit. The unit must
// be the item's base unit or one of its declared alternates.
func NewTransactionItem(item InventoryItem, quantityInput int, unit string) (TransactionItemDetail, error) {
	if quantityInput <= 0 {
		return TransactionItemDetail{}, fmt.Errorf("quantity must be positive")
	}
	if unit == "" {
		unit = item.BaseUnit
	}
	ratio, ok := item.Ratio(unit)
	if !ok {
		return TransactionItemDetail{}, fmt.Errorf("unit %q is not defined for item %s", unit, item.ID)
	}
	return TransactionItemDetail{
		ItemID:            item.ID,
		ItemName:          item.Name,
		QuantityInput:     quantityInput,
		SelectedUnit:      unit,
		ConversionRatio:   ratio,
		TotalBaseQuantity: BaseQuantity(quantityInput, ratio),
	}, nil
}

// Validate performs domain validation on the transaction
func (t *Transaction) Validate() error {
	if err := ValidateStruct(t); err != nil {
		return err
	}
	for idx, line := range t.Items {
		if line.TotalBaseQuantity != BaseQuantity(line.QuantityInput, line.ConversionRatio) {
			return fmt.Errorf("item %d: totalBaseQuantity %d does not equal %d x %d",
				idx, line.TotalBaseQuantity, line.QuantityInput, line.ConversionRatio)
		}
	}
	return nil
}

// PrepareForStorage assigns an id, a date and a creation stamp if missing
func (t *Transaction) PrepareForStorage(now time.Time) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Date == "" {
		t.Date = now.UTC().Format("2006-01-02")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = NewTimestamp(now)
	}
}

// SameLedgerEffect reports whether other moves exactly the same stock as t
func (t *Transaction) SameLedgerEffect(other *Transaction) bool {
	if t.Type != other.Type || len(t.Items) != len(other.Items) {
		return false
	}
	for i := range t.Items {
		a, b := t.Items[i], other.Items[i]
		if a.ItemID != b.ItemID || a.TotalBaseQuantity != b.TotalBaseQuantity {
			return false
		}
	}
	return true
}
