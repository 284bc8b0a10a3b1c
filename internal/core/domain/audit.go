// internal/core/domain/audit.go
package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// LowStockEntry is an item at or below its reorder threshold
type LowStockEntry struct {
	ItemID   string `json:"itemId"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	MinLevel int    `json:"minLevel"`
}

// DriftEntry is an item whose recorded quantity differs from the quantity
// derived by replaying the transaction log from zero
type DriftEntry struct {
	ItemID   string `json:"itemId"`
	Name     string `json:"name"`
	Recorded int    `json:"recorded"`
	Derived  int    `json:"derived"`
}

// StockAudit is a point-in-time report over the inventory and transaction log
type StockAudit struct {
	GeneratedAt time.Time       `json:"generatedAt"`
	Reason      string          `json:"reason,omitempty"`
	ItemCount   int             `json:"itemCount"`
	TotalValue  decimal.Decimal `json:"totalValue"`
	LowStock    []LowStockEntry `json:"lowStock"`
	Drift       []DriftEntry    `json:"drift"`
	Dangling    []string        `json:"danglingItemIds"`
}

// AuditStock builds a StockAudit. Inactive items are excluded from the low
// stock list but still valued.
func AuditStock(items []InventoryItem, log []Transaction, now time.Time) StockAudit {
	audit := StockAudit{
		GeneratedAt: now.UTC(),
		ItemCount:   len(items),
		TotalValue:  decimal.Zero,
		LowStock:    []LowStockEntry{},
		Drift:       []DriftEntry{},
		Dangling:    []string{},
	}

	opening := make(map[string]int, len(items))
	for i := range items {
		item := &items[i]
		opening[item.ID] = 0
		audit.TotalValue = audit.TotalValue.Add(item.StockValue())
		if item.Status != StatusInactive && item.IsLowStock() {
			audit.LowStock = append(audit.LowStock, LowStockEntry{
				ItemID:   item.ID,
				Name:     item.Name,
				Quantity: item.Quantity,
				MinLevel: item.MinLevel,
			})
		}
	}

	derived := RecomputeStock(opening, log)
	for i := range items {
		item := &items[i]
		if d := derived[item.ID]; d != item.Quantity {
			audit.Drift = append(audit.Drift, DriftEntry{
				ItemID:   item.ID,
				Name:     item.Name,
				Recorded: item.Quantity,
				Derived:  d,
			})
		}
	}

	seen := make(map[string]bool)
	for _, tx := range log {
		for _, line := range tx.Items {
			if _, ok := opening[line.ItemID]; !ok && !seen[line.ItemID] {
				seen[line.ItemID] = true
				audit.Dangling = append(audit.Dangling, line.ItemID)
			}
		}
	}
	sort.Strings(audit.Dangling)

	return audit
}
