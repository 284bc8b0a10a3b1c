// internal/core/domain/ledger.go
package domain

import "time"

// Sign returns +1 for IN and -1 for OUT
func (t TransactionType) Sign() int {
	if t == TransactionOut {
		return -1
	}
	return 1
}

// LineEffect describes what one transaction line did to one item
type LineEffect struct {
	ItemID  string
	Before  int
	After   int
	Delta   int
	Clamped bool
}

// LedgerResult summarises one ApplyTransaction call
type LedgerResult struct {
	Effects  []LineEffect
	Dangling []string
}

// Clamped reports whether any line would have driven stock negative
func (r LedgerResult) Clamped() bool {
	for _, e := range r.Effects {
		if e.Clamped {
			return true
		}
	}
	return false
}

// ApplyTransaction returns a copy of items with tx applied. Each line moves
// the referenced item by TotalBaseQuantity, signed by the transaction type,
// and the result is floored at zero. Lines whose item id does not resolve are
// skipped and reported as dangling. The input slice is never modified.
func ApplyTransaction(items []InventoryItem, tx Transaction, now time.Time) ([]InventoryItem, LedgerResult) {
	out := make([]InventoryItem, len(items))
	copy(out, items)

	index := make(map[string]int, len(out))
	for i := range out {
		index[out[i].ID] = i
	}

	var res LedgerResult
	sign := tx.Type.Sign()
	for _, line := range tx.Items {
		i, ok := index[line.ItemID]
		if !ok {
			res.Dangling = append(res.Dangling, line.ItemID)
			continue
		}

		delta := sign * line.TotalBaseQuantity
		before := out[i].Quantity
		after, clamped := clampedAdd(before, delta)

		out[i].Quantity = after
		out[i].LastUpdated = NewTimestamp(now)
		res.Effects = append(res.Effects, LineEffect{
			ItemID:  line.ItemID,
			Before:  before,
			After:   after,
			Delta:   delta,
			Clamped: clamped,
		})
	}
	return out, res
}

// RecomputeStock folds a transaction log, in order, onto opening quantities.
// Ids missing from opening are ignored. Each step is floored at zero, matching
// ApplyTransaction.
func RecomputeStock(opening map[string]int, log []Transaction) map[string]int {
	out := make(map[string]int, len(opening))
	for id, q := range opening {
		out[id] = q
	}
	for _, tx := range log {
		sign := tx.Type.Sign()
		for _, line := range tx.Items {
			cur, ok := out[line.ItemID]
			if !ok {
				continue
			}
			out[line.ItemID], _ = clampedAdd(cur, sign*line.TotalBaseQuantity)
		}
	}
	return out
}

func clampedAdd(cur, delta int) (int, bool) {
	next := cur + delta
	if next < 0 {
		return 0, true
	}
	return next, false
}
