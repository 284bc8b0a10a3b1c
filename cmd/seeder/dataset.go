// cmd/seeder/dataset.go
package main

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/stocksync/internal/core/domain"
)

// Dataset is one demo warehouse, ready to push collection by collection
type Dataset struct {
	Settings        domain.AppSettings
	Suppliers       []domain.Supplier
	Users           []domain.User
	Inventory       []domain.InventoryItem
	Transactions    []domain.Transaction
	RejectInventory []domain.RejectItem
	Rejects         []domain.RejectLog
}

type catalogEntry struct {
	name     string
	category string
	baseUnit string
	units    []domain.UnitConversion
	price    string
	minLevel int
}

var catalog = []catalogEntry{
	{"Hex Bolt M8", "Fasteners", "Pcs", []domain.UnitConversion{{Name: "Box", Ratio: 100}}, "0.12", 200},
	{"Hex Nut M8", "Fasteners", "Pcs", []domain.UnitConversion{{Name: "Box", Ratio: 100}}, "0.05", 200},
	{"Flat Washer M8", "Fasteners", "Pcs", []domain.UnitConversion{{Name: "Box", Ratio: 250}}, "0.02", 250},
	{"Cable Tie 200mm", "Electrical", "Pcs", []domain.UnitConversion{{Name: "Pack", Ratio: 50}}, "0.04", 100},
	{"Copper Wire 2.5mm", "Electrical", "Meter", []domain.UnitConversion{{Name: "Roll", Ratio: 50}}, "0.90", 100},
	{"Safety Gloves", "PPE", "Pair", []domain.UnitConversion{{Name: "Dozen", Ratio: 12}}, "2.40", 24},
	{"Safety Helmet", "PPE", "Pcs", nil, "11.50", 10},
	{"Stretch Film", "Packaging", "Roll", []domain.UnitConversion{{Name: "Carton", Ratio: 6}}, "7.80", 12},
	{"Carton Box 40x30", "Packaging", "Pcs", []domain.UnitConversion{{Name: "Bundle", Ratio: 25}}, "0.65", 100},
	{"Pallet Wrap Tape", "Packaging", "Roll", []domain.UnitConversion{{Name: "Carton", Ratio: 36}}, "1.10", 36},
	{"Machine Oil 1L", "Maintenance", "Bottle", []domain.UnitConversion{{Name: "Case", Ratio: 12}}, "6.25", 12},
	{"Grease Cartridge", "Maintenance", "Pcs", []domain.UnitConversion{{Name: "Case", Ratio: 24}}, "3.90", 24},
}

var supplierNames = []string{"Northwind Industrial", "Harbor Fasteners", "Bright Electric Supply", "Pack&Go"}

var rejectReasons = []string{"damaged in transit", "wrong size", "expired", "water damage"}

// BuildDataset generates a deterministic warehouse. Inventory quantities are
// the result of folding the generated transaction log onto zero stock.
func BuildDataset(seed uint64, transactions int, now time.Time) Dataset {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	src := rand.NewChaCha8(key)
	rng := rand.New(src)
	ids := func() string { return uuid.Must(uuid.NewRandomFromReader(src)).String() }

	ds := Dataset{Settings: domain.AppSettings{CompanyName: "Demo Warehouse"}}

	for _, name := range supplierNames {
		ds.Suppliers = append(ds.Suppliers, domain.Supplier{
			ID:            ids(),
			Name:          name,
			ContactPerson: "Sales desk",
			Phone:         fmt.Sprintf("+1-555-%04d", rng.IntN(10000)),
		})
	}

	ds.Users = []domain.User{
		{ID: ids(), Name: "Administrator", Username: "admin", Role: domain.RoleAdmin, Status: domain.UserActive},
		{ID: ids(), Name: "Floor Staff", Username: "staff", Role: domain.RoleStaff, Status: domain.UserActive},
		{ID: ids(), Name: "Auditor", Username: "viewer", Role: domain.RoleViewer, Status: domain.UserActive},
	}

	for i, entry := range catalog {
		ds.Inventory = append(ds.Inventory, domain.InventoryItem{
			ID:          ids(),
			Name:        entry.name,
			SKU:         fmt.Sprintf("WH-%04d", i+1),
			Category:    entry.category,
			BaseUnit:    entry.baseUnit,
			Units:       entry.units,
			MinLevel:    entry.minLevel,
			UnitPrice:   decimal.RequireFromString(entry.price),
			Location:    fmt.Sprintf("%c-%02d", 'A'+rune(i%4), i/4+1),
			LastUpdated: domain.NewTimestamp(now),
			Status:      domain.StatusActive,
		})
	}

	start := now.AddDate(0, 0, -transactions)
	for n := 0; n < transactions; n++ {
		day := start.AddDate(0, 0, n)
		// the first pass over the catalog only receives so that stock exists
		txType := domain.TransactionIn
		if n >= len(catalog) && rng.IntN(3) > 0 {
			txType = domain.TransactionOut
		}

		tx := domain.Transaction{
			ID:        ids(),
			Date:      day.Format("2006-01-02"),
			Type:      txType,
			CreatedAt: domain.NewTimestamp(day),
		}
		if txType == domain.TransactionIn {
			tx.SupplierName = supplierNames[rng.IntN(len(supplierNames))]
			tx.PONumber = fmt.Sprintf("PO-%05d", n+1)
		} else {
			tx.ReceiptNumber = fmt.Sprintf("RI-%05d", n+1)
		}

		lines := 1 + rng.IntN(3)
		for l := 0; l < lines; l++ {
			idx := rng.IntN(len(ds.Inventory))
			if n < len(catalog) && l == 0 {
				idx = n
			}
			item := ds.Inventory[idx]
			unit := item.BaseUnit
			qty := 1 + rng.IntN(40)
			if len(item.Units) > 0 && txType == domain.TransactionIn {
				unit = item.Units[0].Name
				qty = 1 + rng.IntN(5)
			}
			line, err := domain.NewTransactionItem(item, qty, unit)
			if err != nil {
				continue
			}
			tx.Items = append(tx.Items, line)
		}

		ds.Inventory, _ = domain.ApplyTransaction(ds.Inventory, tx, day)
		ds.Transactions = append(ds.Transactions, tx)
	}

	for i := 0; i < 3; i++ {
		src := ds.Inventory[rng.IntN(len(ds.Inventory))]
		reject := domain.RejectItem{
			ID:          ids(),
			Name:        src.Name,
			SKU:         src.SKU,
			Category:    src.Category,
			BaseUnit:    src.BaseUnit,
			LastUpdated: domain.NewTimestamp(now),
		}
		qty := 1 + rng.IntN(5)
		reject.Quantity = qty
		ds.RejectInventory = append(ds.RejectInventory, reject)
		ds.Rejects = append(ds.Rejects, domain.RejectLog{
			ID:   ids(),
			Date: now.Format("2006-01-02"),
			Items: []domain.RejectLogItem{{
				RejectItemID: reject.ID,
				ItemName:     reject.Name,
				Quantity:     qty,
				Unit:         reject.BaseUnit,
				Reason:       rejectReasons[rng.IntN(len(rejectReasons))],
			}},
			CreatedAt: domain.NewTimestamp(now),
		})
	}

	return ds
}

// batch is one collection push
type batch struct {
	Collection domain.Collection
	Data       interface{}
}

// Batches returns the dataset in push order. Master data goes first so a
// partial seed never leaves transactions pointing at unknown items.
func (d Dataset) Batches() []batch {
	return []batch{
		{domain.CollectionSettings, d.Settings},
		{domain.CollectionSuppliers, d.Suppliers},
		{domain.CollectionUsers, d.Users},
		{domain.CollectionInventory, d.Inventory},
		{domain.CollectionTransactions, d.Transactions},
		{domain.CollectionRejectInventory, d.RejectInventory},
		{domain.CollectionRejects, d.Rejects},
	}
}
