// internal/core/domain/state.go
package domain

// Phase is the controller lifecycle stage
type Phase int

const (
	// PhaseInitializing suppresses the mutation pipeline while state is seeded
	PhaseInitializing Phase = iota
	// PhaseActive routes every settled mutation to storage. Never left once entered.
	PhaseActive
)

func (p Phase) String() string {
	if p == PhaseActive {
		return "active"
	}
	return "initializing"
}

// AppState is the full in-memory application state. It is owned by a single
// controller and replaced, never mutated in place, by reducers.
type AppState struct {
	Inventory       []InventoryItem
	Transactions    []Transaction
	RejectInventory []RejectItem
	Rejects         []RejectLog
	Suppliers       []Supplier
	Users           []User
	Settings        AppSettings
	TablePrefs      TablePreferences
	CurrentUser     *User

	Phase       Phase
	Loading     bool
	LastOutcome LoadOutcome
	LastMessage string
}

// NewAppState returns an empty state with non-nil collections
func NewAppState() AppState {
	return AppState{
		Inventory:       []InventoryItem{},
		Transactions:    []Transaction{},
		RejectInventory: []RejectItem{},
		Rejects:         []RejectLog{},
		Suppliers:       []Supplier{},
		Users:           []User{},
		TablePrefs:      TablePreferences{},
		Phase:           PhaseInitializing,
	}
}

// Normalize replaces nil collections with empty ones so that every collection
// encodes as a JSON array or object, never null
func (s *AppState) Normalize() {
	if s.Inventory == nil {
		s.Inventory = []InventoryItem{}
	}
	if s.Transactions == nil {
		s.Transactions = []Transaction{}
	}
	if s.RejectInventory == nil {
		s.RejectInventory = []RejectItem{}
	}
	if s.Rejects == nil {
		s.Rejects = []RejectLog{}
	}
	if s.Suppliers == nil {
		s.Suppliers = []Supplier{}
	}
	if s.Users == nil {
		s.Users = []User{}
	}
	if s.TablePrefs == nil {
		s.TablePrefs = TablePreferences{}
	}
}

// Value returns the persisted value of one collection
func (s AppState) Value(c Collection) any {
	switch c {
	case CollectionInventory:
		return s.Inventory
	case CollectionTransactions:
		return s.Transactions
	case CollectionRejectInventory:
		return s.RejectInventory
	case CollectionRejects:
		return s.Rejects
	case CollectionSuppliers:
		return s.Suppliers
	case CollectionUsers:
		return s.Users
	case CollectionSettings:
		return s.Settings
	case CollectionTablePrefs:
		return s.TablePrefs
	default:
		return nil
	}
}

// FullState is a remote snapshot. A nil field means the backend omitted that
// collection; an empty non-nil slice means the backend holds none.
type FullState struct {
	Inventory       []InventoryItem `json:"inventory,omitempty"`
	Transactions    []Transaction   `json:"transactions,omitempty"`
	RejectInventory []RejectItem    `json:"reject_inventory,omitempty"`
	Rejects         []RejectLog     `json:"rejects,omitempty"`
	Suppliers       []Supplier      `json:"suppliers,omitempty"`
	Users           []User          `json:"users,omitempty"`
	Settings        *AppSettings    `json:"settings,omitempty"`
}

// Has reports whether the snapshot carries collection c
func (f *FullState) Has(c Collection) bool {
	if f == nil {
		return false
	}
	switch c {
	case CollectionInventory:
		return f.Inventory != nil
	case CollectionTransactions:
		return f.Transactions != nil
	case CollectionRejectInventory:
		return f.RejectInventory != nil
	case CollectionRejects:
		return f.Rejects != nil
	case CollectionSuppliers:
		return f.Suppliers != nil
	case CollectionUsers:
		return f.Users != nil
	case CollectionSettings:
		return f.Settings != nil
	default:
		return false
	}
}

// Present lists the collections carried by the snapshot
func (f *FullState) Present() []Collection {
	var out []Collection
	for _, c := range RemoteCollections() {
		if f.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// MergeRemote overwrites every collection present in f and leaves the rest
// untouched. It returns the new state and the collections it replaced.
func (s AppState) MergeRemote(f *FullState) (AppState, []Collection) {
	if f == nil {
		return s, nil
	}
	if f.Inventory != nil {
		s.Inventory = f.Inventory
	}
	if f.Transactions != nil {
		s.Transactions = f.Transactions
	}
	if f.RejectInventory != nil {
		s.RejectInventory = f.RejectInventory
	}
	if f.Rejects != nil {
		s.Rejects = f.Rejects
	}
	if f.Suppliers != nil {
		s.Suppliers = f.Suppliers
	}
	if f.Users != nil {
		s.Users = f.Users
	}
	if f.Settings != nil {
		s.Settings = s.Settings.MergeRemote(*f.Settings)
	}
	return s, f.Present()
}
