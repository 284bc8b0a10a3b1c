// internal/core/domain/collection.go
package domain

import "fmt"

// Collection names one independently persisted and synced data set
type Collection string

// Collection constants, doubling as local storage keys and remote push types
const (
	CollectionInventory       Collection = "inventory"
	CollectionTransactions    Collection = "transactions"
	CollectionRejectInventory Collection = "reject_inventory"
	CollectionRejects         Collection = "rejects"
	CollectionSuppliers       Collection = "suppliers"
	CollectionUsers           Collection = "users"
	CollectionSettings        Collection = "settings"
	CollectionTablePrefs      Collection = "table_prefs"
)

// SessionKey is the local storage key of the authenticated user. It is not a
// collection and is cleared on logout only.
const SessionKey = "session_user"

var allCollections = []Collection{
	CollectionInventory,
	CollectionTransactions,
	CollectionRejectInventory,
	CollectionRejects,
	CollectionSuppliers,
	CollectionUsers,
	CollectionSettings,
	CollectionTablePrefs,
}

// AllCollections returns every collection in a stable order
func AllCollections() []Collection {
	out := make([]Collection, len(allCollections))
	copy(out, allCollections)
	return out
}

// RemoteCollections returns the collections accepted by the remote sync contract
func RemoteCollections() []Collection {
	out := make([]Collection, 0, len(allCollections))
	for _, c := range allCollections {
		if c.Remote() {
			out = append(out, c)
		}
	}
	return out
}

// Remote reports whether the collection is part of the remote push contract.
// Table preferences are persisted locally only.
func (c Collection) Remote() bool {
	return c.Valid() && c != CollectionTablePrefs
}

// Valid reports whether c is a known collection
func (c Collection) Valid() bool {
	for _, known := range allCollections {
		if c == known {
			return true
		}
	}
	return false
}

func (c Collection) String() string {
	return string(c)
}

// ParseCollection converts a wire name into a Collection
func ParseCollection(name string) (Collection, error) {
	c := Collection(name)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return c, nil
}
