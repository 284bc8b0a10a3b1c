package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/stocksync/internal/core/domain"
)

func TestFullState_PresenceFromJSON(t *testing.T) {
	payload := `{"inventory":[],"transactions":[{"id":"t1","date":"2024-01-01","type":"IN","items":[]}],"suppliers":null}`

	var fs domain.FullState
	require.NoError(t, json.Unmarshal([]byte(payload), &fs))

	assert.True(t, fs.Has(domain.CollectionInventory), "empty array is present")
	assert.True(t, fs.Has(domain.CollectionTransactions))
	assert.False(t, fs.Has(domain.CollectionSuppliers), "null is absent")
	assert.False(t, fs.Has(domain.CollectionUsers), "missing key is absent")
	assert.False(t, fs.Has(domain.CollectionSettings))
	assert.Equal(t, []domain.Collection{domain.CollectionInventory, domain.CollectionTransactions}, fs.Present())
}

func TestAppState_MergeRemote_PartialPayload(t *testing.T) {
	local := domain.NewAppState()
	local.Inventory = []domain.InventoryItem{{ID: "old"}}
	local.Suppliers = []domain.Supplier{{ID: "s1", Name: "Local Supplier"}}
	local.Settings = domain.AppSettings{APIBaseURL: "http://api.local"}

	remote := &domain.FullState{
		Inventory:    []domain.InventoryItem{{ID: "new"}},
		Transactions: []domain.Transaction{},
		Settings:     &domain.AppSettings{CompanyName: "ACME"},
	}

	merged, changed := local.MergeRemote(remote)

	assert.Equal(t, "new", merged.Inventory[0].ID)
	assert.Empty(t, merged.Transactions)
	assert.Equal(t, local.Suppliers, merged.Suppliers)
	assert.Equal(t, "ACME", merged.Settings.CompanyName)
	assert.Equal(t, "http://api.local", merged.Settings.APIBaseURL)
	assert.ElementsMatch(t, []domain.Collection{
		domain.CollectionInventory, domain.CollectionTransactions, domain.CollectionSettings,
	}, changed)
}

func TestAppState_MergeRemote_Idempotent(t *testing.T) {
	raw := `{"inventory":[{"id":"7","name":"Bolt","quantity":18,"baseUnit":"Pcs","unitPrice":"0.50","lastUpdated":"2024-01-01"}],
		"settings":{"companyName":"ACME"}}`

	var fs domain.FullState
	require.NoError(t, json.Unmarshal([]byte(raw), &fs))

	first, _ := domain.NewAppState().MergeRemote(&fs)
	second, _ := first.MergeRemote(&fs)

	for _, c := range domain.AllCollections() {
		a, err := json.Marshal(first.Value(c))
		require.NoError(t, err)
		b, err := json.Marshal(second.Value(c))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), c.String())
	}
}

func TestAppState_ValueOnReturnedState(t *testing.T) {
	state := func() domain.AppState {
		s := domain.NewAppState()
		s.Inventory = []domain.InventoryItem{{ID: "7"}}
		s.Settings = domain.AppSettings{CompanyName: "ACME"}
		return s
	}

	assert.Equal(t, []domain.InventoryItem{{ID: "7"}}, state().Value(domain.CollectionInventory))
	assert.Equal(t, domain.AppSettings{CompanyName: "ACME"}, state().Value(domain.CollectionSettings))
	assert.Nil(t, state().Value(domain.Collection("unknown")))
}

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{name: "rfc3339", input: `"2024-03-01T10:00:00.000Z"`, want: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{name: "date_only", input: `"2024-03-01"`, want: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{name: "unix_millis", input: `1709287200000`, want: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{name: "empty_string", input: `""`, want: time.Time{}},
		{name: "null", input: `null`, want: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts domain.Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.input), &ts))
			assert.True(t, tt.want.Equal(ts.Time), "got %s", ts.Time)
		})
	}

	var ts domain.Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestAppSettings_Endpoint(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.AppSettings
		want     domain.RemoteEndpoint
	}{
		{name: "none", settings: domain.AppSettings{}, want: domain.RemoteEndpoint{}},
		{
			name:     "script_only",
			settings: domain.AppSettings{ScriptURL: "https://script.example/exec"},
			want:     domain.RemoteEndpoint{Kind: domain.BackendSheetScript, URL: "https://script.example/exec"},
		},
		{
			name:     "api_wins_without_kind",
			settings: domain.AppSettings{ScriptURL: "https://script.example/exec", APIBaseURL: "http://api"},
			want:     domain.RemoteEndpoint{Kind: domain.BackendRESTAPI, URL: "http://api"},
		},
		{
			name: "explicit_kind",
			settings: domain.AppSettings{
				ScriptURL: "https://script.example/exec", APIBaseURL: "http://api",
				BackendKind: domain.BackendSheetScript, APIKey: "k",
			},
			want: domain.RemoteEndpoint{Kind: domain.BackendSheetScript, URL: "https://script.example/exec", APIKey: "k"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.settings.Endpoint()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.URL != "", got.Configured())
		})
	}
}

func TestTablePreferences(t *testing.T) {
	var prefs domain.TablePreferences

	assert.True(t, prefs.Visible("inventory", "sku"))

	next := prefs.With("inventory", "sku", false)
	assert.False(t, next.Visible("inventory", "sku"))
	assert.True(t, next.Visible("inventory", "name"))
	assert.Nil(t, prefs)
}
