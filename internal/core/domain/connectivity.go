// internal/core/domain/connectivity.go
package domain

// ConnectivityState is the client's view of the remote store
type ConnectivityState string

// Connectivity states
const (
	ConnectivityUnknown      ConnectivityState = "UNKNOWN"
	ConnectivityConnected    ConnectivityState = "CONNECTED"
	ConnectivityDisconnected ConnectivityState = "DISCONNECTED"
	ConnectivityOffline      ConnectivityState = "OFFLINE"
)

// BackendStatus is the downstream data store status reported by a health probe
type BackendStatus string

// Backend statuses
const (
	BackendUnknown      BackendStatus = "UNKNOWN"
	BackendConnected    BackendStatus = "CONNECTED"
	BackendDisconnected BackendStatus = "DISCONNECTED"
)

// HealthResult is the outcome of one health probe
type HealthResult struct {
	TransportOnline bool
	BackendStatus   BackendStatus
	Message         string
}

// Classify maps a health probe onto a connectivity state. Transport failure
// dominates; a reachable server with an unreachable database is DISCONNECTED,
// never OFFLINE.
func Classify(h HealthResult) ConnectivityState {
	if !h.TransportOnline {
		return ConnectivityOffline
	}
	switch h.BackendStatus {
	case BackendConnected:
		return ConnectivityConnected
	case BackendDisconnected:
		return ConnectivityDisconnected
	default:
		return ConnectivityUnknown
	}
}

// TrustLevel says which copy of the data is authoritative
type TrustLevel int

const (
	TrustLocalOnly TrustLevel = iota
	TrustRemote
)

// Trust is the user-facing trust level. Only CONNECTED authorises pushes.
func (s ConnectivityState) Trust() TrustLevel {
	if s == ConnectivityConnected {
		return TrustRemote
	}
	return TrustLocalOnly
}

// Badge is the short status label shown while in a degraded mode
func (s ConnectivityState) Badge() string {
	switch s {
	case ConnectivityConnected:
		return "Online"
	case ConnectivityDisconnected:
		return "Database unreachable - saving locally"
	case ConnectivityOffline:
		return "Offline - saving locally"
	default:
		return "Local mode"
	}
}

// LoadOutcome is the branch a reconciliation cycle ended in
type LoadOutcome string

// Load outcomes
const (
	OutcomeLoading  LoadOutcome = "LOADING"
	OutcomeLocal    LoadOutcome = "LOCAL"
	OutcomeOffline  LoadOutcome = "OFFLINE"
	OutcomeDegraded LoadOutcome = "DEGRADED"
	OutcomeOnline   LoadOutcome = "ONLINE"
)
