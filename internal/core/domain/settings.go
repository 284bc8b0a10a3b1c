// internal/core/domain/settings.go
package domain

import "strings"

// BackendKind names a remote store flavor
type BackendKind string

// Backend kinds
const (
	BackendNone        BackendKind = ""
	BackendSheetScript BackendKind = "sheetscript"
	BackendRESTAPI     BackendKind = "restapi"
)

// MediaItem is an uploaded image referenced from settings
type MediaItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// AppSettings holds remote endpoint configuration and shared app preferences
type AppSettings struct {
	CompanyName string      `json:"companyName,omitempty"`
	ScriptURL   string      `json:"scriptUrl,omitempty"`
	APIBaseURL  string      `json:"apiUrl,omitempty"`
	BackendKind BackendKind `json:"backendKind,omitempty" validate:"omitempty,oneof=sheetscript restapi"`
	APIKey      string      `json:"apiKey,omitempty"`
	MediaList   []MediaItem `json:"mediaList,omitempty"`
}

// RemoteEndpoint is the resolved remote store target
type RemoteEndpoint struct {
	Kind   BackendKind
	URL    string
	APIKey string
}

// Configured reports whether a remote URL is set
func (e RemoteEndpoint) Configured() bool {
	return e.Kind != BackendNone && e.URL != ""
}

// Endpoint resolves which backend the settings point at. An explicit
// BackendKind wins; otherwise the API base URL takes precedence over the
// script URL.
func (s AppSettings) Endpoint() RemoteEndpoint {
	apiURL := strings.TrimSpace(s.APIBaseURL)
	scriptURL := strings.TrimSpace(s.ScriptURL)

	switch s.BackendKind {
	case BackendRESTAPI:
		return RemoteEndpoint{Kind: BackendRESTAPI, URL: apiURL, APIKey: s.APIKey}
	case BackendSheetScript:
		return RemoteEndpoint{Kind: BackendSheetScript, URL: scriptURL, APIKey: s.APIKey}
	}

	switch {
	case apiURL != "":
		return RemoteEndpoint{Kind: BackendRESTAPI, URL: apiURL, APIKey: s.APIKey}
	case scriptURL != "":
		return RemoteEndpoint{Kind: BackendSheetScript, URL: scriptURL, APIKey: s.APIKey}
	default:
		return RemoteEndpoint{}
	}
}

// MergeRemote overlays remote settings on s. Endpoint fields the remote copy
// leaves empty keep their local values, so a backend that does not store its
// own address cannot disconnect the client.
func (s AppSettings) MergeRemote(remote AppSettings) AppSettings {
	merged := remote
	if merged.ScriptURL == "" {
		merged.ScriptURL = s.ScriptURL
	}
	if merged.APIBaseURL == "" {
		merged.APIBaseURL = s.APIBaseURL
	}
	if merged.BackendKind == BackendNone {
		merged.BackendKind = s.BackendKind
	}
	if merged.APIKey == "" {
		merged.APIKey = s.APIKey
	}
	return merged
}

// TablePreferences maps module -> column -> visible
type TablePreferences map[string]map[string]bool

// Visible reports whether a column is shown. Columns default to visible.
func (p TablePreferences) Visible(module, column string) bool {
	cols, ok := p[module]
	if !ok {
		return true
	}
	v, ok := cols[column]
	return !ok || v
}

// With returns a copy of p with one column toggled
func (p TablePreferences) With(module, column string, visible bool) TablePreferences {
	out := make(TablePreferences, len(p)+1)
	for m, cols := range p {
		cp := make(map[string]bool, len(cols))
		for c, v := range cols {
			cp[c] = v
		}
		out[m] = cp
	}
	if out[module] == nil {
		out[module] = make(map[string]bool)
	}
	out[module][column] = visible
	return out
}
