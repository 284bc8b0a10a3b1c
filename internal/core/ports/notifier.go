// internal/core/ports/notifier.go
package ports

import "context"

// Level is a notification severity
type Level string

// Notification levels
const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a transient user-visible message
type Notification struct {
	Level   Level
	Message string
}

// Notifier delivers transient notifications to the user
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
