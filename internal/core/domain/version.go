// internal/core/domain/version.go
package domain

import "time"

// VersionAt is the push version stamped at t. Every writer of a collection
// must use it so stamps stay comparable.
func VersionAt(t time.Time) int64 {
	return t.UnixNano()
}
