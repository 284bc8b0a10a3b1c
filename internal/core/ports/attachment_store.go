// internal/core/ports/attachment_store.go
package ports

import "context"

// AttachmentStore persists binary attachments and returns a durable URL
type AttachmentStore interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
}
