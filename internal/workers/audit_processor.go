// internal/workers/audit_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/stocksync/internal/core/ports"
)

const (
	TypeStockAudit = "stock:audit"
)

// AuditPayload is the payload of a stock audit task
type AuditPayload struct {
	Reason string `json:"reason"`
}

// NewStockAuditTask builds a stock audit task
func NewStockAuditTask(reason string) (*asynq.Task, error) {
	b, err := json.Marshal(AuditPayload{Reason: reason})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit payload: %w", err)
	}
	return asynq.NewTask(TypeStockAudit, b), nil
}

// AuditProcessor handles stock audit tasks
type AuditProcessor struct {
	service ports.AuditService
	logger  *slog.Logger
}

// NewAuditProcessor creates a new audit processor
func NewAuditProcessor(service ports.AuditService, logger *slog.Logger) *AuditProcessor {
	return &AuditProcessor{
		service: service,
		logger:  logger.With(slog.String("processor", "audit")),
	}
}

// ProcessAudit recomputes stock from the transaction log and stores the report
func (p *AuditProcessor) ProcessAudit(ctx context.Context, t *asynq.Task) error {
	var payload AuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// malformed payloads never succeed on retry
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Reason == "" {
		payload.Reason = "unspecified"
	}

	start := time.Now()
	audit, err := p.service.Run(ctx, payload.Reason)
	if err != nil {
		return fmt.Errorf("stock audit failed: %w", err)
	}

	p.logger.InfoContext(ctx, "stock audit processed",
		slog.String("reason", payload.Reason),
		slog.Int("low_stock", len(audit.LowStock)),
		slog.Int("drift", len(audit.Drift)),
		slog.Duration("duration", time.Since(start)))

	return nil
}
