package workers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/workers"
	"github.com/ammerola/stocksync/test/helpers"
	"github.com/ammerola/stocksync/test/mocks"
)

func TestAuditProcessor_ProcessAudit(t *testing.T) {
	tests := []struct {
		name          string
		task          func(t *testing.T) *asynq.Task
		setupMocks    func(*mocks.MockAuditService)
		expectedError bool
		skipRetry     bool
	}{
		{
			name: "runs_audit_with_reason",
			task: func(t *testing.T) *asynq.Task {
				task, err := workers.NewStockAuditTask("push:inventory")
				require.NoError(t, err)
				return task
			},
			setupMocks: func(service *mocks.MockAuditService) {
				service.EXPECT().
					Run(gomock.Any(), "push:inventory").
					Return(&domain.StockAudit{Reason: "push:inventory"}, nil)
			},
		},
		{
			name: "empty_reason_defaults",
			task: func(t *testing.T) *asynq.Task {
				return asynq.NewTask(workers.TypeStockAudit, []byte(`{}`))
			},
			setupMocks: func(service *mocks.MockAuditService) {
				service.EXPECT().
					Run(gomock.Any(), "unspecified").
					Return(&domain.StockAudit{}, nil)
			},
		},
		{
			name: "service_failure_is_retried",
			task: func(t *testing.T) *asynq.Task {
				task, err := workers.NewStockAuditTask("schedule")
				require.NoError(t, err)
				return task
			},
			setupMocks: func(service *mocks.MockAuditService) {
				service.EXPECT().
					Run(gomock.Any(), "schedule").
					Return(nil, errors.New("database unavailable"))
			},
			expectedError: true,
		},
		{
			name: "malformed_payload_skips_retry",
			task: func(t *testing.T) *asynq.Task {
				return asynq.NewTask(workers.TypeStockAudit, []byte(`not-json`))
			},
			setupMocks:    func(*mocks.MockAuditService) {},
			expectedError: true,
			skipRetry:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			service := mocks.NewMockAuditService(ctrl)
			tt.setupMocks(service)

			processor := workers.NewAuditProcessor(service, helpers.TestLogger())
			err := processor.ProcessAudit(context.Background(), tt.task(t))

			if !tt.expectedError {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}
