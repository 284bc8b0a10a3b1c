// internal/core/services/reconciler.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
)

// ReconcileResult is the outcome of one load cycle
type ReconcileResult struct {
	Outcome      domain.LoadOutcome
	Connectivity domain.ConnectivityState
	Message      string
	Remote       *domain.FullState
}

// Reconciler runs the load cycle: local hydrate, health probe, and full-state
// fetch when the backend is healthy. It never mutates application state
// itself; the controller applies its results.
type Reconciler struct {
	local    ports.LocalStore
	monitor  *ConnectivityMonitor
	notifier ports.Notifier
	logger   *slog.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(local ports.LocalStore, monitor *ConnectivityMonitor, notifier ports.Notifier, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		local:    local,
		monitor:  monitor,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "reconciler")),
	}
}

// LoadLocal reads every collection and the session from the local store.
// Unreadable keys fall back to empty values.
func (r *Reconciler) LoadLocal(ctx context.Context) domain.AppState {
	s := domain.NewAppState()
	s.Inventory = LoadOr(ctx, r.local, domain.CollectionInventory.String(), s.Inventory, r.logger)
	s.Transactions = LoadOr(ctx, r.local, domain.CollectionTransactions.String(), s.Transactions, r.logger)
	s.RejectInventory = LoadOr(ctx, r.local, domain.CollectionRejectInventory.String(), s.RejectInventory, r.logger)
	s.Rejects = LoadOr(ctx, r.local, domain.CollectionRejects.String(), s.Rejects, r.logger)
	s.Suppliers = LoadOr(ctx, r.local, domain.CollectionSuppliers.String(), s.Suppliers, r.logger)
	s.Users = LoadOr(ctx, r.local, domain.CollectionUsers.String(), s.Users, r.logger)
	s.Settings = LoadOr(ctx, r.local, domain.CollectionSettings.String(), s.Settings, r.logger)
	s.TablePrefs = LoadOr(ctx, r.local, domain.CollectionTablePrefs.String(), s.TablePrefs, r.logger)
	s.CurrentUser = LoadOr[*domain.User](ctx, r.local, domain.SessionKey, nil, r.logger)
	s.Normalize()

	r.logger.DebugContext(ctx, "local state loaded",
		slog.Int("inventory", len(s.Inventory)),
		slog.Int("transactions", len(s.Transactions)))
	return s
}

// Sync probes remote and fetches its full state when it is healthy. A nil or
// disabled remote yields the LOCAL outcome and resets connectivity.
func (r *Reconciler) Sync(ctx context.Context, remote ports.RemoteStore) ReconcileResult {
	if remote == nil || remote.Kind() == domain.BackendNone {
		r.monitor.Reset(ctx)
		return ReconcileResult{
			Outcome:      domain.OutcomeLocal,
			Connectivity: domain.ConnectivityUnknown,
		}
	}

	health := remote.CheckHealth(ctx)
	state := r.monitor.Observe(ctx, health)

	switch state {
	case domain.ConnectivityOffline:
		msg := describe("Cannot reach the server. Working offline", health.Message)
		r.notify(ctx, ports.LevelError, msg)
		return ReconcileResult{Outcome: domain.OutcomeOffline, Connectivity: state, Message: msg}

	case domain.ConnectivityDisconnected:
		msg := describe("Server is reachable but its database is disconnected. Working locally", health.Message)
		r.notify(ctx, ports.LevelWarning, msg)
		return ReconcileResult{Outcome: domain.OutcomeDegraded, Connectivity: state, Message: msg}

	case domain.ConnectivityUnknown:
		msg := describe("Server did not report its status. Working locally", health.Message)
		r.notify(ctx, ports.LevelWarning, msg)
		return ReconcileResult{Outcome: domain.OutcomeDegraded, Connectivity: state, Message: msg}
	}

	fs, err := remote.FetchFullState(ctx)
	if err != nil || fs == nil {
		msg := "Failed to load data from the server. Working offline"
		if errors.Is(err, ports.ErrMisconfiguredRoute) {
			msg = ports.ErrMisconfiguredRoute.Error()
		} else if err != nil {
			msg = describe(msg, err.Error())
		}
		r.logger.ErrorContext(ctx, "full state fetch failed",
			slog.String("backend", string(remote.Kind())),
			slog.String("message", msg))
		state = r.monitor.ObserveFetchFailure(ctx, msg)
		r.notify(ctx, ports.LevelError, msg)
		return ReconcileResult{Outcome: domain.OutcomeOffline, Connectivity: state, Message: msg}
	}

	r.logger.InfoContext(ctx, "remote state fetched",
		slog.String("backend", string(remote.Kind())),
		slog.Any("collections", fs.Present()))
	r.notify(ctx, ports.LevelSuccess, "Data synchronized with the server")

	return ReconcileResult{Outcome: domain.OutcomeOnline, Connectivity: state, Remote: fs}
}

func (r *Reconciler) notify(ctx context.Context, level ports.Level, msg string) {
	r.notifier.Notify(ctx, ports.Notification{Level: level, Message: msg})
}

func describe(base, detail string) string {
	if detail == "" {
		return base
	}
	return fmt.Sprintf("%s (%s)", base, detail)
}
