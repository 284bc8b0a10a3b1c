// internal/core/services/controller.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ammerola/stocksync/internal/core/domain"
	"github.com/ammerola/stocksync/internal/core/ports"
)

// ControllerConfig tunes a Controller
type ControllerConfig struct {
	DebounceInterval time.Duration
	Now              func() time.Time
}

// Controller owns the application state. Every mutation goes through
// dispatch, which reduces the state and hands touched collections to the
// mutation pipeline.
type Controller struct {
	local      ports.LocalStore
	factory    ports.RemoteFactory
	notifier   ports.Notifier
	monitor    *ConnectivityMonitor
	pipeline   *MutationPipeline
	reconciler *Reconciler
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.RWMutex
	state    domain.AppState
	endpoint domain.RemoteEndpoint
	resolved bool
	remote   ports.RemoteStore

	cycleMu sync.Mutex
	started atomic.Bool
}

// NewController wires a controller. ctx bounds timer-driven flushes; it
// is detached from cancellation so a burst settling during shutdown still
// reaches storage.
func NewController(
	ctx context.Context,
	local ports.LocalStore,
	factory ports.RemoteFactory,
	notifier ports.Notifier,
	cfg ControllerConfig,
	logger *slog.Logger,
) *Controller {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger = logger.With(slog.String("service", "controller"))
	monitor := NewConnectivityMonitor(logger)
	monitor.now = now

	return &Controller{
		local:      local,
		factory:    factory,
		notifier:   notifier,
		monitor:    monitor,
		pipeline:   NewMutationPipeline(context.WithoutCancel(ctx), local, monitor, notifier, cfg.DebounceInterval, now, logger),
		reconciler: NewReconciler(local, monitor, notifier, logger),
		logger:     logger,
		now:        now,
		state:      domain.NewAppState(),
	}
}

// Start runs the first load cycle: hydrate from local storage, then
// reconcile with the remote. Later calls behave like Refresh.
func (c *Controller) Start(ctx context.Context) ReconcileResult {
	if c.started.Swap(true) {
		return c.Refresh(ctx)
	}
	return c.reconcile(ctx, true)
}

// Refresh re-runs the load cycle against the remote
func (c *Controller) Refresh(ctx context.Context) ReconcileResult {
	return c.reconcile(ctx, false)
}

// State returns the current state. Collections are shared and must be
// treated as read-only.
func (c *Controller) State() domain.AppState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Connectivity returns the connectivity snapshot
func (c *Controller) Connectivity() ConnectivityStatus {
	return c.monitor.Status()
}

// Monitor exposes the connectivity monitor for subscriptions
func (c *Controller) Monitor() *ConnectivityMonitor {
	return c.monitor
}

// Flush settles all pending collections now
func (c *Controller) Flush(ctx context.Context) {
	c.pipeline.Flush(ctx)
}

// Shutdown flushes pending collections under ctx, stops the pipeline and
// closes the local store
func (c *Controller) Shutdown(ctx context.Context) {
	c.pipeline.Flush(ctx)
	c.pipeline.Stop()
	if err := c.local.Close(); err != nil {
		c.logger.WarnContext(ctx, "failed to close local store",
			slog.String("error", err.Error()))
	}
	c.logger.InfoContext(ctx, "controller stopped")
}

func (c *Controller) reconcile(ctx context.Context, initial bool) ReconcileResult {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	c.dispatch(ctx, loadStarted())
	if initial {
		c.dispatch(ctx, hydrated(c.reconciler.LoadLocal(ctx)))
	}

	c.ensureRemote(ctx, c.State().Settings.Endpoint())
	c.pipeline.Flush(ctx)

	res := c.reconciler.Sync(ctx, c.currentRemote())
	if res.Remote != nil {
		c.applyRemote(ctx, res.Remote)
	}

	c.dispatch(ctx, loadFinished(res))
	c.pipeline.Activate()

	c.logger.InfoContext(ctx, "load cycle finished",
		slog.String("outcome", string(res.Outcome)),
		slog.String("connectivity", string(res.Connectivity)))
	return res
}

// ensureRemote resolves the remote store once per endpoint change
func (c *Controller) ensureRemote(ctx context.Context, ep domain.RemoteEndpoint) {
	c.mu.Lock()
	if c.resolved && ep == c.endpoint {
		c.mu.Unlock()
		return
	}
	c.resolved = true
	c.endpoint = ep
	c.remote = c.factory(ep)
	remote := c.remote
	c.mu.Unlock()

	c.pipeline.SetRemote(remote)
	c.monitor.Reset(ctx)
	c.logger.InfoContext(ctx, "remote store resolved",
		slog.String("backend", string(ep.Kind)),
		slog.String("url", ep.URL))
}

func (c *Controller) currentRemote() ports.RemoteStore {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remote
}

// applyRemote merges a fetched snapshot and writes the replaced collections
// straight to local storage, bypassing the pipeline
func (c *Controller) applyRemote(ctx context.Context, fs *domain.FullState) {
	c.dispatch(ctx, remoteMerged(fs))

	state := c.State()
	for _, col := range fs.Present() {
		if err := c.local.Save(ctx, col.String(), state.Value(col)); err != nil {
			c.logger.WarnContext(ctx, "failed to persist remote collection locally",
				slog.String("collection", col.String()),
				slog.String("error", err.Error()))
		}
	}
}

func (c *Controller) dispatch(ctx context.Context, a action) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := a.reduce(c.state)
	if err != nil {
		c.logger.DebugContext(ctx, "action rejected",
			slog.String("action", a.name),
			slog.String("error", err.Error()))
		return err
	}
	c.state = next

	if !a.silent {
		for _, col := range a.touches {
			c.pipeline.Submit(col, next.Value(col))
		}
	}
	return nil
}

// Item returns an inventory item by id
func (c *Controller) Item(id string) (domain.InventoryItem, bool) {
	s := c.State()
	return findRecord(s.Inventory, id, itemID)
}

// AddItem validates and appends a new inventory item
func (c *Controller) AddItem(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	item.PrepareForStorage(c.now())
	if err := item.Validate(); err != nil {
		return domain.InventoryItem{}, fmt.Errorf("invalid item: %w", err)
	}
	err := c.dispatch(ctx, mutation("inventory/add", domain.CollectionInventory, func(s *domain.AppState) error {
		next, err := insertRecord(s.Inventory, item, itemID)
		s.Inventory = next
		return err
	}))
	return item, err
}

// UpdateItem replaces an inventory item by id
func (c *Controller) UpdateItem(ctx context.Context, item domain.InventoryItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("invalid item: %w", err)
	}
	item.LastUpdated = domain.NewTimestamp(c.now())
	return c.dispatch(ctx, mutation("inventory/update", domain.CollectionInventory, func(s *domain.AppState) error {
		next, err := replaceRecord(s.Inventory, item, itemID)
		s.Inventory = next
		return err
	}))
}

// DeleteItem removes an inventory item. Transactions referencing it are kept.
func (c *Controller) DeleteItem(ctx context.Context, id string) error {
	return c.dispatch(ctx, mutation("inventory/delete", domain.CollectionInventory, func(s *domain.AppState) error {
		next, err := removeRecord(s.Inventory, id, itemID)
		s.Inventory = next
		return err
	}))
}

// SubmitTransaction appends tx to the log and applies it to stock in one
// state transition. Submitting the same id twice is rejected.
func (c *Controller) SubmitTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, domain.LedgerResult, error) {
	now := c.now()
	tx.PrepareForStorage(now)
	if err := tx.Validate(); err != nil {
		return domain.Transaction{}, domain.LedgerResult{}, fmt.Errorf("invalid transaction: %w", err)
	}

	var result domain.LedgerResult
	err := c.dispatch(ctx, action{
		name:    "transactions/submit",
		touches: []domain.Collection{domain.CollectionInventory, domain.CollectionTransactions},
		reduce: func(s domain.AppState) (domain.AppState, error) {
			log, err := insertRecord(s.Transactions, tx, txID)
			if err != nil {
				return s, err
			}
			s.Inventory, result = domain.ApplyTransaction(s.Inventory, tx, now)
			s.Transactions = log
			return s, nil
		},
	})
	if err != nil {
		return domain.Transaction{}, domain.LedgerResult{}, err
	}

	for _, id := range result.Dangling {
		c.logger.WarnContext(ctx, "transaction references unknown item, line skipped",
			slog.String("transaction_id", tx.ID),
			slog.String("item_id", id))
	}
	if result.Clamped() {
		c.logger.WarnContext(ctx, "outbound transaction exceeded stock, clamped at zero",
			slog.String("transaction_id", tx.ID))
	}
	return tx, result, nil
}

// UpdateTransaction replaces a stored transaction. Only descriptive fields may
// change; a different stock effect returns domain.ErrLedgerFieldsImmutable and
// must be booked as a compensating transaction instead.
func (c *Controller) UpdateTransaction(ctx context.Context, tx domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}
	return c.dispatch(ctx, mutation("transactions/update", domain.CollectionTransactions, func(s *domain.AppState) error {
		existing, ok := findRecord(s.Transactions, tx.ID, txID)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, tx.ID)
		}
		if !existing.SameLedgerEffect(&tx) {
			return domain.ErrLedgerFieldsImmutable
		}
		tx.CreatedAt = existing.CreatedAt
		next, err := replaceRecord(s.Transactions, tx, txID)
		s.Transactions = next
		return err
	}))
}

// DeleteTransaction removes a transaction from the log without touching stock
func (c *Controller) DeleteTransaction(ctx context.Context, id string) error {
	return c.dispatch(ctx, mutation("transactions/delete", domain.CollectionTransactions, func(s *domain.AppState) error {
		next, err := removeRecord(s.Transactions, id, txID)
		s.Transactions = next
		return err
	}))
}

// AddRejectItem appends reject master data
func (c *Controller) AddRejectItem(ctx context.Context, item domain.RejectItem) (domain.RejectItem, error) {
	item.PrepareForStorage(c.now())
	if err := item.Validate(); err != nil {
		return domain.RejectItem{}, fmt.Errorf("invalid reject item: %w", err)
	}
	err := c.dispatch(ctx, mutation("reject_inventory/add", domain.CollectionRejectInventory, func(s *domain.AppState) error {
		next, err := insertRecord(s.RejectInventory, item, rejectItemID)
		s.RejectInventory = next
		return err
	}))
	return item, err
}

// UpdateRejectItem replaces reject master data by id
func (c *Controller) UpdateRejectItem(ctx context.Context, item domain.RejectItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("invalid reject item: %w", err)
	}
	item.LastUpdated = domain.NewTimestamp(c.now())
	return c.dispatch(ctx, mutation("reject_inventory/update", domain.CollectionRejectInventory, func(s *domain.AppState) error {
		next, err := replaceRecord(s.RejectInventory, item, rejectItemID)
		s.RejectInventory = next
		return err
	}))
}

// DeleteRejectItem removes reject master data by id
func (c *Controller) DeleteRejectItem(ctx context.Context, id string) error {
	return c.dispatch(ctx, mutation("reject_inventory/delete", domain.CollectionRejectInventory, func(s *domain.AppState) error {
		next, err := removeRecord(s.RejectInventory, id, rejectItemID)
		s.RejectInventory = next
		return err
	}))
}

// AddRejectLog records rejected goods. Inventory quantities are not affected.
func (c *Controller) AddRejectLog(ctx context.Context, log domain.RejectLog) (domain.RejectLog, error) {
	log.PrepareForStorage(c.now())
	if err := log.Validate(); err != nil {
		return domain.RejectLog{}, fmt.Errorf("invalid reject log: %w", err)
	}
	err := c.dispatch(ctx, mutation("rejects/add", domain.CollectionRejects, func(s *domain.AppState) error {
		next, err := insertRecord(s.Rejects, log, rejectLogID)
		s.Rejects = next
		return err
	}))
	return log, err
}

// DeleteRejectLog removes a reject log by id
func (c *Controller) DeleteRejectLog(ctx context.Context, id string) error {
	return c.dispatch(ctx, mutation("rejects/delete", domain.CollectionRejects, func(s *domain.AppState) error {
		next, err := removeRecord(s.Rejects, id, rejectLogID)
		s.Rejects = next
		return err
	}))
}

// AddSupplier appends a supplier
func (c *Controller) AddSupplier(ctx context.Context, sup domain.Supplier) (domain.Supplier, error) {
	if err := sup.Validate(); err != nil {
		return domain.Supplier{}, fmt.Errorf("invalid supplier: %w", err)
	}
	err := c.dispatch(ctx, mutation("suppliers/add", domain.CollectionSuppliers, func(s *domain.AppState) error {
		next, err := insertRecord(s.Suppliers, sup, supplierID)
		s.Suppliers = next
		return err
	}))
	return sup, err
}

// UpdateSupplier replaces a supplier by id
func (c *Controller) UpdateSupplier(ctx context.Context, sup domain.Supplier) error {
	if err := sup.Validate(); err != nil {
		return fmt.Errorf("invalid supplier: %w", err)
	}
	return c.dispatch(ctx, mutation("suppliers/update", domain.CollectionSuppliers, func(s *domain.AppState) error {
		next, err := replaceRecord(s.Suppliers, sup, supplierID)
		s.Suppliers = next
		return err
	}))
}

// DeleteSupplier removes a supplier by id
func (c *Controller) DeleteSupplier(ctx context.Context, id string) error {
	return c.dispatch(ctx, mutation("suppliers/delete", domain.CollectionSuppliers, func(s *domain.AppState) error {
		next, err := removeRecord(s.Suppliers, id, supplierID)
		s.Suppliers = next
		return err
	}))
}

// AddUser appends a user account
func (c *Controller) AddUser(ctx context.Context, u domain.User) (domain.User, error) {
	if err := u.Validate(); err != nil {
		return domain.User{}, fmt.Errorf("invalid user: %w", err)
	}
	err := c.dispatch(ctx, mutation("users/add", domain.CollectionUsers, func(s *domain.AppState) error {
		for _, existing := range s.Users {
			if strings.EqualFold(existing.Username, u.Username) {
				return fmt.Errorf("%w: username %s", domain.ErrDuplicateID, u.Username)
			}
		}
		next, err := insertRecord(s.Users, u, userID)
		s.Users = next
		return err
	}))
	return u, err
}

// UpdateUser replaces a user by id. An empty password hash keeps the stored one.
func (c *Controller) UpdateUser(ctx context.Context, u domain.User) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("invalid user: %w", err)
	}
	return c.dispatch(ctx, mutation("users/update", domain.CollectionUsers, func(s *domain.AppState) error {
		if u.PasswordHash == "" {
			if existing, ok := findRecord(s.Users, u.ID, userID); ok {
				u.PasswordHash = existing.PasswordHash
			}
		}
		next, err := replaceRecord(s.Users, u, userID)
		s.Users = next
		return err
	}))
}

// DeleteUser removes a user by id
func (c *Controller) DeleteUser(ctx context.Context, id string) error {
	return c.dispatch(ctx, mutation("users/delete", domain.CollectionUsers, func(s *domain.AppState) error {
		next, err := removeRecord(s.Users, id, userID)
		s.Users = next
		return err
	}))
}

// SetColumnVisible toggles one table column
func (c *Controller) SetColumnVisible(ctx context.Context, module, column string, visible bool) error {
	return c.dispatch(ctx, mutation("table_prefs/set", domain.CollectionTablePrefs, func(s *domain.AppState) error {
		s.TablePrefs = s.TablePrefs.With(module, column, visible)
		return nil
	}))
}

// UpdateSettings stores new settings. When the remote endpoint changes a new
// load cycle runs against it and its result is returned.
func (c *Controller) UpdateSettings(ctx context.Context, settings domain.AppSettings) (*ReconcileResult, error) {
	if err := domain.ValidateStruct(&settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	var prev domain.RemoteEndpoint
	err := c.dispatch(ctx, mutation("settings/update", domain.CollectionSettings, func(s *domain.AppState) error {
		prev = s.Settings.Endpoint()
		s.Settings = settings
		return nil
	}))
	if err != nil {
		return nil, err
	}

	if settings.Endpoint() == prev {
		return nil, nil
	}

	c.logger.InfoContext(ctx, "remote endpoint changed, reconnecting",
		slog.String("backend", string(settings.Endpoint().Kind)))
	res := c.Refresh(ctx)
	return &res, nil
}

// Login matches username against active users and stores the session. verify
// compares the stored hash with the entered password.
func (c *Controller) Login(ctx context.Context, username string, verify func(hash string) bool) (domain.User, error) {
	for _, u := range c.State().Users {
		if !strings.EqualFold(u.Username, username) || !u.Active() {
			continue
		}
		if !verify(u.PasswordHash) {
			break
		}

		session := u.Public()
		c.dispatch(ctx, sessionChanged(&session))
		if err := c.local.Save(ctx, domain.SessionKey, session); err != nil {
			c.logger.WarnContext(ctx, "failed to persist session",
				slog.String("error", err.Error()))
		}
		c.logger.InfoContext(ctx, "user logged in",
			slog.String("username", session.Username),
			slog.String("role", string(session.Role)))
		return session, nil
	}
	return domain.User{}, domain.ErrInvalidCredentials
}

// Logout clears the session key only
func (c *Controller) Logout(ctx context.Context) error {
	c.dispatch(ctx, sessionChanged(nil))
	if err := c.local.Clear(ctx, domain.SessionKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// ClearData drops pending writes, empties every collection and removes the
// collection keys from local storage. The session and the remote copy are
// left untouched.
func (c *Controller) ClearData(ctx context.Context) error {
	c.pipeline.Discard()
	c.dispatch(ctx, dataCleared())

	keys := make([]string, 0, len(domain.AllCollections()))
	for _, col := range domain.AllCollections() {
		keys = append(keys, col.String())
	}
	if err := c.local.Clear(ctx, keys...); err != nil {
		return fmt.Errorf("failed to clear local data: %w", err)
	}

	c.logger.WarnContext(ctx, "local data cleared")
	return nil
}
