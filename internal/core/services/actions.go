// internal/core/services/actions.go
package services

import (
	"fmt"

	"github.com/ammerola/stocksync/internal/core/domain"
)

// action is one typed state transition. reduce receives a copy of the state
// and must allocate new slices rather than write through shared ones.
// Silent actions never reach the mutation pipeline.
type action struct {
	name    string
	touches []domain.Collection
	silent  bool
	reduce  func(domain.AppState) (domain.AppState, error)
}

func mutation(name string, c domain.Collection, fn func(*domain.AppState) error) action {
	return action{
		name:    name,
		touches: []domain.Collection{c},
		reduce: func(s domain.AppState) (domain.AppState, error) {
			err := fn(&s)
			return s, err
		},
	}
}

func loadStarted() action {
	return action{
		name:   "load/started",
		silent: true,
		reduce: func(s domain.AppState) (domain.AppState, error) {
			s.Loading = true
			s.LastOutcome = domain.OutcomeLoading
			return s, nil
		},
	}
}

func hydrated(local domain.AppState) action {
	return action{
		name:    "load/hydrated",
		touches: domain.AllCollections(),
		silent:  true,
		reduce: func(s domain.AppState) (domain.AppState, error) {
			local.Phase = s.Phase
			local.Loading = s.Loading
			local.LastOutcome = s.LastOutcome
			local.LastMessage = s.LastMessage
			return local, nil
		},
	}
}

func remoteMerged(fs *domain.FullState) action {
	return action{
		name:    "load/remote_merged",
		touches: fs.Present(),
		silent:  true,
		reduce: func(s domain.AppState) (domain.AppState, error) {
			merged, _ := s.MergeRemote(fs)
			return merged, nil
		},
	}
}

func loadFinished(res ReconcileResult) action {
	return action{
		name:   "load/finished",
		silent: true,
		reduce: func(s domain.AppState) (domain.AppState, error) {
			s.Loading = false
			s.LastOutcome = res.Outcome
			s.LastMessage = res.Message
			s.Phase = domain.PhaseActive
			return s, nil
		},
	}
}

func sessionChanged(user *domain.User) action {
	return action{
		name:   "session/changed",
		silent: true,
		reduce: func(s domain.AppState) (domain.AppState, error) {
			s.CurrentUser = user
			return s, nil
		},
	}
}

func dataCleared() action {
	return action{
		name:    "data/cleared",
		touches: domain.AllCollections(),
		silent:  true,
		reduce: func(s domain.AppState) (domain.AppState, error) {
			empty := domain.NewAppState()
			empty.Phase = s.Phase
			empty.CurrentUser = s.CurrentUser
			empty.LastOutcome = s.LastOutcome
			empty.LastMessage = s.LastMessage
			return empty, nil
		},
	}
}

func insertRecord[T any](list []T, rec T, id func(*T) string) ([]T, error) {
	key := id(&rec)
	for i := range list {
		if id(&list[i]) == key {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateID, key)
		}
	}
	out := make([]T, 0, len(list)+1)
	out = append(out, list...)
	return append(out, rec), nil
}

func replaceRecord[T any](list []T, rec T, id func(*T) string) ([]T, error) {
	key := id(&rec)
	for i := range list {
		if id(&list[i]) == key {
			out := make([]T, len(list))
			copy(out, list)
			out[i] = rec
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, key)
}

func removeRecord[T any](list []T, key string, id func(*T) string) ([]T, error) {
	for i := range list {
		if id(&list[i]) == key {
			out := make([]T, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, key)
}

func findRecord[T any](list []T, key string, id func(*T) string) (T, bool) {
	for i := range list {
		if id(&list[i]) == key {
			return list[i], true
		}
	}
	var zero T
	return zero, false
}

func itemID(i *domain.InventoryItem) string { return i.ID }
func txID(t *domain.Transaction) string { return t.ID }
func rejectItemID(r *domain.RejectItem) string { return r.ID }
func rejectLogID(r *domain.RejectLog) string { return r.ID }
func supplierID(s *domain.Supplier) string { return s.ID }
func userID(u *domain.User) string { return u.ID }
