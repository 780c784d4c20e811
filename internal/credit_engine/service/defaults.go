package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/domain/recovery"
	"github.com/farm-credit-ledger/internal/platform/metrics"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// IdentifyOverdueFarmers records a default for every farmer whose deductions
// went unsettled past the settlement date. An active default is refreshed in
// place; otherwise a new one is opened. A farmer that fails is logged and
// left out of the result.
func (s *Engine) IdentifyOverdueFarmers(ctx context.Context) (*ScanResult, error) {
	start := time.Now()
	now := s.clock.Now()

	candidates, err := s.profileRepo.ListOverdue(ctx, now)
	if err != nil {
		s.observe("default_scan", start, err)
		return nil, err
	}

	byFarmer := make(map[uuid.UUID]*credit.Profile, len(candidates))
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, p := range candidates {
		byFarmer[p.FarmerID] = p
		ids = append(ids, p.FarmerID)
	}

	var (
		mu     sync.Mutex
		result = &ScanResult{Defaults: make([]*recovery.Default, 0, len(candidates))}
	)
	batchResult := s.runner.Run(ctx, ids, func(ctx context.Context, farmerID uuid.UUID) error {
		p := byFarmer[farmerID]
		d := recovery.NewDefault(farmerID, p.PendingDeductions, p.DaysOverdue(now), now)

		inserted, err := s.defaults.Upsert(ctx, d)
		if err != nil {
			return err
		}
		metrics.DefaultsDetected.WithLabelValues(string(d.Status)).Inc()

		mu.Lock()
		defer mu.Unlock()
		result.Defaults = append(result.Defaults, d)
		if inserted {
			result.Created++
		} else {
			result.Updated++
		}
		return nil
	})

	for farmerID, err := range batchResult.Failed {
		result.Failed = append(result.Failed, farmerID)
		s.logger.ErrorContext(ctx, "Failed to record default",
			"farmer_id", farmerID.String(),
			"error", err,
		)
	}
	s.observe("default_scan", start, nil)

	s.logger.InfoContext(ctx, "Default scan finished",
		"candidates", len(candidates),
		"created", result.Created,
		"updated", result.Updated,
		"failed", len(result.Failed),
	)
	return result, nil
}

func (s *Engine) CreateRecoveryAction(ctx context.Context, defaultID uuid.UUID, actionType recovery.ActionType, notes, actorID string) (*recovery.Action, error) {
	start := time.Now()
	a, err := recovery.NewAction(defaultID, actionType, notes, actorID, s.clock.Now())
	var d *recovery.Default
	if err == nil {
		d, err = s.appendToDefault(ctx, defaultID, func(repo recovery.Repository) error {
			return repo.CreateAction(ctx, a)
		})
	}
	s.observe("recovery_action", start, err)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, d.FarmerID, actionType.Notice(d.OverdueAmount))
	return a, nil
}

// CompleteRecoveryAction marks an action on the default as done
func (s *Engine) CompleteRecoveryAction(ctx context.Context, defaultID, actionID uuid.UUID, notes, actorID string) (*recovery.Action, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}

	start := time.Now()
	var completed *recovery.Action
	_, err := s.appendToDefault(ctx, defaultID, func(repo recovery.Repository) error {
		a, err := repo.CompleteAction(ctx, defaultID, actionID, notes)
		completed = a
		return err
	})
	s.observe("complete_action", start, err)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Recovery action completed",
		"default_id", defaultID.String(),
		"action_id", actionID.String(),
		"completed_by", actorID,
	)
	return completed, nil
}

func (s *Engine) AddContactHistory(ctx context.Context, defaultID uuid.UUID, method recovery.ContactMethod, notes, actorID string) (*recovery.ContactEntry, error) {
	start := time.Now()
	c, err := recovery.NewContactEntry(defaultID, method, notes, actorID, s.clock.Now())
	if err == nil {
		_, err = s.appendToDefault(ctx, defaultID, func(repo recovery.Repository) error {
			return repo.CreateContact(ctx, c)
		})
	}
	s.observe("contact", start, err)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// appendToDefault runs write against the default's row lock so entries are
// never attached to a missing default
func (s *Engine) appendToDefault(ctx context.Context, defaultID uuid.UUID, write func(repo recovery.Repository) error) (*recovery.Default, error) {
	var locked *recovery.Default
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := s.defaults.WithTx(tx)
		d, err := repo.LockForUpdate(ctx, defaultID)
		if err != nil {
			return err
		}
		locked = d
		return write(repo)
	})
	if err != nil {
		return nil, err
	}
	return locked, nil
}

// ResolveDefault closes the default, records the closing contact entry and
// tells the farmer. Balances are not touched. Resolving a resolved default
// returns it unchanged and sends nothing.
func (s *Engine) ResolveDefault(ctx context.Context, defaultID uuid.UUID, resolutionNotes, actorID string) (*recovery.Default, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}

	start := time.Now()
	var (
		resolved *recovery.Default
		changed  bool
	)
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		repo := s.defaults.WithTx(tx)
		d, err := repo.LockForUpdate(ctx, defaultID)
		if err != nil {
			return err
		}
		resolved = d
		if d.IsResolved() {
			return nil
		}

		now := s.clock.Now()
		d.Resolve(now)
		if err := repo.UpdateStatus(ctx, d); err != nil {
			return err
		}
		changed = true
		return repo.CreateContact(ctx, recovery.NewResolutionEntry(d.ID, resolutionNotes, actorID, now))
	})
	s.observe("resolve_default", start, err)
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.InfoContext(ctx, "Default resolved",
			"default_id", defaultID.String(),
			"farmer_id", resolved.FarmerID.String(),
			"resolved_by", actorID,
		)
		s.notify(ctx, resolved.FarmerID, "Your overdue credit account has been resolved.")
	}
	return s.withHistory(ctx, resolved)
}

// notify delivers a best-effort message. A committed mutation is never
// undone by a delivery failure.
func (s *Engine) notify(ctx context.Context, farmerID uuid.UUID, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, farmerID, message); err != nil {
		metrics.NotificationsSent.WithLabelValues("failed").Inc()
		s.logger.WarnContext(ctx, "Failed to notify farmer",
			"farmer_id", farmerID.String(),
			"error", err,
		)
		return
	}
	metrics.NotificationsSent.WithLabelValues(metrics.OutcomeSuccess).Inc()
}

// GetDefault returns the default with its actions and contact history
func (s *Engine) GetDefault(ctx context.Context, defaultID uuid.UUID) (*recovery.Default, error) {
	d, err := s.defaults.GetByID(ctx, defaultID)
	if err != nil {
		return nil, err
	}
	return s.withHistory(ctx, d)
}

func (s *Engine) withHistory(ctx context.Context, d *recovery.Default) (*recovery.Default, error) {
	actions, err := s.defaults.ListActions(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recovery actions: %w", err)
	}
	contacts, err := s.defaults.ListContacts(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contact history: %w", err)
	}
	d.RecoveryActions = actions
	d.ContactHistory = contacts
	return d, nil
}

// ListActiveDefaults returns unresolved defaults, most overdue first
func (s *Engine) ListActiveDefaults(ctx context.Context, page, perPage int) ([]*recovery.Default, error) {
	limit, offset := pagination(page, perPage)
	return s.defaults.ListActive(ctx, limit, offset)
}
