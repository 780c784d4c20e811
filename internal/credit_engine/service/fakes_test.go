package service_test

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/farm-credit-ledger/internal/domain/credit"
	"github.com/farm-credit-ledger/internal/domain/outbox"
	"github.com/farm-credit-ledger/internal/domain/recovery"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// store is an in-memory stand-in for the credit database. ExecuteTx runs one
// transaction at a time and restores the previous state when fn fails.
type store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	profiles map[uuid.UUID]credit.Profile
	txns     []credit.Transaction
	outbox   []outbox.Message
	defaults map[uuid.UUID]recovery.Default
	actions  []recovery.Action
	contacts []recovery.ContactEntry

	pending map[uuid.UUID]int64
	tiers   map[uuid.UUID]credit.Tier

	pendingErr       error
	staleUpdates     int // Updates that will fail the version check
	failUpsertFor    uuid.UUID
	collectionsCalls int
}

func newStore() *store {
	return &store{
		profiles: make(map[uuid.UUID]credit.Profile),
		defaults: make(map[uuid.UUID]recovery.Default),
		pending:  make(map[uuid.UUID]int64),
		tiers:    make(map[uuid.UUID]credit.Tier),
	}
}

type snapshot struct {
	profiles map[uuid.UUID]credit.Profile
	txns     []credit.Transaction
	outbox   []outbox.Message
	defaults map[uuid.UUID]recovery.Default
	actions  []recovery.Action
	contacts []recovery.ContactEntry
}

func (s *store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		profiles: make(map[uuid.UUID]credit.Profile, len(s.profiles)),
		txns:     append([]credit.Transaction(nil), s.txns...),
		outbox:   append([]outbox.Message(nil), s.outbox...),
		defaults: make(map[uuid.UUID]recovery.Default, len(s.defaults)),
		actions:  append([]recovery.Action(nil), s.actions...),
		contacts: append([]recovery.ContactEntry(nil), s.contacts...),
	}
	for k, v := range s.profiles {
		snap.profiles[k] = v
	}
	for k, v := range s.defaults {
		snap.defaults[k] = v
	}
	return snap
}

func (s *store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = snap.profiles
	s.txns = snap.txns
	s.outbox = snap.outbox
	s.defaults = snap.defaults
	s.actions = snap.actions
	s.contacts = snap.contacts
}

func (s *store) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// seedProfile stores p as if it had been provisioned with its ledger row
func (s *store) seedProfile(p *credit.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.FarmerID] = *p
	s.txns = append(s.txns, *p.ProvisioningTransaction("seed"))
	s.tiers[p.FarmerID] = p.CreditTier
}

func (s *store) profile(farmerID uuid.UUID) credit.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles[farmerID]
}

func (s *store) setProfile(p credit.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.FarmerID] = p
}

func (s *store) ledger(farmerID uuid.UUID) []credit.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []credit.Transaction
	for _, t := range s.txns {
		if t.FarmerID == farmerID {
			out = append(out, t)
		}
	}
	return out
}

func (s *store) outboxCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outbox)
}

// profileRepo

type profileRepo struct{ s *store }

func (r profileRepo) Create(_ context.Context, p *credit.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.profiles[p.FarmerID]; ok {
		return credit.ErrConcurrentModification{Entity: "credit profile", ID: p.FarmerID}
	}
	r.s.profiles[p.FarmerID] = *p
	return nil
}

func (r profileRepo) GetByFarmerID(_ context.Context, farmerID uuid.UUID) (*credit.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[farmerID]
	if !ok {
		return nil, credit.ErrProfileNotFound{FarmerID: farmerID}
	}
	return &p, nil
}

func (r profileRepo) LockForUpdate(ctx context.Context, farmerID uuid.UUID) (*credit.Profile, error) {
	return r.GetByFarmerID(ctx, farmerID)
}

func (r profileRepo) Update(_ context.Context, p *credit.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.profiles[p.FarmerID]
	if !ok || stored.Version != p.Version-1 || r.s.staleUpdates > 0 {
		if r.s.staleUpdates > 0 {
			r.s.staleUpdates--
		}
		return credit.ErrConcurrentModification{Entity: "credit profile", ID: p.ID}
	}
	r.s.profiles[p.FarmerID] = *p
	return nil
}

func (r profileRepo) sortedIDs(keep func(p credit.Profile) bool, after uuid.UUID, limit int) []uuid.UUID {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []uuid.UUID
	for id, p := range r.s.profiles {
		if bytes.Compare(id[:], after[:]) > 0 && keep(p) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

func (r profileRepo) ListDueForSettlement(_ context.Context, today time.Time, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	return r.sortedIDs(func(p credit.Profile) bool { return p.IsDueForSettlement(today) }, after, limit), nil
}

func (r profileRepo) ListFarmerIDs(_ context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	return r.sortedIDs(func(credit.Profile) bool { return true }, after, limit), nil
}

func (r profileRepo) ListOverdue(_ context.Context, today time.Time) ([]*credit.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*credit.Profile
	for _, p := range r.s.profiles {
		if p.PendingDeductions <= 0 || !credit.DateOf(p.NextSettlementDate).Before(credit.DateOf(today)) {
			continue
		}
		resolvedToday := false
		for _, d := range r.s.defaults {
			if d.FarmerID == p.FarmerID && d.IsResolved() && !d.ResolvedAt.Before(credit.DateOf(today)) {
				resolvedToday = true
			}
		}
		if !resolvedToday {
			p := p
			out = append(out, &p)
		}
	}
	return out, nil
}

func (r profileRepo) WithTx(pgx.Tx) credit.ProfileRepository { return r }

// transactionRepo

type transactionRepo struct{ s *store }

func (r transactionRepo) Append(_ context.Context, t *credit.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.txns = append(r.s.txns, *t)
	return nil
}

func (r transactionRepo) ListByFarmerID(_ context.Context, farmerID uuid.UUID, limit, offset int) ([]*credit.Transaction, error) {
	all := r.s.ledger(farmerID)
	var out []*credit.Transaction
	for i := len(all) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		t := all[i]
		out = append(out, &t)
	}
	return out, nil
}

func (r transactionRepo) CountByFarmerID(_ context.Context, farmerID uuid.UUID) (int64, error) {
	return int64(len(r.s.ledger(farmerID))), nil
}

func (r transactionRepo) History(_ context.Context, farmerID uuid.UUID) ([]*credit.Transaction, error) {
	all := r.s.ledger(farmerID)
	out := make([]*credit.Transaction, 0, len(all))
	for i := range all {
		out = append(out, &all[i])
	}
	return out, nil
}

func (r transactionRepo) WithTx(pgx.Tx) credit.TransactionRepository { return r }

// outboxRepo

type outboxRepo struct{ s *store }

func (r outboxRepo) Create(_ context.Context, m *outbox.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = int64(len(r.s.outbox) + 1)
	r.s.outbox = append(r.s.outbox, *m)
	return nil
}

func (r outboxRepo) GetPending(context.Context, int) ([]*outbox.Message, error) { return nil, nil }
func (r outboxRepo) UpdateStatus(context.Context, int64, outbox.Status) error   { return nil }
func (r outboxRepo) IncrementAttempts(context.Context, int64) error             { return nil }
func (r outboxRepo) WithTx(pgx.Tx) outbox.Repository { return r }

// defaultRepo

type defaultRepo struct{ s *store }

func (r defaultRepo) Upsert(_ context.Context, d *recovery.Default) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d.FarmerID == r.s.failUpsertFor {
		return false, errors.New("upsert failed")
	}
	for id, existing := range r.s.defaults {
		if existing.FarmerID == d.FarmerID && !existing.IsResolved() {
			existing.OverdueAmount = d.OverdueAmount
			existing.DaysOverdue = d.DaysOverdue
			existing.Status = d.Status
			existing.UpdatedAt = d.UpdatedAt
			r.s.defaults[id] = existing
			d.ID = existing.ID
			d.CreatedAt = existing.CreatedAt
			return false, nil
		}
	}
	r.s.defaults[d.ID] = *d
	return true, nil
}

func (r defaultRepo) GetByID(_ context.Context, id uuid.UUID) (*recovery.Default, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.defaults[id]
	if !ok {
		return nil, recovery.ErrDefaultNotFound{DefaultID: id}
	}
	return &d, nil
}

func (r defaultRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*recovery.Default, error) {
	return r.GetByID(ctx, id)
}

func (r defaultRepo) UpdateStatus(_ context.Context, d *recovery.Default) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.defaults[d.ID]
	if !ok {
		return recovery.ErrDefaultNotFound{DefaultID: d.ID}
	}
	existing.Status = d.Status
	existing.ResolvedAt = d.ResolvedAt
	existing.UpdatedAt = d.UpdatedAt
	r.s.defaults[d.ID] = existing
	return nil
}

func (r defaultRepo) ListActive(_ context.Context, limit, offset int) ([]*recovery.Default, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*recovery.Default
	for _, d := range r.s.defaults {
		if !d.IsResolved() {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DaysOverdue > out[j].DaysOverdue })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r defaultRepo) CreateAction(_ context.Context, a *recovery.Action) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.actions = append(r.s.actions, *a)
	return nil
}

func (r defaultRepo) ListActions(_ context.Context, defaultID uuid.UUID) ([]*recovery.Action, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*recovery.Action
	for _, a := range r.s.actions {
		if a.DefaultID == defaultID {
			a := a
			out = append(out, &a)
		}
	}
	return out, nil
}

func (r defaultRepo) CompleteAction(_ context.Context, defaultID, actionID uuid.UUID, notes string) (*recovery.Action, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.actions {
		a := &r.s.actions[i]
		if a.ID != actionID || a.DefaultID != defaultID {
			continue
		}
		a.Status = recovery.ActionStatusCompleted
		if notes != "" {
			a.Notes = notes
		}
		out := *a
		return &out, nil
	}
	return nil, recovery.ErrActionNotFound{DefaultID: defaultID, ActionID: actionID}
}

func (r defaultRepo) CreateContact(_ context.Context, c *recovery.ContactEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.contacts = append(r.s.contacts, *c)
	return nil
}

func (r defaultRepo) ListContacts(_ context.Context, defaultID uuid.UUID) ([]*recovery.ContactEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*recovery.ContactEntry
	for _, c := range r.s.contacts {
		if c.DefaultID == defaultID {
			c := c
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r defaultRepo) WithTx(pgx.Tx) recovery.Repository { return r }

// collaborators

type collections struct{ s *store }

func (c collections) SumPendingAmount(_ context.Context, farmerID uuid.UUID) (int64, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.collectionsCalls++
	if c.s.pendingErr != nil {
		return 0, credit.ErrCollaboratorUnavailable{Collaborator: "collections", Err: c.s.pendingErr}
	}
	return c.s.pending[farmerID], nil
}

func (s *store) setPending(farmerID uuid.UUID, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[farmerID] = amount
}

type farmers struct{ s *store }

func (f farmers) FarmerTier(_ context.Context, farmerID uuid.UUID) (credit.Tier, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	tier, ok := f.s.tiers[farmerID]
	if !ok {
		return "", credit.ErrFarmerNotFound{FarmerID: farmerID}
	}
	return tier, nil
}

func (s *store) addFarmer(tier credit.Tier) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.tiers[id] = tier
	return id
}

type auditRepo struct {
	mu      sync.Mutex
	entries []credit.Transaction
}

func (a *auditRepo) Record(_ context.Context, t *credit.Transaction) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *t)
	return nil
}

func (a *auditRepo) GetByTransactionID(_ context.Context, id uuid.UUID) (*credit.Transaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, errors.New("not found")
}

func (a *auditRepo) inRange(farmerID uuid.UUID, from, to time.Time) []credit.Transaction {
	var out []credit.Transaction
	for _, e := range a.entries {
		if (farmerID == uuid.Nil || e.FarmerID == farmerID) && !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			out = append(out, e)
		}
	}
	return out
}

func (a *auditRepo) GetByTimeRange(_ context.Context, farmerID uuid.UUID, from, to time.Time, limit, offset int) ([]*credit.Transaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	all := a.inRange(farmerID, from, to)
	var out []*credit.Transaction
	for i := offset; i < len(all) && len(out) < limit; i++ {
		out = append(out, &all[i])
	}
	return out, nil
}

func (a *auditRepo) CountByTimeRange(_ context.Context, farmerID uuid.UUID, from, to time.Time) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int64(len(a.inRange(farmerID, from, to))), nil
}

type notifier struct {
	mu       sync.Mutex
	sent     []uuid.UUID
	messages []string
	err      error
}

func (n *notifier) Notify(_ context.Context, farmerID uuid.UUID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, farmerID)
	n.messages = append(n.messages, message)
	return nil
}

func (n *notifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *notifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return ""
	}
	return n.messages[len(n.messages)-1]
}
