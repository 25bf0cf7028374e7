// Package memory is an in-process implementation of the persistence ports.
// Transactions are serialised and run against a copy of the data that
// replaces the committed state only when the callback succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/port"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/events"
)

type state struct {
	loans        map[string]model.LoanSnapshot
	waivers      []model.WaiverRecord
	restructures []model.RestructureRecord
	rollovers    []model.RolloverRecord
	suspense     map[string]model.SuspenseSnapshot
	receipts     map[string]model.PaymentReceipt
	outbox       []events.OutboxEntry
}

func newState() *state {
	return &state{
		loans:    make(map[string]model.LoanSnapshot),
		suspense: make(map[string]model.SuspenseSnapshot),
		receipts: make(map[string]model.PaymentReceipt),
	}
}

func (s *state) clone() *state {
	c := &state{
		loans:        make(map[string]model.LoanSnapshot, len(s.loans)),
		waivers:      append([]model.WaiverRecord(nil), s.waivers...),
		restructures: append([]model.RestructureRecord(nil), s.restructures...),
		rollovers:    append([]model.RolloverRecord(nil), s.rollovers...),
		suspense:     make(map[string]model.SuspenseSnapshot, len(s.suspense)),
		receipts:     make(map[string]model.PaymentReceipt, len(s.receipts)),
		outbox:       append([]events.OutboxEntry(nil), s.outbox...),
	}
	for k, v := range s.loans {
		c.loans[k] = v
	}
	for k, v := range s.suspense {
		c.suspense[k] = v
	}
	for k, v := range s.receipts {
		c.receipts[k] = v
	}
	return c
}

// Store implements port.UnitOfWork, port.ProductCatalog and
// port.CustomerDirectory.
type Store struct {
	mu        sync.Mutex // held for a whole transaction or a single live call
	committed *state

	refMu     sync.RWMutex
	products  map[string]model.Product
	customers map[string]model.Customer // keyed by id and phone
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		committed: newState(),
		products:  make(map[string]model.Product),
		customers: make(map[string]model.Customer),
	}
}

var (
	_ port.UnitOfWork        = (*Store)(nil)
	_ port.ProductCatalog    = (*Store)(nil)
	_ port.CustomerDirectory = (*Store)(nil)
)

// Do runs fn against a private copy and commits it if fn returns nil.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos port.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.committed.clone()
	if err := fn(ctx, repositories(&fixed{st: work})); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.committed = work
	return nil
}

// Repos returns repositories over the committed state. Writes through them
// commit immediately. They must not be used from inside Do.
func (s *Store) Repos() port.Repositories {
	return repositories(&live{store: s})
}

// ---------------------------------------------------------------------------
// Reference data
// ---------------------------------------------------------------------------

// PutProduct adds or replaces a product.
func (s *Store) PutProduct(p model.Product) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	s.products[p.ID] = p
}

// PutCustomer adds or replaces a customer, indexed by id and phone.
func (s *Store) PutCustomer(c model.Customer) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	for _, ref := range c.HolderRefs() {
		s.customers[ref] = c
	}
}

func (s *Store) FindByID(_ context.Context, id string) (model.Product, error) {
	s.refMu.RLock()
	defer s.refMu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return model.Product{}, lenderr.NotFound("product", id)
	}
	return p, nil
}

func (s *Store) Resolve(_ context.Context, ref string) (model.Customer, error) {
	s.refMu.RLock()
	defer s.refMu.RUnlock()
	c, ok := s.customers[ref]
	if !ok {
		return model.Customer{}, lenderr.NotFound("customer", ref)
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// State access
// ---------------------------------------------------------------------------

// access hands repositories the state to operate on.
type access interface {
	with(fn func(st *state))
}

// fixed is the private copy inside a transaction; only the goroutine holding
// the store lock touches it.
type fixed struct{ st *state }

func (f *fixed) with(fn func(st *state)) { fn(f.st) }

type live struct{ store *Store }

func (l *live) with(fn func(st *state)) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	fn(l.store.committed)
}

func repositories(a access) port.Repositories {
	return port.Repositories{
		Loans:        &loanRepo{a: a},
		Waivers:      &waiverRepo{a: a},
		Restructures: &restructureRepo{a: a},
		Rollovers:    &rolloverRepo{a: a},
		Suspense:     &suspenseRepo{a: a},
		Receipts:     &receiptRepo{a: a},
		Outbox:       &outboxRepo{a: a},
	}
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

type loanRepo struct{ a access }

// Save bumps the stored version the way the SQL adapter does.
func (r *loanRepo) Save(_ context.Context, loan model.Loan) error {
	var err error
	r.a.with(func(st *state) {
		snap := loan.Snapshot()
		if cur, ok := st.loans[snap.ID]; ok {
			if cur.Version != snap.Version {
				err = lenderr.StateConflict("loan was modified concurrently (version %d, stored %d)",
					snap.Version, cur.Version).WithLoan(snap.ID)
				return
			}
			snap.Version = cur.Version + 1
		} else {
			for _, other := range st.loans {
				if other.ApplicationID == snap.ApplicationID {
					err = lenderr.StateConflict("application %s already has loan %s",
						snap.ApplicationID, other.ID).WithLoan(other.ID)
					return
				}
			}
		}
		st.loans[snap.ID] = snap
	})
	return err
}

func (r *loanRepo) FindByID(_ context.Context, id string) (model.Loan, error) {
	var (
		snap model.LoanSnapshot
		ok   bool
	)
	r.a.with(func(st *state) { snap, ok = st.loans[id] })
	if !ok {
		return model.Loan{}, lenderr.NotFound("loan", id)
	}
	return model.ReconstructLoan(snap), nil
}

func (r *loanRepo) FindByApplicationID(_ context.Context, applicationID string) (model.Loan, error) {
	var (
		snap model.LoanSnapshot
		ok   bool
	)
	r.a.with(func(st *state) {
		for _, s := range st.loans {
			if s.ApplicationID == applicationID {
				snap, ok = s, true
				return
			}
		}
	})
	if !ok {
		return model.Loan{}, lenderr.NotFound("loan for application", applicationID)
	}
	return model.ReconstructLoan(snap), nil
}

func (r *loanRepo) FindByCustomerID(_ context.Context, customerID string, statuses ...valueobject.LoanStatus) ([]model.Loan, error) {
	var snaps []model.LoanSnapshot
	r.a.with(func(st *state) {
		for _, s := range st.loans {
			if s.CustomerID == customerID && statusIn(s.Status, statuses) {
				snaps = append(snaps, s)
			}
		}
	})
	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].DisbursedAt.Equal(snaps[j].DisbursedAt) {
			return snaps[i].DisbursedAt.Before(snaps[j].DisbursedAt)
		}
		return snaps[i].ID < snaps[j].ID
	})
	loans := make([]model.Loan, len(snaps))
	for i, s := range snaps {
		loans[i] = model.ReconstructLoan(s)
	}
	return loans, nil
}

func (r *loanRepo) ListIDsByStatus(_ context.Context, statuses ...valueobject.LoanStatus) ([]string, error) {
	var ids []string
	r.a.with(func(st *state) {
		for id, s := range st.loans {
			if statusIn(s.Status, statuses) {
				ids = append(ids, id)
			}
		}
	})
	sort.Strings(ids)
	return ids, nil
}

func statusIn(s valueobject.LoanStatus, statuses []valueobject.LoanStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, want := range statuses {
		if s.Equal(want) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Audit records
// ---------------------------------------------------------------------------

type waiverRepo struct{ a access }

func (r *waiverRepo) Append(_ context.Context, rec model.WaiverRecord) error {
	r.a.with(func(st *state) { st.waivers = append(st.waivers, rec) })
	return nil
}

func (r *waiverRepo) FindByLoanID(_ context.Context, loanID string) ([]model.WaiverRecord, error) {
	var out []model.WaiverRecord
	r.a.with(func(st *state) {
		for _, rec := range st.waivers {
			if rec.LoanID == loanID {
				out = append(out, rec)
			}
		}
	})
	return out, nil
}

type restructureRepo struct{ a access }

func (r *restructureRepo) Append(_ context.Context, rec model.RestructureRecord) error {
	r.a.with(func(st *state) { st.restructures = append(st.restructures, rec) })
	return nil
}

func (r *restructureRepo) FindByLoanID(_ context.Context, loanID string) ([]model.RestructureRecord, error) {
	var out []model.RestructureRecord
	r.a.with(func(st *state) {
		for _, rec := range st.restructures {
			if rec.LoanID == loanID {
				out = append(out, rec)
			}
		}
	})
	return out, nil
}

type rolloverRepo struct{ a access }

func (r *rolloverRepo) Append(_ context.Context, rec model.RolloverRecord) error {
	r.a.with(func(st *state) { st.rollovers = append(st.rollovers, rec) })
	return nil
}

// FindByLoanID matches either side of the link.
func (r *rolloverRepo) FindByLoanID(_ context.Context, loanID string) ([]model.RolloverRecord, error) {
	var out []model.RolloverRecord
	r.a.with(func(st *state) {
		for _, rec := range st.rollovers {
			if rec.OriginalLoanID == loanID || rec.NewLoanID == loanID {
				out = append(out, rec)
			}
		}
	})
	return out, nil
}

// ---------------------------------------------------------------------------
// Suspense
// ---------------------------------------------------------------------------

type suspenseRepo struct{ a access }

func (r *suspenseRepo) Save(_ context.Context, p model.SuspensePayment) error {
	var err error
	r.a.with(func(st *state) {
		snap := p.Snapshot()
		if cur, ok := st.suspense[snap.ID]; ok {
			if cur.Version != snap.Version {
				err = lenderr.StateConflict("suspense payment %s was modified concurrently", snap.ID)
				return
			}
			snap.Version = cur.Version + 1
		}
		st.suspense[snap.ID] = snap
	})
	return err
}

func (r *suspenseRepo) FindByID(_ context.Context, id string) (model.SuspensePayment, error) {
	var (
		snap model.SuspenseSnapshot
		ok   bool
	)
	r.a.with(func(st *state) { snap, ok = st.suspense[id] })
	if !ok {
		return model.SuspensePayment{}, lenderr.NotFound("suspense payment", id)
	}
	return model.ReconstructSuspensePayment(snap), nil
}

func (r *suspenseRepo) FindOutstandingByHolders(_ context.Context, customerID string, refs ...string) ([]model.SuspensePayment, error) {
	wanted := make(map[string]bool, len(refs))
	for _, ref := range refs {
		wanted[ref] = true
	}
	var snaps []model.SuspenseSnapshot
	r.a.with(func(st *state) {
		for _, s := range st.suspense {
			if !s.Status.IsOutstanding() {
				continue
			}
			if wanted[s.HolderRef] || (customerID != "" && s.CustomerID == customerID) {
				snaps = append(snaps, s)
			}
		}
	})
	sort.Slice(snaps, func(i, j int) bool {
		if !snaps[i].ReceivedAt.Equal(snaps[j].ReceivedAt) {
			return snaps[i].ReceivedAt.Before(snaps[j].ReceivedAt)
		}
		return snaps[i].ID < snaps[j].ID
	})
	out := make([]model.SuspensePayment, len(snaps))
	for i, s := range snaps {
		out[i] = model.ReconstructSuspensePayment(s)
	}
	return out, nil
}

// ListOutstandingHolders prefers the resolved customer id over the quoted ref.
func (r *suspenseRepo) ListOutstandingHolders(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	r.a.with(func(st *state) {
		for _, s := range st.suspense {
			if !s.Status.IsOutstanding() {
				continue
			}
			if s.CustomerID != "" {
				seen[s.CustomerID] = true
			} else {
				seen[s.HolderRef] = true
			}
		}
	})
	holders := make([]string, 0, len(seen))
	for h := range seen {
		holders = append(holders, h)
	}
	sort.Strings(holders)
	return holders, nil
}

// ---------------------------------------------------------------------------
// Receipts
// ---------------------------------------------------------------------------

type receiptRepo struct{ a access }

func (r *receiptRepo) Record(_ context.Context, receipt model.PaymentReceipt) error {
	var err error
	r.a.with(func(st *state) {
		if prev, ok := st.receipts[receipt.Reference]; ok {
			err = lenderr.StateConflict("payment reference %s was already posted", receipt.Reference).WithLoan(prev.LoanID)
			return
		}
		st.receipts[receipt.Reference] = receipt
	})
	return err
}

func (r *receiptRepo) FindByReference(_ context.Context, reference string) (model.PaymentReceipt, error) {
	var (
		receipt model.PaymentReceipt
		ok      bool
	)
	r.a.with(func(st *state) { receipt, ok = st.receipts[reference] })
	if !ok {
		return model.PaymentReceipt{}, lenderr.NotFound("payment receipt", reference)
	}
	return receipt, nil
}

// ---------------------------------------------------------------------------
// Outbox
// ---------------------------------------------------------------------------

type outboxRepo struct{ a access }

func (r *outboxRepo) Store(_ context.Context, entries []events.OutboxEntry) error {
	r.a.with(func(st *state) { st.outbox = append(st.outbox, entries...) })
	return nil
}

func (r *outboxRepo) FetchUnpublished(_ context.Context, batchSize int) ([]events.OutboxEntry, error) {
	var out []events.OutboxEntry
	r.a.with(func(st *state) {
		for _, e := range st.outbox {
			if e.PublishedAt == nil {
				out = append(out, e)
				if len(out) == batchSize {
					return
				}
			}
		}
	})
	return out, nil
}

func (r *outboxRepo) MarkPublished(_ context.Context, ids []string, at time.Time) error {
	done := make(map[string]bool, len(ids))
	for _, id := range ids {
		done[id] = true
	}
	r.a.with(func(st *state) {
		for i := range st.outbox {
			if done[st.outbox[i].ID] {
				ts := at
				st.outbox[i].PublishedAt = &ts
			}
		}
	})
	return nil
}

func (r *outboxRepo) MarkFailed(_ context.Context, id string, reason string) error {
	r.a.with(func(st *state) {
		for i := range st.outbox {
			if st.outbox[i].ID == id {
				st.outbox[i].Attempts++
				st.outbox[i].LastError = reason
			}
		}
	})
	return nil
}
