package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/port"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/service"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/events"
)

// Deps is the infrastructure every use case shares.
type Deps struct {
	UoW       port.UnitOfWork
	Locker    port.LoanLocker
	Products  port.ProductCatalog
	Customers port.CustomerDirectory
	Clock     port.Clock
	Logger    *slog.Logger
	// Workers bounds batch concurrency; keep it at or below the DB pool size.
	Workers int
}

// Engines bundles the stateless domain services.
type Engines struct {
	Schedules   *service.ScheduleGenerator
	Penalties   *service.PenaltyAccrualEngine
	Allocator   *service.PaymentAllocator
	Restructure *service.RestructureEngine
	Waivers     *service.WaiverEngine
	Suspense    *service.SuspenseReconciler
	Rollovers   *service.RolloverEngine
}

// NewEngines wires the domain services together.
func NewEngines(maxRestructureTerm int) Engines {
	schedules := service.NewScheduleGenerator()
	allocator := service.NewPaymentAllocator()
	return Engines{
		Schedules:   schedules,
		Penalties:   service.NewPenaltyAccrualEngine(),
		Allocator:   allocator,
		Restructure: service.NewRestructureEngine(schedules, maxRestructureTerm),
		Waivers:     service.NewWaiverEngine(),
		Suspense:    service.NewSuspenseReconciler(allocator),
		Rollovers:   service.NewRolloverEngine(schedules),
	}
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock().UTC()
	}
	return time.Now().UTC()
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d Deps) workers() int {
	if d.Workers > 0 {
		return d.Workers
	}
	return 4
}

// ---------------------------------------------------------------------------
// Transaction scope
// ---------------------------------------------------------------------------

// txScope collects events raised inside one unit of work and writes them to
// the outbox just before commit.
type txScope struct {
	repos     port.Repositories
	collector events.EventCollector
}

// saveLoan checks the ledger invariants, persists the loan and queues its
// events. A failed check aborts the transaction.
func (s *txScope) saveLoan(ctx context.Context, loan model.Loan) (model.Loan, error) {
	if err := loan.CheckConsistency(); err != nil {
		return loan, err
	}
	if err := s.repos.Loans.Save(ctx, loan); err != nil {
		return loan, fmt.Errorf("save loan: %w", err)
	}
	s.collector.Record(loan.DomainEvents()...)
	return loan.ClearEvents(), nil
}

func (s *txScope) saveSuspense(ctx context.Context, payment model.SuspensePayment) (model.SuspensePayment, error) {
	if err := s.repos.Suspense.Save(ctx, payment); err != nil {
		return payment, fmt.Errorf("save suspense payment: %w", err)
	}
	s.collector.Record(payment.DomainEvents()...)
	return payment.ClearEvents(), nil
}

func (s *txScope) flush(ctx context.Context) error {
	if s.collector.Len() == 0 {
		return nil
	}
	entries, err := s.collector.OutboxEntries()
	if err != nil {
		return fmt.Errorf("build outbox entries: %w", err)
	}
	if err := s.repos.Outbox.Store(ctx, entries); err != nil {
		return fmt.Errorf("store outbox entries: %w", err)
	}
	s.collector.ClearEvents()
	return nil
}

// inTx runs fn in one unit of work and flushes queued events before commit.
func (d Deps) inTx(ctx context.Context, fn func(ctx context.Context, scope *txScope) error) error {
	return d.UoW.Do(ctx, func(ctx context.Context, repos port.Repositories) error {
		scope := &txScope{repos: repos}
		if err := fn(ctx, scope); err != nil {
			return err
		}
		return scope.flush(ctx)
	})
}

// withLock holds the per-key lock around fn.
func (d Deps) withLock(ctx context.Context, key string, fn func() error) error {
	release, err := d.Locker.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	defer release()
	return fn()
}

// lockAll takes locks on keys in sorted order so concurrent callers cannot
// deadlock. The returned func releases them all.
func (d Deps) lockAll(ctx context.Context, keys []string) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	var releases []func()
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, key := range sorted {
		release, err := d.Locker.Lock(ctx, key)
		if err != nil {
			releaseAll()
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

// mutateLoan is the common shape of every single-loan operation: lock the
// loan, open a transaction, reload it, apply fn and save the result.
func (d Deps) mutateLoan(
	ctx context.Context,
	loanID string,
	fn func(ctx context.Context, scope *txScope, loan model.Loan) (model.Loan, error),
) (model.Loan, error) {
	var saved model.Loan
	err := d.withLock(ctx, loanID, func() error {
		return d.inTx(ctx, func(ctx context.Context, scope *txScope) error {
			loan, err := scope.repos.Loans.FindByID(ctx, loanID)
			if err != nil {
				return fmt.Errorf("find loan: %w", err)
			}
			next, err := fn(ctx, scope, loan)
			if err != nil {
				return err
			}
			saved, err = scope.saveLoan(ctx, next)
			return err
		})
	})
	return saved, err
}

// runBatch runs fn for items 0..n-1 on a bounded pool. Every item runs to
// completion regardless of failures elsewhere.
func (d Deps) runBatch(ctx context.Context, n int, fn func(ctx context.Context, i int) (string, error)) dto.BatchResponse {
	results := make([]dto.BatchItemResult, n)
	var g errgroup.Group
	g.SetLimit(d.workers())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			results[i].Index = i
			id, err := fn(ctx, i)
			results[i].ID = id
			if err != nil {
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	resp := dto.BatchResponse{Results: results}
	for _, r := range results {
		if r.Error == "" {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	return resp
}

// customerReconciler is the after-commit hook that applies held payments
// once a customer has an eligible loan.
type customerReconciler interface {
	ReconcileCustomer(ctx context.Context, customerRef string) (dto.ReconcileResponse, error)
}

func reconcileAfterCommit(ctx context.Context, d Deps, r customerReconciler, customerID string) {
	if r == nil || customerID == "" {
		return
	}
	if _, err := r.ReconcileCustomer(ctx, customerID); err != nil {
		d.logger().Warn("suspense reconciliation failed", "customer_id", customerID, "error", err)
	}
}
