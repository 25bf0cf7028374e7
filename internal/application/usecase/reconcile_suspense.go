package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/service"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
)

// ReconcileSuspenseUseCase applies money held in suspense to the holder's
// active loans, oldest payment and oldest loan first.
type ReconcileSuspenseUseCase struct {
	deps       Deps
	reconciler *service.SuspenseReconciler
}

// NewReconcileSuspenseUseCase wires dependencies.
func NewReconcileSuspenseUseCase(deps Deps, engines Engines) *ReconcileSuspenseUseCase {
	return &ReconcileSuspenseUseCase{deps: deps, reconciler: engines.Suspense}
}

// Execute reconciles one customer, or every holder when CustomerRef is empty.
func (uc *ReconcileSuspenseUseCase) Execute(ctx context.Context, req dto.ReconcileSuspenseRequest) (dto.ReconcileResponse, error) {
	if req.CustomerRef != "" {
		return uc.ReconcileCustomer(ctx, req.CustomerRef)
	}
	return uc.Sweep(ctx)
}

// ReconcileCustomer locks all of the customer's active loans and settles
// their held payments in one transaction.
func (uc *ReconcileSuspenseUseCase) ReconcileCustomer(ctx context.Context, customerRef string) (dto.ReconcileResponse, error) {
	now := uc.deps.now()
	resp := dto.ReconcileResponse{Holders: 1, Applied: decimal.Zero}

	// 1. Resolve the customer and find candidate loans.
	customer, err := uc.deps.Customers.Resolve(ctx, customerRef)
	if err != nil {
		return dto.ReconcileResponse{}, fmt.Errorf("resolve customer: %w", err)
	}
	candidates, err := uc.deps.UoW.Repos().Loans.FindByCustomerID(ctx, customer.ID, valueobject.ActiveLoanStatuses...)
	if err != nil {
		return dto.ReconcileResponse{}, fmt.Errorf("find customer loans: %w", err)
	}
	ids := make([]string, len(candidates))
	for i, loan := range candidates {
		ids[i] = loan.ID()
	}

	// 2. Lock the customer's held money and every loan that might receive it.
	release, err := uc.deps.lockAll(ctx, append([]string{"customer:" + customer.ID}, ids...))
	if err != nil {
		return dto.ReconcileResponse{}, err
	}
	defer release()

	err = uc.deps.inTx(ctx, func(ctx context.Context, scope *txScope) error {
		payments, err := scope.repos.Suspense.FindOutstandingByHolders(ctx, customer.ID, customer.HolderRefs()...)
		if err != nil {
			return fmt.Errorf("find suspense payments: %w", err)
		}
		if len(payments) == 0 {
			return nil
		}

		// 3. Reload under the locks, keeping disbursement order.
		loans := make([]model.Loan, 0, len(ids))
		for _, id := range ids {
			loan, err := scope.repos.Loans.FindByID(ctx, id)
			if err != nil {
				return fmt.Errorf("find loan: %w", err)
			}
			if loan.Status().IsActive() {
				loans = append(loans, loan)
			}
		}

		// 4. Settle and persist every changed aggregate once.
		result, err := uc.reconciler.Reconcile(loans, payments, now)
		if err != nil {
			return err
		}
		for _, loan := range result.Loans {
			if _, err := scope.saveLoan(ctx, loan); err != nil {
				return err
			}
		}
		for _, payment := range result.Payments {
			if _, err := scope.saveSuspense(ctx, payment); err != nil {
				return err
			}
			if payment.Status() == valueobject.SuspenseProcessed {
				resp.PaymentsProcessed++
			}
		}
		resp.Applied = result.Applied
		resp.LoansUpdated = len(result.Loans)
		return nil
	})
	if err != nil {
		return dto.ReconcileResponse{}, err
	}

	if resp.Applied.IsPositive() {
		uc.deps.logger().Info("suspense reconciled",
			"customer_id", customer.ID,
			"applied", resp.Applied.String(),
			"loans_updated", resp.LoansUpdated,
			"payments_processed", resp.PaymentsProcessed,
		)
	}
	return resp, nil
}

// Sweep reconciles every holder with money in suspense. Holders that still
// resolve to no customer are skipped quietly.
func (uc *ReconcileSuspenseUseCase) Sweep(ctx context.Context) (dto.ReconcileResponse, error) {
	holders, err := uc.deps.UoW.Repos().Suspense.ListOutstandingHolders(ctx)
	if err != nil {
		return dto.ReconcileResponse{}, fmt.Errorf("list suspense holders: %w", err)
	}

	var (
		mu   sync.Mutex
		resp = dto.ReconcileResponse{Holders: len(holders), Applied: decimal.Zero}
	)
	uc.deps.runBatch(ctx, len(holders), func(ctx context.Context, i int) (string, error) {
		one, err := uc.ReconcileCustomer(ctx, holders[i])
		mu.Lock()
		defer mu.Unlock()
		switch {
		case errors.Is(err, lenderr.ErrNotFound):
			return holders[i], nil
		case err != nil:
			resp.Failures = append(resp.Failures, fmt.Sprintf("%s: %v", holders[i], err))
			return holders[i], err
		}
		resp.Applied = resp.Applied.Add(one.Applied)
		resp.LoansUpdated += one.LoansUpdated
		resp.PaymentsProcessed += one.PaymentsProcessed
		return holders[i], nil
	})
	return resp, nil
}
