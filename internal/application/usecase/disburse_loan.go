package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/service"
)

// DisburseLoanUseCase creates a loan and its repayment schedule for an
// approved application. An application is disbursed at most once.
type DisburseLoanUseCase struct {
	deps       Deps
	schedules  *service.ScheduleGenerator
	reconciler customerReconciler
}

// NewDisburseLoanUseCase wires dependencies.
func NewDisburseLoanUseCase(deps Deps, engines Engines, reconciler customerReconciler) *DisburseLoanUseCase {
	return &DisburseLoanUseCase{
		deps:       deps,
		schedules:  engines.Schedules,
		reconciler: reconciler,
	}
}

// Execute disburses one application.
func (uc *DisburseLoanUseCase) Execute(ctx context.Context, req dto.DisburseLoanRequest) (dto.LoanResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.LoanResponse{}, err
	}
	now := uc.deps.now()
	disbursedAt := req.DisbursedAt
	if disbursedAt.IsZero() {
		disbursedAt = now
	}

	// 1. Resolve product terms and the borrower.
	product, err := uc.deps.Products.FindByID(ctx, req.ProductID)
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("find product: %w", err)
	}
	customer, err := uc.deps.Customers.Resolve(ctx, req.CustomerID)
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("resolve customer: %w", err)
	}
	if !customer.Active {
		return dto.LoanResponse{}, lenderr.StateConflict("customer %s is not active", customer.ID)
	}

	// 2. Build the loan and its schedule.
	loan, err := uc.schedules.Disburse(product, service.Disbursement{
		ApplicationID: req.ApplicationID,
		CustomerID:    customer.ID,
		Principal:     req.Principal,
		TermPeriods:   req.TermPeriods,
		DisbursedAt:   disbursedAt,
	}, now)
	if err != nil {
		return dto.LoanResponse{}, err
	}

	// 3. Persist under the application lock so a retried request cannot
	// disburse twice.
	err = uc.deps.withLock(ctx, "application:"+req.ApplicationID, func() error {
		return uc.deps.inTx(ctx, func(ctx context.Context, scope *txScope) error {
			existing, err := scope.repos.Loans.FindByApplicationID(ctx, req.ApplicationID)
			switch {
			case err == nil:
				return lenderr.StateConflict("application %s already disbursed as loan %s",
					req.ApplicationID, existing.ID()).WithLoan(existing.ID())
			case !errors.Is(err, lenderr.ErrNotFound):
				return fmt.Errorf("find loan by application: %w", err)
			}
			loan, err = scope.saveLoan(ctx, loan)
			return err
		})
	})
	if err != nil {
		return dto.LoanResponse{}, err
	}

	uc.deps.logger().Info("loan disbursed",
		"loan_id", loan.ID(),
		"customer_id", loan.CustomerID(),
		"principal", loan.Principal().String(),
	)

	// 4. Money already held for this customer can now go to the new loan.
	reconcileAfterCommit(ctx, uc.deps, uc.reconciler, loan.CustomerID())
	return dto.FromLoan(reloadOr(ctx, uc.deps, loan)), nil
}

// ExecuteBatch disburses every item independently.
func (uc *DisburseLoanUseCase) ExecuteBatch(ctx context.Context, req dto.BatchDisburseRequest) (dto.BatchResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.BatchResponse{}, err
	}
	return uc.deps.runBatch(ctx, len(req.Items), func(ctx context.Context, i int) (string, error) {
		resp, err := uc.Execute(ctx, req.Items[i])
		return resp.ID, err
	}), nil
}

// reloadOr returns the stored copy of loan, which differs from the one in
// hand when an after-commit reconciliation touched it.
func reloadOr(ctx context.Context, d Deps, loan model.Loan) model.Loan {
	fresh, err := d.UoW.Repos().Loans.FindByID(ctx, loan.ID())
	if err != nil {
		return loan
	}
	return fresh
}
