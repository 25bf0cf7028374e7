package usecase

import (
	"context"
	"fmt"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/service"
)

// RolloverLoanUseCase closes a loan into a replacement carrying its
// outstanding principal plus an application fee.
type RolloverLoanUseCase struct {
	deps       Deps
	engine     *service.RolloverEngine
	reconciler customerReconciler
}

// NewRolloverLoanUseCase wires dependencies.
func NewRolloverLoanUseCase(deps Deps, engines Engines, reconciler customerReconciler) *RolloverLoanUseCase {
	return &RolloverLoanUseCase{deps: deps, engine: engines.Rollovers, reconciler: reconciler}
}

// Execute performs the rollover. Both loans and the link record commit together.
func (uc *RolloverLoanUseCase) Execute(ctx context.Context, req dto.RolloverRequest) (dto.RolloverResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.RolloverResponse{}, err
	}
	now := uc.deps.now()

	var result service.RolloverResult
	err := uc.deps.withLock(ctx, req.LoanID, func() error {
		return uc.deps.inTx(ctx, func(ctx context.Context, scope *txScope) error {
			// 1. Reload the original and its product.
			original, err := scope.repos.Loans.FindByID(ctx, req.LoanID)
			if err != nil {
				return fmt.Errorf("find loan: %w", err)
			}
			product, err := uc.deps.Products.FindByID(ctx, original.ProductID())
			if err != nil {
				return fmt.Errorf("find product: %w", err)
			}
			fee := product.ApplicationFee
			if req.ApplicationFee != nil {
				fee = *req.ApplicationFee
			}

			// 2. Close the original into a new loan.
			result, err = uc.engine.Rollover(original, product, fee, req.ApprovedBy, now)
			if err != nil {
				return err
			}

			// 3. Persist both sides and the link.
			if result.Original, err = scope.saveLoan(ctx, result.Original); err != nil {
				return err
			}
			if result.Replacement, err = scope.saveLoan(ctx, result.Replacement); err != nil {
				return err
			}
			if err := scope.repos.Rollovers.Append(ctx, result.Record); err != nil {
				return fmt.Errorf("append rollover record: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return dto.RolloverResponse{}, err
	}

	uc.deps.logger().Info("loan rolled over",
		"loan_id", result.Original.ID(),
		"new_loan_id", result.Replacement.ID(),
		"carried", result.Record.CarriedPrincipal.String(),
		"approved_by", req.ApprovedBy,
	)

	reconcileAfterCommit(ctx, uc.deps, uc.reconciler, result.Replacement.CustomerID())
	return dto.RolloverResponse{
		Original:    dto.FromLoan(result.Original),
		Replacement: dto.FromLoan(reloadOr(ctx, uc.deps, result.Replacement)),
		RecordID:    result.Record.ID,
		Carried:     result.Record.CarriedPrincipal,
	}, nil
}
