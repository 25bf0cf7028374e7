package usecase

import (
	"context"
	"fmt"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/service"
)

// RestructureLoanUseCase applies an approved restructure and appends its
// audit record in the same transaction.
type RestructureLoanUseCase struct {
	deps   Deps
	engine *service.RestructureEngine
}

// NewRestructureLoanUseCase wires dependencies.
func NewRestructureLoanUseCase(deps Deps, engines Engines) *RestructureLoanUseCase {
	return &RestructureLoanUseCase{deps: deps, engine: engines.Restructure}
}

type restructureFunc func(ctx context.Context, loan model.Loan) (model.Loan, model.RestructureRecord, error)

func (uc *RestructureLoanUseCase) ExtendTerm(ctx context.Context, req dto.ExtendTermRequest) (dto.RestructureResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.RestructureResponse{}, err
	}
	now := uc.deps.now()
	return uc.run(ctx, req.LoanID, func(_ context.Context, loan model.Loan) (model.Loan, model.RestructureRecord, error) {
		return uc.engine.ExtendTerm(loan, req.NewTermPeriods, approval(req.Approval), now)
	})
}

func (uc *RestructureLoanUseCase) ChangeRate(ctx context.Context, req dto.ChangeRateRequest) (dto.RestructureResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.RestructureResponse{}, err
	}
	now := uc.deps.now()
	return uc.run(ctx, req.LoanID, func(_ context.Context, loan model.Loan) (model.Loan, model.RestructureRecord, error) {
		return uc.engine.ChangeRate(loan, req.NewRate, approval(req.Approval), now)
	})
}

// ReduceMonthlyPayment searches terms up to the product's maximum.
func (uc *RestructureLoanUseCase) ReduceMonthlyPayment(ctx context.Context, req dto.ReduceMonthlyPaymentRequest) (dto.RestructureResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.RestructureResponse{}, err
	}
	now := uc.deps.now()
	return uc.run(ctx, req.LoanID, func(ctx context.Context, loan model.Loan) (model.Loan, model.RestructureRecord, error) {
		product, err := uc.deps.Products.FindByID(ctx, loan.ProductID())
		if err != nil {
			return loan, model.RestructureRecord{}, fmt.Errorf("find product: %w", err)
		}
		return uc.engine.ReduceMonthlyPayment(loan, req.TargetInstallment, product.MaxTermPeriods, approval(req.Approval), now)
	})
}

func (uc *RestructureLoanUseCase) CompleteRestructure(ctx context.Context, req dto.CompleteRestructureRequest) (dto.RestructureResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.RestructureResponse{}, err
	}
	now := uc.deps.now()
	return uc.run(ctx, req.LoanID, func(_ context.Context, loan model.Loan) (model.Loan, model.RestructureRecord, error) {
		return uc.engine.CompleteRestructure(loan, req.NewTermPeriods, req.NewRate, approval(req.Approval), now)
	})
}

func (uc *RestructureLoanUseCase) run(ctx context.Context, loanID string, fn restructureFunc) (dto.RestructureResponse, error) {
	var record model.RestructureRecord
	saved, err := uc.deps.mutateLoan(ctx, loanID, func(ctx context.Context, scope *txScope, loan model.Loan) (model.Loan, error) {
		next, rec, err := fn(ctx, loan)
		if err != nil {
			return loan, err
		}
		if err := scope.repos.Restructures.Append(ctx, rec); err != nil {
			return loan, fmt.Errorf("append restructure record: %w", err)
		}
		record = rec
		return next, nil
	})
	if err != nil {
		return dto.RestructureResponse{}, err
	}

	uc.deps.logger().Info("loan restructured",
		"loan_id", loanID,
		"type", string(record.Type),
		"new_term", record.NewTerm,
		"approved_by", record.ApprovedBy,
	)
	return dto.RestructureResponse{
		Loan:     dto.FromLoan(saved),
		RecordID: record.ID,
		Type:     string(record.Type),
	}, nil
}

func approval(a dto.Approval) service.Approval {
	return service.Approval{ApprovedBy: a.ApprovedBy, Reason: a.Reason}
}
