package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/service"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
)

// WaiveLoanUseCase forgives part or all of a loan and records who approved it.
type WaiveLoanUseCase struct {
	deps    Deps
	waivers *service.WaiverEngine
}

// NewWaiveLoanUseCase wires dependencies.
func NewWaiveLoanUseCase(deps Deps, engines Engines) *WaiveLoanUseCase {
	return &WaiveLoanUseCase{deps: deps, waivers: engines.Waivers}
}

func (uc *WaiveLoanUseCase) WaiveInterest(ctx context.Context, req dto.WaiveRequest) (dto.WaiverResponse, error) {
	return uc.component(ctx, req, valueobject.ComponentInterest)
}

func (uc *WaiveLoanUseCase) WaivePenalty(ctx context.Context, req dto.WaiveRequest) (dto.WaiverResponse, error) {
	return uc.component(ctx, req, valueobject.ComponentPenalty)
}

func (uc *WaiveLoanUseCase) WaivePrincipal(ctx context.Context, req dto.WaiveRequest) (dto.WaiverResponse, error) {
	return uc.component(ctx, req, valueobject.ComponentPrincipal)
}

// WaiveFull writes off everything outstanding. req.Amount is ignored.
func (uc *WaiveLoanUseCase) WaiveFull(ctx context.Context, req dto.WaiveRequest) (dto.WaiverResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.WaiverResponse{}, err
	}
	return uc.run(ctx, req.LoanID, func(loan model.Loan, now time.Time) (model.Loan, model.WaiverRecord, error) {
		return uc.waivers.WaiveFull(loan, req.ApprovedBy, req.Reason, now)
	})
}

func (uc *WaiveLoanUseCase) component(ctx context.Context, req dto.WaiveRequest, c valueobject.Component) (dto.WaiverResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.WaiverResponse{}, err
	}
	return uc.run(ctx, req.LoanID, func(loan model.Loan, now time.Time) (model.Loan, model.WaiverRecord, error) {
		return uc.waivers.Waive(loan, c, req.Amount, req.ApprovedBy, req.Reason, now)
	})
}

func (uc *WaiveLoanUseCase) run(
	ctx context.Context,
	loanID string,
	fn func(loan model.Loan, now time.Time) (model.Loan, model.WaiverRecord, error),
) (dto.WaiverResponse, error) {
	now := uc.deps.now()
	var record model.WaiverRecord
	saved, err := uc.deps.mutateLoan(ctx, loanID, func(ctx context.Context, scope *txScope, loan model.Loan) (model.Loan, error) {
		next, rec, err := fn(loan, now)
		if err != nil {
			return loan, err
		}
		if err := scope.repos.Waivers.Append(ctx, rec); err != nil {
			return loan, fmt.Errorf("append waiver record: %w", err)
		}
		record = rec
		return next, nil
	})
	if err != nil {
		return dto.WaiverResponse{}, err
	}

	uc.deps.logger().Info("loan waived",
		"loan_id", loanID,
		"type", string(record.Type),
		"amount", record.Amount.String(),
		"approved_by", record.ApprovedBy,
	)
	return dto.WaiverResponse{
		Loan:     dto.FromLoan(saved),
		WaiverID: record.ID,
		Type:     string(record.Type),
		Amount:   record.Amount,
	}, nil
}
