package usecase

import (
	"context"
	"fmt"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
)

// GetLoanUseCase reads a loan with statuses derived as of today.
type GetLoanUseCase struct {
	deps Deps
}

func NewGetLoanUseCase(deps Deps) *GetLoanUseCase {
	return &GetLoanUseCase{deps: deps}
}

func (uc *GetLoanUseCase) Execute(ctx context.Context, req dto.GetLoanRequest) (dto.LoanResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.LoanResponse{}, err
	}
	loan, err := uc.deps.UoW.Repos().Loans.FindByID(ctx, req.LoanID)
	if err != nil {
		return dto.LoanResponse{}, fmt.Errorf("find loan: %w", err)
	}
	return dto.FromLoan(loan.Refresh(uc.deps.now())), nil
}
