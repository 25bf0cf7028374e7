package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/service"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
)

// accruingStatuses are the statuses still charged late penalty.
var accruingStatuses = []valueobject.LoanStatus{
	valueobject.LoanStatusCurrent,
	valueobject.LoanStatusArrears,
	valueobject.LoanStatusDefaulted,
}

// AccruePenaltiesUseCase runs the daily penalty pass. It also moves loans
// past their product's default threshold to DEFAULTED.
type AccruePenaltiesUseCase struct {
	deps      Deps
	penalties *service.PenaltyAccrualEngine
}

// NewAccruePenaltiesUseCase wires dependencies.
func NewAccruePenaltiesUseCase(deps Deps, engines Engines) *AccruePenaltiesUseCase {
	return &AccruePenaltiesUseCase{deps: deps, penalties: engines.Penalties}
}

type accrualOutcome struct {
	accrued   decimal.Decimal
	defaulted bool
}

// Execute accrues req.LoanID, or sweeps every open loan when it is empty.
func (uc *AccruePenaltiesUseCase) Execute(ctx context.Context, req dto.AccruePenaltiesRequest) (dto.PenaltyRunResponse, error) {
	now := uc.deps.now()
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = now
	}

	if req.LoanID != "" {
		out, err := uc.accrueOne(ctx, req.LoanID, asOf, now)
		if err != nil {
			return dto.PenaltyRunResponse{}, err
		}
		resp := dto.PenaltyRunResponse{Loans: 1, Accrued: out.accrued}
		if out.defaulted {
			resp.Defaulted = 1
		}
		return resp, nil
	}

	ids, err := uc.deps.UoW.Repos().Loans.ListIDsByStatus(ctx, accruingStatuses...)
	if err != nil {
		return dto.PenaltyRunResponse{}, fmt.Errorf("list open loans: %w", err)
	}

	var (
		mu   sync.Mutex
		resp = dto.PenaltyRunResponse{Loans: len(ids), Accrued: decimal.Zero}
	)
	batch := uc.deps.runBatch(ctx, len(ids), func(ctx context.Context, i int) (string, error) {
		out, err := uc.accrueOne(ctx, ids[i], asOf, now)
		if err != nil {
			return ids[i], err
		}
		mu.Lock()
		resp.Accrued = resp.Accrued.Add(out.accrued)
		if out.defaulted {
			resp.Defaulted++
		}
		mu.Unlock()
		return ids[i], nil
	})
	for _, r := range batch.Results {
		if r.Error != "" {
			resp.Failures = append(resp.Failures, r)
		}
	}

	uc.deps.logger().Info("penalty run complete",
		"as_of", asOf.Format(time.DateOnly),
		"loans", resp.Loans,
		"accrued", resp.Accrued.String(),
		"defaulted", resp.Defaulted,
		"failures", len(resp.Failures),
	)
	return resp, nil
}

func (uc *AccruePenaltiesUseCase) accrueOne(ctx context.Context, loanID string, asOf, now time.Time) (accrualOutcome, error) {
	out := accrualOutcome{accrued: decimal.Zero}
	err := uc.deps.withLock(ctx, loanID, func() error {
		return uc.deps.inTx(ctx, func(ctx context.Context, scope *txScope) error {
			loan, err := scope.repos.Loans.FindByID(ctx, loanID)
			if err != nil {
				return fmt.Errorf("find loan: %w", err)
			}
			if !loan.Status().AcceptsWaivers() {
				return nil
			}
			product, err := uc.deps.Products.FindByID(ctx, loan.ProductID())
			if err != nil {
				return fmt.Errorf("find product: %w", err)
			}

			// 1. Raise penalties on overdue installments.
			next, accrued, err := uc.penalties.AccrueLoan(loan, product.PenaltyRatePerAnnum, asOf, now)
			if err != nil {
				return err
			}
			out.accrued = accrued

			// 2. Classify as defaulted once past the product threshold.
			if product.DefaultAfterDays > 0 && next.Status().IsActive() {
				if dpd := next.DaysPastDue(asOf); dpd >= product.DefaultAfterDays {
					next, err = next.MarkDefaulted(dpd, now)
					if err != nil {
						return err
					}
					out.defaulted = true
				}
			}

			if !accrued.IsPositive() && !out.defaulted && next.Status().Equal(loan.Status()) {
				return nil
			}
			_, err = scope.saveLoan(ctx, next)
			return err
		})
	})
	return out, err
}
