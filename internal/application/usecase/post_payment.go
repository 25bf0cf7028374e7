package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/application/dto"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/service"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
)

// PostPaymentUseCase allocates an incoming repayment. Money that cannot be
// matched to an active loan is parked in suspense rather than rejected.
type PostPaymentUseCase struct {
	deps       Deps
	allocator  *service.PaymentAllocator
	reconciler customerReconciler
}

// NewPostPaymentUseCase wires dependencies.
func NewPostPaymentUseCase(deps Deps, engines Engines, reconciler customerReconciler) *PostPaymentUseCase {
	return &PostPaymentUseCase{
		deps:       deps,
		allocator:  engines.Allocator,
		reconciler: reconciler,
	}
}

// Execute posts one payment.
func (uc *PostPaymentUseCase) Execute(ctx context.Context, req dto.PostPaymentRequest) (dto.PaymentResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.PaymentResponse{}, err
	}
	if !req.Amount.Equal(req.Amount.Round(2)) {
		return dto.PaymentResponse{}, lenderr.Validation("amount", "must have at most 2 decimal places").WithAmount(req.Amount)
	}
	now := uc.deps.now()
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = now
	}
	if err := uc.checkNotPosted(ctx, req.Reference); err != nil {
		return dto.PaymentResponse{}, err
	}

	var (
		resp dto.PaymentResponse
		err  error
	)
	if req.LoanID != "" {
		resp, err = uc.toLoan(ctx, req, req.LoanID, true, now)
	} else {
		resp, err = uc.toHolder(ctx, req, now)
	}
	if err != nil {
		return dto.PaymentResponse{}, err
	}

	uc.deps.logger().Info("payment posted",
		"reference", req.Reference,
		"loan_id", resp.LoanID,
		"applied", resp.Applied.String(),
		"suspended", resp.Suspended.String(),
	)
	return resp, nil
}

// ExecuteBatch posts every item independently.
func (uc *PostPaymentUseCase) ExecuteBatch(ctx context.Context, req dto.BatchPostPaymentsRequest) (dto.BatchResponse, error) {
	if err := dto.Validate(req); err != nil {
		return dto.BatchResponse{}, err
	}
	return uc.deps.runBatch(ctx, len(req.Items), func(ctx context.Context, i int) (string, error) {
		resp, err := uc.Execute(ctx, req.Items[i])
		if resp.LoanID != "" {
			return resp.LoanID, err
		}
		return resp.SuspenseID, err
	}), nil
}

// toHolder resolves the payer and picks the oldest active loan.
func (uc *PostPaymentUseCase) toHolder(ctx context.Context, req dto.PostPaymentRequest, now time.Time) (dto.PaymentResponse, error) {
	customer, err := uc.deps.Customers.Resolve(ctx, req.HolderRef)
	if errors.Is(err, lenderr.ErrNotFound) {
		return uc.suspendOnly(ctx, req, "", valueobject.ReasonMissingCustomer, now)
	}
	if err != nil {
		return dto.PaymentResponse{}, fmt.Errorf("resolve customer: %w", err)
	}

	loans, err := uc.deps.UoW.Repos().Loans.FindByCustomerID(ctx, customer.ID, valueobject.ActiveLoanStatuses...)
	if err != nil {
		return dto.PaymentResponse{}, fmt.Errorf("find customer loans: %w", err)
	}
	if len(loans) == 0 {
		return uc.suspendOnly(ctx, req, customer.ID, valueobject.ReasonNoActiveLoan, now)
	}
	return uc.toLoan(ctx, req, loans[0].ID(), false, now)
}

// toLoan allocates to loanID. When the loan was picked on the payer's behalf
// and has since closed, the payment goes to suspense instead of failing.
func (uc *PostPaymentUseCase) toLoan(
	ctx context.Context,
	req dto.PostPaymentRequest,
	loanID string,
	explicit bool,
	now time.Time,
) (dto.PaymentResponse, error) {
	var (
		resp       dto.PaymentResponse
		customerID string
	)
	err := uc.deps.withLock(ctx, loanID, func() error {
		return uc.deps.inTx(ctx, func(ctx context.Context, scope *txScope) error {
			// 1. Reload the loan under the lock.
			loan, err := scope.repos.Loans.FindByID(ctx, loanID)
			if err != nil {
				return fmt.Errorf("find loan: %w", err)
			}
			customerID = loan.CustomerID()

			if !loan.Status().IsActive() {
				if explicit {
					return lenderr.StateConflict("loan is %s", loan.Status()).WithLoan(loanID)
				}
				if resp, err = suspend(ctx, scope, req, req.Amount, loan.CustomerID(), valueobject.ReasonNoActiveLoan, now); err != nil {
					return err
				}
				return recordReceipt(ctx, scope, req, resp, now)
			}

			// 2. Allocate through the waterfall.
			next, alloc, err := uc.allocator.Apply(loan, req.Amount, req.Reference, now)
			if err != nil {
				return err
			}
			saved, err := scope.saveLoan(ctx, next)
			if err != nil {
				return err
			}
			resp = paymentResponse(req.Reference, saved, alloc)

			// 3. Park any overpayment.
			if alloc.Remainder.IsPositive() {
				held, err := suspend(ctx, scope, req, alloc.Remainder, saved.CustomerID(), valueobject.ReasonOverpayment, now)
				if err != nil {
					return err
				}
				resp.Suspended = held.Suspended
				resp.SuspenseID = held.SuspenseID
				resp.SuspenseReason = held.SuspenseReason
			}
			return recordReceipt(ctx, scope, req, resp, now)
		})
	})
	if err != nil {
		return dto.PaymentResponse{}, err
	}

	// 4. Another active loan of the same customer may absorb what was parked.
	if resp.SuspenseID != "" {
		reconcileAfterCommit(ctx, uc.deps, uc.reconciler, customerID)
	}
	return resp, nil
}

func (uc *PostPaymentUseCase) suspendOnly(
	ctx context.Context,
	req dto.PostPaymentRequest,
	customerID string,
	reason valueobject.ExceptionReason,
	now time.Time,
) (dto.PaymentResponse, error) {
	var resp dto.PaymentResponse
	err := uc.deps.inTx(ctx, func(ctx context.Context, scope *txScope) error {
		var err error
		if resp, err = suspend(ctx, scope, req, req.Amount, customerID, reason, now); err != nil {
			return err
		}
		return recordReceipt(ctx, scope, req, resp, now)
	})
	if err != nil {
		return dto.PaymentResponse{}, err
	}
	uc.deps.logger().Warn("payment held in suspense",
		"reference", req.Reference,
		"holder_ref", req.HolderRef,
		"reason", string(reason),
	)
	return resp, nil
}

// checkNotPosted rejects a reference that is already on record. The receipt
// written inside the posting transaction is what guarantees uniqueness.
func (uc *PostPaymentUseCase) checkNotPosted(ctx context.Context, reference string) error {
	prev, err := uc.deps.UoW.Repos().Receipts.FindByReference(ctx, reference)
	if errors.Is(err, lenderr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find payment receipt: %w", err)
	}
	return lenderr.StateConflict("payment reference %s was already posted", reference).WithLoan(prev.LoanID)
}

func recordReceipt(ctx context.Context, scope *txScope, req dto.PostPaymentRequest, resp dto.PaymentResponse, now time.Time) error {
	return scope.repos.Receipts.Record(ctx, model.PaymentReceipt{
		Reference:  req.Reference,
		LoanID:     resp.LoanID,
		SuspenseID: resp.SuspenseID,
		Amount:     req.Amount,
		ReceivedAt: req.ReceivedAt,
		PostedAt:   now,
	})
}

func suspend(
	ctx context.Context,
	scope *txScope,
	req dto.PostPaymentRequest,
	amount decimal.Decimal,
	customerID string,
	reason valueobject.ExceptionReason,
	now time.Time,
) (dto.PaymentResponse, error) {
	payment, err := model.NewSuspensePayment(req.HolderRef, customerID, amount, reason, req.Reference, req.ReceivedAt, now)
	if err != nil {
		return dto.PaymentResponse{}, err
	}
	if _, err := scope.saveSuspense(ctx, payment); err != nil {
		return dto.PaymentResponse{}, err
	}
	return dto.PaymentResponse{
		Reference:      req.Reference,
		Applied:        decimal.Zero,
		Penalty:        decimal.Zero,
		Interest:       decimal.Zero,
		Principal:      decimal.Zero,
		Suspended:      amount,
		SuspenseID:     payment.ID(),
		SuspenseReason: string(reason),
		Outstanding:    decimal.Zero,
	}, nil
}

func paymentResponse(reference string, loan model.Loan, alloc service.Allocation) dto.PaymentResponse {
	return dto.PaymentResponse{
		Reference:   reference,
		LoanID:      loan.ID(),
		Applied:     alloc.Applied,
		Penalty:     model.SumLines(alloc.Lines, valueobject.ComponentPenalty),
		Interest:    model.SumLines(alloc.Lines, valueobject.ComponentInterest),
		Principal:   model.SumLines(alloc.Lines, valueobject.ComponentPrincipal),
		Suspended:   decimal.Zero,
		Outstanding: loan.TotalOutstanding(),
		LoanStatus:  loan.Status().String(),
	}
}
