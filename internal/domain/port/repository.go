package port

import (
	"context"
	"time"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/events"
)

// ---------------------------------------------------------------------------
// Repository ports (driven/secondary adapters)
// ---------------------------------------------------------------------------

// LoanRepository persists and retrieves loans with their installments.
// Save inserts a new loan (version 1) or updates an existing one only if the
// stored version still matches; a mismatch is a state conflict.
type LoanRepository interface {
	Save(ctx context.Context, loan model.Loan) error
	FindByID(ctx context.Context, id string) (model.Loan, error)
	FindByApplicationID(ctx context.Context, applicationID string) (model.Loan, error)
	// FindByCustomerID returns the customer's loans, oldest disbursement first,
	// restricted to statuses when any are given.
	FindByCustomerID(ctx context.Context, customerID string, statuses ...valueobject.LoanStatus) ([]model.Loan, error)
	ListIDsByStatus(ctx context.Context, statuses ...valueobject.LoanStatus) ([]string, error)
}

// WaiverRecordRepository is the append-only waiver audit trail.
type WaiverRecordRepository interface {
	Append(ctx context.Context, record model.WaiverRecord) error
	FindByLoanID(ctx context.Context, loanID string) ([]model.WaiverRecord, error)
}

// RestructureRecordRepository is the append-only restructure audit trail.
type RestructureRecordRepository interface {
	Append(ctx context.Context, record model.RestructureRecord) error
	FindByLoanID(ctx context.Context, loanID string) ([]model.RestructureRecord, error)
}

// RolloverRecordRepository links rolled-over loans to their replacements.
type RolloverRecordRepository interface {
	Append(ctx context.Context, record model.RolloverRecord) error
	FindByLoanID(ctx context.Context, loanID string) ([]model.RolloverRecord, error)
}

// SuspensePaymentRepository holds payments that could not be applied.
type SuspensePaymentRepository interface {
	Save(ctx context.Context, payment model.SuspensePayment) error
	FindByID(ctx context.Context, id string) (model.SuspensePayment, error)
	// FindOutstandingByHolders returns NEW and SUSPENSE records keyed by any
	// of refs (or resolved to customerID), oldest receipt first, ties by id.
	FindOutstandingByHolders(ctx context.Context, customerID string, refs ...string) ([]model.SuspensePayment, error)
	// ListOutstandingHolders returns the distinct holder refs with money held.
	ListOutstandingHolders(ctx context.Context) ([]string, error)
}

// PaymentReceiptRepository remembers posted payment references. Record
// fails with a state conflict when the reference was already posted.
type PaymentReceiptRepository interface {
	Record(ctx context.Context, receipt model.PaymentReceipt) error
	FindByReference(ctx context.Context, reference string) (model.PaymentReceipt, error)
}

// Repositories is the set of repositories bound to one unit of work.
type Repositories struct {
	Loans        LoanRepository
	Waivers      WaiverRecordRepository
	Restructures RestructureRecordRepository
	Rollovers    RolloverRecordRepository
	Suspense     SuspensePaymentRepository
	Receipts     PaymentReceiptRepository
	Outbox       events.OutboxRepository
}

// UnitOfWork runs fn atomically. Everything fn writes through repos commits
// together or not at all; returning an error rolls back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	// Repos returns repositories for reads outside a transaction.
	Repos() Repositories
}

// ---------------------------------------------------------------------------
// Concurrency port
// ---------------------------------------------------------------------------

// LoanLocker serialises mutations of one loan across callers. The returned
// release func must be called exactly once.
type LoanLocker interface {
	Lock(ctx context.Context, loanID string) (release func(), err error)
}

// ---------------------------------------------------------------------------
// External collaborator ports
// ---------------------------------------------------------------------------

// ProductCatalog reads product terms owned by the product service.
type ProductCatalog interface {
	FindByID(ctx context.Context, id string) (model.Product, error)
}

// CustomerDirectory resolves a customer by id or phone number.
type CustomerDirectory interface {
	Resolve(ctx context.Context, ref string) (model.Customer, error)
}

// Clock returns the current time. Tests pin it.
type Clock func() time.Time
