package dto

import (
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
)

// FromLoan maps the aggregate to its external representation.
func FromLoan(loan model.Loan) LoanResponse {
	installments := loan.Installments()
	rows := make([]InstallmentResponse, len(installments))
	for i, inst := range installments {
		rows[i] = InstallmentResponse{
			Number:               inst.Number,
			DueDate:              inst.DueDate,
			PrincipalDue:         inst.PrincipalDue,
			InterestDue:          inst.InterestDue,
			PenaltyDue:           inst.PenaltyDue,
			PrincipalPaid:        inst.PrincipalPaid,
			InterestPaid:         inst.InterestPaid,
			PenaltyPaid:          inst.PenaltyPaid,
			PrincipalWaived:      inst.PrincipalWaived,
			InterestWaived:       inst.InterestWaived,
			PenaltyWaived:        inst.PenaltyWaived,
			PrincipalTransferred: inst.PrincipalTransferred,
			Outstanding:          inst.TotalOutstanding(),
			Status:               inst.Status.String(),
			PaidDate:             inst.PaidDate,
			PaymentReference:     inst.PaymentReference,
		}
	}

	return LoanResponse{
		ID:                   loan.ID(),
		ApplicationID:        loan.ApplicationID(),
		CustomerID:           loan.CustomerID(),
		ProductID:            loan.ProductID(),
		Currency:             loan.Currency().Code(),
		Principal:            loan.Principal(),
		InterestRate:         loan.InterestRate(),
		Strategy:             loan.Strategy().String(),
		TermPeriods:          loan.TermPeriods(),
		TermUnit:             loan.TermUnit().String(),
		TotalPayable:         loan.TotalPayable(),
		TotalPaid:            loan.TotalPaid(),
		TotalWaived:          loan.TotalWaived(),
		TotalOutstanding:     loan.TotalOutstanding(),
		OutstandingPrincipal: loan.OutstandingPrincipal(),
		OutstandingInterest:  loan.OutstandingInterest(),
		OutstandingPenalty:   loan.OutstandingPenalty(),
		Status:               loan.Status().String(),
		DisbursedAt:          loan.DisbursedAt(),
		MaturityDate:         loan.MaturityDate(),
		RestructureCount:     loan.RestructureCount(),
		RolledOverFrom:       loan.RolledOverFrom(),
		RolledOverInto:       loan.RolledOverInto(),
		Version:              loan.Version(),
		Installments:         rows,
	}
}
