package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/money"
)

// ---------------------------------------------------------------------------
// RestructureEngine – rewrites the unpaid future of a schedule
// ---------------------------------------------------------------------------

// Approval is the audit pair every restructure must carry.
type Approval struct {
	ApprovedBy string
	Reason     string
}

// RestructureEngine regenerates the unpaid part of a schedule. Installments
// that have received any money keep their settled amounts; only the unpaid
// principal is moved into newly generated installments, amortized on a
// reducing balance from the restructure date.
type RestructureEngine struct {
	schedules *ScheduleGenerator
	maxTerm   int
}

// NewRestructureEngine bounds every regenerated schedule at maxTerm periods.
func NewRestructureEngine(schedules *ScheduleGenerator, maxTerm int) *RestructureEngine {
	return &RestructureEngine{schedules: schedules, maxTerm: maxTerm}
}

// ExtendTerm re-amortizes outstanding principal over newTermPeriods at the
// loan's current rate.
func (e *RestructureEngine) ExtendTerm(loan model.Loan, newTermPeriods int, a Approval, now time.Time) (model.Loan, model.RestructureRecord, error) {
	if err := e.checkTerm(loan, newTermPeriods); err != nil {
		return loan, model.RestructureRecord{}, err
	}
	return e.reamortize(loan, valueobject.RestructureExtendTerm, newTermPeriods, loan.PeriodicRate(), a, now)
}

// ChangeRate recomputes future interest at newRate on the outstanding
// principal. Principal components and due dates stay as they are. newRate
// follows the loan's rate convention: whole-term for FLAT_RATE loans,
// per-period otherwise.
func (e *RestructureEngine) ChangeRate(loan model.Loan, newRate decimal.Decimal, a Approval, now time.Time) (model.Loan, model.RestructureRecord, error) {
	if err := checkRate(loan, newRate); err != nil {
		return loan, model.RestructureRecord{}, err
	}
	periodic := periodicRate(loan, newRate)
	r := periodic.Div(decimal.NewFromInt(100))
	asOf := valueobject.DateOf(now)

	installments := sortedInstallments(loan)
	balance := loan.OutstandingPrincipal()
	replaced := false
	for i := range installments {
		inst := &installments[i]
		if inst.IsPaid() {
			continue
		}
		if valueobject.DateOf(inst.DueDate).After(asOf) {
			settled := inst.InterestDue.Sub(inst.OutstandingInterest())
			inst.InterestDue = decimal.Max(money.Round(balance.Mul(r)), settled)
			replaced = true
		}
		balance = balance.Sub(inst.OutstandingPrincipal())
	}
	if !replaced {
		return loan, model.RestructureRecord{}, lenderr.StateConflict("no future installments to re-rate").WithLoan(loan.ID())
	}

	return loan.Reschedule(model.RestructurePlan{
		Type:         valueobject.RestructureChangeRate,
		Installments: installments,
		InterestRate: periodic,
		Strategy:     valueobject.ReducingBalance,
		TermPeriods:  len(installments),
	}, a.ApprovedBy, a.Reason, now)
}

// ReduceMonthlyPayment finds the shortest new term, longer than the current
// remaining term, whose level installment is at most target. maxTerm caps the
// search; zero uses the engine default. A target the next installment already
// meets is rejected.
func (e *RestructureEngine) ReduceMonthlyPayment(loan model.Loan, target decimal.Decimal, maxTerm int, a Approval, now time.Time) (model.Loan, model.RestructureRecord, error) {
	if !loan.Status().IsActive() {
		return loan, model.RestructureRecord{}, lenderr.StateConflict("loan is %s and cannot be restructured", loan.Status()).WithLoan(loan.ID())
	}
	if !target.IsPositive() {
		return loan, model.RestructureRecord{}, lenderr.Validation("target_installment", "must be positive").WithLoan(loan.ID()).WithAmount(target)
	}
	if maxTerm <= 0 || (e.maxTerm > 0 && maxTerm > e.maxTerm) {
		maxTerm = e.maxTerm
	}
	principal := loan.OutstandingPrincipal()
	if !principal.IsPositive() {
		return loan, model.RestructureRecord{}, lenderr.StateConflict("no outstanding principal to restructure").WithLoan(loan.ID())
	}

	if current, ok := nextInstallmentAmount(loan, now); ok && current.LessThanOrEqual(target) {
		return loan, model.RestructureRecord{}, lenderr.Validation("target_installment",
			"next installment %s is already at or below %s", current.StringFixed(2), target.StringFixed(2)).WithLoan(loan.ID()).WithAmount(target)
	}

	r := loan.PeriodicRate().Div(decimal.NewFromInt(100))
	remaining := remainingPeriods(loan, now)
	for n := remaining + 1; n <= maxTerm; n++ {
		if model.AmortizedPayment(principal, r, n).LessThanOrEqual(target) {
			return e.reamortize(loan, valueobject.RestructureReducePayment, n, loan.PeriodicRate(), a, now)
		}
	}
	return loan, model.RestructureRecord{}, lenderr.Validation("target_installment",
		"cannot reach %s within %d periods", target.StringFixed(2), maxTerm).WithLoan(loan.ID()).WithAmount(target)
}

// CompleteRestructure changes term and rate together.
func (e *RestructureEngine) CompleteRestructure(loan model.Loan, newTermPeriods int, newRate decimal.Decimal, a Approval, now time.Time) (model.Loan, model.RestructureRecord, error) {
	if err := e.checkTerm(loan, newTermPeriods); err != nil {
		return loan, model.RestructureRecord{}, err
	}
	if err := checkRate(loan, newRate); err != nil {
		return loan, model.RestructureRecord{}, err
	}
	return e.reamortize(loan, valueobject.RestructureComplete, newTermPeriods, periodicRate(loan, newRate), a, now)
}

func (e *RestructureEngine) checkTerm(loan model.Loan, term int) error {
	if term <= 0 {
		return lenderr.Validation("term_periods", "must be positive, got %d", term).WithLoan(loan.ID())
	}
	if e.maxTerm > 0 && term > e.maxTerm {
		return lenderr.Validation("term_periods", "%d exceeds maximum %d", term, e.maxTerm).WithLoan(loan.ID())
	}
	return nil
}

func checkRate(loan model.Loan, rate decimal.Decimal) error {
	if rate.IsNegative() {
		return lenderr.Validation("interest_rate", "must not be negative").WithLoan(loan.ID()).WithAmount(rate)
	}
	return nil
}

// reamortize keeps every installment with history, truncates unpaid principal
// out of them, and spreads that principal over term new installments at
// periodic rate.
func (e *RestructureEngine) reamortize(
	loan model.Loan,
	typ valueobject.RestructureType,
	term int,
	periodic decimal.Decimal,
	a Approval,
	now time.Time,
) (model.Loan, model.RestructureRecord, error) {
	if !loan.Status().IsActive() {
		return loan, model.RestructureRecord{}, lenderr.StateConflict("loan is %s and cannot be restructured", loan.Status()).WithLoan(loan.ID())
	}
	asOf := valueobject.DateOf(now)

	var kept []model.Installment
	moved := decimal.Zero
	lastNumber := 0
	for _, inst := range sortedInstallments(loan) {
		switch {
		case inst.IsPaid():
		case !valueobject.DateOf(inst.DueDate).After(asOf):
			// Already due: interest stays owed, principal moves.
			moved = moved.Add(inst.OutstandingPrincipal())
			inst.PrincipalDue = inst.PrincipalDue.Sub(inst.OutstandingPrincipal())
		case inst.TotalSettled().IsPositive() || inst.PenaltyDue.IsPositive():
			// Future with history: keep what was settled, drop the rest.
			moved = moved.Add(inst.OutstandingPrincipal())
			inst.PrincipalDue = inst.PrincipalDue.Sub(inst.OutstandingPrincipal())
			inst.InterestDue = inst.InterestDue.Sub(inst.OutstandingInterest())
		default:
			moved = moved.Add(inst.OutstandingPrincipal())
			continue
		}
		kept = append(kept, inst)
		if inst.Number > lastNumber {
			lastNumber = inst.Number
		}
	}
	if !moved.IsPositive() {
		return loan, model.RestructureRecord{}, lenderr.StateConflict("no outstanding principal to restructure").WithLoan(loan.ID())
	}

	fresh, err := e.schedules.Build(moved, periodic, term, valueobject.ReducingBalance, loan.TermUnit(), now, lastNumber+1)
	if err != nil {
		return loan, model.RestructureRecord{}, err
	}
	installments := append(kept, fresh...)

	return loan.Reschedule(model.RestructurePlan{
		Type:         typ,
		Installments: installments,
		InterestRate: periodic,
		Strategy:     valueobject.ReducingBalance,
		TermPeriods:  len(installments),
	}, a.ApprovedBy, a.Reason, now)
}

// periodicRate converts rate from the loan's convention to a per-period rate.
func periodicRate(loan model.Loan, rate decimal.Decimal) decimal.Decimal {
	if loan.Strategy() == valueobject.FlatRate && loan.OriginalTermPeriods() > 0 {
		return rate.Div(decimal.NewFromInt(int64(loan.OriginalTermPeriods())))
	}
	return rate
}

// remainingPeriods counts unpaid installments not yet due, at least one.
func remainingPeriods(loan model.Loan, now time.Time) int {
	asOf := valueobject.DateOf(now)
	n := 0
	for _, inst := range loan.Installments() {
		if !inst.IsPaid() && valueobject.DateOf(inst.DueDate).After(asOf) {
			n++
		}
	}
	if n == 0 {
		n = 1
	}
	return n
}

// nextInstallmentAmount is the scheduled principal and interest of the first
// unpaid installment due after now.
func nextInstallmentAmount(loan model.Loan, now time.Time) (decimal.Decimal, bool) {
	asOf := valueobject.DateOf(now)
	for _, inst := range sortedInstallments(loan) {
		if !inst.IsPaid() && valueobject.DateOf(inst.DueDate).After(asOf) {
			return inst.PrincipalDue.Add(inst.InterestDue), true
		}
	}
	return decimal.Zero, false
}

func sortedInstallments(loan model.Loan) []model.Installment {
	installments := loan.Installments()
	sort.SliceStable(installments, func(i, j int) bool { return installments[i].Number < installments[j].Number })
	return installments
}
