package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/lenderr"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/port"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/money"
	pgpkg "github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/postgres"
)

// ProductCatalog reads the replicated products table.
type ProductCatalog struct {
	q pgpkg.Querier
}

func NewProductCatalog(q pgpkg.Querier) *ProductCatalog {
	return &ProductCatalog{q: q}
}

var _ port.ProductCatalog = (*ProductCatalog)(nil)

func (c *ProductCatalog) FindByID(ctx context.Context, id string) (model.Product, error) {
	var (
		p                            model.Product
		currency, strategy, termUnit string
	)
	err := c.q.QueryRow(ctx, `
		SELECT id, name, currency, min_principal, max_principal, interest_rate, strategy,
		       term_periods, min_term_periods, max_term_periods, term_unit,
		       penalty_rate_per_annum, application_fee, default_after_days, active
		FROM products WHERE id = $1`, id).Scan(
		&p.ID, &p.Name, &currency, &p.MinPrincipal, &p.MaxPrincipal, &p.InterestRate, &strategy,
		&p.TermPeriods, &p.MinTermPeriods, &p.MaxTermPeriods, &termUnit,
		&p.PenaltyRatePerAnnum, &p.ApplicationFee, &p.DefaultAfterDays, &p.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Product{}, lenderr.NotFound("product", id)
		}
		return model.Product{}, fmt.Errorf("find product %s: %w", id, err)
	}
	if p.Currency, err = money.NewCurrency(currency); err != nil {
		return model.Product{}, err
	}
	if p.Strategy, err = valueobject.ParseInterestStrategy(strategy); err != nil {
		return model.Product{}, err
	}
	if p.TermUnit, err = valueobject.ParseTermUnit(termUnit); err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// UpsertProduct replicates a product record.
func (c *ProductCatalog) UpsertProduct(ctx context.Context, p model.Product) error {
	_, err := c.q.Exec(ctx, `
		INSERT INTO products (
			id, name, currency, min_principal, max_principal, interest_rate, strategy,
			term_periods, min_term_periods, max_term_periods, term_unit,
			penalty_rate_per_annum, application_fee, default_after_days, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, currency = EXCLUDED.currency,
			min_principal = EXCLUDED.min_principal, max_principal = EXCLUDED.max_principal,
			interest_rate = EXCLUDED.interest_rate, strategy = EXCLUDED.strategy,
			term_periods = EXCLUDED.term_periods, min_term_periods = EXCLUDED.min_term_periods,
			max_term_periods = EXCLUDED.max_term_periods, term_unit = EXCLUDED.term_unit,
			penalty_rate_per_annum = EXCLUDED.penalty_rate_per_annum,
			application_fee = EXCLUDED.application_fee,
			default_after_days = EXCLUDED.default_after_days, active = EXCLUDED.active`,
		p.ID, p.Name, p.Currency.Code(), p.MinPrincipal, p.MaxPrincipal, p.InterestRate, p.Strategy.String(),
		p.TermPeriods, p.MinTermPeriods, p.MaxTermPeriods, p.TermUnit.String(),
		p.PenaltyRatePerAnnum, p.ApplicationFee, p.DefaultAfterDays, p.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert product %s: %w", p.ID, err)
	}
	return nil
}

// CustomerDirectory resolves customers by id or phone number.
type CustomerDirectory struct {
	q pgpkg.Querier
}

func NewCustomerDirectory(q pgpkg.Querier) *CustomerDirectory {
	return &CustomerDirectory{q: q}
}

var _ port.CustomerDirectory = (*CustomerDirectory)(nil)

// Resolve prefers an id match over a phone match.
func (d *CustomerDirectory) Resolve(ctx context.Context, ref string) (model.Customer, error) {
	var c model.Customer
	err := d.q.QueryRow(ctx, `
		SELECT id, phone, name, active FROM customers
		WHERE id = $1 OR (phone <> '' AND phone = $1)
		ORDER BY (id = $1) DESC
		LIMIT 1`, ref).Scan(&c.ID, &c.Phone, &c.Name, &c.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Customer{}, lenderr.NotFound("customer", ref)
		}
		return model.Customer{}, fmt.Errorf("resolve customer %s: %w", ref, err)
	}
	return c, nil
}

// UpsertCustomer replicates a customer record.
func (d *CustomerDirectory) UpsertCustomer(ctx context.Context, c model.Customer) error {
	_, err := d.q.Exec(ctx, `
		INSERT INTO customers (id, phone, name, active) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET phone = EXCLUDED.phone, name = EXCLUDED.name, active = EXCLUDED.active`,
		c.ID, c.Phone, c.Name, c.Active)
	if err != nil {
		return fmt.Errorf("upsert customer %s: %w", c.ID, err)
	}
	return nil
}
