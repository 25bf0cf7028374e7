package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/model"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/internal/domain/valueobject"
	"github.com/stanley0001/Sacco-Management-backend-API--sub002/pkg/money"
)

// Seed is the reference data document accepted by LoadSeed.
type Seed struct {
	Products  []SeedProduct  `json:"products"`
	Customers []SeedCustomer `json:"customers"`
}

type SeedProduct struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Currency            string          `json:"currency"`
	MinPrincipal        decimal.Decimal `json:"min_principal"`
	MaxPrincipal        decimal.Decimal `json:"max_principal"`
	InterestRate        decimal.Decimal `json:"interest_rate"`
	Strategy            string          `json:"interest_strategy"`
	TermPeriods         int             `json:"term_periods"`
	MinTermPeriods      int             `json:"min_term_periods"`
	MaxTermPeriods      int             `json:"max_term_periods"`
	TermUnit            string          `json:"term_unit"`
	PenaltyRatePerAnnum decimal.Decimal `json:"penalty_rate_per_annum"`
	ApplicationFee      decimal.Decimal `json:"application_fee"`
	DefaultAfterDays    int             `json:"default_after_days"`
	Active              bool            `json:"active"`
}

type SeedCustomer struct {
	ID     string `json:"id"`
	Phone  string `json:"phone"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// LoadSeed reads a JSON Seed and puts every product and customer. Nothing
// is stored unless the whole document parses.
func (s *Store) LoadSeed(r io.Reader) (products, customers int, err error) {
	var seed Seed
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return 0, 0, fmt.Errorf("decode seed: %w", err)
	}

	parsed := make([]model.Product, 0, len(seed.Products))
	for _, sp := range seed.Products {
		p, err := sp.toModel()
		if err != nil {
			return 0, 0, fmt.Errorf("product %q: %w", sp.ID, err)
		}
		parsed = append(parsed, p)
	}
	for _, c := range seed.Customers {
		if c.ID == "" {
			return 0, 0, errors.New("customer without id")
		}
	}

	for _, p := range parsed {
		s.PutProduct(p)
	}
	for _, c := range seed.Customers {
		s.PutCustomer(model.Customer{ID: c.ID, Phone: c.Phone, Name: c.Name, Active: c.Active})
	}
	return len(parsed), len(seed.Customers), nil
}

func (sp SeedProduct) toModel() (model.Product, error) {
	if sp.ID == "" {
		return model.Product{}, errors.New("missing id")
	}
	currency, err := money.NewCurrency(sp.Currency)
	if err != nil {
		return model.Product{}, err
	}
	strategy, err := valueobject.ParseInterestStrategy(sp.Strategy)
	if err != nil {
		return model.Product{}, err
	}
	unit, err := valueobject.ParseTermUnit(sp.TermUnit)
	if err != nil {
		return model.Product{}, err
	}
	return model.Product{
		ID:                  sp.ID,
		Name:                sp.Name,
		Currency:            currency,
		MinPrincipal:        sp.MinPrincipal,
		MaxPrincipal:        sp.MaxPrincipal,
		InterestRate:        sp.InterestRate,
		Strategy:            strategy,
		TermPeriods:         sp.TermPeriods,
		MinTermPeriods:      sp.MinTermPeriods,
		MaxTermPeriods:      sp.MaxTermPeriods,
		TermUnit:            unit,
		PenaltyRatePerAnnum: sp.PenaltyRatePerAnnum,
		ApplicationFee:      sp.ApplicationFee,
		DefaultAfterDays:    sp.DefaultAfterDays,
		Active:              sp.Active,
	}, nil
}
