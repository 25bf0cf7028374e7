package valueobject

import "fmt"

// Component is one money bucket of an installment. Payments settle them in
// waterfall order: penalty, then interest, then principal.
type Component string

const (
	ComponentPenalty   Component = "PENALTY"
	ComponentInterest  Component = "INTEREST"
	ComponentPrincipal Component = "PRINCIPAL"
)

// Waterfall is the order in which cash settles an installment.
var Waterfall = []Component{ComponentPenalty, ComponentInterest, ComponentPrincipal}

// ParseComponent validates s.
func ParseComponent(s string) (Component, error) {
	switch v := Component(s); v {
	case ComponentPenalty, ComponentInterest, ComponentPrincipal:
		return v, nil
	}
	return "", fmt.Errorf("invalid component: %q", s)
}

// WaiverType is recorded on every waiver.
type WaiverType string

const (
	WaiverInterest  WaiverType = "INTEREST"
	WaiverPenalty   WaiverType = "PENALTY"
	WaiverPrincipal WaiverType = "PRINCIPAL"
	WaiverFull      WaiverType = "FULL"
)

// WaiverTypeFor maps a component to its waiver type.
func WaiverTypeFor(c Component) WaiverType {
	switch c {
	case ComponentPenalty:
		return WaiverPenalty
	case ComponentInterest:
		return WaiverInterest
	default:
		return WaiverPrincipal
	}
}

// RestructureType is recorded on every restructure.
type RestructureType string

const (
	RestructureExtendTerm    RestructureType = "EXTEND_TERM"
	RestructureChangeRate    RestructureType = "CHANGE_RATE"
	RestructureReducePayment RestructureType = "REDUCE_PAYMENT"
	RestructureComplete      RestructureType = "COMPLETE"
)
