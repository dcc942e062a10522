package entity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPromoCode is returned for codes not present in the promo table.
var ErrInvalidPromoCode = errors.New("invalid promo code")

// promoRates is the fixed table of valid promo codes. Lookup is
// case-insensitive; rates are fractions of the subtotal.
var promoRates = map[string]float64{
	"SAVE10":   0.10,
	"SAVE20":   0.20,
	"WELCOME5": 0.05,
}

// LookupPromo validates a promo code and yields its discount rate. It has no
// side effects: an invalid code leaves whatever promo the caller holds
// untouched.
func LookupPromo(code string) (AppliedPromo, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	rate, ok := promoRates[normalized]
	if !ok {
		return AppliedPromo{}, fmt.Errorf("%w: %q", ErrInvalidPromoCode, code)
	}
	return AppliedPromo{Code: normalized, Rate: rate}, nil
}
