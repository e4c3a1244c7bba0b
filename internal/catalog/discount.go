package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// DiscountRule takes PercentOff percent off the subtotal when Code matches.
type DiscountRule struct {
	Code       string
	PercentOff int
}

// Factor is the multiplier the rule applies, e.g. 0.75 for 25% off.
func (r DiscountRule) Factor() float64 {
	return float64(100-r.PercentOff) / 100
}

// Coupons is a set of discount rules keyed by exact code.
type Coupons map[string]DiscountRule

// DefaultCoupons returns the two launch codes.
func DefaultCoupons() Coupons {
	return Coupons{
		"SNYLLO25": {Code: "SNYLLO25", PercentOff: 25},
		"SNYLLO40": {Code: "SNYLLO40", PercentOff: 40},
	}
}

// ParseCoupons reads rules in the form "CODE:PERCENT,CODE:PERCENT".
func ParseCoupons(raw string) (Coupons, error) {
	out := Coupons{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		code, pct, ok := strings.Cut(entry, ":")
		code = strings.TrimSpace(code)
		if !ok || code == "" {
			return nil, fmt.Errorf("catalog: invalid coupon rule %q", entry)
		}
		percent, err := strconv.Atoi(strings.TrimSpace(pct))
		if err != nil || percent < 0 || percent > 100 {
			return nil, fmt.Errorf("catalog: invalid coupon percent in %q", entry)
		}
		out[code] = DiscountRule{Code: code, PercentOff: percent}
	}
	return out, nil
}

// Lookup finds the rule for code. Codes match exactly, including case.
func (c Coupons) Lookup(code string) (DiscountRule, bool) {
	if code == "" {
		return DiscountRule{}, false
	}
	rule, ok := c[code]
	return rule, ok
}

// Apply discounts subtotal by the matching rule, if any.
func (c Coupons) Apply(subtotal int, code string) int {
	rule, ok := c.Lookup(code)
	if !ok {
		return subtotal
	}
	return subtotal * (100 - rule.PercentOff) / 100
}
