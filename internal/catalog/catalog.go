// Package catalog resolves which treatment parts are offered for a customer
// category and purchase tier, and prices a selection.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the demographic group a customer books for.
type Category string

// Tier selects the price table: a single trial session or a package.
type Tier string

// PartID names a body-area treatment option.
type PartID string

const (
	CategoryMen    Category = "men"
	CategoryWomen  Category = "women"
	CategoryOthers Category = "others"

	TierTrial   Tier = "trial"
	TierPackage Tier = "package"
)

// tierAliasPermanent is the value older form clients post for the package tier.
const tierAliasPermanent = "permanent"

var (
	// ErrEmptyPartList is returned when a (category, tier) pair offers nothing.
	ErrEmptyPartList = errors.New("catalog: part list is empty")
	// ErrMissingPrice is returned when an offered part has no price in its tier.
	ErrMissingPrice = errors.New("catalog: offered part has no price")
)

// Categories lists the categories in display order.
func Categories() []Category {
	return []Category{CategoryMen, CategoryWomen, CategoryOthers}
}

// Tiers lists the tiers in display order.
func Tiers() []Tier {
	return []Tier{TierTrial, TierPackage}
}

// ParseCategory normalises a submitted category. Unknown values are returned
// unchanged so lookups fail closed.
func ParseCategory(raw string) Category {
	return Category(strings.ToLower(strings.TrimSpace(raw)))
}

// ParseTier normalises a submitted tier, mapping the legacy "permanent" value
// to the package tier.
func ParseTier(raw string) Tier {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == tierAliasPermanent {
		return TierPackage
	}
	return Tier(v)
}

// StoreValue is the tier as the booking store and payment notes record it.
// The package tier is stored under its legacy name.
func (t Tier) StoreValue() string {
	if t == TierPackage {
		return tierAliasPermanent
	}
	return string(t)
}

// PriceTable maps each part to a whole-unit price for one tier.
type PriceTable map[PartID]int

// Catalog is an immutable view of the offered parts, their prices and the
// coupon rules. It is safe for concurrent use.
type Catalog struct {
	parts   map[Category]map[Tier][]PartID
	prices  map[Tier]PriceTable
	coupons Coupons
}

// New builds a catalog and checks that every pair offers at least one part and
// every offered part is priced in its tier.
func New(parts map[Category]map[Tier][]PartID, prices map[Tier]PriceTable, coupons Coupons) (*Catalog, error) {
	c := &Catalog{
		parts:   make(map[Category]map[Tier][]PartID, len(parts)),
		prices:  make(map[Tier]PriceTable, len(prices)),
		coupons: coupons,
	}
	for tier, table := range prices {
		copied := make(PriceTable, len(table))
		for part, price := range table {
			copied[part] = price
		}
		c.prices[tier] = copied
	}
	for category, byTier := range parts {
		c.parts[category] = make(map[Tier][]PartID, len(byTier))
		for tier, list := range byTier {
			if len(list) == 0 {
				return nil, fmt.Errorf("%w: %s/%s", ErrEmptyPartList, category, tier)
			}
			for _, part := range list {
				if _, ok := c.prices[tier][part]; !ok {
					return nil, fmt.Errorf("%w: %s/%s/%s", ErrMissingPrice, category, tier, part)
				}
			}
			c.parts[category][tier] = append([]PartID(nil), list...)
		}
	}
	return c, nil
}

// Default returns the production catalog with the given coupon rules.
func Default(coupons Coupons) *Catalog {
	trial := []PartID{"chin", "upperlip", "underarms"}
	pkg := []PartID{"full", "face", "legs", "arms", "chest", "back"}

	parts := make(map[Category]map[Tier][]PartID)
	for _, category := range Categories() {
		parts[category] = map[Tier][]PartID{
			TierTrial:   trial,
			TierPackage: pkg,
		}
	}
	prices := map[Tier]PriceTable{
		TierTrial: {
			"chin":      2000,
			"upperlip":  2000,
			"underarms": 2000,
		},
		TierPackage: {
			"full":  11000,
			"face":  3000,
			"legs":  5000,
			"arms":  6000,
			"chest": 4000,
			"back":  3500,
		},
	}
	c, err := New(parts, prices, coupons)
	if err != nil {
		panic(err)
	}
	return c
}

// AvailableParts returns the parts offered for the pair, in display order.
// An unknown pair yields an empty slice.
func (c *Catalog) AvailableParts(category Category, tier Tier) []PartID {
	list := c.parts[category][tier]
	if len(list) == 0 {
		return []PartID{}
	}
	return append([]PartID(nil), list...)
}

// Offers reports whether part is available for the pair.
func (c *Catalog) Offers(category Category, tier Tier, part PartID) bool {
	for _, p := range c.parts[category][tier] {
		if p == part {
			return true
		}
	}
	return false
}

// UnitPrice returns the price of part in tier. A false result means the
// catalog is misconfigured, not that the customer did something wrong.
func (c *Catalog) UnitPrice(tier Tier, part PartID) (int, bool) {
	price, ok := c.prices[tier][part]
	return price, ok
}

// Subtotal sums unit prices of the selection. Unpriced parts contribute zero.
func (c *Catalog) Subtotal(tier Tier, parts []PartID) int {
	total := 0
	for _, part := range parts {
		if price, ok := c.UnitPrice(tier, part); ok {
			total += price
		}
	}
	return total
}

// TotalPrice prices the selection and applies at most one coupon, rounding
// down to whole units.
func (c *Catalog) TotalPrice(tier Tier, parts []PartID, coupon string) int {
	return c.coupons.Apply(c.Subtotal(tier, parts), coupon)
}

// Coupons exposes the configured discount rules.
func (c *Catalog) Coupons() Coupons {
	return c.coupons
}
