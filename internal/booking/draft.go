// Package booking holds the per-session booking form: the draft, its
// validation, and the submission state machine.
package booking

import (
	"fmt"
	"strings"

	"github.com/wolfman30/estetica-booking/internal/catalog"
)

// Wire names of the draft fields, as posted by the form.
const (
	FieldName         = "name"
	FieldPhone        = "phoneNumber"
	FieldEmail        = "email"
	FieldCategory     = "gender"
	FieldTier         = "purchaseType"
	FieldDate         = "selectedDate"
	FieldCoupon       = "coupon"
	FieldSelectedPart = "selectedBodyParts"
)

// Draft is the mutable record behind one form session.
type Draft struct {
	Name     string           `json:"name"`
	Phone    string           `json:"phoneNumber"`
	Email    string           `json:"email"`
	Category catalog.Category `json:"gender"`
	Tier     catalog.Tier     `json:"purchaseType"`
	Parts    []catalog.PartID `json:"selectedBodyParts"`
	Date     string           `json:"selectedDate"`
	Coupon   string           `json:"coupon"`
}

// NewDraft returns the draft a fresh form starts with.
func NewDraft() Draft {
	return Draft{
		Category: catalog.CategoryWomen,
		Tier:     catalog.TierTrial,
		Parts:    []catalog.PartID{},
	}
}

// Clear empties every field, including category and tier.
func (d *Draft) Clear() {
	*d = Draft{Parts: []catalog.PartID{}}
}

// Clone returns a deep copy.
func (d Draft) Clone() Draft {
	d.Parts = append([]catalog.PartID{}, d.Parts...)
	return d
}

// HasPart reports whether part is selected.
func (d *Draft) HasPart(part catalog.PartID) bool {
	for _, p := range d.Parts {
		if p == part {
			return true
		}
	}
	return false
}

// TogglePart selects part if absent and deselects it if present.
func (d *Draft) TogglePart(part catalog.PartID) {
	for i, p := range d.Parts {
		if p == part {
			d.Parts = append(d.Parts[:i:i], d.Parts[i+1:]...)
			return
		}
	}
	d.Parts = append(d.Parts, part)
}

// Set applies a single field edit by wire name. Changing the category or tier
// drops selected parts the catalog does not offer for the new pair.
func (d *Draft) Set(field, value string, cat *catalog.Catalog) error {
	switch field {
	case FieldName:
		d.Name = value
	case FieldPhone:
		d.Phone = value
	case FieldEmail:
		d.Email = value
	case FieldDate:
		d.Date = value
	case FieldCoupon:
		d.Coupon = value
	case FieldCategory:
		d.Category = catalog.ParseCategory(value)
		d.prune(cat)
	case FieldTier:
		d.Tier = catalog.ParseTier(value)
		d.prune(cat)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

func (d *Draft) prune(cat *catalog.Catalog) {
	if cat == nil {
		return
	}
	kept := d.Parts[:0]
	for _, p := range d.Parts {
		if cat.Offers(d.Category, d.Tier, p) {
			kept = append(kept, p)
		}
	}
	d.Parts = kept
}

// PartNames returns the selected parts as plain strings.
func (d *Draft) PartNames() []string {
	out := make([]string, 0, len(d.Parts))
	for _, p := range d.Parts {
		out = append(out, string(p))
	}
	return out
}

// IsEmpty reports whether the draft holds nothing at all.
func (d *Draft) IsEmpty() bool {
	return strings.TrimSpace(d.Name+d.Phone+d.Email+d.Date+d.Coupon+string(d.Category)+string(d.Tier)) == "" &&
		len(d.Parts) == 0
}
