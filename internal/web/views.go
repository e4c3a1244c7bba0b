package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/wolfman30/estetica-booking/internal/booking"
	"github.com/wolfman30/estetica-booking/internal/catalog"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("pages").ParseFS(templateFS, "templates/*.html"))

var partLabels = map[catalog.PartID]string{
	"chin":      "Chin",
	"upperlip":  "Upper Lip",
	"underarms": "Underarms",
	"full":      "Full Body",
	"face":      "Face",
	"legs":      "Legs",
	"arms":      "Arms",
	"chest":     "Chest",
	"back":      "Back",
}

func partLabel(id catalog.PartID) string {
	if label, ok := partLabels[id]; ok {
		return label
	}
	return string(id)
}

type choice struct {
	Value    string
	Label    string
	Selected bool
}

type bookingPageData struct {
	Draft      booking.Draft
	Categories []choice
	Tiers      []choice
	Parts      []PartOption
	Total      int
	Outcome    booking.Outcome
	Message    string
}

type confirmationPageData struct {
	Reference string
}

// BookingPage handles GET /.
func (h *Handler) BookingPage(w http.ResponseWriter, r *http.Request) {
	form, ok := h.form(w, r)
	if !ok {
		return
	}
	snap := form.Snapshot()
	data := bookingPageData{
		Draft:   snap.Draft,
		Parts:   h.partOptions(snap.Draft),
		Total:   snap.Total,
		Outcome: snap.Outcome,
		Message: snap.Message,
	}
	for _, c := range catalog.Categories() {
		data.Categories = append(data.Categories, choice{
			Value:    string(c),
			Label:    categoryLabel(c),
			Selected: c == snap.Draft.Category,
		})
	}
	for _, t := range catalog.Tiers() {
		data.Tiers = append(data.Tiers, choice{
			Value:    string(t),
			Label:    tierLabel(t),
			Selected: t == snap.Draft.Tier,
		})
	}
	h.render(w, "booking.html", data)
}

// ConfirmationPage handles GET /paymentsuccess. It only echoes the reference.
func (h *Handler) ConfirmationPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "confirmation.html", confirmationPageData{
		Reference: r.URL.Query().Get("reference"),
	})
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("render page", "template", name, "error", err)
	}
}

func categoryLabel(c catalog.Category) string {
	switch c {
	case catalog.CategoryMen:
		return "Men"
	case catalog.CategoryWomen:
		return "Women"
	default:
		return "Others"
	}
}

func tierLabel(t catalog.Tier) string {
	if t == catalog.TierPackage {
		return "Package"
	}
	return "Trial"
}
