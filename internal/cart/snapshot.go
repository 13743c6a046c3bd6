package cart

import (
	"github.com/dwayee/storefront/pkg/dwayee"
	"github.com/shopspring/decimal"
)

// Line is one medication in the cart.
type Line struct {
	MedicationID string
	Name         string
	ImageURL     string
	PharmacyName string
	UnitPrice    decimal.Decimal
	Quantity     int
}

// LineTotal is UnitPrice * Quantity.
func (l Line) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is an immutable copy of the cart. Lines keep the API's order and
// hold at most one entry per medication.
type Snapshot struct {
	Lines   []Line
	Version uint64
}

// Subtotal is recomputed from the lines on every call.
func (s Snapshot) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.Lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// ItemCount is the number of units across all lines.
func (s Snapshot) ItemCount() int {
	n := 0
	for _, l := range s.Lines {
		n += l.Quantity
	}
	return n
}

func (s Snapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

// Line looks up the line of a medication.
func (s Snapshot) Line(medicationID string) (Line, bool) {
	for _, l := range s.Lines {
		if l.MedicationID == medicationID {
			return l, true
		}
	}
	return Line{}, false
}

// FreeShippingRemaining is how much more the shopper must spend to reach threshold, never negative.
func (s Snapshot) FreeShippingRemaining(threshold decimal.Decimal) decimal.Decimal {
	remaining := threshold.Sub(s.Subtotal())
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{Version: s.Version, Lines: make([]Line, len(s.Lines))}
	copy(out.Lines, s.Lines)
	return out
}

// linesFromPayload maps the API cart, folding repeated medications into one line.
func linesFromPayload(payload *dwayee.CartPayload) []Line {
	if payload == nil {
		return []Line{}
	}
	lines := make([]Line, 0, len(payload.Items))
	index := make(map[string]int, len(payload.Items))
	for _, it := range payload.Items {
		if i, ok := index[it.MedicationID]; ok {
			lines[i].Quantity += it.Quantity
			continue
		}
		index[it.MedicationID] = len(lines)
		lines = append(lines, Line{
			MedicationID: it.MedicationID,
			Name:         it.Name,
			ImageURL:     it.Image,
			PharmacyName: it.PharmacyName,
			UnitPrice:    it.Price,
			Quantity:     it.Quantity,
		})
	}
	return lines
}
