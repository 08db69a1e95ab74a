// Package pricing implements the derived-field calculation for a
// weighbridge report row. The entry UI recomputes these fields
// reactively as the user types; the server re-runs the same derivation
// at commit time, which is the authoritative pass.
package pricing

import "preferio/models"

// PricingType selects which rule set derives baht/ton.
type PricingType string

const (
	// GCV derives baht/ton from gross calorific value: gcv*multi + price.
	GCV PricingType = "gcv"
	// Fixed leaves baht/ton as entered by the user. It is never
	// auto-derived, not even from price.
	Fixed PricingType = "fixed"
)

// ParseType maps a wire value to a PricingType, defaulting to GCV.
func ParseType(s string) PricingType {
	if s == string(Fixed) {
		return Fixed
	}
	return GCV
}

// RowInput is a partially filled row draft. Nil means the user never
// entered the field. A zero value does not trigger derivation either,
// matching the entry form's behavior.
type RowInput struct {
	ReceiveTon *float64
	Ton        *float64
	TotalTon   *float64
	GCV        *float64
	Multi      *float64
	Price      *float64
	BahtPerTon *float64
	Amount     *float64
	VAT        *float64
	Total      *float64
}

// RowTotals is the cached aggregate over all rows of a report. The
// server recomputes it on every read; clients never sum rows
// themselves.
type RowTotals struct {
	ReceiveTon float64 `json:"receive_ton"`
	Ton        float64 `json:"ton"`
	TotalTon   float64 `json:"total_ton"`
	Amount     float64 `json:"amount"`
	VAT        float64 `json:"vat"`
	Total      float64 `json:"total"`
}

func present(p *float64) bool {
	return p != nil && *p != 0
}

func ptr(v float64) *float64 {
	return &v
}

// Value returns 0 for a nil field.
func Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Derive applies the dependency chain in fixed order, each step firing
// only when its operands are present:
//
//  1. gcv mode: bahtPerTon = gcv*multi + price
//  2. totalTon mirrors ton
//  3. amount = totalTon * bahtPerTon
//  4. total = amount + vat
//
// Absent operands leave the dependent field untouched; nothing is
// defaulted here.
func Derive(in RowInput, mode PricingType) RowInput {
	out := in
	if mode == GCV && present(out.GCV) && present(out.Multi) && present(out.Price) {
		out.BahtPerTon = ptr(*out.GCV**out.Multi + *out.Price)
	}
	if present(out.Ton) {
		out.TotalTon = ptr(*out.Ton)
	}
	if present(out.TotalTon) && present(out.BahtPerTon) {
		out.Amount = ptr(*out.TotalTon * *out.BahtPerTon)
	}
	if present(out.Amount) && present(out.VAT) {
		out.Total = ptr(*out.Amount + *out.VAT)
	}
	return out
}

// Commit coerces every unset numeric field to 0 and re-runs Derive
// once on the coerced values. The result has no nil fields and running
// Commit on its own output reproduces it exactly.
func Commit(in RowInput, mode PricingType) RowInput {
	coerced := RowInput{
		ReceiveTon: ptr(Value(in.ReceiveTon)),
		Ton:        ptr(Value(in.Ton)),
		TotalTon:   ptr(Value(in.TotalTon)),
		GCV:        ptr(Value(in.GCV)),
		Multi:      ptr(Value(in.Multi)),
		Price:      ptr(Value(in.Price)),
		BahtPerTon: ptr(Value(in.BahtPerTon)),
		Amount:     ptr(Value(in.Amount)),
		VAT:        ptr(Value(in.VAT)),
		Total:      ptr(Value(in.Total)),
	}
	return Derive(coerced, mode)
}

// Totals sums the report's committed rows field by field.
func Totals(rows []models.ReportRow) RowTotals {
	var t RowTotals
	for _, row := range rows {
		t.ReceiveTon += Value(row.ReceiveTon)
		t.Ton += row.Ton
		t.TotalTon += row.TotalTon
		t.Amount += row.Amount
		t.VAT += row.VAT
		t.Total += row.Total
	}
	return t
}
