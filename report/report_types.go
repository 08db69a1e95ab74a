package report

import (
	"regexp"
	"time"

	"preferio/models"
	"preferio/pricing"
)

// NoReportMessage is the sentinel body returned when no current report
// exists. The SPA reacts to it by creating the default document.
const NoReportMessage = "No landfill report data found"

// reportIDPattern validates ids on the create paths only; reports
// loaded from older data are served as-is.
var reportIDPattern = regexp.MustCompile(`^P[0-9]{4}$`)

// ValidReportID reports whether id has the canonical P + 4 digit form.
func ValidReportID(id string) bool {
	return reportIDPattern.MatchString(id)
}

// ReportInfo is the header block of a report document.
type ReportInfo struct {
	Title          string  `json:"title"`
	Company        string  `json:"company"`
	Period         string  `json:"period"`
	ReportID       string  `json:"report_id"`
	QuotaWeight    float64 `json:"quota_weight"`
	Reference      string  `json:"reference"`
	ReportBy       string  `json:"report_by"`
	PriceReference string  `json:"price_reference"`
	Adjustment     string  `json:"adjustment"`
}

// AdditionalInfo carries the adjustment figures shown under the table.
type AdditionalInfo struct {
	DifferenceAdjustment float64 `json:"difference_adjustment"`
	AdjustmentAmount     float64 `json:"adjustment_amount"`
}

// RowPayload is a row as submitted by the entry form. Numeric fields
// the user left empty arrive as null; the commit derivation coerces
// them before storage.
type RowPayload struct {
	ID          *int64   `json:"id,omitempty"`
	ReceiveTon  *float64 `json:"receive_ton"`
	Ton         *float64 `json:"ton"`
	TotalTon    *float64 `json:"total_ton"`
	PricingType string   `json:"pricing_type"`
	GCV         *float64 `json:"gcv"`
	Multi       *float64 `json:"multi"`
	Price       *float64 `json:"price"`
	BahtPerTon  *float64 `json:"baht_per_ton"`
	Amount      *float64 `json:"amount"`
	VAT         *float64 `json:"vat"`
	Total       *float64 `json:"total"`
	Remark      string   `json:"remark"`
	Source      string   `json:"source,omitempty"`
}

// Document is the full report document served to clients. Totals are
// recomputed from rows on every load.
type Document struct {
	ID             string             `json:"id"`
	ReportInfo     ReportInfo         `json:"report_info"`
	DataRows       []models.ReportRow `json:"data_rows"`
	Totals         pricing.RowTotals  `json:"totals"`
	AdditionalInfo AdditionalInfo     `json:"additional_info"`
	Version        int64              `json:"version"`
	Status         string             `json:"status"`
	LockedBy       *string            `json:"locked_by"`
	LockedAt       *time.Time         `json:"locked_at"`
	AuditTrail     []models.AuditLog  `json:"audit_trail"`
}

// IncomingDocument is a document as posted by a client. Rows are
// drafts, not committed rows.
type IncomingDocument struct {
	ID             string         `json:"id"`
	ReportInfo     ReportInfo     `json:"report_info"`
	DataRows       []RowPayload   `json:"data_rows"`
	AdditionalInfo AdditionalInfo `json:"additional_info"`
}

func (p RowPayload) toInput() pricing.RowInput {
	return pricing.RowInput{
		ReceiveTon: p.ReceiveTon,
		Ton:        p.Ton,
		TotalTon:   p.TotalTon,
		GCV:        p.GCV,
		Multi:      p.Multi,
		Price:      p.Price,
		BahtPerTon: p.BahtPerTon,
		Amount:     p.Amount,
		VAT:        p.VAT,
		Total:      p.Total,
	}
}

// commitRow runs the authoritative derivation pass and produces the
// row as it will be stored. Optional pricing inputs keep their
// submitted presence so the UI can distinguish "never entered" from 0.
func commitRow(reportID string, p RowPayload) models.ReportRow {
	mode := pricing.ParseType(p.PricingType)
	committed := pricing.Commit(p.toInput(), mode)

	source := p.Source
	switch source {
	case models.SourceManual, models.SourceOCR, models.SourceCalculated:
	default:
		source = models.SourceManual
	}

	row := models.ReportRow{
		ReportID:    reportID,
		ReceiveTon:  p.ReceiveTon,
		Ton:         *committed.Ton,
		TotalTon:    *committed.TotalTon,
		PricingType: string(mode),
		GCV:         p.GCV,
		Multi:       p.Multi,
		Price:       p.Price,
		BahtPerTon:  *committed.BahtPerTon,
		Amount:      *committed.Amount,
		VAT:         *committed.VAT,
		Total:       *committed.Total,
		Remark:      p.Remark,
		Source:      source,
	}
	if p.ID != nil {
		row.ID = *p.ID
	}
	return row
}
