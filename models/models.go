package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Report statuses. Published and archived are set by operators through
// the registry; the row-entry endpoints only ever move a report between
// draft and locked.
const (
	StatusDraft     = "draft"
	StatusLocked    = "locked"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Row provenance tags.
const (
	SourceManual     = "manual"
	SourceOCR        = "ocr"
	SourceCalculated = "calculated"
)

// Audit actions appended by the server.
const (
	AuditCreated         = "created"
	AuditUpdated         = "updated"
	AuditDeleted         = "deleted"
	AuditLocked          = "locked"
	AuditUnlocked        = "unlocked"
	AuditSaved           = "saved"
	AuditRowAdded        = "row.added"
	AuditRowUpdated      = "row.updated"
	AuditRowDeleted      = "row.deleted"
	AuditAttachmentAdded = "attachment.added"
)

// Report is the aggregate root of a landfill weighbridge report.
// Version is assigned by the server on every save-with-version; the
// lock columns implement the advisory edit lock.
type Report struct {
	bun.BaseModel `bun:"table:reports,alias:r"`

	ReportID             string     `bun:"report_id,pk" json:"report_id"`
	Name                 string     `bun:"name,notnull" json:"name"`
	Title                string     `bun:"title,notnull" json:"title"`
	Company              string     `bun:"company,notnull" json:"company"`
	Period               string     `bun:"period,notnull" json:"period"`
	QuotaWeight          float64    `bun:"quota_weight,notnull,default:0" json:"quota_weight"`
	Reference            string     `bun:"reference" json:"reference"`
	ReportBy             string     `bun:"report_by" json:"report_by"`
	PriceReference       string     `bun:"price_reference" json:"price_reference"`
	Adjustment           string     `bun:"adjustment" json:"adjustment"`
	DifferenceAdjustment float64    `bun:"difference_adjustment,notnull,default:0" json:"difference_adjustment"`
	AdjustmentAmount     float64    `bun:"adjustment_amount,notnull,default:0" json:"adjustment_amount"`
	Version              int64      `bun:"version,notnull,default:1" json:"version"`
	Status               string     `bun:"status,notnull,default:'draft'" json:"status"`
	LockedBy             *string    `bun:"locked_by" json:"locked_by"`
	LockedAt             *time.Time `bun:"locked_at" json:"locked_at"`
	IsCurrent            bool       `bun:"is_current,notnull,default:false" json:"-"`
	CreatedAt            time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt            time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Locked reports whether the report currently carries an advisory lock.
func (r Report) Locked() bool {
	return r.LockedBy != nil && *r.LockedBy != ""
}

// ReportRow is one weighbridge line. Optional pricing inputs stay nil
// when never entered; committed derived fields are always stored
// coerced, never NULL.
type ReportRow struct {
	bun.BaseModel `bun:"table:report_rows,alias:rr"`

	ID          int64    `bun:"id,pk,autoincrement" json:"id"`
	ReportID    string   `bun:"report_id,notnull" json:"-"`
	ReceiveTon  *float64 `bun:"receive_ton" json:"receive_ton"`
	Ton         float64  `bun:"ton,notnull,default:0" json:"ton"`
	TotalTon    float64  `bun:"total_ton,notnull,default:0" json:"total_ton"`
	PricingType string   `bun:"pricing_type,notnull,default:'gcv'" json:"pricing_type"`
	GCV         *float64 `bun:"gcv" json:"gcv"`
	Multi       *float64 `bun:"multi" json:"multi"`
	Price       *float64 `bun:"price" json:"price"`
	BahtPerTon  float64  `bun:"baht_per_ton,notnull,default:0" json:"baht_per_ton"`
	Amount      float64  `bun:"amount,notnull,default:0" json:"amount"`
	VAT         float64  `bun:"vat,notnull,default:0" json:"vat"`
	Total       float64  `bun:"total,notnull,default:0" json:"total"`
	Remark      string   `bun:"remark" json:"remark"`
	Source      string   `bun:"source,notnull,default:'manual'" json:"source"`
	Position    int64    `bun:"position,notnull,default:0" json:"-"`
}

// AuditLog captures the append-only lifecycle history of a report.
// Only the server writes entries; clients read them.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	ReportID  string    `bun:"report_id,notnull" json:"report_id"`
	Action    string    `bun:"action,notnull" json:"action"`
	UserID    string    `bun:"user_id,notnull" json:"user_id"`
	Comment   string    `bun:"comment" json:"comment"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"timestamp"`
}

// Attachment is file metadata for a document uploaded against a report.
// The file itself lives on disk under the configured attachment dir.
type Attachment struct {
	bun.BaseModel `bun:"table:attachments,alias:a"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	ReportID      string    `bun:"report_id,notnull" json:"report_id"`
	Filename      string    `bun:"filename,notnull" json:"filename"`
	SavedFilename string    `bun:"saved_filename,notnull" json:"saved_filename"`
	Size          int64     `bun:"size,notnull,default:0" json:"size"`
	MIME          string    `bun:"mime" json:"mime"`
	UploadedBy    string    `bun:"uploaded_by" json:"uploaded_by"`
	UploadedAt    time.Time `bun:"uploaded_at,notnull,default:current_timestamp" json:"uploaded_at"`
}

// ViewState is an opaque JSON blob the UI persists between sessions.
type ViewState struct {
	bun.BaseModel `bun:"table:view_states,alias:vs"`

	Key       string    `bun:"key,pk" json:"key"`
	Data      string    `bun:"data,notnull" json:"data"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}
