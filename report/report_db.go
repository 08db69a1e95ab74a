package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"preferio/infrastructure/audit"
	"preferio/infrastructure/sqlite"
	"preferio/models"
	"preferio/pricing"
)

// CurrentReport returns the report marked current.
func CurrentReport(ctx context.Context, tx bun.Tx) (models.Report, error) {
	var rep models.Report
	err := tx.NewSelect().Model(&rep).Where("is_current = 1").Limit(1).Scan(ctx)
	return rep, err
}

// BuildDocument assembles the full document for a report: rows in
// entry order, recomputed totals and the audit trail.
func BuildDocument(ctx context.Context, tx bun.Tx, rep models.Report) (Document, error) {
	rows := make([]models.ReportRow, 0)
	err := tx.NewSelect().
		Model(&rows).
		Where("report_id = ?", rep.ReportID).
		OrderExpr("position ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return Document{}, err
	}

	trail, err := audit.Trail(ctx, tx, rep.ReportID)
	if err != nil {
		return Document{}, err
	}

	return Document{
		ID: rep.ReportID,
		ReportInfo: ReportInfo{
			Title:          rep.Title,
			Company:        rep.Company,
			Period:         rep.Period,
			ReportID:       rep.ReportID,
			QuotaWeight:    rep.QuotaWeight,
			Reference:      rep.Reference,
			ReportBy:       rep.ReportBy,
			PriceReference: rep.PriceReference,
			Adjustment:     rep.Adjustment,
		},
		DataRows: rows,
		Totals:   pricing.Totals(rows),
		AdditionalInfo: AdditionalInfo{
			DifferenceAdjustment: rep.DifferenceAdjustment,
			AdjustmentAmount:     rep.AdjustmentAmount,
		},
		Version:    rep.Version,
		Status:     rep.Status,
		LockedBy:   rep.LockedBy,
		LockedAt:   rep.LockedAt,
		AuditTrail: trail,
	}, nil
}

// LoadCurrent loads the current report document. sql.ErrNoRows means no
// report exists yet.
func LoadCurrent(ctx context.Context, db *sqlite.DB) (Document, error) {
	var doc Document
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		rep, err := CurrentReport(ctx, tx)
		if err != nil {
			return err
		}
		doc, err = BuildDocument(ctx, tx, rep)
		return err
	})
	return doc, err
}

// ReplaceCurrent stores a full document as the current report. A new
// report id creates the report (version 1, draft); an existing one has
// its header and rows replaced while version, status and lock survive.
func ReplaceCurrent(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, doc IncomingDocument, userID string) error {
	id := doc.ReportInfo.ReportID
	if !ValidReportID(id) {
		return fmt.Errorf("invalid report id %q: want P followed by 4 digits", id)
	}

	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var existing models.Report
		err := tx.NewSelect().Model(&existing).Where("report_id = ?", id).Limit(1).Scan(ctx)
		created := errors.Is(err, sql.ErrNoRows)
		if err != nil && !created {
			return err
		}

		if _, err := tx.NewUpdate().
			Model((*models.Report)(nil)).
			Set("is_current = 0").
			Where("is_current = 1").
			Exec(ctx); err != nil {
			return err
		}

		rep := reportFromInfo(doc)
		rep.IsCurrent = true
		if created {
			rep.Version = 1
			rep.Status = models.StatusDraft
			rep.CreatedAt = time.Now()
			rep.UpdatedAt = rep.CreatedAt
			if _, err := tx.NewInsert().Model(&rep).Exec(ctx); err != nil {
				return err
			}
		} else {
			rep.Version = existing.Version
			rep.Status = existing.Status
			rep.LockedBy = existing.LockedBy
			rep.LockedAt = existing.LockedAt
			rep.CreatedAt = existing.CreatedAt
			rep.UpdatedAt = time.Now()
			if _, err := tx.NewUpdate().Model(&rep).WherePK().Exec(ctx); err != nil {
				return err
			}
		}

		if err := CommitRows(ctx, tx, id, doc.DataRows); err != nil {
			return err
		}

		action := models.AuditUpdated
		if created {
			action = models.AuditCreated
		}
		return auditSvc.Write(ctx, tx, id, action, userID, "")
	})
}

// UpdateHeader replaces the header fields of the current report. Rows
// are untouched.
func UpdateHeader(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, doc IncomingDocument, userID string) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		rep, err := CurrentReport(ctx, tx)
		if err != nil {
			return err
		}

		ApplyHeader(&rep, doc)

		if _, err := tx.NewUpdate().Model(&rep).WherePK().Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, rep.ReportID, models.AuditUpdated, userID, "header")
	})
}

// AddRow commits a row draft against the current report. The derivation
// re-runs here regardless of what the form submitted; this pass is
// authoritative.
func AddRow(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, payload RowPayload, userID string) (models.ReportRow, error) {
	var row models.ReportRow
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		rep, err := CurrentReport(ctx, tx)
		if err != nil {
			return err
		}

		// A client-assigned id (offline/new-report mode) is kept;
		// otherwise sqlite assigns the next one.
		row = commitRow(rep.ReportID, payload)
		var maxPos sql.NullInt64
		if err := tx.NewRaw(`SELECT MAX(position) FROM report_rows WHERE report_id = ?`, rep.ReportID).Scan(ctx, &maxPos); err != nil {
			return err
		}
		row.Position = maxPos.Int64 + 1

		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, rep.ReportID, models.AuditRowAdded, userID, fmt.Sprintf("row %d", row.ID))
	})
	return row, err
}

// UpdateRow replaces a row of the current report, re-running the commit
// derivation on the submitted values.
func UpdateRow(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, rowID int64, payload RowPayload, userID string) (models.ReportRow, error) {
	var row models.ReportRow
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		rep, err := CurrentReport(ctx, tx)
		if err != nil {
			return err
		}

		var existing models.ReportRow
		err = tx.NewSelect().Model(&existing).
			Where("report_id = ?", rep.ReportID).
			Where("id = ?", rowID).
			Limit(1).
			Scan(ctx)
		if err != nil {
			return err
		}

		row = commitRow(rep.ReportID, payload)
		row.ID = rowID
		row.Position = existing.Position
		if _, err := tx.NewUpdate().Model(&row).WherePK().Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, rep.ReportID, models.AuditRowUpdated, userID, fmt.Sprintf("row %d", rowID))
	})
	return row, err
}

// DeleteRow removes a row of the current report.
func DeleteRow(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, rowID int64, userID string) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		rep, err := CurrentReport(ctx, tx)
		if err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*models.ReportRow)(nil)).
			Where("report_id = ?", rep.ReportID).
			Where("id = ?", rowID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return sql.ErrNoRows
		}
		return auditSvc.Write(ctx, tx, rep.ReportID, models.AuditRowDeleted, userID, fmt.Sprintf("row %d", rowID))
	})
}

// ApplyHeader copies a document's header fields onto a report record.
func ApplyHeader(rep *models.Report, doc IncomingDocument) {
	info := doc.ReportInfo
	rep.Title = info.Title
	rep.Company = info.Company
	rep.Period = info.Period
	rep.QuotaWeight = info.QuotaWeight
	rep.Reference = info.Reference
	rep.ReportBy = info.ReportBy
	rep.PriceReference = info.PriceReference
	rep.Adjustment = info.Adjustment
	rep.DifferenceAdjustment = doc.AdditionalInfo.DifferenceAdjustment
	rep.AdjustmentAmount = doc.AdditionalInfo.AdjustmentAmount
	rep.UpdatedAt = time.Now()
}

func reportFromInfo(doc IncomingDocument) models.Report {
	info := doc.ReportInfo
	name := info.Title
	if name == "" {
		name = info.ReportID
	}
	return models.Report{
		ReportID:             info.ReportID,
		Name:                 name,
		Title:                info.Title,
		Company:              info.Company,
		Period:               info.Period,
		QuotaWeight:          info.QuotaWeight,
		Reference:            info.Reference,
		ReportBy:             info.ReportBy,
		PriceReference:       info.PriceReference,
		Adjustment:           info.Adjustment,
		DifferenceAdjustment: doc.AdditionalInfo.DifferenceAdjustment,
		AdjustmentAmount:     doc.AdditionalInfo.AdjustmentAmount,
		Status:               models.StatusDraft,
		Version:              1,
	}
}

// CommitRows replaces a report's rows with the committed form of the
// submitted drafts, preserving submission order.
func CommitRows(ctx context.Context, tx bun.Tx, reportID string, payloads []RowPayload) error {
	if _, err := tx.NewDelete().
		Model((*models.ReportRow)(nil)).
		Where("report_id = ?", reportID).
		Exec(ctx); err != nil {
		return err
	}
	for i, payload := range payloads {
		row := commitRow(reportID, payload)
		row.Position = int64(i + 1)
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
