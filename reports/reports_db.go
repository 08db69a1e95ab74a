package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"preferio/infrastructure/audit"
	"preferio/infrastructure/sqlite"
	"preferio/models"
	"preferio/report"
)

// List returns a summary of every report, newest first. The amount
// column is summed from the stored rows, not the report record.
func List(ctx context.Context, db *sqlite.DB) ([]Summary, error) {
	summaries := make([]Summary, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		reps := make([]models.Report, 0)
		if err := tx.NewSelect().
			Model(&reps).
			OrderExpr("created_at DESC, report_id DESC").
			Scan(ctx); err != nil {
			return err
		}

		for _, rep := range reps {
			var amount sql.NullFloat64
			err := tx.NewRaw(`SELECT SUM(amount) FROM report_rows WHERE report_id = ?`, rep.ReportID).Scan(ctx, &amount)
			if err != nil {
				return err
			}
			summaries = append(summaries, Summary{
				ID:          rep.ReportID,
				Name:        rep.Name,
				Company:     rep.Company,
				Period:      rep.Period,
				CreatedAt:   rep.CreatedAt,
				UpdatedAt:   rep.UpdatedAt,
				TotalAmount: amount.Float64,
				Version:     rep.Version,
				Status:      rep.Status,
				LockedBy:    rep.LockedBy,
			})
		}
		return nil
	})
	return summaries, err
}

// Create stores a new report document and makes it current. A duplicate
// report id is rejected with a ConflictError.
func Create(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, doc report.IncomingDocument, userID string) error {
	id := doc.ReportInfo.ReportID
	if !report.ValidReportID(id) {
		return fmt.Errorf("invalid report id %q: want P followed by 4 digits", id)
	}

	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.Report)(nil)).
			Where("report_id = ?", id).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return &ConflictError{Msg: fmt.Sprintf("report %s already exists", id)}
		}

		if _, err := tx.NewUpdate().
			Model((*models.Report)(nil)).
			Set("is_current = 0").
			Where("is_current = 1").
			Exec(ctx); err != nil {
			return err
		}

		rep := models.Report{ReportID: id, Status: models.StatusDraft, Version: 1, IsCurrent: true}
		report.ApplyHeader(&rep, doc)
		rep.Name = rep.Title
		if rep.Name == "" {
			rep.Name = id
		}
		rep.CreatedAt = rep.UpdatedAt
		if _, err := tx.NewInsert().Model(&rep).Exec(ctx); err != nil {
			return err
		}

		if err := report.CommitRows(ctx, tx, id, doc.DataRows); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, id, models.AuditCreated, userID, "")
	})
}

// GetByID loads one report's full document.
func GetByID(ctx context.Context, db *sqlite.DB, reportID string) (report.Document, error) {
	var doc report.Document
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var rep models.Report
		if err := tx.NewSelect().Model(&rep).Where("report_id = ?", reportID).Limit(1).Scan(ctx); err != nil {
			return err
		}
		var err error
		doc, err = report.BuildDocument(ctx, tx, rep)
		return err
	})
	return doc, err
}

// Delete removes a report with its rows, audit trail and attachment
// records. If the deleted report was current, the most recently
// created survivor becomes current.
func Delete(ctx context.Context, db *sqlite.DB, reportID string) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var rep models.Report
		err := tx.NewSelect().Model(&rep).Where("report_id = ?", reportID).Limit(1).Scan(ctx)
		if err != nil {
			return err
		}

		for _, model := range []any{
			(*models.ReportRow)(nil),
			(*models.AuditLog)(nil),
			(*models.Attachment)(nil),
		} {
			if _, err := tx.NewDelete().Model(model).Where("report_id = ?", reportID).Exec(ctx); err != nil {
				return err
			}
		}
		if _, err := tx.NewDelete().Model(&rep).WherePK().Exec(ctx); err != nil {
			return err
		}

		if !rep.IsCurrent {
			return nil
		}
		var next models.Report
		err = tx.NewSelect().Model(&next).OrderExpr("created_at DESC, report_id DESC").Limit(1).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.NewUpdate().Model(&next).Set("is_current = 1").WherePK().Exec(ctx)
		return err
	})
}

// SetCurrent switches which report the entry screen shows.
func SetCurrent(ctx context.Context, db *sqlite.DB, reportID string) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var rep models.Report
		if err := tx.NewSelect().Model(&rep).Where("report_id = ?", reportID).Limit(1).Scan(ctx); err != nil {
			return err
		}
		if _, err := tx.NewUpdate().
			Model((*models.Report)(nil)).
			Set("is_current = 0").
			Where("is_current = 1").
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().Model(&rep).Set("is_current = 1").WherePK().Exec(ctx)
		return err
	})
}
