package attachments

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"preferio/infrastructure/audit"
	"preferio/infrastructure/sqlite"
	"preferio/models"
)

// ListForReport returns a report's attachment metadata in upload order.
func ListForReport(ctx context.Context, db *sqlite.DB, reportID string) ([]models.Attachment, error) {
	list := make([]models.Attachment, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().
			Model(&list).
			Where("report_id = ?", reportID).
			OrderExpr("id ASC").
			Scan(ctx)
	})
	return list, err
}

// record stores the metadata rows for one upload batch and writes a
// single audit entry covering it.
func record(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, reportID string, atts []models.Attachment, userID string) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := reportExists(ctx, tx, reportID); err != nil {
			return err
		}
		now := time.Now()
		for i := range atts {
			atts[i].ReportID = reportID
			atts[i].UploadedBy = userID
			atts[i].UploadedAt = now
			if _, err := tx.NewInsert().Model(&atts[i]).Exec(ctx); err != nil {
				return err
			}
		}
		comment := ""
		if len(atts) == 1 {
			comment = atts[0].Filename
		}
		return auditSvc.Write(ctx, tx, reportID, models.AuditAttachmentAdded, userID, comment)
	})
}

// bySavedName resolves a stored filename back to its metadata row. The
// download handler uses it so only recorded files leave the directory.
func bySavedName(ctx context.Context, db *sqlite.DB, reportID, saved string) (models.Attachment, error) {
	var att models.Attachment
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().
			Model(&att).
			Where("report_id = ?", reportID).
			Where("saved_filename = ?", saved).
			Limit(1).
			Scan(ctx)
	})
	return att, err
}

func reportExists(ctx context.Context, tx bun.Tx, reportID string) error {
	var rep models.Report
	return tx.NewSelect().Model(&rep).Where("report_id = ?", reportID).Limit(1).Scan(ctx)
}
