package audit

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"preferio/models"
)

// Service appends report audit entries inside the caller transaction.
// The trail is append-only; nothing in the server updates or deletes
// entries once written.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Write(ctx context.Context, tx bun.Tx, reportID, action, userID, comment string) error {
	entry := &models.AuditLog{
		ReportID:  reportID,
		Action:    action,
		UserID:    userID,
		Comment:   comment,
		CreatedAt: time.Now(),
	}
	_, err := tx.NewInsert().Model(entry).Exec(ctx)
	return err
}

// Trail returns a report's audit entries in append order.
func Trail(ctx context.Context, tx bun.Tx, reportID string) ([]models.AuditLog, error) {
	entries := make([]models.AuditLog, 0)
	err := tx.NewSelect().
		Model(&entries).
		Where("report_id = ?", reportID).
		OrderExpr("id ASC").
		Scan(ctx)
	return entries, err
}
