package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"preferio/infrastructure/audit"
	"preferio/infrastructure/sqlite"
	"preferio/models"
	"preferio/report"
)

func stateOf(rep models.Report) RevisionState {
	return RevisionState{
		Version:  rep.Version,
		Status:   rep.Status,
		LockedBy: rep.LockedBy,
		LockedAt: rep.LockedAt,
	}
}

func loadForRevision(ctx context.Context, tx bun.Tx, reportID string) (models.Report, error) {
	var rep models.Report
	err := tx.NewSelect().Model(&rep).Where("report_id = ?", reportID).Limit(1).Scan(ctx)
	return rep, err
}

// Lock takes the advisory edit lock on a report. Only a draft can be
// locked, and only when nobody else holds it. Re-locking an already
// held lock is a no-op for the holder.
func Lock(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, reportID, userID string) (RevisionState, error) {
	var state RevisionState
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		rep, err := loadForRevision(ctx, tx, reportID)
		if err != nil {
			return err
		}

		if rep.Locked() {
			if *rep.LockedBy == userID {
				state = stateOf(rep)
				return nil
			}
			return &ConflictError{Msg: fmt.Sprintf("report %s is locked by %s", reportID, *rep.LockedBy)}
		}
		if rep.Status != models.StatusDraft {
			return &ConflictError{Msg: fmt.Sprintf("report %s is %s and cannot be locked", reportID, rep.Status)}
		}

		now := time.Now()
		rep.Status = models.StatusLocked
		rep.LockedBy = &userID
		rep.LockedAt = &now
		rep.UpdatedAt = now
		if _, err := tx.NewUpdate().Model(&rep).WherePK().Exec(ctx); err != nil {
			return err
		}
		if err := auditSvc.Write(ctx, tx, reportID, models.AuditLocked, userID, ""); err != nil {
			return err
		}
		state = stateOf(rep)
		return nil
	})
	return state, err
}

// Unlock releases the edit lock. Only the holder may release it; an
// unlocked report unlocks to itself without error.
func Unlock(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, reportID, userID string) (RevisionState, error) {
	var state RevisionState
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		rep, err := loadForRevision(ctx, tx, reportID)
		if err != nil {
			return err
		}

		if !rep.Locked() {
			state = stateOf(rep)
			return nil
		}
		if *rep.LockedBy != userID {
			return &ConflictError{Msg: fmt.Sprintf("report %s is locked by %s", reportID, *rep.LockedBy)}
		}

		rep.Status = models.StatusDraft
		rep.LockedBy = nil
		rep.LockedAt = nil
		rep.UpdatedAt = time.Now()
		if _, err := tx.NewUpdate().Model(&rep).WherePK().Exec(ctx); err != nil {
			return err
		}
		if err := auditSvc.Write(ctx, tx, reportID, models.AuditUnlocked, userID, ""); err != nil {
			return err
		}
		state = stateOf(rep)
		return nil
	})
	return state, err
}

// SaveWithVersion persists a full document as the next revision of a
// report: header and rows are replaced, the version counter moves up
// by one and the lock is released. The caller must hold the lock, or
// the report must be an unlocked draft.
func SaveWithVersion(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, reportID string, doc report.IncomingDocument, userID string) (RevisionState, error) {
	var state RevisionState
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		rep, err := loadForRevision(ctx, tx, reportID)
		if err != nil {
			return err
		}

		if rep.Locked() && *rep.LockedBy != userID {
			return &ConflictError{Msg: fmt.Sprintf("report %s is locked by %s", reportID, *rep.LockedBy)}
		}
		if !rep.Locked() && rep.Status != models.StatusDraft {
			return &ConflictError{Msg: fmt.Sprintf("report %s is %s and cannot be saved", reportID, rep.Status)}
		}

		report.ApplyHeader(&rep, doc)
		rep.Version++
		rep.Status = models.StatusDraft
		rep.LockedBy = nil
		rep.LockedAt = nil
		if _, err := tx.NewUpdate().Model(&rep).WherePK().Exec(ctx); err != nil {
			return err
		}

		if err := report.CommitRows(ctx, tx, reportID, doc.DataRows); err != nil {
			return err
		}
		if err := auditSvc.Write(ctx, tx, reportID, models.AuditSaved, userID, fmt.Sprintf("version %d", rep.Version)); err != nil {
			return err
		}
		state = stateOf(rep)
		return nil
	})
	return state, err
}
