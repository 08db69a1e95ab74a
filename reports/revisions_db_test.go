package reports

import (
	"context"
	"errors"
	"testing"

	"preferio/infrastructure/audit"
	"preferio/models"
	"preferio/report"
)

func TestLock_DraftBecomesLockedForHolder(t *testing.T) {
	db := openReportsTestDB(t)
	auditSvc := audit.NewService()
	createReport(t, db, auditSvc, "P7922")

	state, err := Lock(context.Background(), db, auditSvc, "P7922", "alice")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if state.Status != models.StatusLocked {
		t.Fatalf("status = %s, want locked", state.Status)
	}
	if state.LockedBy == nil || *state.LockedBy != "alice" {
		t.Fatalf("locked_by = %v, want alice", state.LockedBy)
	}
	if state.LockedAt == nil {
		t.Fatalf("locked_at not set")
	}

	// Re-locking by the holder is a no-op.
	again, err := Lock(context.Background(), db, auditSvc, "P7922", "alice")
	if err != nil {
		t.Fatalf("re-lock by holder: %v", err)
	}
	if !again.LockedAt.Equal(*state.LockedAt) {
		t.Fatalf("re-lock moved locked_at from %v to %v", state.LockedAt, again.LockedAt)
	}
}

func TestLock_ConflictLeavesStateUntouched(t *testing.T) {
	db := openReportsTestDB(t)
	auditSvc := audit.NewService()
	createReport(t, db, auditSvc, "P7922")

	if _, err := Lock(context.Background(), db, auditSvc, "P7922", "alice"); err != nil {
		t.Fatalf("lock by alice: %v", err)
	}

	_, err := Lock(context.Background(), db, auditSvc, "P7922", "bob")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError for second locker, got %v", err)
	}

	doc, err := GetByID(context.Background(), db, "P7922")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if doc.LockedBy == nil || *doc.LockedBy != "alice" {
		t.Fatalf("lock holder changed to %v after rejected lock", doc.LockedBy)
	}
}

func TestUnlock_OnlyHolderReleases(t *testing.T) {
	db := openReportsTestDB(t)
	auditSvc := audit.NewService()
	createReport(t, db, auditSvc, "P7922")

	if _, err := Lock(context.Background(), db, auditSvc, "P7922", "alice"); err != nil {
		t.Fatalf("lock: %v", err)
	}

	_, err := Unlock(context.Background(), db, auditSvc, "P7922", "bob")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError for non-holder unlock, got %v", err)
	}

	state, err := Unlock(context.Background(), db, auditSvc, "P7922", "alice")
	if err != nil {
		t.Fatalf("unlock by holder: %v", err)
	}
	if state.Status != models.StatusDraft || state.LockedBy != nil || state.LockedAt != nil {
		t.Fatalf("post-unlock state = %+v, want unlocked draft", state)
	}
}

func TestSaveWithVersion_BumpsVersionAndClearsLock(t *testing.T) {
	db := openReportsTestDB(t)
	auditSvc := audit.NewService()
	createReport(t, db, auditSvc, "P7922")

	if _, err := Lock(context.Background(), db, auditSvc, "P7922", "alice"); err != nil {
		t.Fatalf("lock: %v", err)
	}

	doc := sampleDocument("P7922")
	doc.ReportInfo.Reference = "00W1W23100/5"
	doc.DataRows = append(doc.DataRows, report.RowPayload{
		Ton:         ptr(20),
		PricingType: "fixed",
		BahtPerTon:  ptr(300),
	})

	state, err := SaveWithVersion(context.Background(), db, auditSvc, "P7922", doc, "alice")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if state.Version != 2 {
		t.Fatalf("version = %d, want 2", state.Version)
	}
	if state.Status != models.StatusDraft || state.LockedBy != nil || state.LockedAt != nil {
		t.Fatalf("post-save state = %+v, want unlocked draft", state)
	}

	saved, err := GetByID(context.Background(), db, "P7922")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if saved.ReportInfo.Reference != "00W1W23100/5" {
		t.Fatalf("header not persisted: reference = %q", saved.ReportInfo.Reference)
	}
	if len(saved.DataRows) != 2 {
		t.Fatalf("expected 2 rows after save, got %d", len(saved.DataRows))
	}
	if saved.DataRows[1].Amount != 6000 {
		t.Fatalf("fixed row amount = %v, want 6000 (20 ton * 300)", saved.DataRows[1].Amount)
	}
}

func TestSaveWithVersion_RejectedWhenLockedElsewhere(t *testing.T) {
	db := openReportsTestDB(t)
	auditSvc := audit.NewService()
	createReport(t, db, auditSvc, "P7922")

	if _, err := Lock(context.Background(), db, auditSvc, "P7922", "alice"); err != nil {
		t.Fatalf("lock: %v", err)
	}

	_, err := SaveWithVersion(context.Background(), db, auditSvc, "P7922", sampleDocument("P7922"), "bob")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError for save under foreign lock, got %v", err)
	}

	doc, err := GetByID(context.Background(), db, "P7922")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if doc.Version != 1 {
		t.Fatalf("version moved to %d after rejected save", doc.Version)
	}
}

func TestSaveWithVersion_UnlockedDraftSaves(t *testing.T) {
	db := openReportsTestDB(t)
	auditSvc := audit.NewService()
	createReport(t, db, auditSvc, "P7922")

	state, err := SaveWithVersion(context.Background(), db, auditSvc, "P7922", sampleDocument("P7922"), "alice")
	if err != nil {
		t.Fatalf("save without lock: %v", err)
	}
	if state.Version != 2 {
		t.Fatalf("version = %d, want 2", state.Version)
	}
}

func TestRevisionActionsAppendAuditTrailInOrder(t *testing.T) {
	db := openReportsTestDB(t)
	auditSvc := audit.NewService()
	createReport(t, db, auditSvc, "P7922")

	if _, err := Lock(context.Background(), db, auditSvc, "P7922", "alice"); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if _, err := SaveWithVersion(context.Background(), db, auditSvc, "P7922", sampleDocument("P7922"), "alice"); err != nil {
		t.Fatalf("save: %v", err)
	}

	doc, err := GetByID(context.Background(), db, "P7922")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	want := []string{models.AuditCreated, models.AuditLocked, models.AuditSaved}
	if len(doc.AuditTrail) != len(want) {
		t.Fatalf("audit trail length = %d, want %d", len(doc.AuditTrail), len(want))
	}
	for i, action := range want {
		if doc.AuditTrail[i].Action != action {
			t.Fatalf("trail[%d] = %s, want %s", i, doc.AuditTrail[i].Action, action)
		}
	}
	if doc.AuditTrail[2].Comment != "version 2" {
		t.Fatalf("save comment = %q, want \"version 2\"", doc.AuditTrail[2].Comment)
	}
}
