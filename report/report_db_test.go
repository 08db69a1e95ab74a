package report

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/uptrace/bun"

	"preferio/infrastructure/audit"
	"preferio/infrastructure/sqlite"
	"preferio/models"
)

func openReportTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "report-test.db")
	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := sqlite.ApplyMigrations(context.Background(), db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func ptr(v float64) *float64 { return &v }

func seedCurrentReport(t *testing.T, db *sqlite.DB, auditSvc *audit.Service, id string) {
	t.Helper()
	doc := IncomingDocument{
		ID: id,
		ReportInfo: ReportInfo{
			ReportID:    id,
			Title:       "Landfill Report",
			Company:     "Company A",
			Period:      "1-15/09/2025",
			QuotaWeight: 1700,
		},
	}
	if err := ReplaceCurrent(context.Background(), db, auditSvc, doc, "alice"); err != nil {
		t.Fatalf("seed report: %v", err)
	}
}

func TestLoadCurrent_NoReportReturnsErrNoRows(t *testing.T) {
	db := openReportTestDB(t)

	_, err := LoadCurrent(context.Background(), db)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestReplaceCurrent_ExistingReportKeepsVersionAndLock(t *testing.T) {
	db := openReportTestDB(t)
	auditSvc := audit.NewService()
	seedCurrentReport(t, db, auditSvc, "P7922")

	// Simulate revision state a plain replace must not disturb.
	if err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE reports SET version = 4, status = 'locked', locked_by = 'alice', locked_at = CURRENT_TIMESTAMP WHERE report_id = 'P7922'`)
		return err
	}); err != nil {
		t.Fatalf("set revision state: %v", err)
	}

	doc := IncomingDocument{
		ID:         "P7922",
		ReportInfo: ReportInfo{ReportID: "P7922", Title: "Updated Title"},
	}
	if err := ReplaceCurrent(context.Background(), db, auditSvc, doc, "alice"); err != nil {
		t.Fatalf("replace: %v", err)
	}

	loaded, err := LoadCurrent(context.Background(), db)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ReportInfo.Title != "Updated Title" {
		t.Fatalf("title not replaced: %q", loaded.ReportInfo.Title)
	}
	if loaded.Version != 4 || loaded.Status != models.StatusLocked || loaded.LockedBy == nil {
		t.Fatalf("revision state disturbed: v%d %s %v", loaded.Version, loaded.Status, loaded.LockedBy)
	}
}

func TestAddRow_RunsAuthoritativeDerivation(t *testing.T) {
	db := openReportTestDB(t)
	auditSvc := audit.NewService()
	seedCurrentReport(t, db, auditSvc, "P7922")

	// Submitted amount is stale on purpose; the commit pass recomputes.
	stale := 999999.0
	row, err := AddRow(context.Background(), db, auditSvc, RowPayload{
		Ton:         ptr(10),
		PricingType: "gcv",
		GCV:         ptr(4000),
		Multi:       ptr(0.1),
		Price:       ptr(5),
		Amount:      &stale,
		VAT:         ptr(50),
	}, "alice")
	if err != nil {
		t.Fatalf("add row: %v", err)
	}

	if row.BahtPerTon != 405 {
		t.Fatalf("baht_per_ton = %v, want 405", row.BahtPerTon)
	}
	if row.Amount != 4050 {
		t.Fatalf("amount = %v, server must recompute over the submitted value", row.Amount)
	}
	if row.Total != 4100 {
		t.Fatalf("total = %v, want 4100", row.Total)
	}
	if row.TotalTon != 10 {
		t.Fatalf("total_ton = %v, want mirror of ton", row.TotalTon)
	}
}

func TestUpdateRow_RecomputesAndKeepsPosition(t *testing.T) {
	db := openReportTestDB(t)
	auditSvc := audit.NewService()
	seedCurrentReport(t, db, auditSvc, "P7922")

	first, err := AddRow(context.Background(), db, auditSvc, RowPayload{Ton: ptr(5), PricingType: "fixed", BahtPerTon: ptr(100)}, "alice")
	if err != nil {
		t.Fatalf("add first row: %v", err)
	}
	if _, err := AddRow(context.Background(), db, auditSvc, RowPayload{Ton: ptr(7), PricingType: "fixed", BahtPerTon: ptr(100)}, "alice"); err != nil {
		t.Fatalf("add second row: %v", err)
	}

	updated, err := UpdateRow(context.Background(), db, auditSvc, first.ID, RowPayload{
		Ton: ptr(6), PricingType: "fixed", BahtPerTon: ptr(200),
	}, "alice")
	if err != nil {
		t.Fatalf("update row: %v", err)
	}
	if updated.Amount != 1200 {
		t.Fatalf("amount = %v, want 1200 (6 * 200)", updated.Amount)
	}

	doc, err := LoadCurrent(context.Background(), db)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.DataRows[0].ID != first.ID {
		t.Fatalf("updated row lost its position in the grid")
	}
	if doc.Totals.Amount != 1200+700 {
		t.Fatalf("totals.amount = %v, want 1900", doc.Totals.Amount)
	}
}

func TestDeleteRow_RecomputesTotals(t *testing.T) {
	db := openReportTestDB(t)
	auditSvc := audit.NewService()
	seedCurrentReport(t, db, auditSvc, "P7922")

	row, err := AddRow(context.Background(), db, auditSvc, RowPayload{Ton: ptr(5), PricingType: "fixed", BahtPerTon: ptr(100)}, "alice")
	if err != nil {
		t.Fatalf("add row: %v", err)
	}
	if _, err := AddRow(context.Background(), db, auditSvc, RowPayload{Ton: ptr(7), PricingType: "fixed", BahtPerTon: ptr(100)}, "alice"); err != nil {
		t.Fatalf("add second row: %v", err)
	}

	if err := DeleteRow(context.Background(), db, auditSvc, row.ID, "alice"); err != nil {
		t.Fatalf("delete row: %v", err)
	}

	doc, err := LoadCurrent(context.Background(), db)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(doc.DataRows) != 1 {
		t.Fatalf("expected 1 row left, got %d", len(doc.DataRows))
	}
	if doc.Totals.Amount != 700 {
		t.Fatalf("totals.amount = %v, want 700", doc.Totals.Amount)
	}

	if err := DeleteRow(context.Background(), db, auditSvc, row.ID, "alice"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows deleting a gone row, got %v", err)
	}
}

func TestValidReportID(t *testing.T) {
	valid := []string{"P7922", "P0000", "P9999"}
	invalid := []string{"7922", "P792", "P79222", "p7922", "PABCD", "P7922 ", ""}
	for _, id := range valid {
		if !ValidReportID(id) {
			t.Errorf("ValidReportID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if ValidReportID(id) {
			t.Errorf("ValidReportID(%q) = true, want false", id)
		}
	}
}
