package reports

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
	"preferio/report"
)

func openReportsTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "reports-test.db")
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

func sampleDocument(id string) report.IncomingDocument {
	return report.IncomingDocument{
		ID: id,
		ReportInfo: report.ReportInfo{
			ReportID:    id,
			Title:       "TPI POLENE POWER PUBLIC COMPANY LIMITED LANDFILL REPORT",
			Company:     "บจก. พรีเฟอริโอ้ เทรด",
			Period:      "1-15/09/2025",
			QuotaWeight: 1700,
		},
		DataRows: []report.RowPayload{
			{
				ReceiveTon:  ptr(12.5),
				Ton:         ptr(10),
				PricingType: "gcv",
				GCV:         ptr(4000),
				Multi:       ptr(0.1),
				Price:       ptr(5),
				VAT:         ptr(50),
			},
		},
	}
}

func createReport(t *testing.T, db *sqlite.DB, auditSvc *audit.Service, id string) {
	t.Helper()
	if err := Create(context.Background(), db, auditSvc, sampleDocument(id), "alice"); err != nil {
		t.Fatalf("create report %s: %v", id, err)
	}
}

func TestCreate_RejectsBadAndDuplicateIDs(t *testing.T) {
	db := openReportsTestDB(t)
	auditSvc := audit.NewService()

	if err := Create(context.Background(), db, auditSvc, sampleDocument("X123"), "alice"); err == nil {
		t.Fatalf("expected invalid id error for X123")
	}
	createReport(t, db, auditSvc, "P7922")

	err := Create(context.Background(), db, auditSvc, sampleDocument("P7922"), "alice")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError for duplicate id, got %v", err)
	}
}

func TestCreate_MakesReportCurrentWithDerivedRows(t *testing.T) {
	db := openReportsTestDB(t)
	auditSvc := audit.NewService()
	createReport(t, db, auditSvc, "P7922")

	doc, err := report.LoadCurrent(context.Background(), db)
	if err != nil {
		t.Fatalf("load current: %v", err)
	}
	if doc.ID != "P7922" {
		t.Fatalf("current report = %s, want P7922", doc.ID)
	}
	if doc.Version != 1 || doc.Status != models.StatusDraft {
		t.Fatalf("new report state = v%d %s, want v1 draft", doc.Version, doc.Status)
	}
	if len(doc.DataRows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(doc.DataRows))
	}

	row := doc.DataRows[0]
	if row.BahtPerTon != 405 {
		t.Fatalf("baht_per_ton = %v, want 405 (4000*0.1 + 5)", row.BahtPerTon)
	}
	if row.Amount != 4050 || row.Total != 4100 {
		t.Fatalf("amount/total = %v/%v, want 4050/4100", row.Amount, row.Total)
	}
}

func TestList_SumsRowAmounts(t *testing.T) {
	db := openReportsTestDB(t)
	auditSvc := audit.NewService()
	createReport(t, db, auditSvc, "P7922")
	createReport(t, db, auditSvc, "P8001")

	summaries, err := List(context.Background(), db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	for _, s := range summaries {
		if s.TotalAmount != 4050 {
			t.Fatalf("%s total_amount = %v, want 4050", s.ID, s.TotalAmount)
		}
		if s.Version != 1 || s.Status != models.StatusDraft {
			t.Fatalf("%s state = v%d %s, want v1 draft", s.ID, s.Version, s.Status)
		}
	}
}

func TestDelete_PromotesLatestSurvivorToCurrent(t *testing.T) {
	db := openReportsTestDB(t)
	auditSvc := audit.NewService()
	createReport(t, db, auditSvc, "P7922")
	createReport(t, db, auditSvc, "P8001")

	// P8001 was created last and is current.
	if err := Delete(context.Background(), db, "P8001"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	doc, err := report.LoadCurrent(context.Background(), db)
	if err != nil {
		t.Fatalf("load current after delete: %v", err)
	}
	if doc.ID != "P7922" {
		t.Fatalf("current after delete = %s, want P7922", doc.ID)
	}

	if _, err := GetByID(context.Background(), db, "P8001"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows for deleted report, got %v", err)
	}

	var orphans int
	if err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COUNT(*) FROM report_rows WHERE report_id = 'P8001'`).Scan(ctx, &orphans)
	}); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if orphans != 0 {
		t.Fatalf("expected deleted report rows to be gone, found %d", orphans)
	}
}

func TestSetCurrent_SwitchesEntryScreenReport(t *testing.T) {
	db := openReportsTestDB(t)
	auditSvc := audit.NewService()
	createReport(t, db, auditSvc, "P7922")
	createReport(t, db, auditSvc, "P8001")

	if err := SetCurrent(context.Background(), db, "P7922"); err != nil {
		t.Fatalf("set current: %v", err)
	}
	doc, err := report.LoadCurrent(context.Background(), db)
	if err != nil {
		t.Fatalf("load current: %v", err)
	}
	if doc.ID != "P7922" {
		t.Fatalf("current = %s, want P7922", doc.ID)
	}

	if err := SetCurrent(context.Background(), db, "P9999"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows for unknown report, got %v", err)
	}
}
