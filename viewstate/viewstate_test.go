package viewstate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"preferio/infrastructure/sqlite"
)

func openViewStateTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "viewstate-test.db")
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

func TestGetHandler_EmptyObjectWhenNothingSaved(t *testing.T) {
	db := openViewStateTestDB(t)

	rr := httptest.NewRecorder()
	GetHandler(db).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/landfill-report/view-state", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp struct {
		ViewState map[string]any `json:"view_state"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.ViewState) != 0 {
		t.Fatalf("expected empty view state, got %v", resp.ViewState)
	}
}

func TestPutThenGet_RoundTrip(t *testing.T) {
	db := openViewStateTestDB(t)

	body := strings.NewReader(`{"view_state":{"hidden_columns":["gcv","multi"],"sort":"total"}}`)
	put := httptest.NewRequest(http.MethodPut, "/landfill-report/view-state", body)
	putRR := httptest.NewRecorder()
	PutHandler(db).ServeHTTP(putRR, put)
	if putRR.Code != http.StatusOK {
		t.Fatalf("put status = %d, body %s", putRR.Code, putRR.Body.String())
	}

	getRR := httptest.NewRecorder()
	GetHandler(db).ServeHTTP(getRR, httptest.NewRequest(http.MethodGet, "/landfill-report/view-state", nil))

	var resp struct {
		ViewState struct {
			HiddenColumns []string `json:"hidden_columns"`
			Sort          string   `json:"sort"`
		} `json:"view_state"`
	}
	if err := json.Unmarshal(getRR.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ViewState.Sort != "total" || len(resp.ViewState.HiddenColumns) != 2 {
		t.Fatalf("round trip lost data: %+v", resp.ViewState)
	}
}

func TestPutHandler_RejectsMissingBlob(t *testing.T) {
	db := openViewStateTestDB(t)

	put := httptest.NewRequest(http.MethodPut, "/landfill-report/view-state", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	PutHandler(db).ServeHTTP(rr, put)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}
