package reports

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"preferio/infrastructure/audit"
	"preferio/infrastructure/sqlite"
	"preferio/report"
)

type userRequest struct {
	UserID string `json:"user_id"`
}

type saveRequest struct {
	ReportData report.IncomingDocument `json:"report_data"`
	UserID     string                  `json:"user_id"`
}

func effectiveUserID(r *http.Request, bodyUserID string) string {
	if id := strings.TrimSpace(bodyUserID); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.URL.Query().Get("user_id")); id != "" {
		return id
	}
	return report.DefaultUserID
}

func jsonError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

func writeRevisionError(w http.ResponseWriter, r *http.Request, reportID string, err error, op string) {
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		jsonError(w, r, http.StatusConflict, conflict.Msg)
	case errors.Is(err, sql.ErrNoRows):
		jsonError(w, r, http.StatusNotFound, "report not found")
	default:
		slog.Error(op+" failed", slog.String("report_id", reportID), slog.Any("err", err))
		jsonError(w, r, http.StatusInternalServerError, "failed to "+op)
	}
}

// ListHandler serves summaries of all reports.
func ListHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := List(r.Context(), db)
		if err != nil {
			slog.Error("list reports failed", slog.Any("err", err))
			jsonError(w, r, http.StatusInternalServerError, "failed to list reports")
			return
		}
		render.JSON(w, r, map[string]any{"reports": summaries})
	}
}

// CreateHandler stores a new report and makes it current.
func CreateHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc report.IncomingDocument
		if err := render.DecodeJSON(r.Body, &doc); err != nil {
			jsonError(w, r, http.StatusBadRequest, "invalid report document")
			return
		}
		if !report.ValidReportID(doc.ReportInfo.ReportID) {
			jsonError(w, r, http.StatusBadRequest, "report_id must be P followed by 4 digits")
			return
		}
		if err := Create(r.Context(), db, auditSvc, doc, effectiveUserID(r, "")); err != nil {
			writeRevisionError(w, r, doc.ReportInfo.ReportID, err, "create report")
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{"message": "Report created successfully", "id": doc.ReportInfo.ReportID})
	}
}

// GetHandler serves one report's full document.
func GetHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		doc, err := GetByID(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				jsonError(w, r, http.StatusNotFound, "report not found")
				return
			}
			slog.Error("get report failed", slog.String("report_id", id), slog.Any("err", err))
			jsonError(w, r, http.StatusInternalServerError, "failed to load report")
			return
		}
		render.JSON(w, r, doc)
	}
}

// DeleteHandler removes a report and everything attached to it.
func DeleteHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := Delete(r.Context(), db, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				jsonError(w, r, http.StatusNotFound, "report not found")
				return
			}
			slog.Error("delete report failed", slog.String("report_id", id), slog.Any("err", err))
			jsonError(w, r, http.StatusInternalServerError, "failed to delete report")
			return
		}
		render.JSON(w, r, map[string]string{"message": "Report deleted successfully"})
	}
}

// SetCurrentHandler switches the report shown on the entry screen.
func SetCurrentHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := SetCurrent(r.Context(), db, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				jsonError(w, r, http.StatusNotFound, "report not found")
				return
			}
			slog.Error("set current report failed", slog.String("report_id", id), slog.Any("err", err))
			jsonError(w, r, http.StatusInternalServerError, "failed to switch report")
			return
		}
		render.JSON(w, r, map[string]string{"message": "Report selected successfully"})
	}
}

// AuditTrailHandler serves a report's audit trail on its own, for the
// revision history view.
func AuditTrailHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		doc, err := GetByID(r.Context(), db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				jsonError(w, r, http.StatusNotFound, "report not found")
				return
			}
			slog.Error("load audit trail failed", slog.String("report_id", id), slog.Any("err", err))
			jsonError(w, r, http.StatusInternalServerError, "failed to load audit trail")
			return
		}
		render.JSON(w, r, map[string]any{"audit_trail": doc.AuditTrail})
	}
}

// LockHandler takes the edit lock for the requesting user.
func LockHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req userRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			jsonError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		state, err := Lock(r.Context(), db, auditSvc, id, effectiveUserID(r, req.UserID))
		if err != nil {
			writeRevisionError(w, r, id, err, "lock report")
			return
		}
		render.JSON(w, r, state)
	}
}

// UnlockHandler releases the edit lock.
func UnlockHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req userRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			jsonError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		state, err := Unlock(r.Context(), db, auditSvc, id, effectiveUserID(r, req.UserID))
		if err != nil {
			writeRevisionError(w, r, id, err, "unlock report")
			return
		}
		render.JSON(w, r, state)
	}
}

// SaveHandler persists a submitted document as the next revision.
func SaveHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req saveRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			jsonError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		state, err := SaveWithVersion(r.Context(), db, auditSvc, id, req.ReportData, effectiveUserID(r, req.UserID))
		if err != nil {
			writeRevisionError(w, r, id, err, "save report")
			return
		}
		render.JSON(w, r, state)
	}
}
