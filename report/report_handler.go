package report

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"preferio/infrastructure/audit"
	"preferio/infrastructure/sqlite"
)

// DefaultUserID is used for audit entries when a request carries no
// user_id. Login is simulated in the SPA, which sends this same value.
const DefaultUserID = "default_user"

func requestUserID(r *http.Request) string {
	if id := strings.TrimSpace(r.URL.Query().Get("user_id")); id != "" {
		return id
	}
	return DefaultUserID
}

func jsonError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// GetReportHandler serves the current report document, or the sentinel
// message when no report exists yet.
func GetReportHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := LoadCurrent(r.Context(), db)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				render.JSON(w, r, map[string]string{"message": NoReportMessage})
				return
			}
			slog.Error("load current report failed", slog.Any("err", err))
			jsonError(w, r, http.StatusInternalServerError, "failed to load report")
			return
		}
		render.JSON(w, r, doc)
	}
}

// CreateReportHandler stores a full document as the current report.
func CreateReportHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc IncomingDocument
		if err := render.DecodeJSON(r.Body, &doc); err != nil {
			jsonError(w, r, http.StatusBadRequest, "invalid report document")
			return
		}
		if !ValidReportID(doc.ReportInfo.ReportID) {
			jsonError(w, r, http.StatusBadRequest, "report_id must be P followed by 4 digits")
			return
		}
		if err := ReplaceCurrent(r.Context(), db, auditSvc, doc, requestUserID(r)); err != nil {
			slog.Error("replace current report failed", slog.String("report_id", doc.ReportInfo.ReportID), slog.Any("err", err))
			jsonError(w, r, http.StatusInternalServerError, "failed to save report")
			return
		}
		render.JSON(w, r, map[string]any{
			"message": "Landfill report saved successfully",
			"data":    doc,
		})
	}
}

// UpdateHeaderHandler replaces the header fields of the current report.
func UpdateHeaderHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var doc IncomingDocument
		if err := render.DecodeJSON(r.Body, &doc); err != nil {
			jsonError(w, r, http.StatusBadRequest, "invalid report document")
			return
		}
		if err := UpdateHeader(r.Context(), db, auditSvc, doc, requestUserID(r)); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				jsonError(w, r, http.StatusNotFound, "no report found")
				return
			}
			slog.Error("update report header failed", slog.Any("err", err))
			jsonError(w, r, http.StatusInternalServerError, "failed to update report")
			return
		}
		render.JSON(w, r, map[string]string{"message": "Report updated successfully"})
	}
}

// AddRowHandler commits a new row against the current report.
func AddRowHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload RowPayload
		if err := render.DecodeJSON(r.Body, &payload); err != nil {
			jsonError(w, r, http.StatusBadRequest, "invalid row")
			return
		}
		row, err := AddRow(r.Context(), db, auditSvc, payload, requestUserID(r))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				jsonError(w, r, http.StatusNotFound, "no report found, create a report first")
				return
			}
			slog.Error("add row failed", slog.Any("err", err))
			jsonError(w, r, http.StatusInternalServerError, "failed to add row")
			return
		}
		render.JSON(w, r, map[string]any{"message": "Row added successfully", "row": row})
	}
}

// UpdateRowHandler replaces a row of the current report.
func UpdateRowHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rowID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			jsonError(w, r, http.StatusBadRequest, "invalid row id")
			return
		}
		var payload RowPayload
		if err := render.DecodeJSON(r.Body, &payload); err != nil {
			jsonError(w, r, http.StatusBadRequest, "invalid row")
			return
		}
		row, err := UpdateRow(r.Context(), db, auditSvc, rowID, payload, requestUserID(r))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				jsonError(w, r, http.StatusNotFound, "row not found")
				return
			}
			slog.Error("update row failed", slog.Int64("row_id", rowID), slog.Any("err", err))
			jsonError(w, r, http.StatusInternalServerError, "failed to update row")
			return
		}
		render.JSON(w, r, map[string]any{"message": "Row updated successfully", "row": row})
	}
}

// DeleteRowHandler removes a row of the current report.
func DeleteRowHandler(db *sqlite.DB, auditSvc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rowID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			jsonError(w, r, http.StatusBadRequest, "invalid row id")
			return
		}
		if err := DeleteRow(r.Context(), db, auditSvc, rowID, requestUserID(r)); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				jsonError(w, r, http.StatusNotFound, "row not found")
				return
			}
			slog.Error("delete row failed", slog.Int64("row_id", rowID), slog.Any("err", err))
			jsonError(w, r, http.StatusInternalServerError, "failed to delete row")
			return
		}
		render.JSON(w, r, map[string]string{"message": "Row deleted successfully"})
	}
}
