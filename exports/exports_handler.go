package exports

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"preferio/infrastructure/sqlite"
	"preferio/report"
)

func jsonError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

func loadForExport(w http.ResponseWriter, r *http.Request, db *sqlite.DB) (report.Document, bool) {
	doc, err := report.LoadCurrent(r.Context(), db)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			jsonError(w, r, http.StatusNotFound, report.NoReportMessage)
			return report.Document{}, false
		}
		slog.Error("load report for export failed", slog.Any("err", err))
		jsonError(w, r, http.StatusInternalServerError, "failed to load report")
		return report.Document{}, false
	}
	return doc, true
}

// JSONHandler serves the current report document as a download.
func JSONHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := loadForExport(w, r, db)
		if !ok {
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.ID+".json"))
		render.JSON(w, r, doc)
	}
}

// ExcelHandler serves the current report as an xlsx workbook.
func ExcelHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := loadForExport(w, r, db)
		if !ok {
			return
		}
		data, err := renderWorkbook(doc)
		if err != nil {
			slog.Error("render workbook failed", slog.String("report_id", doc.ID), slog.Any("err", err))
			jsonError(w, r, http.StatusInternalServerError, "failed to render workbook")
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.ID+".xlsx"))
		w.Write(data)
	}
}

// PDFHandler serves the current report as a PDF.
func PDFHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, ok := loadForExport(w, r, db)
		if !ok {
			return
		}
		data, err := renderPDF(doc)
		if err != nil {
			slog.Error("render pdf failed", slog.String("report_id", doc.ID), slog.Any("err", err))
			jsonError(w, r, http.StatusInternalServerError, "failed to render pdf")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.ID+".pdf"))
		w.Write(data)
	}
}
