package attachments

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"preferio/infrastructure/audit"
	"preferio/infrastructure/sqlite"
	"preferio/models"
	"preferio/report"
)

const maxUploadBytes = 32 << 20

func jsonError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// ListHandler serves a report's attachment metadata.
func ListHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		list, err := ListForReport(r.Context(), db, id)
		if err != nil {
			slog.Error("list attachments failed", slog.String("report_id", id), slog.Any("err", err))
			jsonError(w, r, http.StatusInternalServerError, "failed to list attachments")
			return
		}
		render.JSON(w, r, map[string]any{"attachments": list})
	}
}

// UploadHandler accepts multipart file fields named attachment_0,
// attachment_1 and so on, stores each file under the attachment dir
// with a generated name and records its metadata.
func UploadHandler(db *sqlite.DB, auditSvc *audit.Service, dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			jsonError(w, r, http.StatusBadRequest, "invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		userID := strings.TrimSpace(r.FormValue("user_id"))
		if userID == "" {
			userID = report.DefaultUserID
		}

		var saved []models.Attachment
		for field, headers := range r.MultipartForm.File {
			if !strings.HasPrefix(field, "attachment_") {
				continue
			}
			for _, fh := range headers {
				att, err := saveFile(dir, fh)
				if err != nil {
					slog.Error("save attachment failed", slog.String("filename", fh.Filename), slog.Any("err", err))
					jsonError(w, r, http.StatusInternalServerError, "failed to store attachment")
					return
				}
				saved = append(saved, att)
			}
		}
		if len(saved) == 0 {
			jsonError(w, r, http.StatusBadRequest, "no attachment files in request")
			return
		}

		if err := record(r.Context(), db, auditSvc, id, saved, userID); err != nil {
			for _, att := range saved {
				_ = os.Remove(filepath.Join(dir, att.SavedFilename))
			}
			if errors.Is(err, sql.ErrNoRows) {
				jsonError(w, r, http.StatusNotFound, "report not found")
				return
			}
			slog.Error("record attachments failed", slog.String("report_id", id), slog.Any("err", err))
			jsonError(w, r, http.StatusInternalServerError, "failed to record attachments")
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"message":     "Attachments uploaded successfully",
			"attachments": saved,
		})
	}
}

// DownloadHandler streams a stored attachment. The saved name in the
// URL must match a recorded attachment of the report; anything else is
// a 404 rather than a filesystem probe.
func DownloadHandler(db *sqlite.DB, dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		saved := chi.URLParam(r, "saved")

		att, err := bySavedName(r.Context(), db, id, saved)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				jsonError(w, r, http.StatusNotFound, "attachment not found")
				return
			}
			slog.Error("resolve attachment failed", slog.String("saved", saved), slog.Any("err", err))
			jsonError(w, r, http.StatusInternalServerError, "failed to load attachment")
			return
		}

		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Filename))
		if att.MIME != "" {
			w.Header().Set("Content-Type", att.MIME)
		}
		http.ServeFile(w, r, filepath.Join(dir, att.SavedFilename))
	}
}

func saveFile(dir string, fh *multipart.FileHeader) (models.Attachment, error) {
	src, err := fh.Open()
	if err != nil {
		return models.Attachment{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	return writeAttachment(dir, fh.Filename, fh.Header.Get("Content-Type"), src)
}

// writeAttachment streams src to a fresh file under dir and returns
// its metadata. On any write or close failure the partial file is
// removed, so metadata is only ever returned for fully flushed files.
func writeAttachment(dir, filename, mime string, src io.Reader) (models.Attachment, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return models.Attachment{}, fmt.Errorf("attachment dir: %w", err)
	}

	savedName := uuid.NewString() + filepath.Ext(filename)
	path := filepath.Join(dir, savedName)
	dst, err := os.Create(path)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("create file: %w", err)
	}

	size, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		os.Remove(path)
		return models.Attachment{}, fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return models.Attachment{}, fmt.Errorf("close file: %w", err)
	}

	return models.Attachment{
		Filename:      filepath.Base(filename),
		SavedFilename: savedName,
		Size:          size,
		MIME:          mime,
	}, nil
}
