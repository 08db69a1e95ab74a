// Package viewstate persists the UI's opaque view preferences (column
// visibility, sort order and the like) between sessions. The server
// never interprets the blob; it stays independent of pricing and the
// revision workflow.
package viewstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/uptrace/bun"

	"preferio/infrastructure/sqlite"
	"preferio/models"
)

// Key is the single view-state slot the report screen uses.
const Key = "landfill_report"

// Load returns the stored blob for key, or an empty JSON object when
// nothing was saved yet.
func Load(ctx context.Context, db *sqlite.DB, key string) (json.RawMessage, error) {
	var state models.ViewState
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&state).Where("key = ?", key).Limit(1).Scan(ctx)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return json.RawMessage(`{}`), nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(state.Data), nil
}

// Save upserts the blob for key.
func Save(ctx context.Context, db *sqlite.DB, key string, data json.RawMessage) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		state := models.ViewState{Key: key, Data: string(data), UpdatedAt: time.Now()}
		_, err := tx.NewInsert().
			Model(&state).
			On("CONFLICT (key) DO UPDATE").
			Set("data = EXCLUDED.data").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return err
	})
}

// GetHandler serves the saved view state.
func GetHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := Load(r.Context(), db, Key)
		if err != nil {
			slog.Error("load view state failed", slog.Any("err", err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "failed to load view state"})
			return
		}
		render.JSON(w, r, map[string]any{"view_state": data})
	}
}

// PutHandler persists a view-state blob.
func PutHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ViewState json.RawMessage `json:"view_state"`
		}
		if err := render.DecodeJSON(r.Body, &body); err != nil || len(body.ViewState) == 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "invalid view state"})
			return
		}
		if err := Save(r.Context(), db, Key, body.ViewState); err != nil {
			slog.Error("save view state failed", slog.Any("err", err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "failed to save view state"})
			return
		}
		render.JSON(w, r, map[string]string{"message": "View state saved successfully"})
	}
}
