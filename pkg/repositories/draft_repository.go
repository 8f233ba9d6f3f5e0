// Package repositories holds the Postgres persistence for editor drafts.
// A draft is the periodic autosave of an open session's working state, so
// a crashed browser or server does not lose unsaved field edits.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/dahlia/pkg/database"
	"github.com/Ramsey-B/dahlia/pkg/models"
	"github.com/Ramsey-B/dahlia/pkg/tracing"
)

const draftsTable = "field_drafts"

// Draft is a session's autosaved working state, one row per template.
type Draft struct {
	TemplateID int64                          `db:"template_id" json:"template_id"`
	SessionID  string                         `db:"session_id" json:"session_id"`
	UserID     string                         `db:"user_id" json:"user_id"`
	Fields     database.JSONB[[]models.Field] `db:"fields" json:"fields"`
	Partners   database.JSONB[[]string]       `db:"partners" json:"partners"`
	UpdatedAt  time.Time                      `db:"updated_at" json:"updated_at"`
}

var draftStruct = database.NewStruct(new(Draft))

// DraftRepository handles database operations for editor drafts
type DraftRepository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewDraftRepository creates a new draft repository
func NewDraftRepository(db database.DB, logger ectologger.Logger) *DraftRepository {
	return &DraftRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes the draft, replacing any previous draft for the template.
func (r *DraftRepository) Upsert(ctx context.Context, draft *Draft) error {
	ctx, span := tracing.StartSpan(ctx, "DraftRepository.Upsert")
	defer span.End()

	ib := database.NewInsertBuilder()
	ib = ib.InsertInto(draftsTable).
		Cols("template_id", "session_id", "user_id", "fields", "partners", "updated_at").
		Values(draft.TemplateID, draft.SessionID, draft.UserID, draft.Fields, draft.Partners,
			sqlbuilder.Raw("NOW()"))
	ub := ib.OnConflict("template_id")
	ub.Set(
		ub.Assign("session_id", draft.SessionID),
		ub.Assign("user_id", draft.UserID),
		ub.Assign("fields", database.Excluded("fields")),
		ub.Assign("partners", database.Excluded("partners")),
		ub.Assign("updated_at", sqlbuilder.Raw("NOW()")),
	)
	ib = ib.Returning("updated_at")

	query, args := ib.Build()
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&draft.UpdatedAt)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"template_id": draft.TemplateID,
		}).Error("failed to upsert draft")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save draft")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"template_id": draft.TemplateID,
		"session_id":  draft.SessionID,
	}).Debugf("Saved %s", draftsTable)
	return nil
}

// Get retrieves the draft for a template.
func (r *DraftRepository) Get(ctx context.Context, templateID int64) (*Draft, error) {
	ctx, span := tracing.StartSpan(ctx, "DraftRepository.Get")
	defer span.End()

	sb := draftStruct.SelectFrom(draftsTable)
	sb.Where(sb.Equal("template_id", templateID))

	query, args := sb.Build()
	var draft Draft
	err := r.db.GetContext(ctx, &draft, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "no draft for template %d", templateID)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"template_id": templateID,
		}).Error("failed to get draft")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get draft")
	}

	return &draft, nil
}

// Delete removes the draft for a template. Called after a successful save,
// when the draft no longer represents unsaved work.
func (r *DraftRepository) Delete(ctx context.Context, templateID int64) error {
	ctx, span := tracing.StartSpan(ctx, "DraftRepository.Delete")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(draftsTable).
		Where(db.Equal("template_id", templateID))

	query, args := db.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"template_id": templateID,
		}).Error("failed to delete draft")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete draft")
	}

	return nil
}

// DeleteStale removes drafts untouched for longer than maxAge.
func (r *DraftRepository) DeleteStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "DraftRepository.DeleteStale")
	defer span.End()

	db := database.NewDeleteBuilder()
	db.DeleteFrom(draftsTable).
		Where(db.LessThan("updated_at", time.Now().Add(-maxAge)))

	query, args := db.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete stale drafts")
		return 0, err
	}

	rows, _ := result.RowsAffected()
	if rows > 0 {
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"count": rows,
		}).Info("Deleted stale drafts")
	}
	return rows, nil
}
