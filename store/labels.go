package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/planadoc/medregsync/models/registry"
)

// LabelStore handles persistence of translated labels.
type LabelStore struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// NewLabelStore creates a new LabelStore.
func NewLabelStore(db *sqlx.DB, log zerolog.Logger) *LabelStore {
	return &LabelStore{db: db, log: log}
}

// Upsert inserts a label or refreshes its value when the
// (label_for, language) pair already exists.
func (s *LabelStore) Upsert(ctx context.Context, label registry.Label) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO labels (label_for, language, label_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (label_for, language) DO UPDATE SET label_value = $3`,
		label.LabelFor, label.Language, label.LabelValue)
	if err != nil {
		return &WriteError{Op: fmt.Sprintf("upsert label %s/%s", label.LabelFor, label.Language), Err: err}
	}
	return nil
}
