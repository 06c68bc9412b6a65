// Package store persists the practitioner registry in PostgreSQL.
package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schema string

// ConnectionError reports that the store could not be reached.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("store: unable to connect: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// WriteError reports a failed store mutation.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Connect opens the PostgreSQL store and verifies the connection.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	return db, nil
}

// EnsureSchema applies the embedded schema. The DDL is idempotent, so
// it runs unconditionally on every start.
func EnsureSchema(ctx context.Context, db *sqlx.DB, log zerolog.Logger) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return &WriteError{Op: "ensure schema", Err: err}
	}
	log.Debug().Msg("Schema ensured")
	return nil
}

// Store bundles the registry repositories sharing one connection pool.
type Store struct {
	Doctors         *DoctorStore
	Addresses       *AddressStore
	Specializations *SpecializationStore
	Labels          *LabelStore
}

// New creates a Store over an open connection pool.
func New(db *sqlx.DB, log zerolog.Logger) *Store {
	return &Store{
		Doctors:         NewDoctorStore(db, log),
		Addresses:       NewAddressStore(db, log),
		Specializations: NewSpecializationStore(db, log),
		Labels:          NewLabelStore(db, log),
	}
}
