package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Store runs queries individually or inside a single transaction.
type Store interface {
	Querier
	ExecTx(ctx context.Context, fn func(Querier) error) error
}

// SQLStore is the PostgreSQL-backed Store.
type SQLStore struct {
	*Queries
	db *sql.DB
}

// NewStore creates a Store over an open database handle.
func NewStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		Queries: New(db),
		db:      db,
	}
}

// DB returns the underlying database handle.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// ExecTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *SQLStore) ExecTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(s.WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

var _ Store = (*SQLStore)(nil)
