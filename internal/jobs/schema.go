package jobs

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version. Bump it with every change
// to schema.sql.
const schemaVersion = 1

// ErrSchemaMismatch indicates the job database was written by a different
// clipforge release.
var ErrSchemaMismatch = errors.New("job database schema mismatch")

// initSchema creates the jobs table in an empty database and refuses to run
// against one stamped with another version.
func (s *Store) initSchema(ctx context.Context) error {
	version, err := readUserVersion(ctx, s.db)
	if err != nil {
		return err
	}
	switch {
	case version == schemaVersion:
		return nil
	case version == 0:
		var tables int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = 'jobs'",
		).Scan(&tables); err != nil {
			return fmt.Errorf("inspect job database: %w", err)
		}
		if tables > 0 {
			return s.mismatch(version)
		}
		return s.createSchema(ctx)
	default:
		return s.mismatch(version)
	}
}

func (s *Store) mismatch(version int) error {
	return fmt.Errorf("%w: %s is at version %d, this build expects %d; "+
		"stop the daemon, move the file aside and re-create jobs with 'clipforge job create'",
		ErrSchemaMismatch, s.path, version, schemaVersion)
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create jobs table: %w", err)
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("stamp schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func readUserVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
