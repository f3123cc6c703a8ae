package jobs

import (
	"context"
	"fmt"
	"os"
)

// DatabaseHealth describes the state of the job database.
type DatabaseHealth struct {
	DBPath        string
	DatabaseSize  int64
	SchemaVersion int
	Integrity     string
	TotalJobs     int
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// CheckHealth returns diagnostic information about the job database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	ctx = ensureContext(ctx)
	health := DatabaseHealth{DBPath: s.path}
	if info, err := os.Stat(s.path); err == nil {
		health.DatabaseSize = info.Size()
	}
	version, err := readUserVersion(ctx, s.db)
	if err != nil {
		return health, err
	}
	health.SchemaVersion = version
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&health.Integrity); err != nil {
		return health, fmt.Errorf("integrity check: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM jobs").Scan(&health.TotalJobs); err != nil {
		return health, fmt.Errorf("count jobs: %w", err)
	}
	return health, nil
}
