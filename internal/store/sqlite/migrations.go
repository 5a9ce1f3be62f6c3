package sqlite

import (
	"context"
	"fmt"
)

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			user_id TEXT PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			point REAL NOT NULL DEFAULT 0,
			spin INTEGER NOT NULL DEFAULT 0,
			is_cheat INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			credential_preview TEXT NOT NULL DEFAULT '',
			proxy TEXT NOT NULL DEFAULT '',
			spins_before INTEGER NOT NULL DEFAULT 0,
			spins_after INTEGER NOT NULL DEFAULT 0,
			spins_used INTEGER NOT NULL DEFAULT 0,
			rewards_json TEXT NOT NULL DEFAULT '[]',
			daily_claimed INTEGER NOT NULL DEFAULT 0,
			points REAL NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_user_id ON runs (user_id);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
