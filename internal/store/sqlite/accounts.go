package sqlite

import (
	"context"
	"errors"
	"time"

	"zoop_bot/internal/model"
)

func (s *Store) UpsertAccountSnapshot(ctx context.Context, snap model.AccountSnapshot) error {
	if snap.UserID == "" {
		return errors.New("userId is required")
	}
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, username, point, spin, is_cheat, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			point = excluded.point,
			spin = excluded.spin,
			is_cheat = excluded.is_cheat,
			updated_at = excluded.updated_at
	`, snap.UserID, snap.Username, snap.Point, snap.Spin, boolToInt(snap.IsCheat), snap.UpdatedAt.UnixMilli())
	return err
}

func (s *Store) GetAccountSnapshot(ctx context.Context, userID string) (model.AccountSnapshot, error) {
	var (
		out       model.AccountSnapshot
		isCheat   int
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, username, point, spin, is_cheat, updated_at
		FROM accounts WHERE user_id = ?
	`, userID).Scan(&out.UserID, &out.Username, &out.Point, &out.Spin, &isCheat, &updatedAt)
	if err != nil {
		return model.AccountSnapshot{}, err
	}
	out.IsCheat = isCheat != 0
	out.UpdatedAt = time.UnixMilli(updatedAt)
	return out, nil
}

func (s *Store) ListAccountSnapshots(ctx context.Context) ([]model.AccountSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, username, point, spin, is_cheat, updated_at
		FROM accounts ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AccountSnapshot
	for rows.Next() {
		var (
			snap      model.AccountSnapshot
			isCheat   int
			updatedAt int64
		)
		if err := rows.Scan(&snap.UserID, &snap.Username, &snap.Point, &snap.Spin, &isCheat, &updatedAt); err != nil {
			return nil, err
		}
		snap.IsCheat = isCheat != 0
		snap.UpdatedAt = time.UnixMilli(updatedAt)
		out = append(out, snap)
	}
	return out, rows.Err()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
