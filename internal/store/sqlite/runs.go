package sqlite

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"zoop_bot/internal/model"
)

// InsertRun journals a finished account pass and returns it with its id set.
func (s *Store) InsertRun(ctx context.Context, run model.AccountRun) (model.AccountRun, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = run.StartedAt
	}
	rewards := run.Rewards
	if rewards == nil {
		rewards = []string{}
	}
	rewardsJSON, err := json.Marshal(rewards)
	if err != nil {
		return model.AccountRun{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, user_id, username, credential_preview, proxy, spins_before, spins_after, spins_used, rewards_json, daily_claimed, points, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.UserID, run.Username, run.CredentialPreview, run.Proxy, run.SpinsBefore, run.SpinsAfter, run.SpinsUsed,
		string(rewardsJSON), boolToInt(run.DailyClaimed), run.Points, run.Error, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli())
	if err != nil {
		return model.AccountRun{}, err
	}
	return run, nil
}

// ListRuns returns the newest runs first. userID filters when non-empty.
func (s *Store) ListRuns(ctx context.Context, userID string, limit int) ([]model.AccountRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, username, credential_preview, proxy, spins_before, spins_after, spins_used, rewards_json, daily_claimed, points, error, started_at, finished_at
		FROM runs
		WHERE (? = '' OR user_id = ?)
		ORDER BY started_at DESC
		LIMIT ?
	`, userID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AccountRun
	for rows.Next() {
		var (
			run         model.AccountRun
			rewardsJSON string
			claimed     int
			startedAt   int64
			finishedAt  int64
		)
		if err := rows.Scan(&run.ID, &run.UserID, &run.Username, &run.CredentialPreview, &run.Proxy, &run.SpinsBefore, &run.SpinsAfter,
			&run.SpinsUsed, &rewardsJSON, &claimed, &run.Points, &run.Error, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(rewardsJSON), &run.Rewards)
		run.DailyClaimed = claimed != 0
		run.StartedAt = time.UnixMilli(startedAt)
		run.FinishedAt = time.UnixMilli(finishedAt)
		out = append(out, run)
	}
	return out, rows.Err()
}
