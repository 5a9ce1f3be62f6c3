package engine

import (
	"context"
	"fmt"

	"zoop_bot/internal/model"
	"zoop_bot/internal/provider"
)

// manageDaily 每次都从远端状态重新判断，不在本地缓存领取结果。
func (e *Engine) manageDaily(ctx context.Context, sess provider.Session, token string, userID model.UserID) (bool, error) {
	fetch := func(ctx context.Context) (model.DailyStatus, error) {
		return sess.DailyStatus(ctx, token, userID)
	}

	status, err := retry(ctx, e, "daily_status", fetch)
	if err != nil {
		return false, err
	}
	if status.Claimed {
		e.log("info", "Daily reward already claimed", map[string]any{"userId": userID.String()})
		return false, nil
	}
	today := e.today()
	if !status.ClaimableOn(today) {
		e.log("info", fmt.Sprintf("Daily reward not available yet, next claim on %s", status.DayClaim), map[string]any{
			"userId": userID.String(),
			"today":  today,
		})
		return false, nil
	}

	index := status.Index()
	if _, err := retry(ctx, e, "claim_daily", func(ctx context.Context) (provider.ClaimResult, error) {
		return sess.ClaimDaily(ctx, token, userID, index)
	}); err != nil {
		return false, err
	}
	e.metrics.ObserveClaim()

	confirmed, err := retry(ctx, e, "daily_status", fetch)
	if err != nil {
		return true, err
	}
	e.log("info", fmt.Sprintf("Daily reward claimed (day %d)", index), map[string]any{
		"userId":  userID.String(),
		"claimed": confirmed.Claimed,
	})
	return true, nil
}
