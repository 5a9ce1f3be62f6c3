package engine

import (
	"context"
	"fmt"

	"zoop_bot/internal/model"
	"zoop_bot/internal/provider"
)

type spinOutcome struct {
	Used      int
	Remaining int
	Rewards   []string
}

// useSpins spins count times, trusting that each success costs exactly one spin.
// The balance is not re-read in between.
func (e *Engine) useSpins(ctx context.Context, sess provider.Session, token string, userID model.UserID, count int) (spinOutcome, error) {
	out := spinOutcome{Remaining: count}
	for out.Remaining > 0 {
		res, err := retry(ctx, e, "spin", func(ctx context.Context) (provider.SpinResult, error) {
			if err := e.sleep(ctx, e.randomDelay(e.delays.MinSpinDelay(), e.delays.MaxSpinDelay())); err != nil {
				return provider.SpinResult{}, err
			}
			return sess.Spin(ctx, token, userID, e.now())
		})
		if err != nil {
			return out, err
		}
		out.Used++
		out.Remaining--
		out.Rewards = append(out.Rewards, res.Reward)
		e.metrics.ObserveSpin()
		e.log("info", fmt.Sprintf("Spin reward: %s, remaining spins: %d", res.Reward, out.Remaining), map[string]any{
			"userId": userID.String(),
		})
	}

	if out.Remaining <= 0 {
		if d := e.delays.SpinCooldown(); d > 0 {
			e.metrics.ObserveCooldown("spins_exhausted")
			e.log("info", fmt.Sprintf("No spins left, waiting %s", d), map[string]any{"userId": userID.String()})
			if err := e.sleep(ctx, d); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}
