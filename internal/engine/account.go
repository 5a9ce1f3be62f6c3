package engine

import (
	"context"
	"fmt"
	"time"

	"zoop_bot/internal/logbus"
	"zoop_bot/internal/model"
	"zoop_bot/internal/notify"
	"zoop_bot/internal/provider"
	"zoop_bot/internal/source"
	"zoop_bot/internal/utils"
)

// ProcessAccount runs one full pass for a single credential: authenticate, the
// daily claim, then the spins known before the claim. Any unrecovered error is
// returned; the run summary is recorded either way.
func (e *Engine) ProcessAccount(ctx context.Context, credential string, proxies source.ProxyList) (run model.AccountRun, err error) {
	run = model.AccountRun{
		CredentialPreview: utils.PreviewCredential(credential),
		StartedAt:         e.now(),
	}
	defer func() {
		if r := recover(); r != nil {
			e.finishRun(ctx, run, fmt.Errorf("panic: %v", r))
			panic(r)
		}
		run = e.finishRun(ctx, run, err)
	}()

	userID, err := utils.ExtractUserID(credential)
	if err != nil {
		return run, err
	}
	run.UserID = userID.String()
	e.updateState(func(st *model.EngineState) { st.CurrentAccount = run.UserID })

	proxy := proxies.Pick(e.rng)
	run.Proxy = proxy
	if proxy != "" {
		e.log("info", fmt.Sprintf("Using proxy: %s", proxy), map[string]any{"userId": run.UserID})
	} else {
		e.log("info", "No proxy used", map[string]any{"userId": run.UserID})
	}
	sess, err := e.provider.NewSession(proxy)
	if err != nil {
		return run, err
	}

	auth, err := e.authenticate(ctx, sess, credential, run.UserID)
	if err != nil {
		return run, err
	}
	spins := auth.Info.Spin
	run.Username = auth.Info.Username
	run.SpinsBefore = spins
	run.Points = auth.Info.Point

	claimed, err := e.manageDaily(ctx, sess, auth.Token, userID)
	run.DailyClaimed = claimed
	if err != nil {
		return run, err
	}

	// 领取每日奖励后刷新展示信息；转盘次数仍以领取前为准。
	refreshed, err := e.authenticate(ctx, sess, credential, run.UserID)
	if err != nil {
		return run, err
	}
	run.Points = refreshed.Info.Point
	run.SpinsAfter = refreshed.Info.Spin

	if spins > 0 {
		out, err := e.useSpins(ctx, sess, auth.Token, userID, spins)
		run.SpinsUsed = out.Used
		run.Rewards = out.Rewards
		run.SpinsAfter = out.Remaining
		if err != nil {
			return run, err
		}
	}
	return run, nil
}

// authenticate is the retried login, plus the bookkeeping every fresh snapshot gets.
func (e *Engine) authenticate(ctx context.Context, sess provider.Session, credential, userID string) (provider.AuthResult, error) {
	auth, err := retry(ctx, e, "authenticate", func(ctx context.Context) (provider.AuthResult, error) {
		return sess.Authenticate(ctx, credential)
	})
	if err != nil {
		return provider.AuthResult{}, err
	}
	info := auth.Info
	e.log("info", fmt.Sprintf("Username: %s | Points: %v | Spins: %d | Cheat: %t", info.Username, info.Point, info.Spin, info.IsCheat), nil)
	e.metrics.SetSpinBalance(info.Username, info.Spin)
	e.saveSnapshot(ctx, userID, info)
	return auth, nil
}

func (e *Engine) saveSnapshot(ctx context.Context, userID string, info model.UserInfo) {
	if e.store == nil || userID == "" {
		return
	}
	snap := model.AccountSnapshot{
		UserID:    userID,
		Username:  info.Username,
		Point:     info.Point,
		Spin:      info.Spin,
		IsCheat:   info.IsCheat,
		UpdatedAt: e.now(),
	}
	if err := e.store.UpsertAccountSnapshot(context.WithoutCancel(ctx), snap); err != nil {
		e.log("warn", "save account snapshot failed", map[string]any{"error": err.Error()})
	}
}

func (e *Engine) finishRun(ctx context.Context, run model.AccountRun, err error) model.AccountRun {
	run.FinishedAt = e.now()
	if err != nil {
		run.Error = err.Error()
	}

	bg := context.WithoutCancel(ctx)
	if e.store != nil {
		saved, serr := e.store.InsertRun(bg, run)
		if serr != nil {
			e.log("warn", "save run failed", map[string]any{"error": serr.Error()})
		} else {
			run = saved
		}
	}
	e.metrics.ObserveRun(run.Failed())
	e.bus.Publish(logbus.TypeRun, run)

	last := run
	e.updateState(func(st *model.EngineState) {
		st.LastRun = &last
		st.CurrentAccount = ""
		if err != nil {
			st.LastError = err.Error()
		}
	})

	e.notifyRun(bg, run, ctx.Err() != nil)
	return run
}

// interrupted 为 true 时是关停打断的，不发失败通知。
func (e *Engine) notifyRun(ctx context.Context, run model.AccountRun, interrupted bool) {
	if e.notifier == nil {
		return
	}
	at := run.FinishedAt.UnixMilli()
	if run.DailyClaimed {
		e.notifier.Notify(ctx, notify.Event{At: at, Kind: notify.EventDailyClaimed, UserID: run.UserID, Username: run.Username})
	}
	if run.SpinsUsed > 0 {
		e.notifier.Notify(ctx, notify.Event{
			At:       at,
			Kind:     notify.EventSpinsFinished,
			UserID:   run.UserID,
			Username: run.Username,
			Spins:    run.SpinsUsed,
			Rewards:  run.Rewards,
		})
	}
	if run.Failed() && !interrupted {
		e.notifier.Notify(ctx, notify.Event{
			At:       at,
			Kind:     notify.EventAccountFailed,
			UserID:   run.UserID,
			Username: run.Username,
			Detail:   run.Error,
		})
	}
}

func elapsed(run model.AccountRun) time.Duration {
	return run.FinishedAt.Sub(run.StartedAt)
}
