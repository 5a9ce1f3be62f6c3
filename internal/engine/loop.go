package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"zoop_bot/internal/model"
	"zoop_bot/internal/notify"
	"zoop_bot/internal/source"
	"zoop_bot/internal/utils"
)

// ErrTooManyRestarts is returned by Run once Loop.MaxRestarts is exceeded.
var ErrTooManyRestarts = errors.New("engine: too many restarts")

// Run supervises the endless account loop. An escaped error or panic restarts the
// loop from a fresh account list after RestartDelay. Run returns nil when ctx is
// cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.updateState(func(st *model.EngineState) { st.Running = true })
	defer e.updateState(func(st *model.EngineState) {
		st.Running = false
		st.CurrentAccount = ""
	})

	restarts := 0
	for {
		err := e.runGeneration(ctx)
		if ctx.Err() != nil {
			e.log("info", "engine stopped", nil)
			return nil
		}
		restarts++
		e.metrics.ObserveRestart()
		e.updateState(func(st *model.EngineState) {
			st.Restarts = restarts
			st.LastError = err.Error()
		})
		e.log("error", fmt.Sprintf("An error occurred: %v", err), map[string]any{
			"restart": restarts,
			"kind":    string(model.KindOf(err)),
		})
		if e.notifier != nil {
			e.notifier.Notify(context.WithoutCancel(ctx), notify.Event{
				At:     e.now().UnixMilli(),
				Kind:   notify.EventCrash,
				Detail: err.Error(),
			})
		}
		if e.loop.MaxRestarts > 0 && restarts > e.loop.MaxRestarts {
			return fmt.Errorf("%w (%d): %v", ErrTooManyRestarts, e.loop.MaxRestarts, err)
		}

		e.log("info", fmt.Sprintf("Restarting in %s...", e.delays.RestartDelay()), nil)
		if err := e.sleep(ctx, e.delays.RestartDelay()); err != nil {
			return nil
		}
	}
}

// runGeneration 持续执行 RunPass，直到出错或 ctx 取消；panic 转为 error。
func (e *Engine) runGeneration(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	for {
		if err := e.RunPass(ctx); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.log("info", "All accounts processed. Restarting...", nil)
	}
}

// RunPass processes every account in the token file once, re-reading the token
// and proxy files first.
func (e *Engine) RunPass(ctx context.Context) error {
	credentials, err := source.ReadAccounts(e.files.TokenFile)
	if err != nil {
		return err
	}
	proxies, err := source.ReadProxies(e.files.ProxyFile)
	if err != nil {
		return err
	}
	switch {
	case proxies.Missing:
		e.log("warn", fmt.Sprintf("Proxy file %s does not exist. Running without proxies.", e.files.ProxyFile), nil)
	case len(proxies.Addrs) == 0:
		e.log("warn", fmt.Sprintf("Proxy file %s is empty. Running without proxies.", e.files.ProxyFile), nil)
	}

	e.updateState(func(st *model.EngineState) {
		st.Pass++
		st.Accounts = len(credentials)
	})

	for i, credential := range credentials {
		e.log("info", fmt.Sprintf("Processing account %d/%d", i+1, len(credentials)), nil)
		run, err := e.ProcessAccount(ctx, credential, proxies)
		if err != nil {
			if ctx.Err() != nil || !e.loop.Isolate() {
				return err
			}
			e.log("error", fmt.Sprintf("Account %d failed, skipping: %v", i+1, err), map[string]any{
				"userId": run.UserID,
				"kind":   string(model.KindOf(err)),
			})
		} else {
			e.log("info", fmt.Sprintf("Account %d done in %s", i+1, elapsed(run).Round(time.Millisecond)), map[string]any{
				"userId":    run.UserID,
				"spinsUsed": run.SpinsUsed,
			})
		}

		e.log("info", fmt.Sprintf("Switching to next account in %s", e.delays.SwitchAccountDelay()), nil)
		if err := e.sleep(ctx, e.delays.SwitchAccountDelay()); err != nil {
			return err
		}
		if run.Failed() {
			continue
		}
		if err := e.recheckSpins(ctx, credential, proxies); err != nil {
			if ctx.Err() != nil || !e.loop.Isolate() {
				return err
			}
			e.log("error", fmt.Sprintf("Spin re-check for account %d failed: %v", i+1, err), nil)
		}
	}
	return nil
}

// recheckSpins logs in once more only to read the spin balance; an empty balance
// puts the loop into the long cooldown.
func (e *Engine) recheckSpins(ctx context.Context, credential string, proxies source.ProxyList) error {
	userID, err := utils.ExtractUserID(credential)
	if err != nil {
		return err
	}
	sess, err := e.provider.NewSession(proxies.Pick(e.rng))
	if err != nil {
		return err
	}
	auth, err := e.authenticate(ctx, sess, credential, userID.String())
	if err != nil {
		return err
	}
	if auth.Info.Spin != 0 {
		return nil
	}
	d := e.delays.Cooldown()
	e.metrics.ObserveCooldown("zero_balance")
	e.log("info", fmt.Sprintf("Spin balance is 0, cooling down for %s", d), map[string]any{"username": auth.Info.Username})
	return e.sleep(ctx, d)
}
