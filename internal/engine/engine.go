package engine

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"zoop_bot/internal/config"
	"zoop_bot/internal/logbus"
	"zoop_bot/internal/metrics"
	"zoop_bot/internal/model"
	"zoop_bot/internal/notify"
	"zoop_bot/internal/provider"
	"zoop_bot/internal/store/sqlite"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Options struct {
	Provider provider.Provider
	Bus      *logbus.Bus
	Store    *sqlite.Store
	Notifier notify.Notifier
	Metrics  *metrics.Metrics

	Files    config.FilesConfig
	Limits   config.LimitsConfig
	Delays   config.DelaysConfig
	Loop     config.LoopConfig
	Attempts int

	// 测试注入；为空时使用真实实现。
	Sleep SleepFunc
	Now   func() time.Time
	Rand  *rand.Rand
}

// Engine drives accounts strictly one after another. It is not safe to call
// Run, RunPass or ProcessAccount concurrently; State may be read from any goroutine.
type Engine struct {
	provider provider.Provider
	bus      *logbus.Bus
	store    *sqlite.Store
	notifier notify.Notifier
	metrics  *metrics.Metrics

	files    config.FilesConfig
	delays   config.DelaysConfig
	loop     config.LoopConfig
	attempts int

	limiter *rate.Limiter
	sleep   SleepFunc
	now     func() time.Time
	rng     *rand.Rand

	mu    sync.Mutex
	state model.EngineState
}

func New(opts Options) *Engine {
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = 3
	}

	limit := rate.Inf
	if opts.Limits.QPS > 0 {
		limit = rate.Limit(opts.Limits.QPS)
	}
	burst := opts.Limits.Burst
	if burst <= 0 {
		burst = 1
	}

	e := &Engine{
		provider: opts.Provider,
		bus:      opts.Bus,
		store:    opts.Store,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		files:    opts.Files,
		delays:   opts.Delays,
		loop:     opts.Loop,
		attempts: attempts,
		limiter:  rate.NewLimiter(limit, burst),
		sleep:    opts.Sleep,
		now:      opts.Now,
		rng:      opts.Rand,
	}
	if e.sleep == nil {
		e.sleep = sleepFor
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e
}

func (e *Engine) State() model.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.state
	if out.LastRun != nil {
		run := *out.LastRun
		out.LastRun = &run
	}
	return out
}

func (e *Engine) updateState(fn func(st *model.EngineState)) {
	e.mu.Lock()
	fn(&e.state)
	st := e.state
	e.mu.Unlock()
	if e.bus != nil {
		e.bus.Publish(logbus.TypeState, st)
	}
}

func (e *Engine) log(level, msg string, fields map[string]any) {
	if e.bus != nil {
		e.bus.Log(level, msg, fields)
	}
}

func (e *Engine) waitLimit(ctx context.Context) error {
	return e.limiter.Wait(ctx)
}

// randomDelay returns a duration uniformly drawn from [min, max].
func (e *Engine) randomDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(e.rng.Int63n(int64(max-min)+1))
}

func (e *Engine) today() string {
	return e.now().Format(time.DateOnly)
}

func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
