package engine

import (
	"context"
	"errors"
	"math/rand"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zoop_bot/internal/config"
	"zoop_bot/internal/model"
	"zoop_bot/internal/provider"
)

var errBoom = model.RemoteError("spin", 502, errors.New("bad gateway"))

// fakeSession answers from canned values and counts every call.
type fakeSession struct {
	mu sync.Mutex

	authInfo  []model.UserInfo // consumed in order; the last one repeats
	authErr   error
	status    []model.DailyStatus
	statusErr error
	spinErrs  []error // per call; nil entries succeed
	claimErr  error

	authCalls   int
	statusCalls int
	claimIdx    []int
	spinCalls   int
}

func (s *fakeSession) Authenticate(_ context.Context, _ string) (provider.AuthResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authCalls++
	if s.authErr != nil {
		return provider.AuthResult{}, s.authErr
	}
	if len(s.authInfo) == 0 {
		return provider.AuthResult{Token: "tok"}, nil
	}
	i := s.authCalls - 1
	if i >= len(s.authInfo) {
		i = len(s.authInfo) - 1
	}
	return provider.AuthResult{Token: "tok", Info: s.authInfo[i]}, nil
}

func (s *fakeSession) DailyStatus(_ context.Context, _ string, _ model.UserID) (model.DailyStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCalls++
	if s.statusErr != nil {
		return model.DailyStatus{}, s.statusErr
	}
	if len(s.status) == 0 {
		return model.DailyStatus{Claimed: true}, nil
	}
	i := s.statusCalls - 1
	if i >= len(s.status) {
		i = len(s.status) - 1
	}
	return s.status[i], nil
}

func (s *fakeSession) ClaimDaily(_ context.Context, _ string, _ model.UserID, index int) (provider.ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claimIdx = append(s.claimIdx, index)
	return provider.ClaimResult{}, s.claimErr
}

func (s *fakeSession) Spin(_ context.Context, _ string, _ model.UserID, _ time.Time) (provider.SpinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spinCalls++
	if i := s.spinCalls - 1; i < len(s.spinErrs) && s.spinErrs[i] != nil {
		return provider.SpinResult{}, s.spinErrs[i]
	}
	return provider.SpinResult{Reward: "10 points"}, nil
}

// fakeProvider hands out the same session for every pass.
type fakeProvider struct {
	sess    *fakeSession
	proxies []string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) NewSession(proxy string) (provider.Session, error) {
	p.proxies = append(p.proxies, proxy)
	return p.sess, nil
}

// recordingSleeper never blocks; it only remembers the requested durations.
type recordingSleeper struct {
	mu     sync.Mutex
	calls  []time.Duration
	cancel context.CancelFunc
	after  int // cancel once this many sleeps were requested (0 = never)
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.calls = append(r.calls, d)
	n := len(r.calls)
	r.mu.Unlock()
	if r.after > 0 && n >= r.after && r.cancel != nil {
		r.cancel()
	}
	return ctx.Err()
}

func (r *recordingSleeper) count(d time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == d {
			n++
		}
	}
	return n
}

func testDelays() config.DelaysConfig {
	return config.DelaysConfig{
		RetryWaitMs:          5000,
		MinSpinDelayMs:       2000,
		MaxSpinDelayMs:       2000,
		SwitchAccountDelayMs: 10000,
		CooldownSeconds:      1800,
		SpinCooldownSeconds:  900,
		RestartDelayMs:       60000,
	}
}

func newTestEngine(t *testing.T, p provider.Provider, sleeper *recordingSleeper, mutate func(*Options)) *Engine {
	t.Helper()
	dir := t.TempDir()
	opts := Options{
		Provider: p,
		Files: config.FilesConfig{
			TokenFile: filepath.Join(dir, "token.txt"),
			ProxyFile: filepath.Join(dir, "proxies.txt"),
		},
		Delays:   testDelays(),
		Attempts: 3,
		Sleep:    sleeper.Sleep,
		Now:      func() time.Time { return time.Date(2024, 1, 2, 9, 0, 0, 0, time.Local) },
		Rand:     rand.New(rand.NewSource(1)),
	}
	if mutate != nil {
		mutate(&opts)
	}
	return New(opts)
}

func credential(id string) string {
	v := url.Values{}
	v.Set("user", `{"id":`+id+`,"first_name":"x"}`)
	v.Set("auth_date", "1700000000")
	return v.Encode()
}

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
}

func intPtr(v int) *int { return &v }
