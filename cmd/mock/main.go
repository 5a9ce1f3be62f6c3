package main

import (
	crand "crypto/rand"
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"zoop_bot/internal/utils"
)

// mockUser is the per-account state the mock remembers between calls.
type mockUser struct {
	Username  string
	Point     float64
	Spin      int
	ClaimedOn string
	DayIndex  int
}

type mockAPI struct {
	mu     sync.Mutex
	spins  int
	users  map[string]*mockUser
	tokens map[string]string
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	spins := flag.Int("spins", 3, "spins granted to a new account")
	flag.Parse()

	api := &mockAPI{
		spins:  *spins,
		users:  map[string]*mockUser{},
		tokens: map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /mock/health", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.HandleFunc("POST /api/oauth/telegram", api.handleAuth)
	mux.HandleFunc("GET /api/tasks/{id}", api.handleTask)
	mux.HandleFunc("POST /api/tasks/rewardDaily/{id}", api.handleRewardDaily)
	mux.HandleFunc("POST /api/users/spin", api.handleSpin)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("mock zoop api listening on %s", *addr)
	log.Fatal(srv.ListenAndServe())
}

func (a *mockAPI) handleAuth(w http.ResponseWriter, r *http.Request) {
	var body struct {
		InitData string `json:"initData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	id, err := utils.ExtractUserID(body.InitData)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	u := a.user(id.String())
	token := "mock_token_" + randString(16)
	a.tokens[token] = id.String()
	writeData(w, http.StatusOK, map[string]any{
		"access_token": token,
		"information": map[string]any{
			"username": u.Username,
			"point":    u.Point,
			"spin":     u.Spin,
			"isCheat":  false,
		},
	})
}

func (a *mockAPI) handleTask(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.authorized(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	today := time.Now().Format(time.DateOnly)
	writeData(w, http.StatusOK, map[string]any{
		"claimed":    u.ClaimedOn == today,
		"dayClaim":   today,
		"dailyIndex": u.DayIndex,
	})
}

func (a *mockAPI) handleRewardDaily(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.authorized(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	today := time.Now().Format(time.DateOnly)
	if u.ClaimedOn == today {
		writeError(w, http.StatusConflict, "already claimed")
		return
	}
	if body.Index != u.DayIndex {
		writeError(w, http.StatusBadRequest, "wrong day index")
		return
	}
	u.ClaimedOn = today
	u.Point += float64(100 * body.Index)
	u.DayIndex = u.DayIndex%7 + 1
	writeData(w, http.StatusOK, map[string]any{"point": u.Point})
}

func (a *mockAPI) handleSpin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID json.RawMessage `json:"userId"`
		Date   string          `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if _, err := time.Parse(time.RFC3339Nano, body.Date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.authorized(w, r, strings.Trim(string(body.UserID), `"`))
	if !ok {
		return
	}
	if u.Spin <= 0 {
		writeError(w, http.StatusBadRequest, "no spins left")
		return
	}
	// 模拟偶发的上游故障，方便观察重试。
	if rand.Intn(10) == 0 {
		writeError(w, http.StatusBadGateway, "upstream busy")
		return
	}
	prizes := []struct {
		name  string
		point float64
	}{{"10 points", 10}, {"50 points", 50}, {"100 points", 100}, {"Try again", 0}}
	prize := prizes[rand.Intn(len(prizes))]
	u.Spin--
	u.Point += prize.point
	writeData(w, http.StatusOK, map[string]any{
		"circle": map[string]any{"name": prize.name},
	})
}

func (a *mockAPI) user(id string) *mockUser {
	u, ok := a.users[id]
	if !ok {
		u = &mockUser{Username: "mock_" + id, Spin: a.spins, DayIndex: 1}
		a.users[id] = u
	}
	return u
}

// authorized checks the bearer token belongs to id; callers hold a.mu.
func (a *mockAPI) authorized(w http.ResponseWriter, r *http.Request, id string) (*mockUser, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	owner, ok := a.tokens[token]
	if !ok || owner != id {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return a.user(id), true
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"message": msg})
}

func randString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	if n <= 0 {
		return ""
	}
	raw := make([]byte, n)
	_, _ = crand.Read(raw)
	out := make([]byte, n)
	for i := range out {
		out[i] = letters[int(raw[i])%len(letters)]
	}
	return string(out)
}
