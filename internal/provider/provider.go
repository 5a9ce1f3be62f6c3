package provider

import (
	"context"
	"encoding/json"
	"time"

	"zoop_bot/internal/model"
)

type AuthResult struct {
	Token string         `json:"token"`
	Info  model.UserInfo `json:"information"`
}

type ClaimResult struct {
	Raw json.RawMessage `json:"raw,omitempty"`
}

type SpinResult struct {
	Reward string          `json:"reward"`
	Raw    json.RawMessage `json:"raw,omitempty"`
}

// Session is one account pass worth of transport: a single HTTP client bound to
// at most one proxy. Every method is exactly one request and never retries.
type Session interface {
	Authenticate(ctx context.Context, initData string) (AuthResult, error)
	DailyStatus(ctx context.Context, token string, userID model.UserID) (model.DailyStatus, error)
	ClaimDaily(ctx context.Context, token string, userID model.UserID, index int) (ClaimResult, error)
	Spin(ctx context.Context, token string, userID model.UserID, at time.Time) (SpinResult, error)
}

type Provider interface {
	Name() string

	// NewSession builds a fresh session; proxy may be empty.
	NewSession(proxy string) (Session, error)
}
