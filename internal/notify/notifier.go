package notify

import "context"

type EventKind string

const (
	EventDailyClaimed  EventKind = "daily_claimed"
	EventSpinsFinished EventKind = "spins_finished"
	EventAccountFailed EventKind = "account_failed"
	EventCrash         EventKind = "crash"
)

type Event struct {
	At       int64     `json:"atMs"`
	Kind     EventKind `json:"kind"`
	UserID   string    `json:"userId,omitempty"`
	Username string    `json:"username,omitempty"`
	Spins    int       `json:"spins,omitempty"`
	Rewards  []string  `json:"rewards,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, evt Event)
}
