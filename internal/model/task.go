package model

import "time"

// AccountRun summarizes one pass of the account processor.
type AccountRun struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId,omitempty"`
	Username          string    `json:"username,omitempty"`
	CredentialPreview string    `json:"credentialPreview"`
	Proxy             string    `json:"proxy,omitempty"`
	SpinsBefore       int       `json:"spinsBefore"`
	SpinsAfter        int       `json:"spinsAfter"`
	SpinsUsed         int       `json:"spinsUsed"`
	Rewards           []string  `json:"rewards,omitempty"`
	DailyClaimed      bool      `json:"dailyClaimed"`
	Points            float64   `json:"points"`
	Error             string    `json:"error,omitempty"`
	StartedAt         time.Time `json:"startedAt"`
	FinishedAt        time.Time `json:"finishedAt"`
}

func (r AccountRun) Failed() bool { return r.Error != "" }

type EngineState struct {
	Running        bool        `json:"running"`
	Pass           int         `json:"pass"`
	Restarts       int         `json:"restarts"`
	Accounts       int         `json:"accounts"`
	CurrentAccount string      `json:"currentAccount,omitempty"`
	LastError      string      `json:"lastError,omitempty"`
	LastRun        *AccountRun `json:"lastRun,omitempty"`
}

// AccountSnapshot is the last user info observed for an account.
type AccountSnapshot struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Point     float64   `json:"point"`
	Spin      int       `json:"spin"`
	IsCheat   bool      `json:"isCheat"`
	UpdatedAt time.Time `json:"updatedAt"`
}
