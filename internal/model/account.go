package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// UserID is the platform user id. It keeps the JSON kind it was decoded from so
// that request bodies echo a numeric id back as a number.
type UserID struct {
	value   string
	numeric bool
}

func NumericUserID(v int64) UserID {
	return UserID{value: strconv.FormatInt(v, 10), numeric: true}
}

func StringUserID(v string) UserID {
	return UserID{value: v}
}

func (u UserID) String() string  { return u.value }
func (u UserID) IsZero() bool    { return u.value == "" }
func (u UserID) IsNumeric() bool { return u.numeric }

func (u UserID) MarshalJSON() ([]byte, error) {
	if u.numeric {
		return []byte(u.value), nil
	}
	return json.Marshal(u.value)
}

func (u *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return errors.New("user id is null")
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			return errors.New("user id is empty")
		}
		*u = StringUserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*u = UserID{value: n.String(), numeric: true}
	return nil
}

type UserInfo struct {
	Username string  `json:"username"`
	Point    float64 `json:"point"`
	Spin     int     `json:"spin"`
	IsCheat  bool    `json:"isCheat"`
}

type DailyStatus struct {
	Claimed    bool   `json:"claimed"`
	DayClaim   string `json:"dayClaim"`
	DailyIndex *int   `json:"dailyIndex,omitempty"`
}

// Index is the day index to claim; the platform starts at 1 when it omits it.
func (s DailyStatus) Index() int {
	if s.DailyIndex == nil {
		return 1
	}
	return *s.DailyIndex
}

// ClaimableOn reports whether a claim is valid on the given local date (2006-01-02).
func (s DailyStatus) ClaimableOn(today string) bool {
	return !s.Claimed && s.DayClaim == today
}
