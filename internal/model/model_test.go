package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserID_JSONKeepsKind(t *testing.T) {
	var num UserID
	require.NoError(t, json.Unmarshal([]byte(`42`), &num))
	assert.True(t, num.IsNumeric())
	b, err := json.Marshal(num)
	require.NoError(t, err)
	assert.Equal(t, `42`, string(b))

	var str UserID
	require.NoError(t, json.Unmarshal([]byte(`"42"`), &str))
	assert.False(t, str.IsNumeric())
	b, err = json.Marshal(str)
	require.NoError(t, err)
	assert.Equal(t, `"42"`, string(b))

	assert.Equal(t, num.String(), str.String())
	assert.NotEqual(t, num, str)
}

func TestUserID_RejectsEmpty(t *testing.T) {
	var id UserID
	assert.Error(t, json.Unmarshal([]byte(`""`), &id))
	assert.Error(t, id.UnmarshalJSON([]byte(`null`)))
	assert.Error(t, json.Unmarshal([]byte(`true`), &id))
	assert.True(t, id.IsZero())
}

func TestDailyStatus(t *testing.T) {
	three := 3
	s := DailyStatus{DayClaim: "2024-01-02", DailyIndex: &three}
	assert.Equal(t, 3, s.Index())
	assert.True(t, s.ClaimableOn("2024-01-02"))
	assert.False(t, s.ClaimableOn("2024-01-03"))

	s.Claimed = true
	assert.False(t, s.ClaimableOn("2024-01-02"))
	assert.Equal(t, 1, DailyStatus{}.Index())
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("pass: %w", RemoteError("spin", 0, cause))

	assert.ErrorIs(t, err, ErrRemoteOperation)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrMalformedCredential)
	assert.Equal(t, KindRemoteOperation, KindOf(err))
	assert.Equal(t, ErrorKind(""), KindOf(cause))

	assert.Equal(t, "spin: remote_operation (http 503): busy", RemoteError("spin", 503, errors.New("busy")).Error())
	assert.ErrorIs(t, MalformedCredential(cause), ErrMalformedCredential)
	assert.ErrorIs(t, InvalidUserPayload(cause), ErrInvalidUserPayload)
}

func TestAccountRunFailed(t *testing.T) {
	assert.False(t, AccountRun{}.Failed())
	assert.True(t, AccountRun{Error: "x"}.Failed())
}
