package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zoop_bot/internal/model"
)

func initData(user string) string {
	v := url.Values{}
	v.Set("query_id", "AAH")
	if user != "" {
		v.Set("user", user)
	}
	v.Set("auth_date", "1700000000")
	v.Set("hash", "deadbeef")
	return v.Encode()
}

func TestExtractUserID(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		numeric bool
	}{
		{"numeric id", initData(`{"id":123456789,"first_name":"A"}`), "123456789", true},
		{"large numeric id", initData(`{"id":7012345678901}`), "7012345678901", true},
		{"string id", initData(`{"id":"abc-1"}`), "abc-1", false},
		{"surrounding whitespace", "  " + initData(`{"id":5}`) + "\n", "5", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := ExtractUserID(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, id.String())
			assert.Equal(t, tc.numeric, id.IsNumeric())
		})
	}
}

func TestExtractUserID_MalformedCredential(t *testing.T) {
	for _, in := range []string{"", "auth_date=1&hash=x", initData(""), "user=", "user=%20%20"} {
		_, err := ExtractUserID(in)
		require.ErrorIs(t, err, model.ErrMalformedCredential, "input %q", in)
		assert.Equal(t, model.KindMalformedCredential, model.KindOf(err))
	}
}

func TestExtractUserID_InvalidUserPayload(t *testing.T) {
	for _, user := range []string{`{not json`, `{"name":"x"}`, `{"id":null}`, `{"id":""}`, `[1,2]`} {
		_, err := ExtractUserID(initData(user))
		require.ErrorIs(t, err, model.ErrInvalidUserPayload, "user %q", user)
	}
}

func TestPreviewCredential(t *testing.T) {
	assert.Equal(t, "short", PreviewCredential(" short "))
	assert.Equal(t, "query_id=A...", PreviewCredential("query_id=AAH&user=x"))
}

func TestNormalizeWebViewUserAgent(t *testing.T) {
	assert.Equal(t, DefaultWebViewUserAgent(), NormalizeWebViewUserAgent(""))
	assert.Equal(t, DefaultWebViewUserAgent(), NormalizeWebViewUserAgent("curl/8.0"))
	android := "Mozilla/5.0 (Linux; Android 14) Mobile Safari/537.36"
	assert.Equal(t, android, NormalizeWebViewUserAgent(android))
}
