package utils

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"zoop_bot/internal/model"
)

// ExtractUserID 从 Telegram initData（URL query）里取出 user 参数中的 JSON id。
// user 缺失返回 MalformedCredential；JSON 无效或缺少 id 返回 InvalidUserPayload。
func ExtractUserID(initData string) (model.UserID, error) {
	values, parseErr := url.ParseQuery(strings.TrimSpace(initData))
	raw := values.Get("user")
	if strings.TrimSpace(raw) == "" {
		if parseErr != nil {
			return model.UserID{}, model.MalformedCredential(parseErr)
		}
		return model.UserID{}, model.MalformedCredential(errors.New("no user data found in query"))
	}

	var user struct {
		ID *model.UserID `json:"id"`
	}
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return model.UserID{}, model.InvalidUserPayload(err)
	}
	if user.ID == nil || user.ID.IsZero() {
		return model.UserID{}, model.InvalidUserPayload(errors.New("'id' not found in user data"))
	}
	return *user.ID, nil
}

// PreviewCredential 返回凭据前 10 个字符，用于日志。
func PreviewCredential(initData string) string {
	s := strings.TrimSpace(initData)
	if len(s) <= 10 {
		return s
	}
	return s[:10] + "..."
}
