package utils

import "strings"

const defaultWebViewUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 18_7 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148 Telegram-iOS/11.5"

// DefaultWebViewUserAgent 返回默认的“Telegram 手机端 WebView”UA。
func DefaultWebViewUserAgent() string {
	return defaultWebViewUserAgent
}

// NormalizeWebViewUserAgent 把 UA 规范为“手机端”风格；当入参为空或不像手机 UA 时，返回默认 UA。
func NormalizeWebViewUserAgent(ua string) string {
	v := strings.TrimSpace(ua)
	if v == "" {
		return defaultWebViewUserAgent
	}
	if looksLikeMobileUA(v) {
		return v
	}
	return defaultWebViewUserAgent
}

func looksLikeMobileUA(ua string) bool {
	s := strings.ToLower(ua)
	if strings.Contains(s, "telegram") {
		return true
	}
	if strings.Contains(s, "mobile") {
		return true
	}
	if strings.Contains(s, "iphone") || strings.Contains(s, "android") || strings.Contains(s, "ipad") {
		return true
	}
	return false
}
