package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Files    FilesConfig    `yaml:"files"`
	Limits   LimitsConfig   `yaml:"limits"`
	Delays   DelaysConfig   `yaml:"delays"`
	Loop     LoopConfig     `yaml:"loop"`
	Provider ProviderConfig `yaml:"provider"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// ServerConfig enables the status API when Addr is set.
type ServerConfig struct {
	Addr string     `yaml:"addr"`
	Cors CorsConfig `yaml:"cors"`
}

type CorsConfig struct {
	AllowOrigins     []string `yaml:"allowOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
}

// StorageConfig enables the run journal when SQLitePath is set.
type StorageConfig struct {
	SQLitePath string `yaml:"sqlitePath"`
}

type FilesConfig struct {
	TokenFile string `yaml:"tokenFile"`
	ProxyFile string `yaml:"proxyFile"`
}

type LimitsConfig struct {
	// QPS 限制所有远端请求的速率，Burst 为突发上限。
	QPS   float64 `yaml:"qps"`
	Burst int     `yaml:"burst"`
}

type DelaysConfig struct {
	RetryWaitMs          int `yaml:"retryWaitMs"`
	MinSpinDelayMs       int `yaml:"minSpinDelayMs"`
	MaxSpinDelayMs       int `yaml:"maxSpinDelayMs"`
	SwitchAccountDelayMs int `yaml:"switchAccountDelayMs"`
	// CooldownSeconds 账号转盘次数为 0 时的等待时间。
	CooldownSeconds int `yaml:"cooldownSeconds"`
	// SpinCooldownSeconds 用完转盘后的等待时间；0 取默认值，负数表示关闭。
	SpinCooldownSeconds int `yaml:"spinCooldownSeconds"`
	RestartDelayMs      int `yaml:"restartDelayMs"`
}

func (c DelaysConfig) RetryWait() time.Duration {
	return time.Duration(c.RetryWaitMs) * time.Millisecond
}

func (c DelaysConfig) MinSpinDelay() time.Duration {
	return time.Duration(c.MinSpinDelayMs) * time.Millisecond
}

func (c DelaysConfig) MaxSpinDelay() time.Duration {
	return time.Duration(c.MaxSpinDelayMs) * time.Millisecond
}

func (c DelaysConfig) SwitchAccountDelay() time.Duration {
	return time.Duration(c.SwitchAccountDelayMs) * time.Millisecond
}

func (c DelaysConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

func (c DelaysConfig) SpinCooldown() time.Duration {
	if c.SpinCooldownSeconds <= 0 {
		return 0
	}
	return time.Duration(c.SpinCooldownSeconds) * time.Second
}

func (c DelaysConfig) RestartDelay() time.Duration {
	return time.Duration(c.RestartDelayMs) * time.Millisecond
}

type LoopConfig struct {
	// IsolateAccounts 单个账号失败时跳过该账号，而不是让整轮重启。
	IsolateAccounts *bool `yaml:"isolateAccounts"`
	// MaxRestarts 崩溃重启次数上限，0 表示不限制。
	MaxRestarts int `yaml:"maxRestarts"`
}

func (c LoopConfig) Isolate() bool {
	if c.IsolateAccounts == nil {
		return true
	}
	return *c.IsolateAccounts
}

type ProviderConfig struct {
	AuthURL   string            `yaml:"authURL"`
	SpinURL   string            `yaml:"spinURL"`
	TaskURL   string            `yaml:"taskURL"`
	TimeoutMs int               `yaml:"timeoutMs"`
	Retry     ProviderRetryCfg  `yaml:"retry"`
	UserAgent string            `yaml:"userAgent"`
	Headers   map[string]string `yaml:"headers"`
}

type ProviderRetryCfg struct {
	Attempts int `yaml:"attempts"`
}

func (c ProviderConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

type NotifyConfig struct {
	Email EmailConfig `yaml:"email"`
}

type EmailConfig struct {
	Enabled       bool     `yaml:"enabled"`
	SMTPHost      string   `yaml:"smtpHost"`
	SMTPPort      int      `yaml:"smtpPort"`
	From          string   `yaml:"from"`
	AuthCode      string   `yaml:"authCode"`
	To            []string `yaml:"to"`
	SummaryWindow int      `yaml:"summaryWindowSeconds"`
}

func (c EmailConfig) Window() time.Duration {
	if c.SummaryWindow <= 0 {
		return 0
	}
	return time.Duration(c.SummaryWindow) * time.Second
}

var defaultHeaders = map[string]string{
	"accept":          "application/json, text/plain, */*",
	"accept-language": "en-US,en;q=0.9",
	"content-type":    "application/json",
	"Referer":         "https://tgapp.zoop.com/",
	"Referrer-Policy": "strict-origin-when-cross-origin",
}

// DefaultHeaders returns a copy of the headers the web app sends.
func DefaultHeaders() map[string]string {
	out := make(map[string]string, len(defaultHeaders))
	for k, v := range defaultHeaders {
		out[k] = v
	}
	return out
}

var envFiles = []string{".env"}

// Load reads the YAML file at path. An empty path, or a missing file, yields the
// defaults so the bot can run with only token.txt next to it.
func Load(path string) (Config, error) {
	for _, p := range envFiles {
		_ = godotenv.Load(p)
	}

	var cfg Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, err
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("ZOOP_TOKEN_FILE")); v != "" {
		c.Files.TokenFile = v
	}
	if v := strings.TrimSpace(os.Getenv("ZOOP_PROXY_FILE")); v != "" {
		c.Files.ProxyFile = v
	}
	if v := strings.TrimSpace(os.Getenv("ZOOP_STATUS_ADDR")); v != "" {
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("ZOOP_SMTP_AUTH_CODE")); v != "" {
		c.Notify.Email.AuthCode = v
	}
}

func (c *Config) applyDefaults() {
	if c.Files.TokenFile == "" {
		c.Files.TokenFile = "token.txt"
	}
	if c.Files.ProxyFile == "" {
		c.Files.ProxyFile = "proxies.txt"
	}
	if c.Limits.QPS <= 0 {
		c.Limits.QPS = 2
	}
	if c.Limits.Burst <= 0 {
		c.Limits.Burst = 2
	}
	if c.Delays.RetryWaitMs <= 0 {
		c.Delays.RetryWaitMs = 5000
	}
	if c.Delays.MinSpinDelayMs <= 0 {
		c.Delays.MinSpinDelayMs = 2000
	}
	if c.Delays.MaxSpinDelayMs <= 0 {
		c.Delays.MaxSpinDelayMs = 5000
	}
	if c.Delays.MaxSpinDelayMs < c.Delays.MinSpinDelayMs {
		c.Delays.MaxSpinDelayMs = c.Delays.MinSpinDelayMs
	}
	if c.Delays.SwitchAccountDelayMs <= 0 {
		c.Delays.SwitchAccountDelayMs = 10000
	}
	if c.Delays.CooldownSeconds <= 0 {
		c.Delays.CooldownSeconds = 1800
	}
	if c.Delays.SpinCooldownSeconds == 0 {
		c.Delays.SpinCooldownSeconds = 1800
	}
	if c.Delays.RestartDelayMs <= 0 {
		c.Delays.RestartDelayMs = 60000
	}
	if c.Loop.MaxRestarts < 0 {
		c.Loop.MaxRestarts = 0
	}
	if c.Provider.AuthURL == "" {
		c.Provider.AuthURL = "https://tgapi.zoop.com/api/oauth/telegram"
	}
	if c.Provider.SpinURL == "" {
		c.Provider.SpinURL = "https://tgapi.zoop.com/api/users/spin"
	}
	if c.Provider.TaskURL == "" {
		c.Provider.TaskURL = "https://tgapi.zoop.com/api/tasks"
	}
	c.Provider.TaskURL = strings.TrimRight(c.Provider.TaskURL, "/")
	if c.Provider.Retry.Attempts <= 0 {
		c.Provider.Retry.Attempts = 3
	}
	headers := DefaultHeaders()
	for k, v := range c.Provider.Headers {
		headers[k] = v
	}
	c.Provider.Headers = headers
	if c.Notify.Email.SMTPPort <= 0 {
		c.Notify.Email.SMTPPort = 465
	}
}

func (c Config) validate() error {
	for name, raw := range map[string]string{
		"provider.authURL": c.Provider.AuthURL,
		"provider.spinURL": c.Provider.SpinURL,
		"provider.taskURL": c.Provider.TaskURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	if c.Notify.Email.Enabled {
		if c.Notify.Email.From == "" || len(c.Notify.Email.To) == 0 {
			return errors.New("notify.email requires from and to when enabled")
		}
	}
	return nil
}
