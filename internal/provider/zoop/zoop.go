package zoop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"zoop_bot/internal/config"
	"zoop_bot/internal/logbus"
	"zoop_bot/internal/model"
	"zoop_bot/internal/provider"
	"zoop_bot/internal/utils"
)

type ZoopProvider struct {
	cfg config.ProviderConfig
	bus *logbus.Bus
}

var _ provider.Provider = (*ZoopProvider)(nil)

func New(cfg config.ProviderConfig, bus *logbus.Bus) *ZoopProvider {
	return &ZoopProvider{cfg: cfg, bus: bus}
}

func (p *ZoopProvider) Name() string { return "zoop" }

type Session struct {
	cfg    config.ProviderConfig
	client *resty.Client
}

var _ provider.Session = (*Session)(nil)

type apiEnvelope[T any] struct {
	Data *T `json:"data"`
}

type authReq struct {
	InitData string `json:"initData"`
}

type authData struct {
	AccessToken string `json:"access_token"`
	Information *struct {
		Username string  `json:"username"`
		Point    float64 `json:"point"`
		Spin     *int    `json:"spin"`
		IsCheat  bool    `json:"isCheat"`
	} `json:"information"`
}

type taskData struct {
	Claimed    *bool   `json:"claimed"`
	DayClaim   *string `json:"dayClaim"`
	DailyIndex *int    `json:"dailyIndex"`
}

type claimReq struct {
	Index int `json:"index"`
}

type spinReq struct {
	UserID model.UserID `json:"userId"`
	Date   string       `json:"date"`
}

type spinData struct {
	Circle *struct {
		Name string `json:"name"`
	} `json:"circle"`
}

func (p *ZoopProvider) NewSession(proxy string) (provider.Session, error) {
	client, err := p.newClient(proxy)
	if err != nil {
		return nil, err
	}
	return &Session{cfg: p.cfg, client: client}, nil
}

func (s *Session) Authenticate(ctx context.Context, initData string) (provider.AuthResult, error) {
	const op = "authenticate"
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(authReq{InitData: initData}).
		Post(s.cfg.AuthURL)
	data, _, err := decode[authData](op, resp, err)
	if err != nil {
		return provider.AuthResult{}, err
	}
	if data.AccessToken == "" {
		return provider.AuthResult{}, model.RemoteError(op, resp.StatusCode(), errors.New("missing data.access_token"))
	}
	if data.Information == nil || data.Information.Spin == nil {
		return provider.AuthResult{}, model.RemoteError(op, resp.StatusCode(), errors.New("missing data.information"))
	}
	return provider.AuthResult{
		Token: data.AccessToken,
		Info: model.UserInfo{
			Username: data.Information.Username,
			Point:    data.Information.Point,
			Spin:     *data.Information.Spin,
			IsCheat:  data.Information.IsCheat,
		},
	}, nil
}

func (s *Session) DailyStatus(ctx context.Context, token string, userID model.UserID) (model.DailyStatus, error) {
	const op = "fetch daily status"
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(s.cfg.TaskURL + "/" + url.PathEscape(userID.String()))
	data, _, err := decode[taskData](op, resp, err)
	if err != nil {
		return model.DailyStatus{}, err
	}
	if data.Claimed == nil || data.DayClaim == nil {
		return model.DailyStatus{}, model.RemoteError(op, resp.StatusCode(), errors.New("missing data.claimed or data.dayClaim"))
	}
	return model.DailyStatus{
		Claimed:    *data.Claimed,
		DayClaim:   *data.DayClaim,
		DailyIndex: data.DailyIndex,
	}, nil
}

func (s *Session) ClaimDaily(ctx context.Context, token string, userID model.UserID, index int) (provider.ClaimResult, error) {
	const op = "claim daily"
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(claimReq{Index: index}).
		Post(s.cfg.TaskURL + "/rewardDaily/" + url.PathEscape(userID.String()))
	if err := checkResponse(op, resp, err); err != nil {
		return provider.ClaimResult{}, err
	}
	body := resp.Body()
	if !json.Valid(body) {
		return provider.ClaimResult{}, model.RemoteError(op, resp.StatusCode(), errors.New("response body is not JSON"))
	}
	return provider.ClaimResult{Raw: json.RawMessage(body)}, nil
}

func (s *Session) Spin(ctx context.Context, token string, userID model.UserID, at time.Time) (provider.SpinResult, error) {
	const op = "spin"
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(spinReq{UserID: userID, Date: at.Format(time.RFC3339Nano)}).
		Post(s.cfg.SpinURL)
	data, raw, err := decode[spinData](op, resp, err)
	if err != nil {
		return provider.SpinResult{}, err
	}
	if data.Circle == nil {
		return provider.SpinResult{}, model.RemoteError(op, resp.StatusCode(), errors.New("missing data.circle"))
	}
	return provider.SpinResult{Reward: data.Circle.Name, Raw: raw}, nil
}

func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		status := 0
		if resp != nil && resp.RawResponse != nil {
			status = resp.StatusCode()
		}
		return model.RemoteError(op, status, err)
	}
	if resp == nil {
		return model.RemoteError(op, 0, errors.New("empty response"))
	}
	if !resp.IsSuccess() {
		return model.RemoteError(op, resp.StatusCode(), fmt.Errorf("unexpected status %s: %s", resp.Status(), truncate(resp.String(), 200)))
	}
	return nil
}

func decode[T any](op string, resp *resty.Response, err error) (T, json.RawMessage, error) {
	var zero T
	if err := checkResponse(op, resp, err); err != nil {
		return zero, nil, err
	}
	var env apiEnvelope[T]
	body := resp.Body()
	if err := json.Unmarshal(body, &env); err != nil {
		return zero, nil, model.RemoteError(op, resp.StatusCode(), fmt.Errorf("decode response: %w", err))
	}
	if env.Data == nil {
		return zero, nil, model.RemoteError(op, resp.StatusCode(), errors.New("missing data"))
	}
	return *env.Data, json.RawMessage(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func (p *ZoopProvider) newClient(proxy string) (*resty.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New().
		SetTimeout(p.cfg.Timeout()).
		SetCookieJar(jar).
		SetRetryCount(0).
		SetLogger(busLogger{bus: p.bus}).
		SetHeaders(p.cfg.Headers).
		SetHeader("User-Agent", utils.NormalizeWebViewUserAgent(p.cfg.UserAgent))

	if proxy != "" {
		if _, err := url.Parse(proxy); err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", proxy, err)
		}
		client.SetProxy(proxy)
	}

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if p.bus != nil {
			p.bus.Log("debug", "http request", map[string]any{
				"method": req.Method,
				"url":    req.URL,
			})
		}
		return nil
	})

	return client, nil
}

// busLogger routes resty's own diagnostics onto the log bus.
type busLogger struct {
	bus *logbus.Bus
}

func (l busLogger) Errorf(format string, v ...any) { l.log("error", format, v...) }
func (l busLogger) Warnf(format string, v ...any)  { l.log("warn", format, v...) }
func (l busLogger) Debugf(format string, v ...any) { l.log("debug", format, v...) }

func (l busLogger) log(level, format string, v ...any) {
	if l.bus == nil {
		return
	}
	l.bus.Log(level, "resty: "+fmt.Sprintf(format, v...), nil)
}
