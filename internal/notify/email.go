package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"sync"
	"time"

	"gopkg.in/gomail.v2"

	"zoop_bot/internal/config"
	"zoop_bot/internal/logbus"
)

// SendFunc delivers one composed message. Tests replace it; production uses gomail.
type SendFunc func(ctx context.Context, cfg config.EmailConfig, msg *gomail.Message) error

// EmailNotifier batches events and mails a summary when the summary window has
// been idle, when maxBatch events are pending, or on Close.
type EmailNotifier struct {
	cfg  config.EmailConfig
	bus  *logbus.Bus
	send SendFunc

	mu     sync.Mutex
	queue  chan Event
	ctx    context.Context
	cancel func()
	wg     sync.WaitGroup

	summaryWindow time.Duration
	maxBatch      int
}

func NewEmailNotifier(cfg config.EmailConfig, bus *logbus.Bus, send SendFunc) *EmailNotifier {
	if send == nil {
		send = dialAndSend
	}
	ctx, cancel := context.WithCancel(context.Background())
	n := &EmailNotifier{
		cfg:           cfg,
		bus:           bus,
		send:          send,
		queue:         make(chan Event, 200),
		ctx:           ctx,
		cancel:        cancel,
		summaryWindow: cfg.Window(),
		maxBatch:      50,
	}
	n.wg.Add(1)
	go n.loop()
	return n
}

func (n *EmailNotifier) Close(ctx context.Context) error {
	n.mu.Lock()
	cancel := n.cancel
	n.cancel = nil
	n.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *EmailNotifier) Notify(_ context.Context, evt Event) {
	if evt.At == 0 {
		evt.At = time.Now().UnixMilli()
	}
	select {
	case n.queue <- evt:
	default:
		if n.bus != nil {
			n.bus.Log("warn", "email notification dropped: queue full", map[string]any{
				"kind":   string(evt.Kind),
				"userId": evt.UserID,
			})
		}
	}
}

func (n *EmailNotifier) loop() {
	defer n.wg.Done()

	var (
		pending []Event
		timer   *time.Timer
		timerCh <-chan time.Time
	)

	stopTimer := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer = nil
		timerCh = nil
	}

	resetTimer := func() {
		if timer == nil {
			timer = time.NewTimer(n.summaryWindow)
			timerCh = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(n.summaryWindow)
	}

	flush := func(reason string) {
		stopTimer()
		if len(pending) == 0 {
			return
		}
		events := append([]Event(nil), pending...)
		pending = pending[:0]
		n.handleBatch(reason, events)
	}

	for {
		select {
		case <-n.ctx.Done():
			for {
				select {
				case evt := <-n.queue:
					pending = append(pending, evt)
					continue
				default:
				}
				break
			}
			flush("shutdown")
			return
		case evt := <-n.queue:
			pending = append(pending, evt)
			if n.maxBatch > 0 && len(pending) >= n.maxBatch {
				flush("max")
				continue
			}
			if n.summaryWindow <= 0 {
				flush("immediate")
				continue
			}
			resetTimer()
		case <-timerCh:
			flush("idle")
		}
	}
}

func (n *EmailNotifier) handleBatch(reason string, events []Event) {
	if !n.cfg.Enabled {
		return
	}
	if err := validateEmailConfig(n.cfg); err != nil {
		if n.bus != nil {
			n.bus.Log("warn", "email config invalid", map[string]any{"error": err.Error()})
		}
		return
	}
	msg, err := buildSummaryMessage(n.cfg, events)
	if err != nil {
		if n.bus != nil {
			n.bus.Log("warn", "email render failed", map[string]any{"error": err.Error()})
		}
		return
	}
	// 关闭时 n.ctx 已取消，发送使用独立的超时上下文。
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := n.send(ctx, n.cfg, msg); err != nil {
		if n.bus != nil {
			n.bus.Log("warn", "email send failed", map[string]any{
				"error":  err.Error(),
				"count":  len(events),
				"reason": reason,
			})
		}
		return
	}
	if n.bus != nil {
		n.bus.Log("info", "notification email sent", map[string]any{
			"count":  len(events),
			"reason": reason,
			"to":     strings.Join(n.cfg.To, ","),
		})
	}
}

func validateEmailConfig(c config.EmailConfig) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(c.From)); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if len(c.To) == 0 {
		return errors.New("no recipients")
	}
	for _, to := range c.To {
		if _, err := mail.ParseAddress(strings.TrimSpace(to)); err != nil {
			return fmt.Errorf("invalid recipient %q: %w", to, err)
		}
	}
	if strings.TrimSpace(c.AuthCode) == "" {
		return errors.New("authCode is required")
	}
	return nil
}

func dialAndSend(ctx context.Context, cfg config.EmailConfig, msg *gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := strings.TrimSpace(cfg.From)
	host, port, useSSL, err := smtpConfigForEmail(from)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.SMTPHost) != "" {
		host = strings.TrimSpace(cfg.SMTPHost)
		port = cfg.SMTPPort
		useSSL = port == 465
	}
	d := gomail.NewDialer(host, port, from, strings.TrimSpace(cfg.AuthCode))
	d.SSL = useSSL
	return d.DialAndSend(msg)
}

// smtpConfigForEmail guesses the SMTP endpoint from the sender's domain.
func smtpConfigForEmail(email string) (host string, port int, useSSL bool, err error) {
	parts := strings.Split(strings.TrimSpace(email), "@")
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		return "", 0, false, errors.New("invalid email format")
	}
	domain := strings.ToLower(strings.TrimSpace(parts[1]))

	switch {
	case domain == "gmail.com" || strings.HasSuffix(domain, ".gmail.com"):
		return "smtp.gmail.com", 587, false, nil
	case domain == "outlook.com" || strings.HasSuffix(domain, ".outlook.com") ||
		domain == "hotmail.com" || strings.HasSuffix(domain, ".hotmail.com") ||
		domain == "live.com" || strings.HasSuffix(domain, ".live.com"):
		return "smtp.office365.com", 587, false, nil
	case domain == "qq.com" || domain == "foxmail.com":
		return "smtp.qq.com", 465, true, nil
	case domain == "163.com" || domain == "126.com" || domain == "yeah.net":
		return "smtp.163.com", 465, true, nil
	case domain == "yahoo.com" || strings.HasSuffix(domain, ".yahoo.com"):
		return "smtp.mail.yahoo.com", 465, true, nil
	default:
		return "smtp." + domain, 465, true, nil
	}
}

func buildSummaryMessage(cfg config.EmailConfig, events []Event) (*gomail.Message, error) {
	subject := buildSummarySubject(events)
	htmlBody, textBody, err := buildSummaryEmailBody(events)
	if err != nil {
		return nil, err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(strings.TrimSpace(cfg.From), "Zoop Bot"))
	msg.SetHeader("To", cfg.To...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", textBody)
	msg.AddAlternative("text/html", htmlBody)
	return msg, nil
}

type summaryCounts struct {
	Claims   int
	Spins    int
	Failures int
	Crashes  int
}

func countEvents(events []Event) summaryCounts {
	var c summaryCounts
	for _, e := range events {
		switch e.Kind {
		case EventDailyClaimed:
			c.Claims++
		case EventSpinsFinished:
			c.Spins += e.Spins
		case EventAccountFailed:
			c.Failures++
		case EventCrash:
			c.Crashes++
		}
	}
	return c
}

func buildSummarySubject(events []Event) string {
	c := countEvents(events)
	parts := []string{}
	if c.Claims > 0 {
		parts = append(parts, fmt.Sprintf("%d daily claim(s)", c.Claims))
	}
	if c.Spins > 0 {
		parts = append(parts, fmt.Sprintf("%d spin(s)", c.Spins))
	}
	if c.Failures > 0 {
		parts = append(parts, fmt.Sprintf("%d failed account(s)", c.Failures))
	}
	if c.Crashes > 0 {
		parts = append(parts, fmt.Sprintf("%d crash(es)", c.Crashes))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("[zoop bot] %d event(s)", len(events))
	}
	return "[zoop bot] " + strings.Join(parts, ", ")
}

type summaryRow struct {
	Time    string
	Kind    string
	Account string
	Detail  string
}

var summaryHTML = template.Must(template.New("summary").Parse(`<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Time</th><th>Event</th><th>Account</th><th>Detail</th></tr>
{{range .}}<tr><td>{{.Time}}</td><td>{{.Kind}}</td><td>{{.Account}}</td><td>{{.Detail}}</td></tr>
{{end}}</table>`))

func buildSummaryEmailBody(events []Event) (htmlBody string, textBody string, err error) {
	if len(events) == 0 {
		return "", "", errors.New("no events")
	}
	rows := make([]summaryRow, 0, len(events))
	var text strings.Builder
	for _, e := range events {
		row := summaryRow{
			Time:    time.UnixMilli(e.At).Format(time.DateTime),
			Kind:    string(e.Kind),
			Account: accountLabel(e),
			Detail:  eventDetail(e),
		}
		rows = append(rows, row)
		fmt.Fprintf(&text, "%s  %-15s %-20s %s\n", row.Time, row.Kind, row.Account, row.Detail)
	}
	var buf bytes.Buffer
	if err := summaryHTML.Execute(&buf, rows); err != nil {
		return "", "", err
	}
	return buf.String(), text.String(), nil
}

func accountLabel(e Event) string {
	switch {
	case e.Username != "" && e.UserID != "":
		return e.Username + " (" + e.UserID + ")"
	case e.Username != "":
		return e.Username
	default:
		return e.UserID
	}
}

func eventDetail(e Event) string {
	switch e.Kind {
	case EventSpinsFinished:
		d := fmt.Sprintf("%d spin(s)", e.Spins)
		if len(e.Rewards) > 0 {
			d += ": " + strings.Join(e.Rewards, ", ")
		}
		return d
	default:
		return e.Detail
	}
}
