package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"zoop_bot/internal/config"
	"zoop_bot/internal/engine"
	"zoop_bot/internal/httpapi"
	"zoop_bot/internal/logbus"
	"zoop_bot/internal/metrics"
	"zoop_bot/internal/notify"
	"zoop_bot/internal/provider/zoop"
	"zoop_bot/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to config.yaml (optional)")
	logLevel := flag.String("log-level", "info", "console log level: debug, info, warn, error")
	noColor := flag.Bool("no-color", false, "disable colored console output")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := logbus.New(500)
	// 先订阅再启动控制台，启动日志不丢。
	consoleCh, _ := bus.Subscribe(1024)
	var consoleWG sync.WaitGroup
	consoleWG.Add(1)
	go func() {
		defer consoleWG.Done()
		logbus.RunConsole(consoleCh, os.Stdout, logbus.ConsoleOptions{MinLevel: *logLevel, NoColor: *noColor})
	}()

	code := run(ctx, cfg, bus)

	// Close 关闭通道，控制台写完剩余日志后退出。
	bus.Close()
	consoleWG.Wait()
	os.Exit(code)
}

func run(ctx context.Context, cfg config.Config, bus *logbus.Bus) int {
	bus.Log("info", "zoop bot starting", map[string]any{
		"tokenFile": cfg.Files.TokenFile,
		"proxyFile": cfg.Files.ProxyFile,
	})

	m := metrics.New("zoop_bot")

	var store *sqlite.Store
	if cfg.Storage.SQLitePath != "" {
		s, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			bus.Log("error", "open sqlite failed", map[string]any{"error": err.Error()})
			return 1
		}
		defer func() { _ = s.Close() }()
		store = s
	}

	var notifier notify.Notifier
	if cfg.Notify.Email.Enabled {
		email := notify.NewEmailNotifier(cfg.Notify.Email, bus, nil)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = email.Close(closeCtx)
		}()
		notifier = email
	}

	eng := engine.New(engine.Options{
		Provider: zoop.New(cfg.Provider, bus),
		Bus:      bus,
		Store:    store,
		Notifier: notifier,
		Metrics:  m,
		Files:    cfg.Files,
		Limits:   cfg.Limits,
		Delays:   cfg.Delays,
		Loop:     cfg.Loop,
		Attempts: cfg.Provider.Retry.Attempts,
	})

	if cfg.Server.Addr != "" {
		api := httpapi.New(httpapi.Options{
			Cfg:     cfg.Server,
			Bus:     bus,
			Store:   store,
			Engine:  eng,
			Metrics: m,
		})
		go func() {
			if err := api.ListenAndServe(ctx); err != nil {
				bus.Log("error", "status server error", map[string]any{"error": err.Error()})
			}
		}()
	}

	err := eng.Run(ctx)
	switch {
	case err == nil:
		bus.Log("info", "Bot stopped by user", nil)
		return 0
	case errors.Is(err, engine.ErrTooManyRestarts):
		bus.Log("error", "giving up", map[string]any{"error": err.Error()})
		return 1
	default:
		bus.Log("error", "engine exited", map[string]any{"error": err.Error()})
		return 1
	}
}
