package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fsub_bot/internal/access"
	"fsub_bot/internal/bot"
	"fsub_bot/internal/config"
	"fsub_bot/internal/gate"
	"fsub_bot/internal/joinreq"
	"fsub_bot/internal/membership"
	"fsub_bot/internal/platform"
	"fsub_bot/internal/scheduler"
	"fsub_bot/internal/storage"
	"fsub_bot/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Logging.Level, cfg.Logging.JSONFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Error("open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Error("create bot api", "error", err)
		os.Exit(1)
	}
	log.Info("authorized", "username", api.Self.UserName, "bot_id", api.Self.ID)

	vars := storage.NewVars(store)
	client := platform.NewTelegram(api)
	checker := membership.NewChecker(client, api.Self.ID, log)
	cache := gate.NewConfigCache(vars, checker, cfg.Gate.ConfigRefresh, log)
	tracker := joinreq.NewTracker(vars, log)
	eval := gate.NewEvaluator(cache, checker, tracker, client, cfg.Gate.InviteTTL, nil, log)
	gatekeeper := gate.NewGatekeeper(eval, gate.NewPassCache(cfg.Gate.PassTTL), nil)

	operators := access.NewOperators(vars, cfg.StaticOperators())
	if err := operators.Seed(ctx, cfg.Access.OwnerID); err != nil {
		log.Error("seed owner", "owner_id", cfg.Access.OwnerID, "error", err)
		os.Exit(1)
	}

	machine := workflow.New(workflow.Config{
		Vars:    vars,
		Auth:    operators,
		Members: checker,
		Client:  client,
		Cache:   cache,
		Timeout: cfg.Gate.WorkflowTimeout,
		Log:     log,
	})

	b := bot.New(api, bot.Deps{
		Gate:      gatekeeper,
		Workflows: machine,
		Operators: operators,
		Requests:  tracker,
		Vars:      vars,
		Chats:     client,
	}, bot.Options{
		Username:       api.Self.UserName,
		PollingTimeout: cfg.Telegram.PollingTimeout,
		RequestTimeout: cfg.Telegram.RequestTimeout,
	}, log)

	if err := b.RegisterCommands(); err != nil {
		log.Warn("register commands", "error", err)
	}

	sched := scheduler.New(machine, gatekeeper.Passes(), b, log)

	log.Info("starting bot", "store", cfg.Store.Backend)

	go sched.Run(ctx)

	b.Run(ctx)

	log.Info("bot stopped")
}

func openStore(ctx context.Context, cfg config.StoreConfig) (storage.KV, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		return storage.NewRedis(ctx, storage.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create data directory %s: %w", dir, err)
			}
		}
		return storage.NewSQLite(cfg.DatabasePath)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func newLogger(level string, json bool) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
