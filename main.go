package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"econbot/api"
	"econbot/bank"
	"econbot/casino"
	"econbot/cogs"
	"econbot/config"
	"econbot/database"
	"econbot/economy"
	"econbot/games"
	"econbot/market"
	"econbot/metrics"
	"econbot/sessions"
	"econbot/worker"
)

const sessionSweepInterval = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loadedEnv := config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("config loaded", "dotenv", loadedEnv, "driver", cfg.DatabaseDriver, "addr", cfg.Addr)

	store, err := database.Open(ctx, database.Options{
		Driver:      cfg.DatabaseDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	presets, err := config.LoadPresets(cfg.PresetsPath)
	if err != nil {
		logger.Error("load presets", "err", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector(logger)
	rng := games.NewRNG()
	ledger := economy.NewLedger(store, logger, collector)

	votes := economy.NewTopGGClient("", cfg.TopGGToken, cfg.TopGGBotID)
	var checker economy.VoteChecker
	if votes != nil {
		checker = votes
	}
	rewards := economy.NewRewards(ledger, economy.RewardConfigFrom(cfg), rng, checker)
	casinoSvc := casino.NewService(ledger, presets, casino.LimitsFrom(&cfg), rng, collector, logger)
	bankSvc := bank.NewService(ledger, logger)
	marketSvc := market.NewService(ledger, presets.Cards, market.DefaultConfig(cfg.PackPrice), rng, logger)

	sessionStore := sessions.NewMemoryStore()
	manager := sessions.NewManager(ledger, sessionStore, presets, casinoSvc, rng, collector, logger, cfg.XPPerWager)
	if n, err := manager.Restore(ctx); err != nil {
		logger.Error("restore sessions", "err", err)
	} else if n > 0 {
		logger.Info("sessions restored", "count", n)
	}
	sessionStore.Start(sessionSweepInterval, ledger.Now, manager.Abandon)
	defer sessionStore.Close()
	defer manager.Close()

	w := worker.New(cfg.WorkerInterval, logger, collector,
		worker.Standard(marketSvc, bankSvc, economy.NewCooldownGate(ledger))...)
	go w.Run(ctx)

	server := api.New(cfg.AdminToken, logger, api.Deps{
		Ledger:   ledger,
		Bank:     bankSvc,
		Market:   marketSvc,
		Sessions: manager,
		Metrics:  collector,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "err", err)
			stop()
		}
	}()

	if cfg.BotToken == "" {
		logger.Warn("BOT_TOKEN not set, running without Discord")
	} else {
		bot := cogs.New(cogs.Deps{
			Config:   cfg,
			Presets:  presets,
			Ledger:   ledger,
			Rewards:  rewards,
			Votes:    votes,
			Casino:   casinoSvc,
			Sessions: manager,
			Bank:     bankSvc,
			Market:   marketSvc,
			Metrics:  collector,
			Logger:   logger,
		})
		dg, err := startDiscord(cfg, bot, logger)
		if err != nil {
			logger.Error("discord failed", "err", err)
			os.Exit(1)
		}
		manager.SetNotifier(cogs.Notifier(dg))
		defer dg.Close()
	}

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}

func startDiscord(cfg config.Config, bot *cogs.Bot, logger *slog.Logger) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds
	dg.AddHandler(bot.HandleInteraction)
	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		logger.Info("discord ready", "user", r.User.Username, "id", r.User.ID, "guilds", len(r.Guilds))
		if err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
			Activities: []*discordgo.Activity{{Name: "/daily", Type: discordgo.ActivityTypeGame}},
			Status:     "online",
		}); err != nil {
			logger.Warn("update status", "err", err)
		}
		// an empty guild id registers globally
		cmds, err := s.ApplicationCommandBulkOverwrite(r.User.ID, cfg.GuildID, cogs.Commands())
		if err != nil {
			logger.Error("register commands", "err", err)
			return
		}
		logger.Info("commands registered", "count", len(cmds), "guild", cfg.GuildID)
	})
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("open gateway: %w", err)
	}
	return dg, nil
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
