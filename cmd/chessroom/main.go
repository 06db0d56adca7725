package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyeon-dev/chessroom/internal/archive"
	"github.com/hyeon-dev/chessroom/internal/bot"
	appcfg "github.com/hyeon-dev/chessroom/internal/config"
	"github.com/hyeon-dev/chessroom/internal/obslog"
	"github.com/hyeon-dev/chessroom/internal/session"
	"github.com/hyeon-dev/chessroom/internal/suggest"
	"github.com/hyeon-dev/chessroom/internal/wsgateway"
)

func main() {
	_ = godotenv.Load()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("log init error: %v", err)
	}

	var store archive.Store
	if cfg.RedisURL != "" {
		store, err = archive.NewRedisStore(cfg.RedisURL)
		if err != nil {
			obslog.L().Fatal("redis init error", zap.Error(err))
		}
		obslog.L().Info("result archive: redis")
	} else {
		store = archive.NewMemoryStore(0)
		obslog.L().Info("result archive: in-memory")
	}

	var suggestOpts []suggest.Option
	suggestOpts = append(suggestOpts, suggest.WithTimeout(cfg.SuggestTimeout))
	if cfg.SuggestModel != "" {
		suggestOpts = append(suggestOpts, suggest.WithModel(cfg.SuggestModel))
	}
	if cfg.SuggestBaseURL != "" {
		suggestOpts = append(suggestOpts, suggest.WithBaseURL(cfg.SuggestBaseURL))
	}
	suggester := suggest.NewClient(cfg.AnthropicAPIKey, suggestOpts...)
	if suggester.Enabled() {
		obslog.L().Info("move suggestion service enabled")
	} else {
		obslog.L().Info("move suggestion service disabled, using local selection")
	}

	delays := bot.DefaultDelays()
	if cfg.BotDelayFile != "" {
		delays, err = bot.LoadDelays(cfg.BotDelayFile)
		if err != nil {
			obslog.L().Fatal("bot delay config error", zap.Error(err))
		}
	}

	coord := session.New(session.Options{
		Suggester:      suggester,
		Store:          store,
		Delays:         delays,
		SuggestTimeout: cfg.SuggestTimeout,
	})

	gw := wsgateway.New(coord, store, cfg.AllowedOrigins)
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: gw.Router(cfg.PublicDir),
	}

	go func() {
		obslog.L().Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("serve error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	obslog.L().Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		obslog.L().Warn("shutdown error", zap.Error(err))
	}
	coord.Close()
}
