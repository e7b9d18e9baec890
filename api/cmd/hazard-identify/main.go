package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hazard-identify/api/internal/config"
	"hazard-identify/api/internal/handle"
	"hazard-identify/api/internal/hazard"
	"hazard-identify/api/internal/httpserver"
	"hazard-identify/api/internal/llm"
	"hazard-identify/api/internal/llm/gemini"
	"hazard-identify/api/internal/llm/ollama"
	"hazard-identify/api/internal/llm/openai"
	"hazard-identify/api/internal/logger"
	"hazard-identify/api/internal/metrics"
	"hazard-identify/api/internal/ratelimit"
	"hazard-identify/api/internal/store"
	"hazard-identify/api/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "hazard-identify:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	acq, err := store.Open(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := acq.Close(); err != nil {
			log.Warn().Err(err).Msg("close storage")
		}
	}()

	if err := store.WaitReady(ctx, acq, cfg.DB.ConnectTimeout, log); err != nil {
		return fmt.Errorf("database not reachable (%s): %w", cfg.DB.SafeSummary(), err)
	}
	log.Info().Str("db", cfg.DB.SafeSummary()).Str("strategy", cfg.DB.Strategy).Msg("db connected")

	repo := store.NewHazardRepo(acq)
	if cfg.DB.AutoCreateTable {
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	// --- Model ---
	engine, err := buildEngine(cfg.LLM)
	if err != nil {
		return err
	}
	log.Info().Str("engine", engine.Name()).Str("model", engine.GetModel()).Msg("model engine ready")

	m := metrics.New()
	svc := hazard.NewService(engine, repo, hazard.Options{
		SizeGuard:     cfg.SizeGuard,
		MaxImageBytes: cfg.MaxImageBytes,
	}, m, log)

	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	limiter.StartCleanup(ctx.Done())

	// --- HTTP ---
	limits := handle.Limits{MaxUploadBytes: cfg.UploadLimit()}
	if cfg.SizeGuard {
		limits.OversizeMessage = svc.OversizeMessage()
	}
	h := handle.New(svc, repo, func(ctx context.Context) error { return store.Ping(ctx, acq) }, cfg.UploadDir, limits, log)
	srv := httpserver.New(cfg.Addr(), httpserver.NewRouter(h, m, limiter, log), log)

	var wg sync.WaitGroup
	errc := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Start(); err != nil {
			errc <- err
			stop()
		}
	}()

	// --- Telegram bot (optional) ---
	if cfg.Telegram.BotToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			stop()
			wg.Wait()
			return fmt.Errorf("telegram: %w", err)
		}
		r := &telegram.Router{
			Bot:       bot,
			Service:   svc,
			UploadDir: cfg.UploadDir,
			Limiter:   limiter,
			Log:       log.With().Str("component", "telegram").Logger(),
		}
		log.Info().Str("bot", bot.Self.UserName).Msg("telegram polling started")
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run(ctx)
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	wg.Wait()

	select {
	case err := <-errc:
		return err
	default:
		return nil
	}
}

func buildEngine(c config.LLMConfig) (llm.Engine, error) {
	engines := llm.Engines{}
	switch c.Provider {
	case "gemini":
		engines.Gemini = gemini.New(c.GeminiAPIKey, c.GeminiModel)
	case "ollama":
		eng, err := ollama.New(c.OllamaHost, c.OllamaModel, c.Timeout)
		if err != nil {
			return nil, err
		}
		engines.Ollama = eng
	default:
		engines.OpenAI = openai.New(c.APIKey, c.BaseURL, c.Model, c.Timeout)
	}
	eng, err := engines.GetEngine(c.Provider)
	if err != nil {
		return nil, fmt.Errorf("select model engine: %w", err)
	}
	return eng, nil
}
