package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "review_inbox/internal/adapters/http_server"
	"review_inbox/internal/adapters/llm"
	"review_inbox/internal/adapters/mailgun"
	"review_inbox/internal/adapters/observability"
	redisad "review_inbox/internal/adapters/redis"
	"review_inbox/internal/app"
	"review_inbox/internal/domain"
	"review_inbox/internal/shared"
	mysqlrepo "review_inbox/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cache.Ping(context.Background()); err != nil {
		// plan lookups fall through to MySQL on cache errors
		log.Warn().Err(err).Msg("redis not reachable")
	}

	var model domain.LanguageModel
	if cfg.LLMKey != "" {
		c, err := llm.New(llm.Options{
			BaseURL:        cfg.LLMBaseURL,
			APIKey:         cfg.LLMKey,
			Model:          cfg.LLMModel,
			RPS:            cfg.LLMRPS,
			MaxConcurrency: cfg.LLMMaxConcurrency,
			Timeout:        cfg.LLMTimeout,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("llm client")
		}
		model = c
	}

	receiver := app.NewReceiver(app.ReceiverDeps{
		Recipients: app.NewRecipientParser(cfg.InboundDomain),
		Resolver:   app.NewResolver(repo),
		Gate:       app.NewPlanGate(repo, cache, cfg.PlanCacheTTL, cfg.PaidTiers),
		Dedup:      app.NewDuplicateDetector(repo, cfg.DedupContentHash),
		Extractor:  app.NewContentExtractor(model, cfg.BodyExcerptMax, cfg.LLMTimeout),
		Writer:     app.NewWriter(repo, cfg.RawCaptureMax, cfg.WriteTimeout),
		Rejections: app.NewRejectionLogger(repo),
	})

	// http
	srv := server.New(cfg.HTTPTimeout)
	srv.MountHandlers(&server.Handlers{
		Inbound: server.WithDeadline(receiver, cfg.ProcessTimeout),
		Mailgun: mailgun.NewVerifier(cfg.MailgunSigningKey, cfg.MailgunTolerance),
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("inbound_domain", cfg.InboundDomain).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	_ = db.Close()
}
