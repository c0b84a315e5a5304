// Package app builds the dependency graph shared by the api and batch
// binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"call-intelligence/internal/audit"
	"call-intelligence/internal/auth"
	"call-intelligence/internal/calls"
	"call-intelligence/internal/config"
	"call-intelligence/internal/crm"
	"call-intelligence/internal/decision"
	"call-intelligence/internal/httpapi"
	"call-intelligence/internal/knowledge"
	"call-intelligence/internal/llm"
	"call-intelligence/internal/notify"
	"call-intelligence/internal/pipeline"
	"call-intelligence/internal/recommend"
	"call-intelligence/internal/reporting"
	"call-intelligence/internal/signals"
	"call-intelligence/internal/transcription"
	"call-intelligence/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const dashboardTTL = time.Minute

// App owns every long-lived client. Close releases them in reverse order.
type App struct {
	DB     *sql.DB // nil with memory storage
	Redis  *redis.Client
	Events *notify.EventPublisher // nil when NATS is not configured
	Qdrant *knowledge.QdrantIndex // nil when Qdrant is not configured

	Auth      *auth.Manager
	Audit     *audit.Service
	Calls     *calls.Service
	Dashboard *reporting.Cache
	Reports   *reporting.Service
	Knowledge *knowledge.Service
	Mailer    *notify.Mailer
	CRM       *crm.Service
	Analyzer  signals.Analyzer
	Whisper   *transcription.WhisperClient
	Generator *recommend.Generator
	Engine    *decision.Engine
	Pipeline  *pipeline.Pipeline
	Reminders *notify.ReminderScheduler // nil unless REMINDERS_ENABLED

	log     *slog.Logger
	closers []func()
}

// Build opens every store and client named by cfg. Optional integrations
// (Qdrant, NATS, SMTP) are skipped when unconfigured.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (_ *App, err error) {
	a := &App{log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.Auth, err = auth.NewManager(cfg.Auth); err != nil {
		return nil, fmt.Errorf("auth init: %w", err)
	}

	callRepo, auditRepo, err := a.openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.Redis, err = utils.OpenRedis(ctx, utils.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("redis init: %w", err)
	}
	a.closers = append(a.closers, func() { _ = a.Redis.Close() })

	llmClient, err := llm.NewClient(llm.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Timeout:        cfg.LLM.Timeout,
		MaxRetries:     uint64(max(cfg.LLM.MaxRetries, 0)),
	})
	if err != nil {
		return nil, fmt.Errorf("llm init: %w", err)
	}

	if cfg.Qdrant.URL != "" {
		a.Qdrant, err = knowledge.NewQdrantIndex(knowledge.QdrantConfig{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Dims:       uint64(max(cfg.Qdrant.Dims, 0)),
		}, log)
		if err != nil {
			return nil, fmt.Errorf("qdrant init: %w", err)
		}
		a.closers = append(a.closers, func() { _ = a.Qdrant.Close() })
		if err := a.Qdrant.EnsureCollection(ctx); err != nil {
			return nil, fmt.Errorf("qdrant collection: %w", err)
		}
		a.Knowledge = knowledge.NewService(a.Qdrant, llmClient, knowledge.Options{
			EmbeddingModel: cfg.LLM.EmbeddingModel,
			Collection:     cfg.Qdrant.Collection,
		})
	} else {
		log.Info("qdrant not configured; company context disabled")
	}

	if cfg.NATS.URL != "" {
		a.Events, err = notify.NewEventPublisher(cfg.NATS.URL, cfg.NATS.Token, log)
		if err != nil {
			return nil, fmt.Errorf("nats init: %w", err)
		}
		a.closers = append(a.closers, a.Events.Close)
	}

	a.Audit = audit.NewService(auditRepo)
	a.Reports = reporting.NewService(callRepo)
	a.Dashboard = reporting.NewCache(a.Reports, a.Redis, dashboardTTL)

	observers := []calls.Observer{a.Dashboard}
	var sink crm.EventSink
	if a.Events != nil {
		observers = append(observers, a.Events)
		sink = a.Events
	}
	a.Calls = calls.NewService(callRepo, a.Audit, observers...)

	a.Mailer = notify.NewMailer(notify.MailConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log)
	if !a.Mailer.Enabled() {
		log.Info("smtp not configured; emails will be skipped")
	}
	a.CRM = crm.NewService(cfg.CRM.Type, a.Audit, sink)

	if cfg.Pipeline.Analyzer == config.AnalyzerLexical {
		a.Analyzer = signals.NewLexicalAnalyzer()
	} else {
		a.Analyzer = signals.NewModelAnalyzer(llmClient)
	}
	a.Generator = recommend.NewGenerator(llmClient)
	a.Engine = decision.New()

	a.Whisper = transcription.NewWhisperClient(transcription.WhisperConfig{
		URL:      cfg.Whisper.URL,
		Model:    cfg.Whisper.Model,
		Language: cfg.Whisper.Language,
		Timeout:  cfg.Whisper.Timeout,
	})
	deps := pipeline.Deps{
		Transcriber: a.Whisper,
		Analyzer:    a.Analyzer,
		Generator:   a.Generator,
		Engine:      a.Engine,
		Calls:       a.Calls,
		Notifier: notify.NewDispatcher(a.Audit, notify.ReviewerMail{
			Mailer:     a.Mailer,
			Recipients: cfg.SMTP.ReviewerEmails,
		}),
		Limiter:          pipeline.NewRedisLimiter(a.Redis, cfg.Pipeline.MaxInflightPerWorkspace, cfg.Pipeline.InflightTTL),
		BatchParallelism: cfg.Pipeline.BatchParallelism,
	}
	if a.Knowledge != nil {
		deps.Knowledge = a.Knowledge
	}
	a.Pipeline = pipeline.New(deps)

	if cfg.Reminders.Enabled {
		if !a.Mailer.Enabled() {
			log.Warn("reminders enabled but smtp not configured; no reminder will be sent")
		}
		a.Reminders = &notify.ReminderScheduler{
			Calls:      a.Calls,
			Audit:      a.Audit,
			Mailer:     a.Mailer,
			Recipients: cfg.Reminders.Recipients,
			Lock:       utils.CapLock{Client: a.Redis, Key: "reminders:tick", TTL: cfg.Reminders.Interval},
			Interval:   cfg.Reminders.Interval,
			Log:        log.With("component", "reminders"),
		}
	}
	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg config.Config) (calls.Repository, audit.Repository, error) {
	if cfg.App.Storage == config.StorageMemory {
		a.log.Warn("using in-memory storage; data is lost on restart")
		return calls.NewMemoryRepo(), audit.NewMemoryRepo(), nil
	}

	db, err := utils.OpenPostgres(ctx, utils.PgxDriver, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		return nil, nil, fmt.Errorf("postgres init: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, func() { _ = db.Close() })

	callRepo := calls.NewPostgresRepo(db)
	auditRepo := audit.NewPostgresRepo(db)
	if err := callRepo.EnsureSchema(ctx); err != nil {
		return nil, nil, fmt.Errorf("calls schema: %w", err)
	}
	if err := auditRepo.EnsureSchema(ctx); err != nil {
		return nil, nil, fmt.Errorf("audit schema: %w", err)
	}
	return callRepo, auditRepo, nil
}

// Handlers exposes the services to the HTTP layer.
func (a *App) Handlers(uploadDir string) httpapi.Handlers {
	h := httpapi.Handlers{
		Auth:      a.Auth,
		Analyzer:  a.Analyzer,
		Generator: a.Generator,
		Engine:    a.Engine,
		Pipeline:  a.Pipeline,
		Calls:     a.Calls,
		Audit:     a.Audit,
		Dashboard: a.Dashboard,
		Insights:  a.Reports,
		Mailer:    a.Mailer,
		CRM:       a.CRM,
		UploadDir: uploadDir,

		Transcriber: a.Whisper,
	}
	if a.Knowledge != nil {
		h.Knowledge = a.Knowledge
	}
	return h
}

// Ready reports the first unhealthy dependency.
func (a *App) Ready(ctx context.Context) error {
	if a.DB != nil {
		if err := utils.HealthCheck(ctx, a.DB, 2*time.Second); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if a.Qdrant != nil {
		if err := a.Qdrant.Healthy(ctx); err != nil {
			return fmt.Errorf("qdrant: %w", err)
		}
	}
	if a.Events != nil && !a.Events.Healthy() {
		return errors.New("nats: not connected")
	}
	return nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
