package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/acme/text-to-call/internal/config"
	"github.com/acme/text-to-call/internal/infra/db"
	"github.com/acme/text-to-call/internal/infra/redis"
	"github.com/acme/text-to-call/internal/pipeline"
	"github.com/acme/text-to-call/internal/queue"
	"github.com/acme/text-to-call/internal/repository"
	pgrepo "github.com/acme/text-to-call/internal/repository/postgres"
	scyllarepo "github.com/acme/text-to-call/internal/repository/scylla"
	callsvc "github.com/acme/text-to-call/internal/service/call"
	"github.com/acme/text-to-call/internal/service/concurrency"
	templatesvc "github.com/acme/text-to-call/internal/service/template"
	"github.com/acme/text-to-call/internal/speech"
	"github.com/acme/text-to-call/internal/speech/bing"
	pollyspeech "github.com/acme/text-to-call/internal/speech/polly"
	"github.com/acme/text-to-call/internal/storage"
	telephonySvc "github.com/acme/text-to-call/internal/telephony"
	telephonyMock "github.com/acme/text-to-call/internal/telephony/mock"
	telephonyTwilio "github.com/acme/text-to-call/internal/telephony/twilio"
	"github.com/acme/text-to-call/pkg/logger"
)

// Container wires together shared infrastructure dependencies.
type Container struct {
	Config *config.Config
	Logger *logger.Logger

	Postgres    *db.Postgres
	Scylla      *db.Scylla
	Redis       *redis.Client
	Kafka       *queue.Kafka
	Storage     *storage.BlobStore
	Synthesizer speech.Synthesizer

	// lazily initialised components
	components struct {
		once         sync.Once
		repositories *repositories
		services     *services
		dispatchers  *dispatchers
		providers    *providers
		limiters     *limiters
		orchestrator *pipeline.Orchestrator
	}
}

type repositories struct {
	CallStore repository.CallStore
	Templates repository.TemplateRepository
}

type services struct {
	Call     *callsvc.Service
	Template *templatesvc.Service
}

type dispatchers struct {
	JobDispatcher   *queue.JobDispatcher
	StatusPublisher *queue.StatusPublisher
	RetryScheduler  *queue.RetryScheduler
}

type providers struct {
	Telephony telephonySvc.Dispatcher
}

type limiters struct {
	Concurrency *concurrency.Limiter
}

// Build constructs a container for the given configuration path.
func Build(ctx context.Context, configPath string) (*Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, err
	}

	pg, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("bootstrap postgres: %w", err)
	}

	scylla, err := db.NewScylla(cfg.Scylla)
	if err != nil {
		return nil, fmt.Errorf("bootstrap scylla: %w", err)
	}

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}

	kafka, err := queue.NewKafka(cfg.Kafka)
	if err != nil {
		return nil, fmt.Errorf("bootstrap kafka: %w", err)
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("bootstrap storage: %w", err)
	}

	synth, err := buildSynthesizer(ctx, cfg.Speech)
	if err != nil {
		return nil, fmt.Errorf("bootstrap synthesizer: %w", err)
	}

	container := &Container{
		Config:      cfg,
		Logger:      lg,
		Postgres:    pg,
		Scylla:      scylla,
		Redis:       redisClient,
		Kafka:       kafka,
		Storage:     store,
		Synthesizer: synth,
	}

	return container, nil
}

func buildSynthesizer(ctx context.Context, cfg config.SpeechConfig) (speech.Synthesizer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "polly":
		return pollyspeech.New(ctx, cfg.PollyRegion)
	case "", "bing":
		tokens := speech.NewTokenProvider(cfg.TokenEndpoint, cfg.SubscriptionKey, nil)
		return bing.NewClient(cfg.Endpoint, tokens, cfg.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unknown speech provider %q", cfg.Provider)
	}
}

func (c *Container) initComponents() {
	c.components.once.Do(func() {
		repos := &repositories{
			CallStore: scyllarepo.NewCallStore(c.Scylla.Session()),
			Templates: pgrepo.NewTemplateRepository(c.Postgres.DB()),
		}

		disp := &dispatchers{
			JobDispatcher:   queue.NewJobDispatcher(c.Kafka, c.Config.Kafka.CallTopic),
			StatusPublisher: queue.NewStatusPublisher(c.Kafka, c.Config.Kafka.StatusTopic),
			RetryScheduler:  queue.NewRetryScheduler(c.Kafka, c.Config.Kafka.RetryTopics),
		}

		templates := c.Config.Templates
		if len(templates) == 0 {
			templates = pipeline.DefaultTemplates()
		}

		svcs := &services{
			Template: templatesvc.NewService(repos.Templates, templates),
		}
		svcs.Call = callsvc.NewService(
			repos.CallStore,
			disp.JobDispatcher,
			c.Config.Retry,
			c.Config.Telephony.CallerNumber,
		)

		provs := &providers{
			Telephony: buildTelephony(c.Config.Telephony),
		}

		lims := &limiters{
			Concurrency: concurrency.NewLimiter(c.Redis.Inner(), c.Config.Throttle.DefaultPerCallee, 0),
		}

		c.components.repositories = repos
		c.components.dispatchers = disp
		c.components.services = svcs
		c.components.providers = provs
		c.components.limiters = lims
		c.components.orchestrator = pipeline.New(
			c.Synthesizer,
			c.Storage,
			provs.Telephony,
			svcs.Template,
			c.Logger,
			pipeline.Options{
				SynthesisTimeout: c.Config.Pipeline.SynthesisTimeout,
				IntroPhrase:      c.Config.Pipeline.IntroPhrase,
			},
		)
	})
}

func buildTelephony(cfg config.TelephonyConfig) telephonySvc.Dispatcher {
	if strings.EqualFold(cfg.Provider, "mock") {
		return telephonyMock.NewProvider()
	}
	return telephonyTwilio.NewProvider(cfg)
}

// Repositories exposes initialized repositories.
func (c *Container) Repositories() *repositories {
	c.initComponents()
	return c.components.repositories
}

// Services exposes initialized services.
func (c *Container) Services() *services {
	c.initComponents()
	return c.components.services
}

// Dispatchers exposes Kafka dispatchers.
func (c *Container) Dispatchers() *dispatchers {
	c.initComponents()
	return c.components.dispatchers
}

// Providers exposes external providers.
func (c *Container) Providers() *providers {
	c.initComponents()
	return c.components.providers
}

// Limiters exposes limiter utilities.
func (c *Container) Limiters() *limiters {
	c.initComponents()
	return c.components.limiters
}

// Orchestrator exposes the text-to-call pipeline.
func (c *Container) Orchestrator() *pipeline.Orchestrator {
	c.initComponents()
	return c.components.orchestrator
}

// Close releases all held resources.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if d := c.components.dispatchers; d != nil {
		if d.JobDispatcher != nil {
			if err := d.JobDispatcher.Close(); err != nil {
				errs = append(errs, fmt.Errorf("job dispatcher close: %w", err))
			}
		}
		if d.StatusPublisher != nil {
			if err := d.StatusPublisher.Close(); err != nil {
				errs = append(errs, fmt.Errorf("status publisher close: %w", err))
			}
		}
		if d.RetryScheduler != nil {
			if err := d.RetryScheduler.Close(); err != nil {
				errs = append(errs, fmt.Errorf("retry scheduler close: %w", err))
			}
		}
	}
	if c.Kafka != nil {
		if err := c.Kafka.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka close: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if c.Scylla != nil {
		if err := c.Scylla.Close(); err != nil {
			errs = append(errs, fmt.Errorf("scylla close: %w", err))
		}
	}
	if c.Postgres != nil {
		if err := c.Postgres.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres close: %w", err))
		}
	}
	if c.Logger != nil {
		c.Logger.Sync()
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// EnsureTopics ensures required Kafka topics exist.
func (c *Container) EnsureTopics(ctx context.Context) error {
	c.initComponents()

	topics := []string{c.Config.Kafka.CallTopic, c.Config.Kafka.StatusTopic}
	if err := c.Kafka.EnsureTopics(ctx, topics, 12, 1); err != nil {
		return err
	}

	if len(c.Config.Kafka.RetryTopics) > 0 {
		if err := c.Kafka.EnsureTopics(ctx, c.Config.Kafka.RetryTopics, 12, 1); err != nil {
			return err
		}
	}

	return nil
}
