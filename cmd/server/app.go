package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/newslens/internal/config"
	"github.com/phrazzld/newslens/internal/events"
	"github.com/phrazzld/newslens/internal/platform/gemini"
	"github.com/phrazzld/newslens/internal/platform/news"
	nlotel "github.com/phrazzld/newslens/internal/platform/otel"
	"github.com/phrazzld/newslens/internal/platform/speechcache"
	"github.com/phrazzld/newslens/internal/service"
	"github.com/phrazzld/newslens/internal/task"
)

// application holds the shared dependencies so they can be shut down in order.
type application struct {
	config *config.Config
	logger *slog.Logger

	registry        *task.Registry
	taskRunner      *task.TaskRunner
	speechCache     *speechcache.Cache
	analysisService service.AnalysisService
}

// collaborators are the external services a pipeline talks to. Tests replace
// them with fakes.
type collaborators struct {
	fetcher     task.ItemFetcher
	analyzer    task.ItemAnalyzer
	translator  task.Translator
	synthesizer task.Synthesizer
}

// newApplication wires the Gemini-backed collaborators and builds the application.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	client, err := gemini.NewClient(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	logger.Info("Gemini client initialized", "model", cfg.LLM.ModelName)

	c := collaborators{
		fetcher: news.NewFetcher(nil, news.Config{
			FeedURLTemplate: cfg.News.FeedURLTemplate,
			MaxItems:        cfg.News.MaxItems,
			RequestTimeout:  cfg.News.RequestTimeout(),
			UserAgent:       cfg.News.UserAgent,
			PageConcurrency: cfg.News.AnalysisConcurrency,
		}, logger),
		analyzer:   gemini.NewAnalyzer(client),
		translator: gemini.NewTranslator(client),
	}
	if cfg.Speech.Enabled {
		c.synthesizer = gemini.NewSynthesizer(client)
	}

	return buildApplication(cfg, logger, c)
}

// buildApplication assembles the registry, pipeline, runner and service
// around the given collaborators and starts the runner.
func buildApplication(cfg *config.Config, logger *slog.Logger, c collaborators) (*application, error) {
	app := &application{config: cfg, logger: logger}

	metrics, err := nlotel.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(metrics)

	app.registry = task.NewRegistry(logger,
		task.WithEmitter(emitter),
		task.WithMaxCompleted(cfg.Task.MaxCompletedEntries))

	synthesizer := c.synthesizer
	if synthesizer != nil {
		app.speechCache, err = speechcache.New(synthesizer, speechcache.Config{
			MaxBytes: cfg.Speech.CacheMaxBytes,
			TTL:      cfg.Speech.CacheTTL(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create speech cache: %w", err)
		}
		synthesizer = app.speechCache
	}

	pipeline, err := task.NewPipeline(c.fetcher, c.analyzer, c.translator, synthesizer, task.PipelineConfig{
		AnalysisConcurrency: int64(cfg.News.AnalysisConcurrency),
		SpeechLanguage:      cfg.LLM.SpeechLanguage,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis pipeline: %w", err)
	}

	factory := task.NewAnalysisTaskFactory(app.registry, pipeline, cfg.Task.TaskTimeout(), logger)

	app.taskRunner = task.NewTaskRunner(app.registry, task.TaskRunnerConfig{
		WorkerCount:  cfg.Task.WorkerCount,
		QueueSize:    cfg.Task.QueueSize,
		StuckTaskAge: cfg.Task.StuckTaskAge(),
	}, logger)
	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	app.analysisService, err = service.NewAnalysisService(app.registry, factory, app.taskRunner, metrics, logger)
	if err != nil {
		app.taskRunner.Stop()
		return nil, fmt.Errorf("failed to create analysis service: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// Run serves HTTP until a shutdown signal or ctx cancellation, then cleans up.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background work once no new requests can arrive.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	if app.speechCache != nil {
		app.speechCache.Close()
	}
}
