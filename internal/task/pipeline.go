package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/newslens/internal/domain"
	"github.com/phrazzld/newslens/internal/domain/comparative"
	nlotel "github.com/phrazzld/newslens/internal/platform/otel"
	"github.com/phrazzld/newslens/internal/redact"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ItemFetcher retrieves the raw news items for an entity.
type ItemFetcher interface {
	FetchItems(ctx context.Context, entity string) ([]domain.RawItem, error)
}

// ItemAnalyzer labels one item with a sentiment, a summary and its topics.
type ItemAnalyzer interface {
	AnalyzeItem(ctx context.Context, item domain.RawItem) (domain.ItemAnalysis, error)
}

// Translator translates text into the given language.
type Translator interface {
	Translate(ctx context.Context, text, language string) (string, error)
}

// Synthesizer turns text into speech audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (domain.Speech, error)
}

// PipelineConfig tunes a Pipeline.
type PipelineConfig struct {
	// AnalysisConcurrency caps concurrent AnalyzeItem calls within one task.
	AnalysisConcurrency int64

	// SpeechLanguage is the language the spoken summary is translated into.
	// Empty skips translation.
	SpeechLanguage string
}

// Pipeline runs the analysis stages for one entity. It holds no per-task
// state and is shared by all tasks.
type Pipeline struct {
	fetcher     ItemFetcher
	analyzer    ItemAnalyzer
	translator  Translator
	synthesizer Synthesizer
	config      PipelineConfig
	logger      *slog.Logger
}

// NewPipeline creates a Pipeline. translator and synthesizer may be nil; a nil
// synthesizer disables speech entirely.
func NewPipeline(
	fetcher ItemFetcher,
	analyzer ItemAnalyzer,
	translator Translator,
	synthesizer Synthesizer,
	config PipelineConfig,
	logger *slog.Logger,
) (*Pipeline, error) {
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	if analyzer == nil {
		return nil, ErrNilAnalyzer
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if config.AnalysisConcurrency <= 0 {
		config.AnalysisConcurrency = 4
	}

	return &Pipeline{
		fetcher:     fetcher,
		analyzer:    analyzer,
		translator:  translator,
		synthesizer: synthesizer,
		config:      config,
		logger:      logger.With("component", "analysis_pipeline"),
	}, nil
}

// Run executes fetch, per-item analysis, aggregation and optional speech.
// Failures in the first three stages are returned as *StageError. Speech
// failures are recorded as warnings on the result.
func (p *Pipeline) Run(ctx context.Context, entity string, report func(Progress)) (*domain.AnalysisResult, error) {
	if report == nil {
		report = func(Progress) {}
	}
	logger := p.logger.With("entity", entity)

	report(Progress{Stage: StageFetch, Fraction: 0.05})
	items, err := p.fetch(ctx, entity)
	if err != nil {
		return nil, err
	}
	logger.Debug("fetched items", "item_count", len(items))

	report(Progress{Stage: StageAnalyze, Fraction: 0.2})
	analyses, err := p.analyze(ctx, items, report)
	if err != nil {
		return nil, err
	}

	report(Progress{Stage: StageAggregate, Fraction: 0.8})
	comparison, err := p.aggregate(ctx, entity, analyses)
	if err != nil {
		return nil, err
	}

	result := &domain.AnalysisResult{
		Entity:     entity,
		Items:      analyses,
		Comparison: comparison,
		Summary:    comparison.Summary,
	}

	if p.synthesizer != nil {
		report(Progress{Stage: StageSynthesize, Fraction: 0.9})
		result.Speech, result.Warnings = p.speak(ctx, entity, comparison.Summary)
		for _, w := range result.Warnings {
			logger.Warn("analysis completed with warning", "warning", w)
		}
	}

	return result, nil
}

func (p *Pipeline) fetch(ctx context.Context, entity string) (items []domain.RawItem, err error) {
	ctx, span := nlotel.StartStageSpan(ctx, StageFetch)
	defer func() { nlotel.EndSpan(span, err) }()

	items, err = p.fetcher.FetchItems(ctx, entity)
	if err != nil {
		return nil, NewStageError(KindFetch, StageFetch, err)
	}
	span.SetAttributes(attribute.Int("pipeline.item_count", len(items)))
	return items, nil
}

// analyze runs AnalyzeItem for every item, at most AnalysisConcurrency at a
// time, and keeps the input order. The first failure cancels the rest.
func (p *Pipeline) analyze(ctx context.Context, items []domain.RawItem, report func(Progress)) (out []domain.ItemAnalysis, err error) {
	ctx, span := nlotel.StartStageSpan(ctx, StageAnalyze,
		attribute.Int("pipeline.item_count", len(items)),
		attribute.Int64("pipeline.concurrency", p.config.AnalysisConcurrency))
	defer func() { nlotel.EndSpan(span, err) }()

	out = make([]domain.ItemAnalysis, len(items))
	if len(items) == 0 {
		return out, nil
	}

	sem := semaphore.NewWeighted(p.config.AnalysisConcurrency)
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	done := 0

	var acquireErr error
	for i, item := range items {
		if err := sem.Acquire(gctx, 1); err != nil {
			acquireErr = err
			break
		}
		g.Go(func() error {
			defer sem.Release(1)

			analysis, err := p.analyzer.AnalyzeItem(gctx, item)
			if err != nil {
				return NewStageError(KindAnalysis, StageAnalyze, fmt.Errorf("item %d (%s): %w", i+1, item.Title, err))
			}
			if !analysis.Sentiment.Valid() {
				return NewStageError(KindAnalysis, StageAnalyze,
					fmt.Errorf("item %d: %w %q", i+1, domain.ErrUnknownSentiment, analysis.Sentiment))
			}
			if analysis.Title == "" {
				analysis.Title = item.Title
			}
			if analysis.Source == "" {
				analysis.Source = item.Source
			}
			out[i] = analysis

			mu.Lock()
			done++
			report(Progress{Stage: StageAnalyze, Fraction: 0.2 + 0.6*float64(done)/float64(len(items))})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if acquireErr != nil {
		return nil, NewStageError(KindAnalysis, StageAnalyze, acquireErr)
	}
	return out, nil
}

func (p *Pipeline) aggregate(ctx context.Context, entity string, analyses []domain.ItemAnalysis) (c domain.ComparativeAnalysis, err error) {
	_, span := nlotel.StartStageSpan(ctx, StageAggregate)
	defer func() { nlotel.EndSpan(span, err) }()

	c, err = comparative.Aggregate(entity, analyses)
	if err != nil {
		return domain.ComparativeAnalysis{}, NewStageError(KindAggregation, StageAggregate, err)
	}
	return c, nil
}

// speak never fails the task. It returns the speech, or nil and the warnings
// explaining why there is none.
func (p *Pipeline) speak(ctx context.Context, entity, summary string) (*domain.Speech, []string) {
	ctx, span := nlotel.StartStageSpan(ctx, StageSynthesize)
	defer span.End()

	var warnings []string
	text := fmt.Sprintf("%s news analysis: %s", entity, summary)

	if p.translator != nil && p.config.SpeechLanguage != "" {
		translated, err := p.translator.Translate(ctx, text, p.config.SpeechLanguage)
		switch {
		case err != nil:
			warnings = append(warnings, warning(StageTranslate, err))
		case translated != "":
			text = translated
		}
	}

	start := time.Now()
	speech, err := p.synthesizer.Synthesize(ctx, text)
	if err == nil && len(speech.Audio) == 0 {
		err = errors.New("synthesizer returned no audio")
	}
	if err != nil {
		span.RecordError(err)
		return nil, append(warnings, warning(StageSynthesize, err))
	}

	speech.Text = text
	p.logger.Debug("synthesized speech",
		"bytes", len(speech.Audio),
		"duration_ms", time.Since(start).Milliseconds())
	return &speech, warnings
}

func warning(stage string, err error) string {
	return fmt.Sprintf("%s: %s stage failed: %s", KindSynthesis, stage, redact.Error(err))
}
