package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/newslens/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawItems(n int) []domain.RawItem {
	items := make([]domain.RawItem, n)
	for i := range items {
		items[i] = domain.RawItem{
			Title:  fmt.Sprintf("Item %d", i+1),
			Body:   "body",
			Source: fmt.Sprintf("https://example.com/%d", i+1),
		}
	}
	return items
}

func fixedFetcher(items []domain.RawItem) *MockFetcher {
	return &MockFetcher{
		FetchItemsFn: func(ctx context.Context, entity string) ([]domain.RawItem, error) {
			return items, nil
		},
	}
}

// labelAnalyzer labels items in order: positive, positive, negative, repeating.
func labelAnalyzer() *MockAnalyzer {
	labels := map[string]domain.Sentiment{
		"Item 1": domain.SentimentPositive,
		"Item 2": domain.SentimentPositive,
		"Item 3": domain.SentimentNegative,
	}
	return &MockAnalyzer{
		AnalyzeItemFn: func(ctx context.Context, item domain.RawItem) (domain.ItemAnalysis, error) {
			s, ok := labels[item.Title]
			if !ok {
				s = domain.SentimentNeutral
			}
			return domain.ItemAnalysis{Summary: "summary", Sentiment: s, Topics: []string{"Earnings"}}, nil
		},
	}
}

func newTestPipeline(t *testing.T, fetcher ItemFetcher, analyzer ItemAnalyzer, translator Translator, synthesizer Synthesizer) *Pipeline {
	t.Helper()
	p, err := NewPipeline(fetcher, analyzer, translator, synthesizer,
		PipelineConfig{AnalysisConcurrency: 2, SpeechLanguage: "hi"}, setupTestLogger())
	require.NoError(t, err)
	return p
}

func TestNewPipeline_Validation(t *testing.T) {
	logger := setupTestLogger()

	_, err := NewPipeline(nil, &MockAnalyzer{}, nil, nil, PipelineConfig{}, logger)
	assert.ErrorIs(t, err, ErrNilFetcher)

	_, err = NewPipeline(&MockFetcher{}, nil, nil, nil, PipelineConfig{}, logger)
	assert.ErrorIs(t, err, ErrNilAnalyzer)

	_, err = NewPipeline(&MockFetcher{}, &MockAnalyzer{}, nil, nil, PipelineConfig{}, nil)
	assert.ErrorIs(t, err, ErrNilLogger)

	p, err := NewPipeline(&MockFetcher{}, &MockAnalyzer{}, nil, nil, PipelineConfig{}, logger)
	require.NoError(t, err)
	assert.Equal(t, int64(4), p.config.AnalysisConcurrency)
}

func TestPipeline_Run_Success(t *testing.T) {
	t.Parallel()

	translator := &MockTranslator{
		TranslateFn: func(ctx context.Context, text, language string) (string, error) {
			return "[" + language + "] " + text, nil
		},
	}
	synth := &MockSynthesizer{}
	p := newTestPipeline(t, fixedFetcher(rawItems(3)), labelAnalyzer(), translator, synth)

	var (
		mu       sync.Mutex
		progress []Progress
	)
	result, err := p.Run(context.Background(), "Apple", func(pr Progress) {
		mu.Lock()
		defer mu.Unlock()
		progress = append(progress, pr)
	})
	require.NoError(t, err)

	require.Len(t, result.Items, 3)
	for i, item := range result.Items {
		assert.Equal(t, fmt.Sprintf("Item %d", i+1), item.Title, "input order is preserved")
		assert.Equal(t, fmt.Sprintf("https://example.com/%d", i+1), item.Source)
	}

	assert.Equal(t, "Apple", result.Entity)
	assert.Equal(t, domain.SentimentCounts{Positive: 2, Negative: 1}, result.Comparison.Distribution.Counts)
	assert.Equal(t, result.Comparison.Summary, result.Summary)
	assert.Len(t, result.Comparison.Comparisons, 3)

	require.NotNil(t, result.Speech)
	assert.True(t, result.HasAudio())
	assert.Equal(t, "[hi] Apple news analysis: "+result.Summary, result.Speech.Text)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, int64(1), synth.Calls.Load())

	require.NotEmpty(t, progress)
	assert.Equal(t, StageFetch, progress[0].Stage)
	assert.Equal(t, StageSynthesize, progress[len(progress)-1].Stage)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i].Fraction, progress[i-1].Fraction, "progress never goes back")
	}
}

func TestPipeline_Run_BoundsAnalysisConcurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int64
	analyzer := &MockAnalyzer{
		AnalyzeItemFn: func(ctx context.Context, item domain.RawItem) (domain.ItemAnalysis, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return domain.ItemAnalysis{Sentiment: domain.SentimentNeutral}, nil
		},
	}
	p := newTestPipeline(t, fixedFetcher(rawItems(10)), analyzer, nil, nil)

	result, err := p.Run(context.Background(), "Apple", nil)
	require.NoError(t, err)
	assert.Len(t, result.Items, 10)
	assert.LessOrEqual(t, peak.Load(), int64(2))
	assert.Equal(t, int64(10), analyzer.Calls.Load())
}

func TestPipeline_Run_FatalStages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fetcher  *MockFetcher
		analyzer *MockAnalyzer
		kind     ErrorKind
		stage    string
	}{
		{
			name: "fetch failure",
			fetcher: &MockFetcher{FetchItemsFn: func(ctx context.Context, entity string) ([]domain.RawItem, error) {
				return nil, errors.New("feed unavailable")
			}},
			analyzer: &MockAnalyzer{},
			kind:     KindFetch,
			stage:    StageFetch,
		},
		{
			name:    "analysis failure",
			fetcher: fixedFetcher(rawItems(4)),
			analyzer: &MockAnalyzer{AnalyzeItemFn: func(ctx context.Context, item domain.RawItem) (domain.ItemAnalysis, error) {
				if item.Title == "Item 3" {
					return domain.ItemAnalysis{}, errors.New("model overloaded")
				}
				return domain.ItemAnalysis{Sentiment: domain.SentimentPositive}, nil
			}},
			kind:  KindAnalysis,
			stage: StageAnalyze,
		},
		{
			name:    "label outside the closed set",
			fetcher: fixedFetcher(rawItems(1)),
			analyzer: &MockAnalyzer{AnalyzeItemFn: func(ctx context.Context, item domain.RawItem) (domain.ItemAnalysis, error) {
				return domain.ItemAnalysis{Sentiment: "MIXED"}, nil
			}},
			kind:  KindAnalysis,
			stage: StageAnalyze,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			synth := &MockSynthesizer{}
			p := newTestPipeline(t, tc.fetcher, tc.analyzer, nil, synth)

			result, err := p.Run(context.Background(), "Apple", nil)
			assert.Nil(t, result)

			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, tc.kind, stageErr.Kind)
			assert.Equal(t, tc.stage, stageErr.Stage)
			assert.Zero(t, synth.Calls.Load(), "later stages are abandoned")
		})
	}
}

func TestPipeline_Run_EmptyFetchIsNotFatal(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, fixedFetcher(nil), &MockAnalyzer{}, nil, nil)

	result, err := p.Run(context.Background(), "Apple", nil)
	require.NoError(t, err)
	assert.Empty(t, result.Items)
	assert.Equal(t, "No news coverage found for Apple.", result.Summary)
}

func TestPipeline_Run_SynthesisFailureIsWarning(t *testing.T) {
	t.Parallel()

	synth := &MockSynthesizer{SynthesizeFn: func(ctx context.Context, text string) (domain.Speech, error) {
		return domain.Speech{}, errors.New("tts quota exceeded")
	}}
	p := newTestPipeline(t, fixedFetcher(rawItems(2)), labelAnalyzer(), nil, synth)

	result, err := p.Run(context.Background(), "Apple", nil)
	require.NoError(t, err)
	assert.Nil(t, result.Speech)
	assert.False(t, result.HasAudio())
	require.Len(t, result.Warnings, 1)
	assert.True(t, strings.HasPrefix(result.Warnings[0], string(KindSynthesis)))
	assert.Contains(t, result.Warnings[0], "tts quota exceeded")
}

func TestPipeline_Run_EmptyAudioIsWarning(t *testing.T) {
	t.Parallel()

	synth := &MockSynthesizer{SynthesizeFn: func(ctx context.Context, text string) (domain.Speech, error) {
		return domain.Speech{}, nil
	}}
	p := newTestPipeline(t, fixedFetcher(rawItems(1)), labelAnalyzer(), nil, synth)

	result, err := p.Run(context.Background(), "Apple", nil)
	require.NoError(t, err)
	assert.Nil(t, result.Speech)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "no audio")
}

func TestPipeline_Run_TranslationFailureFallsBack(t *testing.T) {
	t.Parallel()

	translator := &MockTranslator{TranslateFn: func(ctx context.Context, text, language string) (string, error) {
		return "", errors.New("translation unavailable")
	}}
	var spoken string
	synth := &MockSynthesizer{SynthesizeFn: func(ctx context.Context, text string) (domain.Speech, error) {
		spoken = text
		return domain.Speech{Audio: []byte{1, 2}}, nil
	}}
	p := newTestPipeline(t, fixedFetcher(rawItems(1)), labelAnalyzer(), translator, synth)

	result, err := p.Run(context.Background(), "Apple", nil)
	require.NoError(t, err)
	require.NotNil(t, result.Speech)
	assert.Equal(t, "Apple news analysis: "+result.Summary, spoken)
	assert.Equal(t, spoken, result.Speech.Text)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], StageTranslate)
}

func TestPipeline_Run_NoSynthesizer(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, fixedFetcher(rawItems(1)), labelAnalyzer(), nil, nil)

	result, err := p.Run(context.Background(), "Apple", nil)
	require.NoError(t, err)
	assert.Nil(t, result.Speech)
	assert.Empty(t, result.Warnings)
}

func TestPipeline_Run_CancelledContext(t *testing.T) {
	t.Parallel()

	analyzer := &MockAnalyzer{AnalyzeItemFn: func(ctx context.Context, item domain.RawItem) (domain.ItemAnalysis, error) {
		<-ctx.Done()
		return domain.ItemAnalysis{}, ctx.Err()
	}}
	p := newTestPipeline(t, fixedFetcher(rawItems(5)), analyzer, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Run(ctx, "Apple", nil)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, KindAnalysis, stageErr.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
