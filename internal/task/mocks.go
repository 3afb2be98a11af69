package task

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/phrazzld/newslens/internal/domain"
)

// MockTask is a simple implementation of the Task interface for testing
type MockTask struct {
	TaskID    uuid.UUID
	TaskType  string
	ExecuteFn func(ctx context.Context) error
}

// NewMockTask creates a new MockTask with the given ID and type
func NewMockTask(id uuid.UUID, taskType string) *MockTask {
	return &MockTask{
		TaskID:    id,
		TaskType:  taskType,
		ExecuteFn: func(ctx context.Context) error { return nil },
	}
}

// ID returns the task's unique identifier
func (t *MockTask) ID() uuid.UUID {
	return t.TaskID
}

// Type returns the task type identifier
func (t *MockTask) Type() string {
	return t.TaskType
}

// Execute runs the task logic
func (t *MockTask) Execute(ctx context.Context) error {
	return t.ExecuteFn(ctx)
}

// MockFetcher implements ItemFetcher for testing. Calls counts invocations.
type MockFetcher struct {
	FetchItemsFn func(ctx context.Context, entity string) ([]domain.RawItem, error)
	Calls        atomic.Int64
}

// FetchItems implements ItemFetcher
func (m *MockFetcher) FetchItems(ctx context.Context, entity string) ([]domain.RawItem, error) {
	m.Calls.Add(1)
	if m.FetchItemsFn != nil {
		return m.FetchItemsFn(ctx, entity)
	}
	return nil, nil
}

// MockAnalyzer implements ItemAnalyzer for testing
type MockAnalyzer struct {
	AnalyzeItemFn func(ctx context.Context, item domain.RawItem) (domain.ItemAnalysis, error)
	Calls         atomic.Int64
}

// AnalyzeItem implements ItemAnalyzer. Without AnalyzeItemFn every item is neutral.
func (m *MockAnalyzer) AnalyzeItem(ctx context.Context, item domain.RawItem) (domain.ItemAnalysis, error) {
	m.Calls.Add(1)
	if m.AnalyzeItemFn != nil {
		return m.AnalyzeItemFn(ctx, item)
	}
	return domain.ItemAnalysis{Title: item.Title, Sentiment: domain.SentimentNeutral}, nil
}

// MockTranslator implements Translator for testing
type MockTranslator struct {
	TranslateFn func(ctx context.Context, text, language string) (string, error)
}

// Translate implements Translator
func (m *MockTranslator) Translate(ctx context.Context, text, language string) (string, error) {
	if m.TranslateFn != nil {
		return m.TranslateFn(ctx, text, language)
	}
	return text, nil
}

// MockSynthesizer implements Synthesizer for testing
type MockSynthesizer struct {
	SynthesizeFn func(ctx context.Context, text string) (domain.Speech, error)
	Calls        atomic.Int64
}

// Synthesize implements Synthesizer. Without SynthesizeFn it returns fixed bytes.
func (m *MockSynthesizer) Synthesize(ctx context.Context, text string) (domain.Speech, error) {
	m.Calls.Add(1)
	if m.SynthesizeFn != nil {
		return m.SynthesizeFn(ctx, text)
	}
	return domain.Speech{Audio: []byte("audio"), MIMEType: "audio/wav"}, nil
}
