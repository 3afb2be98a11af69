package domain

import (
	"fmt"
	"strings"
)

// Sentiment is the closed set of labels an item analysis can carry.
type Sentiment string

// Possible sentiment values
const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
)

// Sentiments lists every label in the fixed order used for reporting and tie-breaking.
var Sentiments = []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral}

// classifierLabels maps raw classifier outputs (index-style labels) onto the closed set.
var classifierLabels = map[string]Sentiment{
	"LABEL_0": SentimentNegative,
	"LABEL_1": SentimentNeutral,
	"LABEL_2": SentimentPositive,
}

// ParseSentiment maps a label string onto the closed set, case-insensitively.
func ParseSentiment(label string) (Sentiment, error) {
	normalized := strings.ToUpper(strings.TrimSpace(label))
	if s, ok := classifierLabels[normalized]; ok {
		return s, nil
	}
	s := Sentiment(normalized)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSentiment, label)
	}
	return s, nil
}

// Valid reports whether s is one of the three known labels.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// Lower returns the label in lower case for use in prose.
func (s Sentiment) Lower() string {
	return strings.ToLower(string(s))
}

// RawItem is a single news item as returned by the fetch stage.
type RawItem struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Source string `json:"source"`
}

// ItemAnalysis is the per-item output of the analysis stage.
type ItemAnalysis struct {
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Sentiment Sentiment `json:"sentiment"`
	Score     float64   `json:"score"`
	Topics    []string  `json:"topics"`
	Source    string    `json:"source"`
}

// SentimentCounts holds the number of items per label.
type SentimentCounts struct {
	Positive int `json:"POSITIVE"`
	Negative int `json:"NEGATIVE"`
	Neutral  int `json:"NEUTRAL"`
}

// Get returns the count for a label.
func (c SentimentCounts) Get(s Sentiment) int {
	switch s {
	case SentimentPositive:
		return c.Positive
	case SentimentNegative:
		return c.Negative
	case SentimentNeutral:
		return c.Neutral
	}
	return 0
}

// Total is the sum over all labels.
func (c SentimentCounts) Total() int {
	return c.Positive + c.Negative + c.Neutral
}

// SentimentPercentages holds the share of items per label, in percent, rounded to one decimal.
type SentimentPercentages struct {
	Positive float64 `json:"POSITIVE"`
	Negative float64 `json:"NEGATIVE"`
	Neutral  float64 `json:"NEUTRAL"`
}

// SentimentDistribution summarizes labels across all analyzed items.
type SentimentDistribution struct {
	Counts      SentimentCounts      `json:"counts"`
	Percentages SentimentPercentages `json:"percentages"`
	Total       int                  `json:"total"`
	Dominant    Sentiment            `json:"dominant,omitempty"`
}

// TopicComparison describes how two items' topic coverage relates.
// Items are referenced by their zero-based position in the result.
type TopicComparison struct {
	ItemA      int       `json:"item_a"`
	ItemB      int       `json:"item_b"`
	Shared     []string  `json:"shared_topics"`
	OnlyA      []string  `json:"unique_to_a"`
	OnlyB      []string  `json:"unique_to_b"`
	SentimentA Sentiment `json:"sentiment_a"`
	SentimentB Sentiment `json:"sentiment_b"`
	Difference string    `json:"coverage_difference,omitempty"`
	Impact     string    `json:"impact,omitempty"`
}

// TopicCount is the number of items mentioning a topic.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// ComparativeAnalysis is everything the aggregator derives from a set of item analyses.
type ComparativeAnalysis struct {
	Distribution SentimentDistribution `json:"sentiment_distribution"`
	Comparisons  []TopicComparison     `json:"comparisons"`
	CommonTopics []string              `json:"common_topics"`
	Topics       []TopicCount          `json:"topic_distribution"`
	Tone         string                `json:"tone"`
	Summary      string                `json:"final_sentiment_analysis"`
}

// Speech is the optional synthesized narration of the final summary.
type Speech struct {
	Text     string `json:"text"`
	Audio    []byte `json:"audio,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
}

// AnalysisResult is the immutable output of one completed analysis task.
type AnalysisResult struct {
	Entity     string              `json:"entity"`
	Items      []ItemAnalysis      `json:"items"`
	Comparison ComparativeAnalysis `json:"comparison"`
	Summary    string              `json:"summary"`
	Speech     *Speech             `json:"speech,omitempty"`
	Warnings   []string            `json:"warnings,omitempty"`
}

// HasAudio reports whether speech audio was produced.
func (r *AnalysisResult) HasAudio() bool {
	return r != nil && r.Speech != nil && len(r.Speech.Audio) > 0
}
