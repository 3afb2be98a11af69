package domain

import (
	"errors"
	"testing"
)

func TestParseSentiment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  Sentiment
	}{
		{"POSITIVE", SentimentPositive},
		{"negative", SentimentNegative},
		{" Neutral ", SentimentNeutral},
		{"LABEL_0", SentimentNegative},
		{"label_1", SentimentNeutral},
		{"LABEL_2", SentimentPositive},
	}

	for _, tc := range tests {
		got, err := ParseSentiment(tc.input)
		if err != nil {
			t.Errorf("ParseSentiment(%q) returned error: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseSentiment(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestParseSentiment_Unknown(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "MIXED", "LABEL_3", "happy"} {
		_, err := ParseSentiment(input)
		if !errors.Is(err, ErrUnknownSentiment) {
			t.Errorf("Expected ErrUnknownSentiment for %q, got %v", input, err)
		}
	}
}

func TestSentimentCounts(t *testing.T) {
	t.Parallel()

	c := SentimentCounts{Positive: 2, Negative: 1}
	if c.Get(SentimentPositive) != 2 || c.Get(SentimentNegative) != 1 || c.Get(SentimentNeutral) != 0 {
		t.Errorf("Unexpected counts: %+v", c)
	}
	if c.Get(Sentiment("OTHER")) != 0 {
		t.Error("Expected zero for an unknown label")
	}
	if c.Total() != 3 {
		t.Errorf("Expected total 3, got %d", c.Total())
	}
}

func TestAnalysisResult_HasAudio(t *testing.T) {
	t.Parallel()

	var nilResult *AnalysisResult
	if nilResult.HasAudio() {
		t.Error("Expected nil result to have no audio")
	}
	if (&AnalysisResult{}).HasAudio() {
		t.Error("Expected result without speech to have no audio")
	}
	if (&AnalysisResult{Speech: &Speech{Text: "x"}}).HasAudio() {
		t.Error("Expected speech without bytes to have no audio")
	}
	if !(&AnalysisResult{Speech: &Speech{Text: "x", Audio: []byte{1}}}).HasAudio() {
		t.Error("Expected speech with bytes to have audio")
	}
}
