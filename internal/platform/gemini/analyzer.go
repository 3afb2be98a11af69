package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/phrazzld/newslens/internal/domain"
	"google.golang.org/genai"
)

// MaxTopics caps the topics kept per item.
const MaxTopics = 5

// maxBodyRunes bounds the article text sent to the model.
const maxBodyRunes = 12000

// analysisResponse is the JSON object the model is asked to return.
type analysisResponse struct {
	Sentiment string   `json:"sentiment"`
	Score     float64  `json:"score"`
	Summary   string   `json:"summary"`
	Topics    []string `json:"topics"`
}

// Analyzer labels news items with a sentiment, a summary and key topics.
type Analyzer struct {
	client *Client
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(client *Client) *Analyzer {
	return &Analyzer{client: client}
}

// AnalyzeItem implements the pipeline's ItemAnalyzer.
func (a *Analyzer) AnalyzeItem(ctx context.Context, item domain.RawItem) (domain.ItemAnalysis, error) {
	body := strings.TrimSpace(item.Body)
	if body == "" {
		body = item.Title
	}
	if strings.TrimSpace(body) == "" {
		return domain.ItemAnalysis{}, ErrEmptyText
	}

	prompt, err := renderPrompt("analyze.tmpl", analyzePromptData{
		Title:     item.Title,
		Body:      truncateRunes(body, maxBodyRunes),
		MaxTopics: MaxTopics,
	})
	if err != nil {
		return domain.ItemAnalysis{}, err
	}

	content, err := a.client.generate(ctx, a.client.config.ModelName, prompt, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		return domain.ItemAnalysis{}, err
	}

	return parseAnalysis(item, textOf(content))
}

func parseAnalysis(item domain.RawItem, text string) (domain.ItemAnalysis, error) {
	var resp analysisResponse
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &resp); err != nil {
		return domain.ItemAnalysis{}, fmt.Errorf("%w: failed to parse JSON response: %v", ErrInvalidResponse, err)
	}

	sentiment, err := domain.ParseSentiment(resp.Sentiment)
	if err != nil {
		return domain.ItemAnalysis{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	summary := strings.TrimSpace(resp.Summary)
	if summary == "" {
		summary = item.Title
	}

	return domain.ItemAnalysis{
		Title:     item.Title,
		Summary:   summary,
		Sentiment: sentiment,
		Score:     min(max(resp.Score, 0), 1),
		Topics:    normalizeTopics(resp.Topics),
		Source:    item.Source,
	}, nil
}

// normalizeTopics trims, capitalizes and deduplicates topics, keeping at most
// MaxTopics in their original order.
func normalizeTopics(topics []string) []string {
	out := make([]string, 0, min(len(topics), MaxTopics))
	seen := make(map[string]bool, len(topics))
	for _, t := range topics {
		t = capitalize(strings.Join(strings.Fields(t), " "))
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
		if len(out) == MaxTopics {
			break
		}
	}
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// stripCodeFence removes a ```json ... ``` wrapper some models add despite
// the JSON response type.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
