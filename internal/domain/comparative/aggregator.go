package comparative

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/phrazzld/newslens/internal/domain"
)

// ErrInvalidItem is returned when an item analysis cannot take part in aggregation.
var ErrInvalidItem = errors.New("invalid item analysis")

// Tone thresholds: a label owning more than this share of items sets the overall tone.
const dominanceThreshold = 0.6

// Aggregate combines per-item analyses into a sentiment distribution, pairwise
// topic comparisons and a final summary sentence.
//
// Aggregate is pure: the same entity and items always produce the same output.
// An empty item slice is valid and yields an all-zero distribution, no
// comparisons and a "no coverage" summary.
func Aggregate(entity string, items []domain.ItemAnalysis) (domain.ComparativeAnalysis, error) {
	for i, item := range items {
		if !item.Sentiment.Valid() {
			return domain.ComparativeAnalysis{}, fmt.Errorf("%w: item %d: %w (%q)",
				ErrInvalidItem, i, domain.ErrUnknownSentiment, item.Sentiment)
		}
	}

	distribution := Distribution(items)
	topicSets := make([][]string, len(items))
	for i, item := range items {
		topicSets[i] = normalizeTopics(item.Topics)
	}

	topics := countTopics(topicSets)
	tone, expectation := toneFor(distribution)

	return domain.ComparativeAnalysis{
		Distribution: distribution,
		Comparisons:  compareAll(entity, items, topicSets),
		CommonTopics: commonTopics(topics),
		Topics:       topics,
		Tone:         tone,
		Summary:      summarize(entity, distribution, tone, expectation),
	}, nil
}

// Distribution counts labels and derives percentages and the dominant label.
// With no items every percentage is zero and there is no dominant label.
func Distribution(items []domain.ItemAnalysis) domain.SentimentDistribution {
	var counts domain.SentimentCounts
	for _, item := range items {
		switch item.Sentiment {
		case domain.SentimentPositive:
			counts.Positive++
		case domain.SentimentNegative:
			counts.Negative++
		case domain.SentimentNeutral:
			counts.Neutral++
		}
	}

	total := counts.Total()
	dist := domain.SentimentDistribution{Counts: counts, Total: total}
	if total == 0 {
		return dist
	}

	dist.Percentages = domain.SentimentPercentages{
		Positive: percent(counts.Positive, total),
		Negative: percent(counts.Negative, total),
		Neutral:  percent(counts.Neutral, total),
	}

	// Ties resolve in domain.Sentiments order.
	best := -1
	for _, s := range domain.Sentiments {
		if c := counts.Get(s); c > best {
			best = c
			dist.Dominant = s
		}
	}
	return dist
}

func percent(count, total int) float64 {
	return math.Round(float64(count)*1000/float64(total)) / 10
}

// normalizeTopics trims topics and drops empty and case-insensitive duplicates,
// keeping the first spelling seen.
func normalizeTopics(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		k := strings.ToLower(t)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}

// countTopics returns per-topic item counts ordered by count descending, then topic.
func countTopics(topicSets [][]string) []domain.TopicCount {
	index := make(map[string]int)
	var counts []domain.TopicCount
	for _, set := range topicSets {
		for _, t := range set {
			k := strings.ToLower(t)
			if i, ok := index[k]; ok {
				counts[i].Count++
				continue
			}
			index[k] = len(counts)
			counts = append(counts, domain.TopicCount{Topic: t, Count: 1})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return strings.ToLower(counts[i].Topic) < strings.ToLower(counts[j].Topic)
	})
	return counts
}

func commonTopics(counts []domain.TopicCount) []string {
	common := []string{}
	for _, tc := range counts {
		if tc.Count > 1 {
			common = append(common, tc.Topic)
		}
	}
	return common
}

// compareAll builds one comparison per unordered pair of items.
func compareAll(entity string, items []domain.ItemAnalysis, topicSets [][]string) []domain.TopicComparison {
	comparisons := []domain.TopicComparison{}
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			comparisons = append(comparisons, comparePair(entity, i, j, items, topicSets))
		}
	}
	return comparisons
}

func comparePair(entity string, i, j int, items []domain.ItemAnalysis, topicSets [][]string) domain.TopicComparison {
	inB := lowerSet(topicSets[j])
	inA := lowerSet(topicSets[i])

	c := domain.TopicComparison{
		ItemA:      i,
		ItemB:      j,
		Shared:     []string{},
		OnlyA:      []string{},
		OnlyB:      []string{},
		SentimentA: items[i].Sentiment,
		SentimentB: items[j].Sentiment,
	}
	for _, t := range topicSets[i] {
		if _, ok := inB[strings.ToLower(t)]; ok {
			c.Shared = append(c.Shared, t)
		} else {
			c.OnlyA = append(c.OnlyA, t)
		}
	}
	for _, t := range topicSets[j] {
		if _, ok := inA[strings.ToLower(t)]; !ok {
			c.OnlyB = append(c.OnlyB, t)
		}
	}

	if c.SentimentA != c.SentimentB {
		c.Difference = fmt.Sprintf("Article %d has a %s sentiment, while Article %d has a %s sentiment.",
			i+1, c.SentimentA.Lower(), j+1, c.SentimentB.Lower())
		c.Impact = fmt.Sprintf("This shows varying perspectives in the news coverage about %s.", subject(entity))
	}
	return c
}

func lowerSet(topics []string) map[string]struct{} {
	set := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		set[strings.ToLower(t)] = struct{}{}
	}
	return set
}

func toneFor(dist domain.SentimentDistribution) (string, string) {
	if dist.Total == 0 {
		return "none", ""
	}
	positive := float64(dist.Counts.Positive) / float64(dist.Total)
	negative := float64(dist.Counts.Negative) / float64(dist.Total)
	switch {
	case positive > dominanceThreshold:
		return "mostly positive", "Potential positive impact expected."
	case negative > dominanceThreshold:
		return "mostly negative", "Potential challenges might be ahead."
	default:
		return "mixed", "The situation appears complex with both positive and negative aspects."
	}
}

func summarize(entity string, dist domain.SentimentDistribution, tone, expectation string) string {
	if dist.Total == 0 {
		return fmt.Sprintf("No news coverage found for %s.", subject(entity))
	}

	noun := "articles"
	if dist.Total == 1 {
		noun = "article"
	}
	return fmt.Sprintf("%s latest news coverage is %s. %s Based on %d %s, the dominant sentiment is %s.",
		possessive(entity), tone, expectation, dist.Total, noun, dist.Dominant.Lower())
}

func subject(entity string) string {
	entity = strings.TrimSpace(entity)
	if entity == "" {
		return "the company"
	}
	return entity
}

func possessive(entity string) string {
	entity = strings.TrimSpace(entity)
	if entity == "" {
		return "The company's"
	}
	if strings.HasSuffix(entity, "s") {
		return entity + "'"
	}
	return entity + "'s"
}
