// Package speechcache memoizes synthesized speech in process with
// dgraph-io/ristretto, keyed by the exact text spoken.
package speechcache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/phrazzld/newslens/internal/domain"
)

// DefaultMaxBytes is used when Config.MaxBytes is not positive.
const DefaultMaxBytes = 64 << 20

// Synthesizer is the wrapped speech backend.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (domain.Speech, error)
}

// Config sizes the cache.
type Config struct {
	// MaxBytes bounds the total audio size kept.
	MaxBytes int64
	// TTL expires entries; zero keeps them until evicted.
	TTL time.Duration
}

// Cache is a Synthesizer that serves repeated texts from memory. Failed
// syntheses are never cached.
type Cache struct {
	next   Synthesizer
	cache  *ristretto.Cache[string, domain.Speech]
	ttl    time.Duration
	logger *slog.Logger
}

// New wraps next with a ristretto-backed cache.
func New(next Synthesizer, cfg Config, logger *slog.Logger) (*Cache, error) {
	if next == nil {
		return nil, fmt.Errorf("speech cache: synthesizer cannot be nil")
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, domain.Speech]{
		// ~10x the expected item count, assuming clips of ~100KB.
		NumCounters:        max(cfg.MaxBytes/100_000*10, 1000),
		MaxCost:            cfg.MaxBytes,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("speech cache: %w", err)
	}

	return &Cache{
		next:   next,
		cache:  c,
		ttl:    cfg.TTL,
		logger: logger.With("component", "speech_cache"),
	}, nil
}

// Synthesize returns the cached speech for text or calls the wrapped
// synthesizer and caches its audio.
func (c *Cache) Synthesize(ctx context.Context, text string) (domain.Speech, error) {
	if speech, ok := c.cache.Get(text); ok {
		c.logger.Debug("speech cache hit", "bytes", len(speech.Audio))
		return speech, nil
	}

	speech, err := c.next.Synthesize(ctx, text)
	if err != nil {
		return domain.Speech{}, err
	}
	if len(speech.Audio) == 0 {
		return speech, nil
	}

	cost := int64(len(speech.Audio))
	if c.ttl > 0 {
		c.cache.SetWithTTL(text, speech, cost, c.ttl)
	} else {
		c.cache.Set(text, speech, cost)
	}
	return speech, nil
}

// Wait blocks until pending writes are visible to Synthesize.
func (c *Cache) Wait() {
	c.cache.Wait()
}

// Close releases the cache's background goroutines.
func (c *Cache) Close() {
	c.cache.Close()
}
