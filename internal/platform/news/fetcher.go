package news

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/phrazzld/newslens/internal/domain"
	"github.com/phrazzld/newslens/internal/redact"
	"golang.org/x/sync/errgroup"
)

// ErrNoArticles is returned when the feed yields no usable item.
var ErrNoArticles = errors.New("no news articles found")

// maxBodyBytes bounds how much of an article page is read.
const maxBodyBytes = 2 << 20

// minBodyRunes is the shortest page text preferred over the feed description.
const minBodyRunes = 200

// Config tunes a Fetcher.
type Config struct {
	// FeedURLTemplate is a search feed URL with one %s for the escaped query.
	FeedURLTemplate string
	// MaxItems caps the number of feed entries used.
	MaxItems int
	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration
	// UserAgent is sent with every request.
	UserAgent string
	// PageConcurrency caps concurrent article page downloads.
	PageConcurrency int
}

// Fetcher reads a news search feed for an entity and extracts the linked
// article pages.
type Fetcher struct {
	client *http.Client
	config Config
	logger *slog.Logger
}

// NewFetcher creates a Fetcher. A nil client gets one with the configured
// request timeout.
func NewFetcher(client *http.Client, cfg Config, logger *slog.Logger) *Fetcher {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 10
	}
	if cfg.PageConcurrency <= 0 {
		cfg.PageConcurrency = 4
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &Fetcher{
		client: client,
		config: cfg,
		logger: logger.With("component", "news_fetcher"),
	}
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Source      string `xml:"source"`
}

// FetchItems implements the pipeline's ItemFetcher. Entries whose page and
// feed description are both empty are dropped; an empty result is an error.
func (f *Fetcher) FetchItems(ctx context.Context, entity string) ([]domain.RawItem, error) {
	entries, err := f.readFeed(ctx, entity)
	if err != nil {
		return nil, err
	}
	if len(entries) > f.config.MaxItems {
		entries = entries[:f.config.MaxItems]
	}

	items := make([]*domain.RawItem, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.config.PageConcurrency)
	for i, entry := range entries {
		g.Go(func() error {
			items[i] = f.extract(gctx, entry)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.RawItem, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoArticles
	}

	f.logger.Debug("fetched news items",
		"entity", entity,
		"feed_entries", len(entries),
		"item_count", len(out))
	return out, nil
}

func (f *Fetcher) readFeed(ctx context.Context, entity string) ([]rssItem, error) {
	feedURL := fmt.Sprintf(f.config.FeedURLTemplate, url.QueryEscape(entity))

	body, err := f.get(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("read news feed: %w", err)
	}
	defer body.Close()

	var feed rssFeed
	if err := xml.NewDecoder(body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode news feed: %w", err)
	}
	if len(feed.Channel.Items) == 0 {
		return nil, ErrNoArticles
	}
	return feed.Channel.Items, nil
}

// extract builds an item from the article page, falling back to the feed
// description when the page is unreachable or too short. It returns nil when
// neither has text.
func (f *Fetcher) extract(ctx context.Context, entry rssItem) *domain.RawItem {
	title := strings.TrimSpace(entry.Title)
	description := htmlText(entry.Description)

	body := description
	if entry.Link != "" {
		pageTitle, pageBody, err := f.fetchPage(ctx, entry.Link)
		switch {
		case err != nil:
			f.logger.Debug("article page unavailable, using feed description",
				"link", entry.Link,
				"error", redact.Error(err))
		case len([]rune(pageBody)) >= minBodyRunes || description == "":
			body = pageBody
			if title == "" {
				title = pageTitle
			}
		}
	}

	if body == "" {
		return nil
	}
	return &domain.RawItem{Title: title, Body: body, Source: entry.Link}
}

func (f *Fetcher) fetchPage(ctx context.Context, link string) (title, body string, err error) {
	rc, err := f.get(ctx, link)
	if err != nil {
		return "", "", err
	}
	defer rc.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(rc, maxBodyBytes))
	if err != nil {
		return "", "", fmt.Errorf("parse article page: %w", err)
	}

	title = strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	paragraphs := doc.Find("article p")
	if paragraphs.Length() == 0 {
		paragraphs = doc.Find("p")
	}
	var parts []string
	paragraphs.Each(func(_ int, p *goquery.Selection) {
		if text := strings.Join(strings.Fields(p.Text()), " "); text != "" {
			parts = append(parts, text)
		}
	})
	return title, strings.Join(parts, "\n"), nil
}

func (f *Fetcher) get(ctx context.Context, target string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.RequestTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.config.UserAgent != "" {
		req.Header.Set("User-Agent", f.config.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("request %s: %w", req.URL.Host, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%s returned %s", req.URL.Host, resp.Status)
	}
	return cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// htmlText flattens an HTML fragment, as found in feed descriptions, to text.
func htmlText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
