// Package fetcher downloads web pages and extracts their visible text.
package fetcher

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"webqa/internal/domain"
)

// Config configures the web fetcher.
type Config struct {
	Timeout     time.Duration
	UserAgent   string
	Concurrency int
	MaxBodySize int64
}

// Fetcher is an HTTP document fetcher.
type Fetcher struct {
	client *http.Client
	cfg    Config
	logger *slog.Logger
}

var _ domain.Fetcher = (*Fetcher)(nil)

// New creates a fetcher. A nil client gets a default one.
func New(cfg Config, client *http.Client, logger *slog.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 10 << 20
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, cfg: cfg, logger: logger}
}

// Fetch downloads one page. Non-2xx responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) (domain.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Document{}, fmt.Errorf("invalid url %q: %w", url, err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Document{}, fmt.Errorf("failed to fetch %s: %s", url, resp.Status)
	}

	body := io.LimitReader(resp.Body, f.cfg.MaxBodySize)
	doc := domain.Document{ID: documentID(url), Source: url}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "text/") && mediaType != "text/html" {
		data, err := io.ReadAll(body)
		if err != nil {
			return domain.Document{}, fmt.Errorf("failed to read %s: %w", url, err)
		}
		doc.Content = normalizeText(string(data))
	} else {
		title, text, err := extractHTML(body)
		if err != nil {
			return domain.Document{}, fmt.Errorf("failed to parse %s: %w", url, err)
		}
		doc.Title = title
		doc.Content = text
	}

	f.logger.Debug("page_fetched",
		slog.String("url", url),
		slog.Int("chars", len(doc.Content)))
	return doc, nil
}

// FetchAll downloads every page concurrently. The first failure cancels the
// remaining fetches and fails the whole call. Output order equals input order.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]domain.Document, error) {
	docs := make([]domain.Document, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Concurrency)
	for i, url := range urls {
		g.Go(func() error {
			doc, err := f.Fetch(gctx, url)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func extractHTML(r io.Reader) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", err
	}
	doc.Find("script, style, noscript, template, svg").Remove()
	title = strings.TrimSpace(doc.Find("title").First().Text())

	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}
	return title, normalizeText(sel.Text()), nil
}

// normalizeText collapses whitespace inside lines and drops blank lines, keeping
// paragraph breaks as blank-line separators for the chunker.
func normalizeText(s string) string {
	var b strings.Builder
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = true
			continue
		}
		if b.Len() > 0 {
			if blank {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		b.WriteString(line)
		blank = false
	}
	return b.String()
}

func documentID(url string) string {
	h := sha1.Sum([]byte(url))
	return hex.EncodeToString(h[:8])
}
