// Package wiki resolves notable people and portraits from Wikipedia pages.
package wiki

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/phantomlink/phantom-link/internal/types"
)

const (
	maxPageSize   = 4 << 20
	paragraphCap  = 3
	clientTimeout = 30 * time.Second
)

// Extractor pulls structured person fields out of locality article text.
type Extractor interface {
	Extract(ctx context.Context, city, state, articleText string) (*types.NotablePerson, error)
}

// BiographyService looks up a notable person for a locality.
type BiographyService struct {
	client    *http.Client
	extractor Extractor
	baseURL   string
	logger    *slog.Logger
}

// NewBiographyService returns a BiographyService rooted at baseURL
// (e.g. https://en.wikipedia.org).
func NewBiographyService(baseURL string, extractor Extractor, logger *slog.Logger) *BiographyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BiographyService{
		client:    &http.Client{Timeout: clientTimeout},
		extractor: extractor,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
	}
}

// Lookup resolves a notable person for (city, state). A nil person with a nil
// error means the locality has no suitable person.
func (s *BiographyService) Lookup(ctx context.Context, city, state string) (*types.NotablePerson, error) {
	articleText, err := s.fetchArticleText(ctx, fmt.Sprintf("%s, %s", city, state))
	if err != nil {
		// Small towns often live under the bare city title.
		articleText, err = s.fetchArticleText(ctx, city)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch locality article: %w", err)
		}
	}

	person, err := s.extractor.Extract(ctx, city, state, articleText)
	if err != nil {
		return nil, err
	}
	if person == nil {
		return nil, nil
	}

	bioText, err := s.fetchArticleText(ctx, person.Name)
	if err != nil {
		// The identity alone is still enough for an upgrade.
		s.logger.Warn("failed to fetch biography page", "person", person.Name, "error", err)
		return person, nil
	}
	person.Paragraphs = leadParagraphs(bioText, paragraphCap)
	return person, nil
}

// PageURL returns the article URL for a page title.
func (s *BiographyService) PageURL(title string) string {
	return s.baseURL + "/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
}

func (s *BiographyService) fetchArticleText(ctx context.Context, title string) (string, error) {
	pageURL := s.PageURL(title)
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL %s: %w", pageURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("could not fetch %s: HTTP %d", pageURL, resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, maxPageSize)
	article, err := readability.FromReader(limited, parsed)
	if err != nil {
		return "", fmt.Errorf("could not extract article from %s: %w", pageURL, err)
	}
	if article.TextContent == "" {
		return "", fmt.Errorf("no readable content extracted from %s", pageURL)
	}
	return article.TextContent, nil
}

// leadParagraphs returns the first n non-empty paragraphs of extracted text.
func leadParagraphs(text string, n int) []string {
	var paragraphs []string
	for _, block := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
			if len(paragraphs) == n {
				break
			}
		}
	}
	return paragraphs
}
