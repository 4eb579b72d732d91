package wiki

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PortraitService scrapes the infobox image from a person's Wikipedia page.
type PortraitService struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewPortraitService returns a PortraitService rooted at baseURL.
func NewPortraitService(baseURL string, logger *slog.Logger) *PortraitService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortraitService{
		client:  &http.Client{Timeout: clientTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Lookup returns the portrait image URL for name, or "" when the page has no
// infobox image.
func (s *PortraitService) Lookup(ctx context.Context, name string) (string, error) {
	pageURL := s.baseURL + "/wiki/" + url.PathEscape(strings.ReplaceAll(name, " ", "_"))
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

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("could not parse %s: %w", pageURL, err)
	}

	src, ok := doc.Find("table.infobox img").First().Attr("src")
	if !ok {
		s.logger.Info("no infobox image found", "name", name)
		return "", nil
	}
	return normalizeImageURL(src), nil
}

// normalizeImageURL resolves protocol-relative image sources.
func normalizeImageURL(src string) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}
