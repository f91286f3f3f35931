package dataflows

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// GoogleNewsClient scrapes Google News search results for topical news.
type GoogleNewsClient struct {
	client *resty.Client
}

// NewGoogleNewsClient creates a new Google News client.
func NewGoogleNewsClient(cfg *Config) *GoogleNewsClient {
	client := resty.New()
	client.SetBaseURL("https://news.google.com")
	client.SetTimeout(cfg.RequestTimeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; TradingAgents/1.0)")

	return &GoogleNewsClient{client: client}
}

const googleNewsProvider = "googlenews"

// Search fetches articles matching a free-text query inside a window,
// returning at most maxResults items.
func (gc *GoogleNewsClient) Search(ctx context.Context, query string, w DateWindow, maxResults int) ([]NewsItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &InvalidInputError{Field: "query", Value: "", Reason: "cannot be empty"}
	}
	if maxResults <= 0 {
		maxResults = 20
	}

	// Google News honors after:/before: terms inside the query itself.
	q := fmt.Sprintf("%s after:%s before:%s", query, w.Start, w.End)

	resp, err := gc.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":    q,
			"hl":   "en",
			"gl":   "US",
			"ceid": "US:en",
		}).
		Get("/search")
	if err != nil {
		return nil, &ProviderError{Provider: googleNewsProvider, Cause: err}
	}
	switch resp.StatusCode() {
	case 200:
	case 429:
		return nil, &ProviderError{Provider: googleNewsProvider, Cause: ErrRateLimited}
	default:
		return nil, &ProviderError{Provider: googleNewsProvider,
			Cause: fmt.Errorf("HTTP error %d when fetching Google News", resp.StatusCode())}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, &ProviderError{Provider: googleNewsProvider,
			Cause: fmt.Errorf("parse HTML: %w", err)}
	}

	items := parseGoogleNewsHTML(doc)
	if len(items) > maxResults {
		items = items[:maxResults]
	}
	return items, nil
}

// parseGoogleNewsHTML extracts articles from the search result page.
func parseGoogleNewsHTML(doc *goquery.Document) []NewsItem {
	var items []NewsItem

	doc.Find("article").Each(func(i int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find("h3").Text())
		if title == "" {
			title = strings.TrimSpace(s.Find("h4").Text())
		}
		if title == "" {
			return
		}

		link := s.Find("a").First()
		href, exists := link.Attr("href")
		if !exists {
			return
		}

		source := strings.TrimSpace(s.Find("div[data-n-tid]").Text())
		if source == "" {
			source = "Google News"
		}

		timeText := strings.TrimSpace(s.Find("time").Text())
		publishedAt := parseRelativeTime(timeText)
		if datetime, ok := s.Find("time").Attr("datetime"); ok {
			if t, err := time.Parse(time.RFC3339, datetime); err == nil {
				publishedAt = t
			}
		}

		items = append(items, NewsItem{
			Source:      source,
			Title:       title,
			Snippet:     strings.TrimSpace(s.Find("span").Last().Text()),
			URL:         cleanGoogleNewsURL(href),
			PublishedAt: publishedAt,
		})
	})

	return items
}

// cleanGoogleNewsURL removes the Google News redirect wrapper.
func cleanGoogleNewsURL(googleURL string) string {
	if strings.Contains(googleURL, "url=") {
		parts := strings.Split(googleURL, "url=")
		if len(parts) > 1 {
			if decoded, err := url.QueryUnescape(parts[1]); err == nil {
				return decoded
			}
		}
	}
	if strings.HasPrefix(googleURL, "./") {
		return "https://news.google.com" + googleURL[1:]
	}
	if strings.HasPrefix(googleURL, "/") {
		return "https://news.google.com" + googleURL
	}
	return googleURL
}

var (
	minutesAgoRe = regexp.MustCompile(`(\d+)\s*minutes?\s*ago`)
	hoursAgoRe   = regexp.MustCompile(`(\d+)\s*hours?\s*ago`)
	daysAgoRe    = regexp.MustCompile(`(\d+)\s*days?\s*ago`)
)

// parseRelativeTime converts strings like "3 hours ago" to a timestamp.
func parseRelativeTime(timeText string) time.Time {
	now := time.Now()
	timeText = strings.ToLower(strings.TrimSpace(timeText))

	if timeText == "" || timeText == "just now" {
		return now
	}
	if m := minutesAgoRe.FindStringSubmatch(timeText); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return now.Add(-time.Duration(n) * time.Minute)
		}
	}
	if m := hoursAgoRe.FindStringSubmatch(timeText); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return now.Add(-time.Duration(n) * time.Hour)
		}
	}
	if m := daysAgoRe.FindStringSubmatch(timeText); len(m) > 1 {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return now.Add(-time.Duration(n) * 24 * time.Hour)
		}
	}

	// Unparseable relative times are treated as recent.
	return now.Add(-1 * time.Hour)
}
