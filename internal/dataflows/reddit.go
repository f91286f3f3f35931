package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// RedditClient reads public subreddit listings for social discussion.
type RedditClient struct {
	client *resty.Client
}

// NewRedditClient creates a new Reddit client.
func NewRedditClient(cfg *Config) *RedditClient {
	client := resty.New()
	client.SetBaseURL("https://www.reddit.com")
	client.SetTimeout(cfg.RequestTimeout)
	client.SetHeader("User-Agent", cfg.RedditUserAgent)

	return &RedditClient{client: client}
}

const redditProvider = "reddit"

// Discussion categories and the subreddits each one covers.
const (
	CategoryGlobalNews  = "global_news"
	CategoryCompanyNews = "company_news"
)

var categorySubreddits = map[string][]string{
	CategoryGlobalNews:  {"worldnews", "economics", "news"},
	CategoryCompanyNews: {"stocks", "investing", "wallstreetbets", "StockMarket"},
}

// redditListing is the subreddit listing response shape.
type redditListing struct {
	Data struct {
		Children []struct {
			Kind string `json:"kind"`
			Data struct {
				Title      string  `json:"title"`
				Selftext   string  `json:"selftext"`
				Permalink  string  `json:"permalink"`
				Subreddit  string  `json:"subreddit"`
				Score      int     `json:"score"`
				CreatedUTC float64 `json:"created_utc"`
				Stickied   bool    `json:"stickied"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// TopOfCategory collects top posts from every subreddit of a category,
// keeps those published inside the window (and mentioning ticker, when
// given), and returns at most maxItems of them, newest first.
func (rc *RedditClient) TopOfCategory(ctx context.Context, category, ticker string, w DateWindow, maxItems int) ([]NewsItem, error) {
	subs, ok := categorySubreddits[category]
	if !ok {
		known := make([]string, 0, len(categorySubreddits))
		for k := range categorySubreddits {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, &InvalidInputError{Field: "category", Value: category,
			Reason: "want one of " + strings.Join(known, ", ")}
	}
	if ticker != "" {
		var err error
		if ticker, err = ValidateTicker(ticker); err != nil {
			return nil, err
		}
	}
	if maxItems <= 0 {
		maxItems = 25
	}

	var items []NewsItem
	for _, sub := range subs {
		resp, err := rc.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"t":     "month",
				"limit": "100",
			}).
			Get(fmt.Sprintf("/r/%s/top.json", sub))
		if err != nil {
			return nil, &ProviderError{Provider: redditProvider, Ticker: ticker, Cause: err}
		}
		switch resp.StatusCode() {
		case 200:
		case 403, 404:
			return nil, &ProviderError{Provider: redditProvider, Ticker: ticker, Cause: ErrNotFound}
		case 429:
			return nil, &ProviderError{Provider: redditProvider, Ticker: ticker, Cause: ErrRateLimited}
		default:
			return nil, &ProviderError{Provider: redditProvider, Ticker: ticker,
				Cause: fmt.Errorf("HTTP error %d from r/%s", resp.StatusCode(), sub)}
		}

		var listing redditListing
		if err := json.Unmarshal(resp.Body(), &listing); err != nil {
			return nil, &ProviderError{Provider: redditProvider, Ticker: ticker,
				Cause: fmt.Errorf("parse listing for r/%s: %w", sub, err)}
		}

		for _, child := range listing.Data.Children {
			if child.Kind != "t3" || child.Data.Stickied {
				continue
			}
			post := child.Data
			published := time.Unix(int64(post.CreatedUTC), 0).UTC()
			if !w.Contains(published.Format(dateLayout)) {
				continue
			}
			if ticker != "" && !mentionsTicker(post.Title+" "+post.Selftext, ticker) {
				continue
			}
			items = append(items, NewsItem{
				Source:      "reddit/r/" + post.Subreddit,
				Title:       post.Title,
				Snippet:     snippetOf(post.Selftext),
				URL:         "https://www.reddit.com" + post.Permalink,
				PublishedAt: published,
			})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items, nil
}

// mentionsTicker checks for $SYM or a word-bounded SYM in the text.
func mentionsTicker(text, ticker string) bool {
	upper := strings.ToUpper(text)
	if strings.Contains(upper, "$"+ticker) {
		return true
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(ticker) + `\b`)
	return re.MatchString(upper)
}

func snippetOf(body string) string {
	body = strings.TrimSpace(body)
	if runes := []rune(body); len(runes) > 280 {
		return string(runes[:280])
	}
	return body
}
