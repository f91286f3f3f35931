package dataflows

import (
	"sort"
	"strings"
)

// MergeNews combines news from multiple providers into one feed.
// Duplicates are removed on (source, title), keeping the first
// occurrence; the result is ordered newest first and truncated to
// maxItems when maxItems > 0. Ordering is stable so equal timestamps
// keep their relative input order.
func MergeNews(maxItems int, feeds ...[]NewsItem) []NewsItem {
	type feedKey struct {
		Source string
		Title  string
	}

	seen := make(map[feedKey]bool)
	var merged []NewsItem
	for _, feed := range feeds {
		for _, item := range feed {
			key := feedKey{Source: item.Source, Title: item.Title}
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, item)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})

	if maxItems > 0 && len(merged) > maxItems {
		merged = merged[:maxItems]
	}
	return merged
}

// positiveWords and negativeWords form a small polarity lexicon applied
// to headlines and snippets.
var positiveWords = map[string]bool{
	"beat": true, "beats": true, "bullish": true, "buy": true,
	"gain": true, "gains": true, "growth": true, "jump": true,
	"jumps": true, "outperform": true, "profit": true, "rally": true,
	"record": true, "rise": true, "rises": true, "soar": true,
	"soars": true, "strong": true, "surge": true, "surges": true,
	"upgrade": true, "upgraded": true, "win": true, "wins": true,
}

var negativeWords = map[string]bool{
	"bearish": true, "crash": true, "cut": true, "cuts": true,
	"decline": true, "declines": true, "downgrade": true, "downgraded": true,
	"drop": true, "drops": true, "fall": true, "falls": true,
	"fears": true, "lawsuit": true, "loss": true, "losses": true,
	"miss": true, "misses": true, "plunge": true, "plunges": true,
	"recall": true, "sell": true, "slump": true, "weak": true,
}

// Summarize scores a merged feed for a ticker over a window. Each item
// counts once as positive, negative, or neutral based on lexicon hits in
// its title and snippet; the overall score is (positive-negative)/total
// in [-1, 1]. Providers absent from the feed simply contribute nothing.
func Summarize(ticker string, w DateWindow, items []NewsItem) SentimentRecord {
	rec := SentimentRecord{
		Ticker:       ticker,
		Window:       w,
		SourceCounts: make(map[string]int),
	}

	for _, item := range items {
		rec.SourceCounts[item.Source]++
		switch classify(item.Title + " " + item.Snippet) {
		case 1:
			rec.Positive++
		case -1:
			rec.Negative++
		default:
			rec.Neutral++
		}
	}

	total := rec.Positive + rec.Negative + rec.Neutral
	if total > 0 {
		rec.Score = float64(rec.Positive-rec.Negative) / float64(total)
	}
	return rec
}

// classify returns 1, -1, or 0 for a block of text by majority of
// lexicon hits.
func classify(text string) int {
	var pos, neg int
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,:;!?'\"()[]")
		if positiveWords[word] {
			pos++
		}
		if negativeWords[word] {
			neg++
		}
	}
	switch {
	case pos > neg:
		return 1
	case neg > pos:
		return -1
	default:
		return 0
	}
}
