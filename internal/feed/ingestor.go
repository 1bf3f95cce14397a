// Package feed pulls the content feed and turns unseen items into
// queue candidates.
package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/mmcdole/gofeed"

	"babbler/internal/store"
	logx "babbler/pkg/logx"
)

// Ingestor fetches and filters one feed.
type Ingestor struct {
	parser *gofeed.Parser
	log    logx.Logger
}

func New(log logx.Logger) *Ingestor {
	// Feed polls are plain GETs, safe to retry at the transport level.
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMax = 10 * time.Second
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = nil

	p := gofeed.NewParser()
	p.Client = rc.StandardClient()
	p.UserAgent = "babbler"

	return &Ingestor{parser: p, log: log}
}

// Fresh fetches the feed and splits unseen items into queue candidates
// and filtered ids.
//
// The feed's items are walked in reverse order (feeds list newest
// first), so fresh comes back oldest-first and the queue preserves
// chronological ingestion order. An unseen item whose title contains an
// ignore substring or cannot fit a post is returned in filtered: the
// caller marks it done so it is never considered again. A fetch/parse
// failure returns an error and no ids; nothing is marked seen, so the
// same items are retried on the next poll.
func (ing *Ingestor) Fresh(ctx context.Context, url string, seen map[string]struct{}, ignore []string, maxLen int) (fresh []store.Entry, filtered []string, err error) {
	parsed, err := ing.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("feed %s: %w", url, err)
	}

	for i := len(parsed.Items) - 1; i >= 0; i-- {
		item := parsed.Items[i]
		id := itemID(item)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		if hit := matchIgnore(item.Title, ignore); hit != "" {
			ing.log.Debug("ignoring entry",
				logx.String("match", hit),
				logx.String("title", item.Title),
			)
			filtered = append(filtered, id)
			continue
		}
		if maxLen > 0 && len(item.Title) > maxLen {
			ing.log.Debug("entry too long", logx.String("title", item.Title))
			filtered = append(filtered, id)
			continue
		}
		fresh = append(fresh, store.Entry{ID: id, Title: item.Title})
	}
	return fresh, filtered, nil
}

// itemID prefers the feed's own GUID, falling back to the link.
func itemID(item *gofeed.Item) string {
	if item == nil {
		return ""
	}
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}

// matchIgnore returns the first ignore substring contained in title
// (case-insensitive), or "".
func matchIgnore(title string, ignore []string) string {
	lower := strings.ToLower(title)
	for _, s := range ignore {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(s)) {
			return s
		}
	}
	return ""
}
