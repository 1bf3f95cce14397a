package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	logx "babbler/pkg/logx"
)

// rssDoc builds a minimal RSS document. Items are given newest-first,
// the way feeds are published.
func rssDoc(items ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`)
	for _, it := range items {
		b.WriteString(it)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func rssItem(id, title, pubDate string) string {
	return fmt.Sprintf(
		`<item><guid>%s</guid><title>%s</title><pubDate>%s</pubDate></item>`,
		id, title, pubDate,
	)
}

func serveFeed(t *testing.T, body *string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(*body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestFreshOldestFirst(t *testing.T) {
	t.Parallel()
	body := rssDoc(
		rssItem("e3", "third", "Wed, 03 Jan 2024 10:00:00 GMT"),
		rssItem("e2", "second", "Tue, 02 Jan 2024 10:00:00 GMT"),
		rssItem("e1", "first", "Mon, 01 Jan 2024 10:00:00 GMT"),
	)
	url := serveFeed(t, &body)

	ing := New(logx.Nop())
	fresh, filtered, err := ing.Fresh(context.Background(), url, nil, nil, 500)
	if err != nil {
		t.Fatalf("Fresh: %v", err)
	}
	if len(filtered) != 0 {
		t.Fatalf("filtered = %v, want none", filtered)
	}
	want := []string{"e1", "e2", "e3"}
	if len(fresh) != len(want) {
		t.Fatalf("fresh = %+v, want %d entries", fresh, len(want))
	}
	for i, id := range want {
		if fresh[i].ID != id {
			t.Fatalf("fresh[%d].ID = %q, want %q", i, fresh[i].ID, id)
		}
	}
}

func TestFreshSecondCallIsEmpty(t *testing.T) {
	t.Parallel()
	body := rssDoc(
		rssItem("e2", "second", "Tue, 02 Jan 2024 10:00:00 GMT"),
		rssItem("e1", "first", "Mon, 01 Jan 2024 10:00:00 GMT"),
	)
	url := serveFeed(t, &body)

	ing := New(logx.Nop())
	seen := map[string]struct{}{}

	fresh, _, err := ing.Fresh(context.Background(), url, seen, nil, 500)
	if err != nil {
		t.Fatalf("Fresh: %v", err)
	}
	for _, e := range fresh {
		seen[e.ID] = struct{}{}
	}

	again, filtered, err := ing.Fresh(context.Background(), url, seen, nil, 500)
	if err != nil {
		t.Fatalf("second Fresh: %v", err)
	}
	if len(again) != 0 || len(filtered) != 0 {
		t.Fatalf("second call returned %+v / %v, want nothing", again, filtered)
	}
}

func TestFreshFilters(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", 600)
	body := rssDoc(
		rssItem("e3", long, "Wed, 03 Jan 2024 10:00:00 GMT"),
		rssItem("e2", "SPONSORED: buy now", "Tue, 02 Jan 2024 10:00:00 GMT"),
		rssItem("e1", "real news", "Mon, 01 Jan 2024 10:00:00 GMT"),
	)
	url := serveFeed(t, &body)

	ing := New(logx.Nop())
	fresh, filtered, err := ing.Fresh(context.Background(), url, nil, []string{"sponsored"}, 500)
	if err != nil {
		t.Fatalf("Fresh: %v", err)
	}
	if len(fresh) != 1 || fresh[0].ID != "e1" {
		t.Fatalf("fresh = %+v, want [e1]", fresh)
	}
	if len(filtered) != 2 {
		t.Fatalf("filtered = %v, want e2 and e3", filtered)
	}
}

func TestFreshParseErrorReturnsNothing(t *testing.T) {
	t.Parallel()
	body := "this is not a feed"
	url := serveFeed(t, &body)

	ing := New(logx.Nop())
	fresh, filtered, err := ing.Fresh(context.Background(), url, nil, nil, 500)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if len(fresh) != 0 || len(filtered) != 0 {
		t.Fatalf("got %+v / %v on error, want nothing", fresh, filtered)
	}
}

func TestItemIDFallsBackToLink(t *testing.T) {
	t.Parallel()
	body := rssDoc(`<item><title>no guid</title><link>https://x/p/1</link></item>`)
	url := serveFeed(t, &body)

	ing := New(logx.Nop())
	fresh, _, err := ing.Fresh(context.Background(), url, nil, nil, 500)
	if err != nil {
		t.Fatalf("Fresh: %v", err)
	}
	if len(fresh) != 1 || fresh[0].ID != "https://x/p/1" {
		t.Fatalf("fresh = %+v, want link-derived id", fresh)
	}
}
