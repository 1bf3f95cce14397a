package social

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logx "babbler/pkg/logx"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, "test-token", logx.Nop())
}

func TestPost(t *testing.T) {
	t.Parallel()

	var gotAuth, gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/statuses" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		gotBody = body.Status
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         "42",
			"content":    body.Status,
			"created_at": time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		})
	})

	st, err := c.Post(context.Background(), "hello world #go")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody != "hello world #go" {
		t.Errorf("posted text = %q", gotBody)
	}
	if st.ID != "42" || st.Text != "hello world #go" {
		t.Errorf("status = %+v", st)
	}
}

func TestPostDuplicate(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"Validation failed: duplicate status"}`))
	})

	_, err := c.Post(context.Background(), "again")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
}

func TestPostOtherErrorIsNotDuplicate(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"something broke"}`))
	})

	_, err := c.Post(context.Background(), "hello")
	if err == nil {
		t.Fatal("want error")
	}
	if errors.Is(err, ErrDuplicate) {
		t.Fatal("500 must not map to ErrDuplicate")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("want APIError with status 500, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); q != "#golang" {
			t.Errorf("q = %q", q)
		}
		if typ := r.URL.Query().Get("type"); typ != "statuses" {
			t.Errorf("type = %q", typ)
		}
		_, _ = w.Write([]byte(`{"statuses":[
			{"id":"1","content":"a","created_at":"2024-03-01T12:00:00Z"},
			{"id":"2","content":"b","created_at":"2024-03-02T12:00:00Z"}
		]}`))
	})

	got, err := c.Search(context.Background(), "golang")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d statuses, want 2", len(got))
	}
	if got[0].ID != "1" || got[1].ID != "2" {
		t.Errorf("ids = %q %q", got[0].ID, got[1].ID)
	}
	want := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	if !got[1].CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", got[1].CreatedAt, want)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	if err := c.Delete(context.Background(), "99"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/v1/statuses/99" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
}

func TestRecentPostsCachesAccountID(t *testing.T) {
	t.Parallel()

	verifyCalls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/accounts/verify_credentials":
			verifyCalls++
			_, _ = w.Write([]byte(`{"id":"acct7"}`))
		case "/api/v1/accounts/acct7/statuses":
			_, _ = w.Write([]byte(`[{"id":"5","content":"x","created_at":"2024-03-01T12:00:00Z"}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	for i := 0; i < 2; i++ {
		posts, err := c.RecentPosts(context.Background())
		if err != nil {
			t.Fatalf("RecentPosts: %v", err)
		}
		if len(posts) != 1 || posts[0].ID != "5" {
			t.Fatalf("posts = %+v", posts)
		}
	}
	if verifyCalls != 1 {
		t.Errorf("verify_credentials called %d times, want 1", verifyCalls)
	}
}
