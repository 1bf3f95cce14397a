package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	logx "babbler/pkg/logx"
)

// HTTPClient talks to a Mastodon-compatible API.
//
// POSTs are not retried at the transport level: a blind retry of a
// status create could double-post. Retry is owned by the publish loop.
type HTTPClient struct {
	base  string
	token string
	hc    *http.Client
	log   logx.Logger

	mu        sync.Mutex
	accountID string
}

func NewHTTPClient(baseURL, accessToken string, log logx.Logger) *HTTPClient {
	return &HTTPClient{
		base:  strings.TrimRight(baseURL, "/"),
		token: accessToken,
		hc:    &http.Client{Timeout: 30 * time.Second},
		log:   log,
	}
}

// APIError is a non-2xx response from the platform.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("social: api status %d: %s", e.StatusCode, e.Message)
}

// status is the wire shape of a post.
type status struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (st status) toStatus() Status {
	return Status{ID: st.ID, Text: st.Content, CreatedAt: st.CreatedAt}
}

func (c *HTTPClient) Post(ctx context.Context, text string) (Status, error) {
	body := map[string]string{"status": text}
	var out status
	if err := c.do(ctx, http.MethodPost, "/api/v1/statuses", body, &out); err != nil {
		return Status{}, err
	}
	return out.toStatus(), nil
}

func (c *HTTPClient) Search(ctx context.Context, hashtag string) ([]Status, error) {
	q := url.Values{}
	q.Set("q", "#"+hashtag)
	q.Set("type", "statuses")
	var out struct {
		Statuses []status `json:"statuses"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v2/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	results := make([]Status, 0, len(out.Statuses))
	for _, st := range out.Statuses {
		results = append(results, st.toStatus())
	}
	return results, nil
}

func (c *HTTPClient) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/statuses/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) RecentPosts(ctx context.Context) ([]Status, error) {
	id, err := c.account(ctx)
	if err != nil {
		return nil, err
	}
	var out []status
	path := "/api/v1/accounts/" + url.PathEscape(id) + "/statuses?limit=40"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	posts := make([]Status, 0, len(out))
	for _, st := range out {
		posts = append(posts, st.toStatus())
	}
	return posts, nil
}

// account resolves and caches the authenticated account id.
func (c *HTTPClient) account(ctx context.Context) (string, error) {
	c.mu.Lock()
	id := c.accountID
	c.mu.Unlock()
	if id != "" {
		return id, nil
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/accounts/verify_credentials", nil, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("social: verify_credentials returned no account id")
	}
	c.mu.Lock()
	c.accountID = out.ID
	c.mu.Unlock()
	return out.ID, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = strings.NewReader(string(b))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.apiError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// apiError decodes the platform's error body and maps its
// duplicate-post signal onto ErrDuplicate.
func (c *HTTPClient) apiError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(b))
	var wire struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &wire); err == nil && wire.Error != "" {
		msg = wire.Error
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: msg}
	if resp.StatusCode == http.StatusUnprocessableEntity &&
		strings.Contains(strings.ToLower(msg), "duplicate") {
		return fmt.Errorf("%s: %w", apiErr.Error(), ErrDuplicate)
	}
	return apiErr
}
