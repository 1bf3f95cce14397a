// Package social is the posting-API collaborator: create, search and
// delete statuses on one account of a Mastodon-compatible server.
package social

import (
	"context"
	"errors"
	"time"
)

// Status is one post on the platform.
type Status struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

// ErrDuplicate reports that the platform already has this exact post.
// The publish loop treats it as success: the content made it out in a
// prior (possibly crashed) run.
var ErrDuplicate = errors.New("social: duplicate post")

// Client is the posting API surface the pipeline needs.
type Client interface {
	Post(ctx context.Context, text string) (Status, error)
	Search(ctx context.Context, hashtag string) ([]Status, error)
	Delete(ctx context.Context, id string) error
	RecentPosts(ctx context.Context) ([]Status, error)
}
