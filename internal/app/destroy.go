package app

import (
	"context"
	"fmt"

	logx "babbler/pkg/logx"
)

// Destroy deletes every post on the account and wipes the local store.
// It is a standalone operation: the publish loop must not be running.
func (a *App) Destroy(ctx context.Context) error {
	deleted := 0
	for {
		posts, err := a.client.RecentPosts(ctx)
		if err != nil {
			return fmt.Errorf("list posts: %w", err)
		}
		if len(posts) == 0 {
			break
		}
		for _, p := range posts {
			if err := a.client.Delete(ctx, p.ID); err != nil {
				return fmt.Errorf("delete post %s: %w", p.ID, err)
			}
			deleted++
		}
	}

	if err := a.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	a.log.Info("destroyed", logx.Int("deleted_posts", deleted))
	return nil
}
