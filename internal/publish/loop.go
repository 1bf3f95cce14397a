// Package publish drives the ingest-then-post cycle: it decides when
// the feed is due for a poll, keeps the queue moving, and advances
// store state one committed step at a time.
package publish

import (
	"context"
	"errors"
	"math"
	"time"

	"babbler/internal/social"
	"babbler/internal/store"
	logx "babbler/pkg/logx"
)

// queueSlice is the fraction of the backlog expected to drain between
// two feed polls.
const queueSlice = 0.3

// Settings is the slice of configuration the loop reads each cycle, so
// delay and ignore changes take effect without a restart.
type Settings struct {
	FeedURL    string
	Delay      time.Duration
	Ignore     []string
	MaxPostLen int
	DryRun     bool
}

// Ingestor fetches the feed and splits unseen items into queue
// candidates and filtered ids.
type Ingestor interface {
	Fresh(ctx context.Context, url string, seen map[string]struct{}, ignore []string, maxLen int) (fresh []store.Entry, filtered []string, err error)
}

// Selector appends scored hashtags to a title.
type Selector interface {
	Decorate(ctx context.Context, text string) string
}

// Loop is the pipeline scheduler. It is the store's only mutator.
type Loop struct {
	store    store.Store
	ingestor Ingestor
	selector Selector
	client   social.Client
	settings func() Settings
	log      logx.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)

	lastPoll time.Time
	delay    time.Duration
}

func New(st store.Store, ing Ingestor, sel Selector, client social.Client, settings func() Settings, log logx.Logger) *Loop {
	return &Loop{
		store:    st,
		ingestor: ing,
		selector: sel,
		client:   client,
		settings: settings,
		log:      log,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Run cycles until ctx is done. Recoverable failures (feed fetch, post
// rejection) are logged and retried on later cycles; a store failure is
// returned, since continuing after a failed persist could re-publish
// items already done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := l.cycle(ctx); err != nil {
			return err
		}
		l.sleep(ctx, l.delay)
		if ctx.Err() != nil {
			return nil
		}
	}
}

// cycle runs one iteration: poll the feed if due, then publish the
// queue head if any.
func (l *Loop) cycle(ctx context.Context) error {
	cfg := l.settings()
	if l.delay == 0 {
		l.delay = cfg.Delay
	}

	if now := l.now(); now.Sub(l.lastPoll) >= cfg.Delay {
		l.lastPoll = now
		if err := l.ingest(ctx, cfg); err != nil {
			return err
		}
		n, err := l.store.TodoCount(ctx)
		if err != nil {
			return err
		}
		l.delay = nextDelay(cfg.Delay, n)
	}

	return l.publishHead(ctx, cfg)
}

func (l *Loop) ingest(ctx context.Context, cfg Settings) error {
	seen, err := l.store.SeenIDs(ctx)
	if err != nil {
		return err
	}

	fresh, filtered, err := l.ingestor.Fresh(ctx, cfg.FeedURL, seen, cfg.Ignore, cfg.MaxPostLen)
	if err != nil {
		// Nothing was marked seen, so the same items come back on the
		// next poll.
		l.log.Error("feed poll failed", logx.Err(err))
		return nil
	}

	if len(filtered) > 0 {
		if err := l.store.MarkDone(ctx, filtered...); err != nil {
			return err
		}
	}
	if len(fresh) > 0 {
		if err := l.store.Enqueue(ctx, fresh); err != nil {
			return err
		}
	}
	l.log.Debug("new queued entries", logx.Int("count", len(fresh)))
	return nil
}

func (l *Loop) publishHead(ctx context.Context, cfg Settings) error {
	head, ok, err := l.store.Head(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	text := l.selector.Decorate(ctx, head.Title)

	if !cfg.DryRun {
		if _, err := l.client.Post(ctx, text); err != nil {
			if !errors.Is(err, social.ErrDuplicate) {
				l.log.Error("post failed", logx.Err(err), logx.String("id", head.ID))
				return nil
			}
			// Already posted by a previous run that died before it could
			// record the fact. Completing the head reconciles the two.
			l.log.Warn("duplicate post", logx.String("id", head.ID))
		}
	}

	if err := l.store.CompleteHead(ctx, head.ID); err != nil {
		return err
	}
	l.log.Info("posted", logx.String("text", text))
	return nil
}

// nextDelay shrinks the sleep interval once the backlog is non-trivial
// so roughly a queueSlice share of the queue drains before the feed is
// polled again.
func nextDelay(configured time.Duration, queueLen int) time.Duration {
	if float64(queueLen) > queueSlice*10 {
		return configured / time.Duration(math.Ceil(float64(queueLen)*queueSlice))
	}
	return configured
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
