package app

import (
	"context"
	"fmt"

	"babbler/internal/config"
	"babbler/internal/hashtag"
	"babbler/internal/lexicon"
	"babbler/internal/social"
)

// searchOracle scores hashtag candidates by platform search recency.
type searchOracle struct {
	client social.Client
}

func (o searchOracle) Search(ctx context.Context, tag string) ([]hashtag.Result, error) {
	statuses, err := o.client.Search(ctx, tag)
	if err != nil {
		return nil, err
	}
	results := make([]hashtag.Result, 0, len(statuses))
	for _, st := range statuses {
		results = append(results, hashtag.Result{CreatedAt: st.CreatedAt})
	}
	return results, nil
}

func lexiconFromConfig(cfg *config.Config) (*lexicon.Lexicon, error) {
	lex, err := lexicon.Load(cfg.Hashtags.WordsDir)
	if err != nil {
		return nil, fmt.Errorf("load word lists: %w", err)
	}
	return lex, nil
}
