package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Feed     FeedConfig    `json:"feed"`
	Social   SocialConfig  `json:"social"`
	Hashtags HashtagConfig `json:"hashtags"`
	Logging  LoggingConfig `json:"logging"`
	Storage  StorageConfig `json:"storage"`
}

// FeedConfig controls feed polling.
//
// Delay is a Go duration string (e.g. "30s", "10m"). It is the baseline
// interval between feed requests; the publish loop shrinks the sleep
// between posts when the todo queue backs up, but the poll gate always
// uses this configured value.
type FeedConfig struct {
	URL string `json:"url"`
	// Delay between feed requests. Default "10m".
	Delay string `json:"delay,omitempty"`
	// Ignore lists case-insensitive substrings; an entry whose title
	// contains any of them is marked done without ever being queued.
	Ignore []string `json:"ignore,omitempty"`
}

// SocialConfig points at the posting account.
type SocialConfig struct {
	BaseURL     string `json:"base_url"`
	AccessToken string `json:"access_token"`
	// MaxPostLen is the platform's maximum post length. Default 500.
	MaxPostLen int `json:"max_post_len,omitempty"`
	// DryRun fakes a run without posting or persisting anything.
	// Usually set via the -dry-run flag rather than the file.
	DryRun bool `json:"dry_run,omitempty"`
}

// HashtagConfig controls hashtag candidate scoring.
type HashtagConfig struct {
	// MinLen is the minimum hashtag length worth scoring. Default 3.
	MinLen int `json:"min_len,omitempty"`
	// WordsDir holds dictionary.txt and stopwords.txt.
	WordsDir string `json:"words_dir"`
	// SearchesPerSec paces scoring-oracle search calls. Default 1.
	SearchesPerSec int `json:"searches_per_sec,omitempty"`
	// CacheSize bounds the candidate→score cache. Default 512.
	CacheSize int `json:"cache_size,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the entry store.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./babbler.data" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// Defaults used when optional fields are omitted.
const (
	DefaultDelay          = 10 * time.Minute
	DefaultMaxPostLen     = 500
	DefaultHashtagMinLen  = 3
	DefaultSearchesPerSec = 1
	DefaultCacheSize      = 512
)

// Validate checks the fields the pipeline cannot run without.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Feed.URL) == "" {
		return errors.New("feed.url is required")
	}
	if strings.TrimSpace(c.Hashtags.WordsDir) == "" {
		return errors.New("hashtags.words_dir is required")
	}
	if !c.Social.DryRun {
		if strings.TrimSpace(c.Social.BaseURL) == "" {
			return errors.New("social.base_url is required")
		}
		if strings.TrimSpace(c.Social.AccessToken) == "" {
			return errors.New("social.access_token is required")
		}
	}
	if _, err := c.Delay(); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if c.Social.MaxPostLen < 0 {
		return errors.New("social.max_post_len must be >= 0")
	}
	return nil
}

// Delay returns the feed poll delay, applying the default.
func (c *Config) Delay() (time.Duration, error) {
	return ParseDurationOrDefault("feed.delay", c.Feed.Delay, DefaultDelay)
}

func (c *Config) MaxPostLen() int {
	if c.Social.MaxPostLen > 0 {
		return c.Social.MaxPostLen
	}
	return DefaultMaxPostLen
}

func (c *Config) HashtagMinLen() int {
	if c.Hashtags.MinLen > 0 {
		return c.Hashtags.MinLen
	}
	return DefaultHashtagMinLen
}

// Options flattens the pipeline knobs into the options bag persisted
// alongside the entry queue. The store re-persists it unchanged; the
// pipeline itself always reads the live config.
func (c *Config) Options() map[string]string {
	delay, _ := c.Delay()
	return map[string]string{
		"feed_url":        c.Feed.URL,
		"delay":           delay.String(),
		"ignore":          strings.Join(c.Feed.Ignore, ","),
		"hashtag_len_min": strconv.Itoa(c.HashtagMinLen()),
		"max_post_len":    strconv.Itoa(c.MaxPostLen()),
	}
}

func (c *Config) String() string {
	// Never include the access token.
	return fmt.Sprintf("feed=%s storage=%s/%s", c.Feed.URL, c.Storage.Driver, c.Storage.Path)
}
