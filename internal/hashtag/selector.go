// Package hashtag turns a post's own words into scored hashtags.
//
// Selection is two-staged: each eligible word generates up to four
// candidate strings from itself and its non-stopword neighbors, the
// scoring oracle ranks one winner per word, and the winners are packed
// onto the text by score within the platform's length budget.
package hashtag

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"babbler/internal/lexicon"
	logx "babbler/pkg/logx"
)

// Result is one search hit for a candidate hashtag.
type Result struct {
	CreatedAt time.Time
}

// Oracle scores candidates by searching the posting platform for them.
type Oracle interface {
	Search(ctx context.Context, hashtag string) ([]Result, error)
}

// Options tunes selection. Zero values fall back to the given defaults.
type Options struct {
	MinLen         int // minimum candidate length worth scoring (default 3)
	MaxLen         int // platform post length budget (default 500)
	SearchesPerSec int // oracle pacing; 0 disables the limiter
	CacheSize      int // candidate→score cache; 0 disables the cache
}

type Selector struct {
	lex     *lexicon.Lexicon
	oracle  Oracle
	minLen  int
	maxLen  int
	limiter *rate.Limiter
	cache   *lru.Cache[string, int64]
	log     logx.Logger
}

func NewSelector(lex *lexicon.Lexicon, oracle Oracle, opts Options, log logx.Logger) *Selector {
	s := &Selector{
		lex:    lex,
		oracle: oracle,
		minLen: opts.MinLen,
		maxLen: opts.MaxLen,
		log:    log,
	}
	if s.minLen <= 0 {
		s.minLen = 3
	}
	if s.maxLen <= 0 {
		s.maxLen = 500
	}
	if opts.SearchesPerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.SearchesPerSec), opts.SearchesPerSec)
	}
	if opts.CacheSize > 0 {
		// NewLRU only fails on a non-positive size.
		s.cache, _ = lru.New[string, int64](opts.CacheSize)
	}
	return s
}

type pick struct {
	tag   string
	score int64
}

// Decorate appends scored hashtags to text, highest score first, as
// long as the running result stays within the length budget. A winner
// that would overflow is skipped and lower-scored winners are still
// tried.
func (s *Selector) Decorate(ctx context.Context, text string) string {
	words := tokenize(text)

	var picks []pick
	chosen := map[string]struct{}{}
	for i, word := range words {
		bare := strings.ReplaceAll(word, "'", "")
		if bare == "" || isDigits(bare) || s.lex.IsWord(bare) {
			continue
		}
		candidates := candidatesAt(words, i, s.lex.IsStopword)
		if s.log.Enabled(logx.LevelDebug) {
			s.log.Debug("hashtag candidates",
				logx.String("word", bare),
				logx.String("candidates", strings.Join(candidates, ", ")),
			)
		}
		// If any candidate was already claimed by an earlier word, this
		// word yields nothing: two overlapping combinations must not
		// both own the same compound hashtag.
		if anyChosen(candidates, chosen) {
			s.log.Debug("hashtag candidates already used", logx.String("word", bare))
			continue
		}
		tag, score := s.bestScored(ctx, candidates)
		if tag == "" {
			continue
		}
		chosen[tag] = struct{}{}
		picks = append(picks, pick{tag: tag, score: score})
	}

	// Highest score first; ties keep left-to-right discovery order.
	sort.SliceStable(picks, func(i, j int) bool { return picks[i].score > picks[j].score })

	out := text
	for _, p := range picks {
		suffix := " #" + p.tag
		if len(out)+len(suffix) <= s.maxLen {
			out += suffix
		}
	}
	return out
}

// bestScored returns the strictly highest positive-scoring candidate.
// A candidate's score is the sum of the creation times (Unix seconds)
// of its search results; oracle failures are logged and contribute
// nothing.
func (s *Selector) bestScored(ctx context.Context, candidates []string) (string, int64) {
	var best string
	var highest int64
	for _, tag := range candidates {
		if len(tag) < s.minLen {
			continue
		}
		score, ok := s.cachedScore(tag)
		if !ok {
			if s.limiter != nil {
				if err := s.limiter.Wait(ctx); err != nil {
					return best, highest
				}
			}
			results, err := s.oracle.Search(ctx, tag)
			if err != nil {
				s.log.Error("hashtag search failed", logx.String("hashtag", tag), logx.Err(err))
				continue
			}
			for _, r := range results {
				score += r.CreatedAt.Unix()
			}
			if s.cache != nil {
				s.cache.Add(tag, score)
			}
		}
		s.log.Debug("hashtag score", logx.String("hashtag", tag), logx.Int64("score", score))
		if score > highest {
			highest = score
			best = tag
		}
	}
	return best, highest
}

func (s *Selector) cachedScore(tag string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	return s.cache.Get(tag)
}

func anyChosen(candidates []string, chosen map[string]struct{}) bool {
	for _, c := range candidates {
		if _, ok := chosen[c]; ok {
			return true
		}
	}
	return false
}

// candidatesAt builds up to four candidates per base form of the word
// at index i: the form alone and combined with its previous and/or
// next word. Neighbors are usable only when present and not stopwords.
// A possessive word contributes its singular as a second base form.
// Apostrophes are stripped from every emitted candidate.
func candidatesAt(words []string, i int, isStopword func(string) bool) []string {
	validPrev := i > 0 && !isStopword(words[i-1])
	validNext := i < len(words)-1 && !isStopword(words[i+1])

	base := []string{words[i]}
	if strings.HasSuffix(words[i], "'s") {
		// Singular for possessive.
		base = append(base, strings.TrimSuffix(words[i], "'s"))
	}

	var out []string
	for _, w := range base {
		out = append(out, w)
		if validPrev {
			out = append(out, words[i-1]+w)
		}
		if validNext {
			out = append(out, w+words[i+1])
		}
		if validPrev && validNext {
			out = append(out, words[i-1]+w+words[i+1])
		}
	}
	for j, t := range out {
		out[j] = strings.ReplaceAll(t, "'", "")
	}
	return out
}

// tokenize lowercases text, treats dashes and slashes as separators,
// keeps only letters, digits, apostrophes and spaces, and splits into
// words.
func tokenize(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r == '-' || r == '/':
			b.WriteRune(' ')
		case r == '\'' || r == ' ' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return strings.Fields(b.String())
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
