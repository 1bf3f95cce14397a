package hashtag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"babbler/internal/lexicon"
	logx "babbler/pkg/logx"
)

// fakeOracle scores candidates from a fixed table. A score of N is
// delivered as one search result created at Unix second N.
type fakeOracle struct {
	scores map[string]int64
	errs   map[string]error
	calls  []string
}

func (o *fakeOracle) Search(_ context.Context, tag string) ([]Result, error) {
	o.calls = append(o.calls, tag)
	if err := o.errs[tag]; err != nil {
		return nil, err
	}
	score, ok := o.scores[tag]
	if !ok {
		return nil, nil
	}
	return []Result{{CreatedAt: time.Unix(score, 0)}}, nil
}

func (o *fakeOracle) called(tag string) bool {
	for _, c := range o.calls {
		if c == tag {
			return true
		}
	}
	return false
}

func testLexicon(t *testing.T, dictionary, stopwords []string) *lexicon.Lexicon {
	t.Helper()
	dir := t.TempDir()
	write := func(name string, words []string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(words, "\n")), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("dictionary.txt", dictionary)
	write("stopwords.txt", stopwords)
	lex, err := lexicon.Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return lex
}

func newTestSelector(t *testing.T, oracle Oracle, dictionary, stopwords []string, opts Options) *Selector {
	t.Helper()
	return NewSelector(testLexicon(t, dictionary, stopwords), oracle, opts, logx.Nop())
}

func TestTokenize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want []string
	}{
		{"Hello, World", []string{"hello", "world"}},
		{"world-wide/web", []string{"world", "wide", "web"}},
		{"Apple's Event", []string{"apple's", "event"}},
		{"version 2.0 shipped", []string{"version", "20", "shipped"}},
		{"", nil},
		{"!!!", nil},
	}
	for _, tt := range tests {
		got := tokenize(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("tokenize(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCandidatesAt(t *testing.T) {
	t.Parallel()
	isStop := func(w string) bool { return w == "the" || w == "of" }

	tests := []struct {
		name  string
		words []string
		i     int
		want  []string
	}{
		{
			name:  "both neighbors valid",
			words: []string{"new", "york", "city"},
			i:     1,
			want:  []string{"york", "newyork", "yorkcity", "newyorkcity"},
		},
		{
			name:  "first word has no previous",
			words: []string{"new", "york"},
			i:     0,
			want:  []string{"new", "newyork"},
		},
		{
			name:  "stopword neighbors leave the word alone",
			words: []string{"the", "mets", "of"},
			i:     1,
			want:  []string{"mets"},
		},
		{
			name:  "possessive doubles the candidate set",
			words: []string{"apple's", "event"},
			i:     0,
			want:  []string{"apples", "applesevent", "apple", "appleevent"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := candidatesAt(tt.words, tt.i, isStop)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("candidatesAt = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecorateOverlapRule(t *testing.T) {
	t.Parallel()
	// "city" and "news" are ordinary dictionary words; "new" and "york"
	// are eligible. "new" runs first and claims "newyork", so "york"
	// (whose candidate set also contains "newyork") must yield nothing.
	oracle := &fakeOracle{scores: map[string]int64{
		"newyork": 100,
		"new":     10,
		"york":    20,
	}}
	s := newTestSelector(t, oracle, []string{"city", "news"}, nil, Options{MaxLen: 500})

	got := s.Decorate(context.Background(), "new york city news")
	if got != "new york city news #newyork" {
		t.Fatalf("Decorate = %q", got)
	}
	if oracle.called("yorkcity") || oracle.called("newyorkcity") {
		t.Fatalf("york's candidates were scored despite overlap: %v", oracle.calls)
	}
}

func TestDecoratePossessiveBaseForms(t *testing.T) {
	t.Parallel()
	oracle := &fakeOracle{scores: map[string]int64{"apple": 50}}
	s := newTestSelector(t, oracle, []string{"event"}, nil, Options{MaxLen: 500})

	got := s.Decorate(context.Background(), "Apple's event")
	if got != "Apple's event #apple" {
		t.Fatalf("Decorate = %q", got)
	}
	// Both the literal (apostrophe-stripped) and singular base forms
	// must have been scored.
	for _, want := range []string{"apples", "applesevent", "apple", "appleevent"} {
		if !oracle.called(want) {
			t.Fatalf("candidate %q never scored; calls = %v", want, oracle.calls)
		}
	}
}

func TestDecorateSkipsDictionaryAndDigits(t *testing.T) {
	t.Parallel()
	oracle := &fakeOracle{}
	s := newTestSelector(t, oracle, []string{"breaking", "news"}, nil, Options{MaxLen: 500})

	got := s.Decorate(context.Background(), "breaking news 2024")
	if got != "breaking news 2024" {
		t.Fatalf("Decorate = %q, want unchanged text", got)
	}
	if len(oracle.calls) != 0 {
		t.Fatalf("oracle called for ineligible words: %v", oracle.calls)
	}
}

func TestDecorateZeroScoreNeverWins(t *testing.T) {
	t.Parallel()
	// Oracle knows nothing: every candidate scores 0.
	oracle := &fakeOracle{}
	s := newTestSelector(t, oracle, nil, nil, Options{MaxLen: 500})

	got := s.Decorate(context.Background(), "obscureword")
	if got != "obscureword" {
		t.Fatalf("Decorate = %q, want unchanged text", got)
	}
}

func TestDecorateOracleErrorSkipsCandidate(t *testing.T) {
	t.Parallel()
	oracle := &fakeOracle{
		scores: map[string]int64{"zorkle": 10},
		errs:   map[string]error{"zorklefest": errors.New("rate limited")},
	}
	s := newTestSelector(t, oracle, nil, nil, Options{MaxLen: 500})

	got := s.Decorate(context.Background(), "zorkle fest")
	if !strings.Contains(got, "#zorkle") {
		t.Fatalf("Decorate = %q, want the surviving candidate to win", got)
	}
}

func TestBestScoredTieKeepsFirstSeen(t *testing.T) {
	t.Parallel()
	oracle := &fakeOracle{scores: map[string]int64{"first": 50, "second": 50}}
	s := newTestSelector(t, oracle, nil, nil, Options{})

	tag, score := s.bestScored(context.Background(), []string{"first", "second"})
	if tag != "first" || score != 50 {
		t.Fatalf("bestScored = %q/%d, want first/50", tag, score)
	}
}

func TestBestScoredMinLength(t *testing.T) {
	t.Parallel()
	oracle := &fakeOracle{scores: map[string]int64{"ab": 100, "abcd": 10}}
	s := newTestSelector(t, oracle, nil, nil, Options{MinLen: 3})

	tag, _ := s.bestScored(context.Background(), []string{"ab", "abcd"})
	if tag != "abcd" {
		t.Fatalf("bestScored = %q, want abcd", tag)
	}
	if oracle.called("ab") {
		t.Fatal("below-minimum candidate should not be scored")
	}
}

func TestDecorateLengthBudgetGreedyWithSkip(t *testing.T) {
	t.Parallel()
	// Two winners: the higher-scored one is too long to fit, the
	// lower-scored one still fits and must be appended.
	oracle := &fakeOracle{scores: map[string]int64{
		"wonderfullylong": 100,
		"tiny":            50,
	}}
	text := "wonderfullylong tiny"
	s := newTestSelector(t, oracle, nil, nil, Options{MaxLen: len(text) + len(" #tiny")})

	got := s.Decorate(context.Background(), text)
	if got != "wonderfullylong tiny #tiny" {
		t.Fatalf("Decorate = %q", got)
	}
}

func TestDecorateCachesScores(t *testing.T) {
	t.Parallel()
	oracle := &fakeOracle{scores: map[string]int64{"zorkle": 10}}
	s := newTestSelector(t, oracle, nil, nil, Options{MaxLen: 500, CacheSize: 16})

	_ = s.Decorate(context.Background(), "zorkle")
	calls := len(oracle.calls)
	_ = s.Decorate(context.Background(), "zorkle")
	if len(oracle.calls) != calls {
		t.Fatalf("cached candidate re-queried: %v", oracle.calls)
	}
}
