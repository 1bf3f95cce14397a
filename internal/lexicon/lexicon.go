// Package lexicon loads the word lists backing hashtag selection:
// a dictionary of ordinary words (never hashtag-worthy on their own)
// and a stopword list (never used as combination neighbors).
package lexicon

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	dictionaryFile = "dictionary.txt"
	stopwordsFile  = "stopwords.txt"
)

// Lexicon is a read-only pair of word sets. Lookups are lowercase.
type Lexicon struct {
	dictionary map[string]struct{}
	stopwords  map[string]struct{}
}

// Load reads dictionary.txt and stopwords.txt from dir, one word per line.
// Blank lines are skipped.
func Load(dir string) (*Lexicon, error) {
	dict, err := readWordFile(filepath.Join(dir, dictionaryFile))
	if err != nil {
		return nil, fmt.Errorf("lexicon: %w", err)
	}
	stop, err := readWordFile(filepath.Join(dir, stopwordsFile))
	if err != nil {
		return nil, fmt.Errorf("lexicon: %w", err)
	}
	return &Lexicon{dictionary: dict, stopwords: stop}, nil
}

func (l *Lexicon) IsWord(w string) bool {
	if l == nil {
		return false
	}
	_, ok := l.dictionary[strings.ToLower(w)]
	return ok
}

func (l *Lexicon) IsStopword(w string) bool {
	if l == nil {
		return false
	}
	_, ok := l.stopwords[strings.ToLower(w)]
	return ok
}

func readWordFile(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	words := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.ToLower(strings.TrimSpace(sc.Text()))
		if w == "" {
			continue
		}
		words[w] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return words, nil
}
