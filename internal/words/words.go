// Package words supplies the words dealt onto boards.
//
// A word list comes from the file named by WORDS_FILE, one word per line, or
// from the embedded default list. Each channel keeps its own Deck so that
// consecutive games do not repeat words until the whole list has been used.
package words

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
)

// BatchSize is the number of words on one board.
const BatchSize = 25

var ErrListTooShort = errors.New("words: list has fewer words than a board")

//go:embed default_words.txt
var embeddedWords string

// Supplier returns the words for the next board.
type Supplier func() ([]string, error)

// Load reads a word list from path, or the embedded list when path is empty.
// Words are upper-cased; blank lines, # comments and repeats are dropped.
func Load(path string) ([]string, error) {
	if path == "" {
		return normalize(strings.Split(embeddedWords, "\n"))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word list %s: %w", path, err)
	}
	return normalize(lines)
}

func normalize(lines []string) ([]string, error) {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		w := strings.ToUpper(strings.TrimSpace(line))
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	if len(out) < BatchSize {
		return nil, fmt.Errorf("%w: %d words", ErrListTooShort, len(out))
	}
	return out, nil
}
