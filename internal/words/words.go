// internal/words/words.go
//
// Word pack used to suggest words to an admin filling a game.
//
// Loading (Load):
//   1. If a path is given, read one word per line from that file.
//   2. Otherwise fall back to the pack embedded in assets/words.txt.
//
// Constraints:
//   • Lines are trimmed and lowercased; blanks, "#" comments and
//     duplicates are skipped.
//   • Words are not validated beyond that; any phrase an admin could type
//     is acceptable.

package words

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/robalobadob/hangman/apps/go-server/assets"
)

// MaxSuggestions caps a single Suggest call.
const MaxSuggestions = 50

var ErrEmptyPack = errors.New("words: pack is empty")

// Pack is an immutable list of candidate words.
type Pack struct {
	words []string
}

// Load reads the pack from path, or the embedded default when path is "".
func Load(path string) (*Pack, error) {
	var (
		list []string
		err  error
	)
	if path == "" {
		list, err = readEmbedded()
	} else {
		list, err = readWordFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("load words: %w", err)
	}
	list = dedupe(list)
	if len(list) == 0 {
		return nil, ErrEmptyPack
	}
	return &Pack{words: list}, nil
}

// readWordFile loads one word per line from a file.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return normalize(f)
}

func readEmbedded() ([]string, error) {
	f, err := assets.OpenWordList()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return normalize(f)
}

// normalize is the single parser for word lists: trimmed, lowercased,
// blanks and "#" comments skipped.
func normalize(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		w := strings.ToLower(strings.TrimSpace(sc.Text()))
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		out = append(out, w)
	}
	return out, sc.Err()
}

func dedupe(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := list[:0]
	for _, w := range list {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// Len reports the number of words in the pack.
func (p *Pack) Len() int { return len(p.words) }

// Suggest returns up to n distinct words in random order. n is clamped to
// [1, MaxSuggestions] and to the pack size.
func (p *Pack) Suggest(n int) []string {
	if n < 1 {
		n = 1
	}
	n = min(n, MaxSuggestions, len(p.words))

	out := make([]string, 0, n)
	for _, i := range rand.Perm(len(p.words))[:n] {
		out = append(out, p.words[i])
	}
	return out
}
