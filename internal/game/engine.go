// internal/game/engine.go
//
// Core state machine for a single shared hangman game.
// Responsibilities:
//   - Collect a de-duplicated, case-folded word list before the game starts.
//   - Deal words uniformly at random and keep the masked guess in sync.
//   - Reveal guessed letters monotonically.
//   - Credit the solver, then deal the next word or finish the game.
//   - Compute the winner set at the end.
//
// Notes:
//   - Methods mutate the receiver only; persistence and locking are the
//     caller's job (see internal/session).
//   - Randomness is injected through Picker so tests can deal deterministically.
package game

import (
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Picker returns an index in [0, n). n is always > 0.
type Picker func(n int) int

// RandomPicker draws uniformly from the process-wide generator.
func RandomPicker(n int) int { return rand.IntN(n) }

// New constructs a game in the Created state.
func New(id, admin string) *Game {
	return &Game{
		ID:        id,
		Admin:     admin,
		Words:     []string{},
		AllWords:  []string{},
		CreatedAt: time.Now().UTC(),
	}
}

// State derives the lifecycle stage from the stored flags.
func (g *Game) State() State {
	switch {
	case g.Finished:
		return StateFinished
	case g.Started:
		return StateActive
	case len(g.Words) > 0:
		return StateCollecting
	default:
		return StateCreated
	}
}

// AddWords appends new words to the remaining and history lists.
// Words are trimmed and lowercased; blanks and case-insensitive duplicates
// (against the remaining list and within the batch) are dropped silently.
// Returns the number of words actually added.
func (g *Game) AddWords(words []string) (int, error) {
	if g.Started {
		return 0, ErrAlreadyStarted
	}
	seen := make(map[string]struct{}, len(g.Words)+len(words))
	for _, w := range g.Words {
		seen[w] = struct{}{}
	}
	added := 0
	for _, raw := range words {
		w := strings.ToLower(strings.TrimSpace(raw))
		if w == "" {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		g.Words = append(g.Words, w)
		g.AllWords = append(g.AllWords, w)
		added++
	}
	return added, nil
}

// Start deals the first word and moves the game to Active.
func (g *Game) Start(pick Picker) error {
	if g.Started {
		return ErrAlreadyStarted
	}
	if len(g.Words) == 0 {
		return ErrEmptyWordList
	}
	g.Started = true
	g.deal(pick)
	return nil
}

// GuessLetter reveals every position of the current word holding letter.
// Already revealed positions are never hidden again.
func (g *Game) GuessLetter(letter string) (string, error) {
	if !g.Started {
		return g.CurrentGuess, ErrNotStarted
	}
	if g.Finished {
		return g.CurrentGuess, ErrGameFinished
	}
	letter = strings.ToLower(letter)
	if utf8.RuneCountInString(letter) != 1 {
		return g.CurrentGuess, ErrInvalidLetter
	}
	l, _ := utf8.DecodeRuneInString(letter)

	word := []rune(g.CurrentWord)
	mask := []rune(g.CurrentGuess)
	for i, r := range word {
		if r == l {
			mask[i] = r
		}
	}
	g.CurrentGuess = string(mask)
	return g.CurrentGuess, nil
}

// Complete reports whether the current word is fully revealed.
func (g *Game) Complete() bool {
	return g.Started && !g.Finished && g.CurrentWord != "" && g.CurrentGuess == g.CurrentWord
}

// ClaimSolve records name as the solver of the complete current word,
// unless a solver is already recorded, and returns the recorded solver.
// Returns "" while the word is incomplete.
func (g *Game) ClaimSolve(name string) string {
	if !g.Complete() {
		return ""
	}
	if g.SolvedBy == "" {
		g.SolvedBy = name
	}
	return g.SolvedBy
}

// Credit records the current word as solved by p. Words are unique per
// game, so a player already holding the word is not credited again.
// Reports whether p changed.
func (g *Game) Credit(p *Player) bool {
	if slices.Contains(p.GuessedWords, g.CurrentWord) {
		return false
	}
	p.Guesses++
	p.GuessedWords = append(p.GuessedWords, g.CurrentWord)
	return true
}

// Advance deals the next word, or finishes the game when none remain.
// Reports whether the game finished.
func (g *Game) Advance(pick Picker) bool {
	if len(g.Words) == 0 {
		g.Finished = true
		return true
	}
	g.deal(pick)
	return false
}

// Resolution describes what ResolveWordIfComplete did.
type Resolution struct {
	Solved   bool   // the word was complete and credited
	Word     string // the solved word
	Finished bool   // no words remained, game is over
	Next     string // mask of the newly dealt word, when not finished
}

// ResolveWordIfComplete credits p and advances the game if the mask equals
// the current word. Exactly one of "deal next" or "finish" happens on a
// solve; nothing happens otherwise.
func (g *Game) ResolveWordIfComplete(p *Player, pick Picker) Resolution {
	if !g.Complete() {
		return Resolution{}
	}
	res := Resolution{Solved: true, Word: g.CurrentWord}
	g.ClaimSolve(p.Name)
	g.Credit(p)
	if g.Advance(pick) {
		res.Finished = true
		return res
	}
	res.Next = g.CurrentGuess
	return res
}

// deal moves one random remaining word into play with a blank mask.
func (g *Game) deal(pick Picker) {
	if pick == nil {
		pick = RandomPicker
	}
	i := pick(len(g.Words))
	g.CurrentWord = g.Words[i]
	g.Words = append(g.Words[:i:i], g.Words[i+1:]...)
	g.CurrentGuess = strings.Repeat(string(Placeholder), utf8.RuneCountInString(g.CurrentWord))
	g.SolvedBy = ""
}

// Winners returns the names of all players sharing the highest guess
// count, sorted. No players yields an empty set.
func Winners(players []*Player) []string {
	best := -1
	for _, p := range players {
		if p.Guesses > best {
			best = p.Guesses
		}
	}
	out := []string{}
	for _, p := range players {
		if p.Guesses == best {
			out = append(out, p.Name)
		}
	}
	sort.Strings(out)
	return out
}

// View builds the public projection of g with its scoreboard.
func (g *Game) View(players []*Player) View {
	v := View{
		GameID:       g.ID,
		Admin:        g.Admin,
		State:        g.State(),
		CurrentGuess: g.CurrentGuess,
		WordsLeft:    len(g.Words),
		TotalWords:   len(g.AllWords),
		Players:      make([]Score, 0, len(players)),
	}
	won := map[string]bool{}
	if g.Finished {
		v.LastWord = g.CurrentWord
		v.Winners = Winners(players)
		for _, n := range v.Winners {
			won[n] = true
		}
	}
	for _, p := range players {
		v.Players = append(v.Players, Score{
			Name:         p.Name,
			Guesses:      p.Guesses,
			GuessedWords: append([]string{}, p.GuessedWords...),
			Won:          won[p.Name],
		})
	}
	sort.Slice(v.Players, func(i, j int) bool {
		if v.Players[i].Guesses != v.Players[j].Guesses {
			return v.Players[i].Guesses > v.Players[j].Guesses
		}
		return v.Players[i].Name < v.Players[j].Name
	})
	return v
}
