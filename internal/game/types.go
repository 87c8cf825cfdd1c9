// internal/game/types.go
//
// Core type definitions for the hangman game engine.
// Defines:
//   - State: derived lifecycle stage of a game.
//   - Game: state for one shared word-guessing session.
//   - Player: one participant's score within a game.
//   - View: the public projection broadcast to players.

package game

import "time"

// Placeholder renders an unrevealed position in the masked guess.
const Placeholder = '_'

// State is the lifecycle stage of a game. It is derived from the stored
// flags and word lists, never persisted on its own.
type State string

const (
	StateCreated    State = "created"    // no words, not started
	StateCollecting State = "collecting" // words present, not started
	StateActive     State = "active"     // started, current word dealt
	StateFinished   State = "finished"   // terminal
)

// Game holds the persisted state of a single session.
type Game struct {
	ID           string    `json:"game_id"`       // short join code, e.g. "ABC-123"
	Admin        string    `json:"admin"`         // player name of the creator
	Words        []string  `json:"words"`         // remaining words, case-folded, unique
	AllWords     []string  `json:"all_words"`     // every word ever added
	CurrentWord  string    `json:"current_word"`  // empty until started
	CurrentGuess string    `json:"current_guess"` // masked guess, same rune length as CurrentWord
	SolvedBy     string    `json:"solved_by"`     // who completed the current word, "" while unsolved
	Started      bool      `json:"started"`
	Finished     bool      `json:"finished"`
	CreatedAt    time.Time `json:"created_at"`
}

// Player is one participant, keyed by (GameID, Name).
type Player struct {
	GameID       string   `json:"game_id"`
	Name         string   `json:"player_name"`
	Guesses      int      `json:"guesses"`       // words fully guessed by this player
	GuessedWords []string `json:"guessed_words"` // in solve order
	PinHash      string   `json:"-"`             // optional bcrypt hash for rejoining
}

// Clone returns a deep copy so callers never share slices with a store.
func (g *Game) Clone() *Game {
	c := *g
	c.Words = append([]string(nil), g.Words...)
	c.AllWords = append([]string(nil), g.AllWords...)
	return &c
}

// Clone returns a deep copy of p.
func (p *Player) Clone() *Player {
	c := *p
	c.GuessedWords = append([]string(nil), p.GuessedWords...)
	return &c
}

// View is what every player may see. The current word is only revealed
// once the game is over.
type View struct {
	GameID       string   `json:"game_id"`
	Admin        string   `json:"admin"`
	State        State    `json:"state"`
	CurrentGuess string   `json:"current_guess"`
	WordsLeft    int      `json:"words_left"`
	TotalWords   int      `json:"total_words"`
	LastWord     string   `json:"last_word,omitempty"`
	Players      []Score  `json:"players"`
	Winners      []string `json:"winners,omitempty"`
}

// Score is one scoreboard row.
type Score struct {
	Name         string   `json:"player_name"`
	Guesses      int      `json:"guesses"`
	GuessedWords []string `json:"guessed_words"`
	Won          bool     `json:"won"`
}
