// internal/session/coordinator.go
//
// Session Coordinator: authorizes each request against the caller's
// credential, runs the game state machine, persists the result and
// broadcasts the new public state.
//
// Every mutation of one game runs under that game's lock as
// load -> mutate -> persist -> broadcast, re-reading the store each time.
// Games never share a lock. Status reads take no lock.
//
// After a word is solved the lock stays held for SolveDelay so nobody can
// guess on the solved board; the next word is then dealt (or the game
// finishes) and broadcast.

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/hangman/apps/go-server/internal/apperr"
	"github.com/robalobadob/hangman/apps/go-server/internal/auth"
	"github.com/robalobadob/hangman/apps/go-server/internal/game"
	"github.com/robalobadob/hangman/apps/go-server/internal/realtime"
	"github.com/robalobadob/hangman/apps/go-server/internal/store"
)

const (
	// DefaultSolveDelay lets players read "word guessed" before the board changes.
	DefaultSolveDelay = 3 * time.Second

	// DefaultCodeAttempts bounds retries when a generated code is taken.
	DefaultCodeAttempts = 5

	maxNameLen = 32
)

var (
	ErrWrongGame  = apperr.New(apperr.Authorization, "Invalid game code for this player.")
	ErrNotAdmin   = apperr.New(apperr.Authorization, "Invalid admin for this game code.")
	ErrBadPin     = apperr.New(apperr.Authorization, "Invalid player name or PIN.")
	ErrNotInGame  = apperr.New(apperr.Authorization, "Player is not part of this game.")
	ErrEmptyName  = apperr.New(apperr.InvalidInput, "Player name is required.")
	ErrLongName   = apperr.New(apperr.InvalidInput, fmt.Sprintf("Player name must be at most %d characters.", maxNameLen))
	ErrNoCodeLeft = apperr.New(apperr.Conflict, "Could not allocate a game code, try again.")
)

// Broadcaster fans a message out to a game's connections.
type Broadcaster interface {
	Broadcast(gameID string, msg realtime.Message) int
}

// Options tunes a Coordinator. Zero values select the defaults.
type Options struct {
	SolveDelay   time.Duration
	Picker       game.Picker
	CodeAttempts int
	NewCode      func() string
}

// Coordinator orchestrates every game operation.
type Coordinator struct {
	store  store.Store
	tokens *auth.Issuer
	hub    Broadcaster
	locks  *gameLocks
	opts   Options
	sleep  func(time.Duration)
}

// New wires a Coordinator. A negative SolveDelay disables the pause.
func New(st store.Store, tokens *auth.Issuer, hub Broadcaster, opts Options) *Coordinator {
	if opts.SolveDelay == 0 {
		opts.SolveDelay = DefaultSolveDelay
	}
	if opts.Picker == nil {
		opts.Picker = game.RandomPicker
	}
	if opts.CodeAttempts <= 0 {
		opts.CodeAttempts = DefaultCodeAttempts
	}
	if opts.NewCode == nil {
		opts.NewCode = NewCode
	}
	return &Coordinator{
		store:  st,
		tokens: tokens,
		hub:    hub,
		locks:  newGameLocks(),
		opts:   opts,
		sleep:  time.Sleep,
	}
}

// Credential is a freshly issued token.
type Credential struct {
	GameID    string    `json:"gameId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Message   string    `json:"message"`
}

// CreateGame creates a game administered by admin and returns the admin's credential.
func (c *Coordinator) CreateGame(ctx context.Context, admin string) (Credential, error) {
	admin, err := cleanName(admin)
	if err != nil {
		return Credential{}, err
	}

	for attempt := 1; attempt <= c.opts.CodeAttempts; attempt++ {
		g := game.New(c.opts.NewCode(), admin)
		err := c.store.InsertGame(ctx, g)
		if errors.Is(err, store.ErrGameExists) {
			log.Warn().Str("gameId", g.ID).Int("attempt", attempt).Msg("game code collision")
			continue
		}
		if err != nil {
			return Credential{}, err
		}

		cred, err := c.issue(admin, g.ID, true, "Game created successfully!")
		if err != nil {
			return Credential{}, err
		}
		log.Info().Str("gameId", g.ID).Str("admin", admin).Msg("game created")
		return cred, nil
	}
	return Credential{}, ErrNoCodeLeft
}

// JoinGame registers name in a game that has not started yet. pin is
// optional; when set it allows RejoinGame later.
func (c *Coordinator) JoinGame(ctx context.Context, gameID, name, pin string) (Credential, error) {
	gameID = NormalizeCode(gameID)
	name, err := cleanName(name)
	if err != nil {
		return Credential{}, err
	}
	hash, err := auth.HashPin(pin)
	if err != nil {
		return Credential{}, fmt.Errorf("hash pin: %w", err)
	}

	unlock := c.locks.lock(gameID)
	defer unlock()

	g, err := c.store.GetGame(ctx, gameID)
	if err != nil {
		return Credential{}, err
	}
	if g.Started {
		return Credential{}, game.ErrAlreadyStarted
	}
	// the admin has no player record but owns the name
	if name == g.Admin {
		return Credential{}, store.ErrPlayerExists
	}

	p := &game.Player{GameID: gameID, Name: name, GuessedWords: []string{}, PinHash: hash}
	if err := c.store.InsertPlayer(ctx, p); err != nil {
		return Credential{}, err
	}

	msg := fmt.Sprintf("%s joined the game!", name)
	cred, err := c.issue(name, gameID, false, msg)
	if err != nil {
		return Credential{}, err
	}
	log.Info().Str("gameId", gameID).Str("player", name).Msg("player joined")
	c.hub.Broadcast(gameID, realtime.Message{Event: realtime.EventJoined, Player: name, Message: msg})
	return cred, nil
}

// RejoinGame reissues a credential to an existing player who proves the
// PIN chosen at join time. Allowed in any game state.
func (c *Coordinator) RejoinGame(ctx context.Context, gameID, name, pin string) (Credential, error) {
	gameID = NormalizeCode(gameID)
	name = strings.TrimSpace(name)

	if _, err := c.store.GetGame(ctx, gameID); err != nil {
		return Credential{}, err
	}
	p, err := c.store.GetPlayer(ctx, gameID, name)
	if errors.Is(err, store.ErrPlayerNotFound) {
		return Credential{}, ErrBadPin
	}
	if err != nil {
		return Credential{}, err
	}
	if !auth.CheckPin(p.PinHash, pin) {
		return Credential{}, ErrBadPin
	}
	log.Info().Str("gameId", gameID).Str("player", name).Msg("player rejoined")
	return c.issue(name, gameID, false, fmt.Sprintf("Welcome back, %s!", name))
}

// AddWords adds words to a game that has not started. Admin only.
// Returns how many new words were added.
func (c *Coordinator) AddWords(ctx context.Context, claims auth.Claims, gameID string, words []string) (int, error) {
	gameID = NormalizeCode(gameID)
	if claims.GameID != gameID {
		return 0, ErrWrongGame
	}

	unlock := c.locks.lock(gameID)
	defer unlock()

	g, err := c.loadAsAdmin(ctx, claims, gameID)
	if err != nil {
		return 0, err
	}
	added, err := g.AddWords(words)
	if err != nil {
		return 0, err
	}
	if added > 0 {
		if err := c.store.PutGame(ctx, g); err != nil {
			return 0, err
		}
	}
	log.Info().Str("gameId", gameID).Int("added", added).Int("remaining", len(g.Words)).Msg("words added")
	return added, nil
}

// StartGame deals the first word. Admin only.
func (c *Coordinator) StartGame(ctx context.Context, claims auth.Claims, gameID string) error {
	gameID = NormalizeCode(gameID)
	if claims.GameID != gameID {
		return ErrWrongGame
	}

	unlock := c.locks.lock(gameID)
	defer unlock()

	g, err := c.loadAsAdmin(ctx, claims, gameID)
	if err != nil {
		return err
	}
	if err := g.Start(c.opts.Picker); err != nil {
		return err
	}
	if err := c.store.PutGame(ctx, g); err != nil {
		return err
	}

	log.Info().Str("gameId", gameID).Int("remaining", len(g.Words)).Msg("game started")
	c.hub.Broadcast(gameID, realtime.Message{
		Event:        realtime.EventStarted,
		Message:      "Game started!",
		CurrentGuess: g.CurrentGuess,
	})
	return nil
}

// GuessResult is the outcome of one letter guess.
type GuessResult struct {
	Message      string   `json:"message"`
	CurrentGuess string   `json:"current_guess,omitempty"`
	Solved       bool     `json:"solved,omitempty"`
	Word         string   `json:"word,omitempty"`
	Finished     bool     `json:"finished,omitempty"`
	Winners      []string `json:"winners,omitempty"`
}

// GuessLetter applies claims.Player's guess to gameID.
func (c *Coordinator) GuessLetter(ctx context.Context, claims auth.Claims, gameID, letter string) (GuessResult, error) {
	gameID = NormalizeCode(gameID)
	if claims.GameID != gameID {
		return GuessResult{}, ErrWrongGame
	}

	unlock := c.locks.lock(gameID)
	defer unlock()

	p, err := c.store.GetPlayer(ctx, gameID, claims.Player)
	if err != nil {
		return GuessResult{}, err
	}
	g, err := c.store.GetGame(ctx, gameID)
	if err != nil {
		return GuessResult{}, err
	}

	mask, err := g.GuessLetter(letter)
	if err != nil {
		return GuessResult{}, err
	}
	// The solver is stored with the completed mask, so a resolve that failed
	// halfway is finished later without crediting anyone else.
	solver := g.ClaimSolve(p.Name)
	if err := c.store.PutGame(ctx, g); err != nil {
		return GuessResult{}, err
	}
	c.hub.Broadcast(gameID, realtime.Message{
		Event:        realtime.EventGuess,
		Player:       p.Name,
		Letter:       strings.ToLower(letter),
		CurrentGuess: mask,
	})

	if solver == "" {
		return GuessResult{Message: "Guess received!", CurrentGuess: mask}, nil
	}
	if solver != p.Name {
		if p, err = c.store.GetPlayer(ctx, gameID, solver); err != nil {
			return GuessResult{}, err
		}
	}
	return c.resolve(ctx, g, p)
}

// resolve credits the solver, waits, then deals the next word or finishes.
// A solver already credited for the word (an earlier resolve failed after
// saving the credit) goes straight to the deal.
// Must be called with the game's lock held.
func (c *Coordinator) resolve(ctx context.Context, g *game.Game, solver *game.Player) (GuessResult, error) {
	word := g.CurrentWord
	if g.Credit(solver) {
		if err := c.store.PutPlayer(ctx, solver); err != nil {
			return GuessResult{}, err
		}
		log.Info().Str("gameId", g.ID).Str("player", solver.Name).Str("word", word).Msg("word solved")
		c.hub.Broadcast(g.ID, realtime.Message{
			Event:   realtime.EventSolved,
			Message: "Word guessed! Waiting for the next word.",
			Word:    word,
			Player:  solver.Name,
		})

		if c.opts.SolveDelay > 0 {
			c.sleep(c.opts.SolveDelay)
		}
	} else {
		log.Warn().Str("gameId", g.ID).Str("player", solver.Name).Str("word", word).Msg("resuming interrupted solve")
	}
	// The board must move on even if the guesser hung up during the pause.
	ctx = context.WithoutCancel(ctx)

	if !g.Advance(c.opts.Picker) {
		if err := c.store.PutGame(ctx, g); err != nil {
			return GuessResult{}, err
		}
		c.hub.Broadcast(g.ID, realtime.Message{Event: realtime.EventWord, CurrentGuess: g.CurrentGuess})
		return GuessResult{Message: "Guess received!", CurrentGuess: g.CurrentGuess, Solved: true, Word: word}, nil
	}

	if err := c.store.PutGame(ctx, g); err != nil {
		return GuessResult{}, err
	}
	players, err := c.store.ListPlayers(ctx, g.ID)
	if err != nil {
		return GuessResult{}, err
	}
	winners := game.Winners(players)
	msg := fmt.Sprintf("Congratulations! All words guessed. Winner: %s.", strings.Join(winners, ", "))

	log.Info().Str("gameId", g.ID).Strs("winners", winners).Msg("game finished")
	c.hub.Broadcast(g.ID, realtime.Message{
		Event:   realtime.EventFinished,
		Message: "No more words to guess. Game finished! " + msg,
		Word:    word,
		Winners: winners,
	})
	return GuessResult{Message: msg, Solved: true, Word: word, Finished: true, Winners: winners}, nil
}

// Status returns the public view of a game and its scoreboard.
func (c *Coordinator) Status(ctx context.Context, gameID string) (game.View, error) {
	gameID = NormalizeCode(gameID)
	g, err := c.store.GetGame(ctx, gameID)
	if err != nil {
		return game.View{}, err
	}
	players, err := c.store.ListPlayers(ctx, gameID)
	if err != nil {
		return game.View{}, err
	}
	return g.View(players), nil
}

// AuthorizeChannel checks that claims may open the realtime channel for
// (gameID, player): the credential must name both, and the player must be
// the admin or a joined player.
func (c *Coordinator) AuthorizeChannel(ctx context.Context, claims auth.Claims, gameID, player string) error {
	gameID = NormalizeCode(gameID)
	if claims.GameID != gameID {
		return ErrWrongGame
	}
	if claims.Player != player {
		return ErrNotInGame
	}
	g, err := c.store.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if claims.Admin && g.Admin == player {
		return nil
	}
	_, err = c.store.GetPlayer(ctx, gameID, player)
	if errors.Is(err, store.ErrPlayerNotFound) {
		return ErrNotInGame
	}
	return err
}

// Verify exposes the credential check to transports.
func (c *Coordinator) Verify(token string) (auth.Claims, error) {
	return c.tokens.Verify(token)
}

func (c *Coordinator) loadAsAdmin(ctx context.Context, claims auth.Claims, gameID string) (*game.Game, error) {
	g, err := c.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !claims.Admin || g.Admin != claims.Player {
		return nil, ErrNotAdmin
	}
	return g, nil
}

func (c *Coordinator) issue(player, gameID string, admin bool, msg string) (Credential, error) {
	issue := c.tokens.Issue
	if admin {
		issue = c.tokens.IssueAdmin
	}
	tok, exp, err := issue(player, gameID)
	if err != nil {
		return Credential{}, fmt.Errorf("sign token: %w", err)
	}
	return Credential{GameID: gameID, Token: tok, ExpiresAt: exp, Message: msg}, nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", ErrEmptyName
	case utf8.RuneCountInString(name) > maxNameLen:
		return "", ErrLongName
	}
	return name, nil
}
