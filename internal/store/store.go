// internal/store/store.go
//
// Persistence contract for games and players.
// Games are keyed by game id; players by (game id, player name) and can be
// listed per game. Values returned by a Store are private copies: mutating
// them never changes stored state until the caller Puts them back.

package store

import (
	"context"

	"github.com/robalobadob/hangman/apps/go-server/internal/apperr"
	"github.com/robalobadob/hangman/apps/go-server/internal/game"
)

// Lookup and uniqueness failures shared by all backends.
var (
	ErrGameNotFound   = apperr.New(apperr.NotFound, "Invalid game code.")
	ErrPlayerNotFound = apperr.New(apperr.NotFound, "Invalid player name.")
	ErrGameExists     = apperr.New(apperr.Conflict, "Game code already in use.")
	ErrPlayerExists   = apperr.New(apperr.Conflict, "Player name already taken in this game.")
)

// Store defines the persistence interface for game sessions.
// Implementations: memory (this package) and SQLite.
// Backend failures are reported as apperr.StorageUnavailable.
type Store interface {
	// GetGame retrieves a game by id or returns ErrGameNotFound.
	GetGame(ctx context.Context, id string) (*game.Game, error)

	// InsertGame stores a new game or returns ErrGameExists.
	InsertGame(ctx context.Context, g *game.Game) error

	// PutGame overwrites a game (last write wins).
	PutGame(ctx context.Context, g *game.Game) error

	// GetPlayer retrieves one player or returns ErrPlayerNotFound.
	GetPlayer(ctx context.Context, gameID, name string) (*game.Player, error)

	// InsertPlayer stores a new player or returns ErrPlayerExists.
	InsertPlayer(ctx context.Context, p *game.Player) error

	// PutPlayer overwrites a player (last write wins).
	PutPlayer(ctx context.Context, p *game.Player) error

	// ListPlayers returns every player of a game ordered by join time.
	ListPlayers(ctx context.Context, gameID string) ([]*game.Player, error)

	// Close releases backend resources.
	Close() error
}
