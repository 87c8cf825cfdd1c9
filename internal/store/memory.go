// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// Used when no database is configured and in tests.
//
// Characteristics:
//   - Games keyed by id, players keyed by game id then player name.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Values are cloned on the way in and out so callers never alias state.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sync"

	"github.com/robalobadob/hangman/apps/go-server/internal/game"
)

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu      sync.RWMutex
	games   map[string]*game.Game
	players map[string][]*game.Player // keyed by game id, join order
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{
		games:   make(map[string]*game.Game),
		players: make(map[string][]*game.Player),
	}
}

func (m *memory) GetGame(ctx context.Context, id string) (*game.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.games[id]; ok {
		return g.Clone(), nil
	}
	return nil, ErrGameNotFound
}

func (m *memory) InsertGame(ctx context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; ok {
		return ErrGameExists
	}
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *memory) PutGame(ctx context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *memory) GetPlayer(ctx context.Context, gameID, name string) (*game.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.indexOf(gameID, name); i >= 0 {
		return m.players[gameID][i].Clone(), nil
	}
	return nil, ErrPlayerNotFound
}

func (m *memory) InsertPlayer(ctx context.Context, p *game.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexOf(p.GameID, p.Name) >= 0 {
		return ErrPlayerExists
	}
	m.players[p.GameID] = append(m.players[p.GameID], p.Clone())
	return nil
}

func (m *memory) PutPlayer(ctx context.Context, p *game.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexOf(p.GameID, p.Name); i >= 0 {
		m.players[p.GameID][i] = p.Clone()
		return nil
	}
	m.players[p.GameID] = append(m.players[p.GameID], p.Clone())
	return nil
}

func (m *memory) ListPlayers(ctx context.Context, gameID string) ([]*game.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*game.Player, 0, len(m.players[gameID]))
	for _, p := range m.players[gameID] {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (m *memory) Close() error { return nil }

// indexOf must be called with mu held.
func (m *memory) indexOf(gameID, name string) int {
	for i, p := range m.players[gameID] {
		if p.Name == name {
			return i
		}
	}
	return -1
}
