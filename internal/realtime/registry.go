// internal/realtime/registry.go
//
// Connection Registry: per game id, the set of live player channels.
// Broadcast is best effort. It marshals once, snapshots the recipients,
// and hands the frame to each connection's queue; a connection that
// cannot take it is logged, closed and dropped while delivery to the
// others continues.

package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Events pushed to players.
const (
	EventJoined   = "joined"
	EventStarted  = "started"
	EventGuess    = "guess"
	EventSolved   = "solved"
	EventWord     = "word"
	EventFinished = "finished"
)

// Message is one server-pushed frame.
type Message struct {
	GameID       string   `json:"game_id"`
	Event        string   `json:"event"`
	Message      string   `json:"message,omitempty"`
	CurrentGuess string   `json:"current_guess,omitempty"`
	Word         string   `json:"word,omitempty"`
	Player       string   `json:"player,omitempty"`
	Letter       string   `json:"letter,omitempty"`
	Winners      []string `json:"winners,omitempty"`
}

// Conn is one outbound channel to a player.
type Conn interface {
	ID() string
	// Send queues data for delivery without blocking.
	Send(data []byte) error
	Close()
}

// Registry maps game ids to their open connections.
type Registry struct {
	mu    sync.RWMutex
	games map[string]map[string]Conn // game id -> conn id -> conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{games: make(map[string]map[string]Conn)}
}

// Register adds c to gameID.
func (r *Registry) Register(gameID string, c Conn) {
	r.mu.Lock()
	conns := r.games[gameID]
	if conns == nil {
		conns = make(map[string]Conn)
		r.games[gameID] = conns
	}
	conns[c.ID()] = c
	n := len(conns)
	r.mu.Unlock()

	log.Debug().Str("gameId", gameID).Str("conn", c.ID()).Int("total", n).Msg("connection registered")
}

// Unregister removes c from gameID. Removing an absent connection is a no-op.
func (r *Registry) Unregister(gameID string, c Conn) {
	r.mu.Lock()
	conns, ok := r.games[gameID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if _, ok := conns[c.ID()]; !ok {
		r.mu.Unlock()
		return
	}
	delete(conns, c.ID())
	if len(conns) == 0 {
		delete(r.games, gameID)
	}
	n := len(conns)
	r.mu.Unlock()

	log.Debug().Str("gameId", gameID).Str("conn", c.ID()).Int("remaining", n).Msg("connection unregistered")
}

// Count returns the number of open connections for gameID.
func (r *Registry) Count(gameID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games[gameID])
}

// Broadcast delivers msg to every connection registered for gameID and
// returns how many accepted it.
func (r *Registry) Broadcast(gameID string, msg Message) int {
	msg.GameID = gameID
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("marshal broadcast")
		return 0
	}

	r.mu.RLock()
	targets := make([]Conn, 0, len(r.games[gameID]))
	for _, c := range r.games[gameID] {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if err := safeSend(c, data); err != nil {
			log.Warn().Err(err).Str("gameId", gameID).Str("conn", c.ID()).Str("event", msg.Event).Msg("dropping connection")
			r.Unregister(gameID, c)
			c.Close()
			continue
		}
		delivered++
	}
	return delivered
}

// safeSend turns a panicking connection into an error so one bad
// recipient never takes down the broadcasting request.
func safeSend(c Conn, data []byte) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errPanicked
		}
	}()
	return c.Send(data)
}
