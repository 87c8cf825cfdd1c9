// internal/httpserver/routes.go
//
// Game endpoints. Paths and JSON request fields (admin, words, player_name,
// letter) are what the existing web client sends. Realtime frames are JSON
// realtime.Message objects, not the bare text strings older clients read.
//   - POST /create_game                 → create a game, returns the admin token
//   - POST /add_words/{gameID}          → admin adds words (bearer)
//   - POST /start_game/{gameID}         → admin deals the first word (bearer)
//   - POST /join_game/{gameID}          → join before start, returns a token
//   - POST /rejoin_game/{gameID}        → reissue a token with the join PIN
//   - POST /guess_letter/{gameID}       → guess one letter (bearer)
//   - GET  /games/{gameID}              → public state + scoreboard
//   - GET  /games/{gameID}/qr           → PNG QR code of the join link
//   - GET  /suggest_words?n=            → words from the built-in pack

package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/skip2/go-qrcode"

	"github.com/robalobadob/hangman/apps/go-server/internal/auth"
	"github.com/robalobadob/hangman/apps/go-server/internal/session"
)

const (
	maxBodyBytes = 64 << 10
	qrSize       = 320
)

func (s *Server) mountGameRoutes(r chi.Router) {
	r.Post("/create_game", s.handleCreateGame)
	r.Post("/join_game/{gameID}", s.handleJoinGame)
	r.Post("/rejoin_game/{gameID}", s.handleRejoinGame)
	r.Get("/games/{gameID}", s.handleStatus)
	r.Get("/games/{gameID}/qr", s.handleQR)
	r.Get("/suggest_words", s.handleSuggestWords)

	r.Group(func(r chi.Router) {
		r.Use(s.requireCredential)
		r.Post("/add_words/{gameID}", s.handleAddWords)
		r.Post("/start_game/{gameID}", s.handleStartGame)
		r.Post("/guess_letter/{gameID}", s.handleGuessLetter)
	})
}

// ------------------------------- auth --------------------------------------

// ctxClaimsKey is the context key type for verified auth.Claims.
type ctxClaimsKey struct{}

// requireCredential verifies the bearer token and puts its claims in the
// request context.
func (s *Server) requireCredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			writeError(w, r, errMissingToken)
			return
		}
		claims, err := s.coord.Verify(tok)
		if err != nil {
			writeError(w, r, err)
			return
		}
		hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("player", claims.Player)
		})
		ctx := context.WithValue(r.Context(), ctxClaimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(r *http.Request) auth.Claims {
	c, _ := r.Context().Value(ctxClaimsKey{}).(auth.Claims)
	return c
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		return errBadJSON
	}
	return nil
}

// ------------------------------- games -------------------------------------

type createGameReq struct {
	Admin string `json:"admin"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cred, err := s.coord.CreateGame(r.Context(), req.Admin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

type addWordsReq struct {
	Words []string `json:"words"`
}

type addWordsRes struct {
	Message string `json:"message"`
	Added   int    `json:"added"`
}

func (s *Server) handleAddWords(w http.ResponseWriter, r *http.Request) {
	var req addWordsReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	added, err := s.coord.AddWords(r.Context(), claimsFrom(r), chi.URLParam(r, "gameID"), req.Words)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addWordsRes{Message: "Words added successfully!", Added: added})
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.StartGame(r.Context(), claimsFrom(r), chi.URLParam(r, "gameID")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Game started!"})
}

type joinReq struct {
	PlayerName string `json:"player_name"`
	Pin        string `json:"pin,omitempty"`
}

func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	var req joinReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cred, err := s.coord.JoinGame(r.Context(), chi.URLParam(r, "gameID"), req.PlayerName, req.Pin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

func (s *Server) handleRejoinGame(w http.ResponseWriter, r *http.Request) {
	var req joinReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cred, err := s.coord.RejoinGame(r.Context(), chi.URLParam(r, "gameID"), req.PlayerName, req.Pin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

type guessReq struct {
	Letter string `json:"letter"`
}

func (s *Server) handleGuessLetter(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.coord.GuessLetter(r.Context(), claimsFrom(r), chi.URLParam(r, "gameID"), req.Letter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := s.coord.Status(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleQR renders the join link of an existing game as a PNG.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	view, err := s.coord.Status(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	png, err := qrcode.Encode(s.joinURL(r, view.GameID), qrcode.Medium, qrSize)
	if err != nil {
		writeError(w, r, fmt.Errorf("encode qr: %w", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// joinURL points players at the join page for gameID. Without a configured
// public URL the request's own host is used.
func (s *Server) joinURL(r *http.Request, gameID string) string {
	base := strings.TrimRight(s.cfg.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/join/" + url.PathEscape(gameID)
}

type suggestRes struct {
	Words []string `json:"words"`
}

func (s *Server) handleSuggestWords(w http.ResponseWriter, r *http.Request) {
	n := 10
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, r, errBadCount)
			return
		}
		n = parsed
	}
	writeJSON(w, http.StatusOK, suggestRes{Words: s.words.Suggest(n)})
}

// ------------------------------ realtime -----------------------------------

// handleWebSocket authorizes ?token= against both path segments and hands
// the connection to the registry.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := session.NormalizeCode(chi.URLParam(r, "gameID"))
	player := chi.URLParam(r, "playerName")

	tok := r.URL.Query().Get("token")
	if tok == "" {
		tok = bearerToken(r)
	}
	if tok == "" {
		writeError(w, r, errMissingToken)
		return
	}
	claims, err := s.coord.Verify(tok)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.coord.AuthorizeChannel(r.Context(), claims, gameID, player); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ws.Serve(w, r, gameID, player); err != nil {
		// the upgrader has already replied to the client
		hlog.FromRequest(r).Warn().Err(err).Str("gameId", gameID).Msg("websocket upgrade failed")
	}
}
