package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/hangman/apps/go-server/internal/apperr"
	"github.com/robalobadob/hangman/apps/go-server/internal/auth"
	"github.com/robalobadob/hangman/apps/go-server/internal/realtime"
	"github.com/robalobadob/hangman/apps/go-server/internal/session"
	"github.com/robalobadob/hangman/apps/go-server/internal/store"
	"github.com/robalobadob/hangman/apps/go-server/internal/words"
)

type testServer struct {
	*httptest.Server
	reg *realtime.Registry
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	reg := realtime.NewRegistry()
	coord := session.New(store.NewMemoryStore(), auth.NewIssuer("test-secret", time.Hour), reg, session.Options{
		SolveDelay: -1,
		Picker:     func(int) int { return 0 },
	})
	pack, err := words.Load("")
	require.NoError(t, err)

	ts := httptest.NewServer(New(coord, reg, pack, cfg).Router())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, reg: reg}
}

func (ts *testServer) call(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (ts *testServer) dial(t *testing.T, gameID, player, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + fmt.Sprintf("/ws/%s/%s?token=%s", gameID, player, token)
	return websocket.DefaultDialer.Dial(u, nil)
}

func readEvent(t *testing.T, conn *websocket.Conn) realtime.Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var m realtime.Message
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestGameFlow(t *testing.T) {
	ts := newTestServer(t, Config{})

	status, created := ts.call(t, http.MethodPost, "/create_game", "", map[string]string{"admin": "alice"})
	require.Equal(t, http.StatusOK, status)
	gameID := created["gameId"].(string)
	adminTok := created["token"].(string)
	assert.Equal(t, "Game created successfully!", created["message"])

	status, joined := ts.call(t, http.MethodPost, "/join_game/"+gameID, "", map[string]string{"player_name": "bob"})
	require.Equal(t, http.StatusOK, status)
	bobTok := joined["token"].(string)
	assert.Equal(t, "bob joined the game!", joined["message"])

	status, added := ts.call(t, http.MethodPost, "/add_words/"+gameID, adminTok, map[string]any{"words": []string{"Cat", "cat", "Dog"}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), added["added"])

	conn, _, err := ts.dial(t, gameID, "bob", bobTok)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return ts.reg.Count(gameID) == 1 }, time.Second, 5*time.Millisecond)

	status, _ = ts.call(t, http.MethodPost, "/start_game/"+gameID, adminTok, nil)
	require.Equal(t, http.StatusOK, status)
	started := readEvent(t, conn)
	assert.Equal(t, realtime.EventStarted, started.Event)
	assert.Equal(t, "___", started.CurrentGuess)

	status, guessed := ts.call(t, http.MethodPost, "/guess_letter/"+gameID, bobTok, map[string]string{"letter": "a"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Guess received!", guessed["message"])
	assert.Equal(t, "_a_", guessed["current_guess"])

	ev := readEvent(t, conn)
	assert.Equal(t, realtime.EventGuess, ev.Event)
	assert.Equal(t, "_a_", ev.CurrentGuess)
	assert.Equal(t, gameID, ev.GameID)

	for _, l := range []string{"c", "t"} {
		status, _ = ts.call(t, http.MethodPost, "/guess_letter/"+gameID, bobTok, map[string]string{"letter": l})
		require.Equal(t, http.StatusOK, status)
	}
	var events []string
	for i := 0; i < 4; i++ {
		events = append(events, readEvent(t, conn).Event)
	}
	assert.Equal(t, []string{realtime.EventGuess, realtime.EventGuess, realtime.EventSolved, realtime.EventWord}, events)

	status, view := ts.call(t, http.MethodGet, "/games/"+strings.ToLower(gameID), "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "active", view["state"])
	assert.Equal(t, "___", view["current_guess"])
	players := view["players"].([]any)
	require.Len(t, players, 1)
	assert.Equal(t, float64(1), players[0].(map[string]any)["guesses"])
}

func TestErrorResponses(t *testing.T) {
	ts := newTestServer(t, Config{})

	_, created := ts.call(t, http.MethodPost, "/create_game", "", map[string]string{"admin": "alice"})
	gameID := created["gameId"].(string)
	adminTok := created["token"].(string)
	_, other := ts.call(t, http.MethodPost, "/create_game", "", map[string]string{"admin": "zoe"})
	otherTok := other["token"].(string)
	_, joined := ts.call(t, http.MethodPost, "/join_game/"+gameID, "", map[string]string{"player_name": "bob"})
	bobTok := joined["token"].(string)

	type testCase struct {
		description string
		method      string
		path        string
		token       string
		body        any
		status      int
		message     string
	}

	testCases := []testCase{
		{description: "missing token", method: http.MethodPost, path: "/start_game/" + gameID, status: http.StatusUnauthorized, message: "Missing bearer token."},
		{description: "garbage token", method: http.MethodPost, path: "/start_game/" + gameID, token: "nope", status: http.StatusUnauthorized, message: "Invalid JWT token"},
		{description: "token for another game", method: http.MethodPost, path: "/start_game/" + gameID, token: otherTok, status: http.StatusForbidden, message: "Invalid game code for this player."},
		{description: "player is not admin", method: http.MethodPost, path: "/add_words/" + gameID, token: bobTok, body: map[string]any{"words": []string{"x"}}, status: http.StatusForbidden, message: "Invalid admin for this game code."},
		{description: "start without words", method: http.MethodPost, path: "/start_game/" + gameID, token: adminTok, status: http.StatusBadRequest},
		{description: "guess before start", method: http.MethodPost, path: "/guess_letter/" + gameID, token: bobTok, body: map[string]string{"letter": "a"}, status: http.StatusBadRequest},
		{description: "unknown game", method: http.MethodPost, path: "/join_game/NOP-000", body: map[string]string{"player_name": "eve"}, status: http.StatusNotFound, message: "Invalid game code."},
		{description: "duplicate player", method: http.MethodPost, path: "/join_game/" + gameID, body: map[string]string{"player_name": "bob"}, status: http.StatusConflict},
		{description: "joining under the admin name", method: http.MethodPost, path: "/join_game/" + gameID, body: map[string]string{"player_name": "alice"}, status: http.StatusConflict},
		{description: "blank admin", method: http.MethodPost, path: "/create_game", body: map[string]string{"admin": " "}, status: http.StatusBadRequest, message: "Player name is required."},
		{description: "unknown status", method: http.MethodGet, path: "/games/NOP-000", status: http.StatusNotFound},
		{description: "bad suggestion count", method: http.MethodGet, path: "/suggest_words?n=abc", status: http.StatusBadRequest},
		{description: "unknown route", method: http.MethodGet, path: "/nowhere", status: http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			status, body := ts.call(t, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, status)
			assert.NotEmpty(t, body["error"])
			if tc.message != "" {
				assert.Equal(t, tc.message, body["error"])
			}
		})
	}
}

func TestMalformedBody(t *testing.T) {
	ts := newTestServer(t, Config{})
	resp, err := http.Post(ts.URL+"/create_game", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRejoinWithPin(t *testing.T) {
	ts := newTestServer(t, Config{})
	_, created := ts.call(t, http.MethodPost, "/create_game", "", map[string]string{"admin": "alice"})
	gameID := created["gameId"].(string)

	status, _ := ts.call(t, http.MethodPost, "/join_game/"+gameID, "", map[string]string{"player_name": "bob", "pin": "1234"})
	require.Equal(t, http.StatusOK, status)

	status, body := ts.call(t, http.MethodPost, "/rejoin_game/"+gameID, "", map[string]string{"player_name": "bob", "pin": "1234"})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])

	status, _ = ts.call(t, http.MethodPost, "/rejoin_game/"+gameID, "", map[string]string{"player_name": "bob", "pin": "9999"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestWebSocketAuthorization(t *testing.T) {
	ts := newTestServer(t, Config{})
	_, created := ts.call(t, http.MethodPost, "/create_game", "", map[string]string{"admin": "alice"})
	gameID := created["gameId"].(string)
	_, joined := ts.call(t, http.MethodPost, "/join_game/"+gameID, "", map[string]string{"player_name": "bob"})
	bobTok := joined["token"].(string)

	type testCase struct {
		description string
		gameID      string
		player      string
		token       string
		status      int
	}

	testCases := []testCase{
		{description: "no token", gameID: gameID, player: "bob", status: http.StatusUnauthorized},
		{description: "bad token", gameID: gameID, player: "bob", token: "junk", status: http.StatusUnauthorized},
		{description: "token of another player", gameID: gameID, player: "alice", token: bobTok, status: http.StatusForbidden},
		{description: "token of another game", gameID: "NOP-000", player: "bob", token: bobTok, status: http.StatusForbidden},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			conn, resp, err := ts.dial(t, tc.gameID, tc.player, tc.token)
			if conn != nil {
				conn.Close()
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
	assert.Equal(t, 0, ts.reg.Count(gameID))
}

func TestQRCode(t *testing.T) {
	ts := newTestServer(t, Config{PublicURL: "https://hangman.example/"})
	_, created := ts.call(t, http.MethodPost, "/create_game", "", map[string]string{"admin": "alice"})
	gameID := created["gameId"].(string)

	resp, err := http.Get(ts.URL + "/games/" + gameID + "/qr")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	resp404, err := http.Get(ts.URL + "/games/NOP-000/qr")
	require.NoError(t, err)
	resp404.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp404.StatusCode)
}

func TestJoinURL(t *testing.T) {
	s := &Server{cfg: Config{PublicURL: "https://hangman.example/"}}
	r := httptest.NewRequest(http.MethodGet, "/games/ABC-123/qr", nil)
	assert.Equal(t, "https://hangman.example/join/ABC-123", s.joinURL(r, "ABC-123"))

	s.cfg.PublicURL = ""
	r.Host = "10.0.0.5:8080"
	assert.Equal(t, "http://10.0.0.5:8080/join/ABC-123", s.joinURL(r, "ABC-123"))
}

func TestSuggestWords(t *testing.T) {
	ts := newTestServer(t, Config{})
	status, body := ts.call(t, http.MethodGet, "/suggest_words?n=3", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["words"], 3)

	status, body = ts.call(t, http.MethodGet, "/suggest_words", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["words"], 10)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, Config{AllowedOrigins: []string{"https://play.example"}})

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/create_game", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://play.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://play.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err = http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	type testCase struct {
		description string
		err         error
		want        int
	}

	testCases := []testCase{
		{description: "not found", err: store.ErrGameNotFound, want: http.StatusNotFound},
		{description: "authorization", err: session.ErrNotAdmin, want: http.StatusForbidden},
		{description: "credential", err: auth.ErrTokenExpired, want: http.StatusUnauthorized},
		{description: "invalid state", err: apperr.New(apperr.InvalidState, "x"), want: http.StatusBadRequest},
		{description: "invalid input", err: errBadJSON, want: http.StatusBadRequest},
		{description: "conflict", err: store.ErrPlayerExists, want: http.StatusConflict},
		{description: "storage", err: apperr.Unavailable("get game", errors.New("disk")), want: http.StatusServiceUnavailable},
		{description: "wrapped", err: fmt.Errorf("join: %w", store.ErrGameNotFound), want: http.StatusNotFound},
		{description: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			assert.Equal(t, tc.want, statusFor(tc.err))
		})
	}
}
