// internal/httpserver/server.go
//
// HTTP server wiring for the hangman coordinator.
// Responsibilities:
//   - Router + middleware (request IDs, real IP, panic recovery, access log,
//     JSON content type, CORS, timeouts).
//   - Public endpoints: "/", "/health".
//   - Game endpoints (see routes.go), bearer-authenticated where the
//     operation needs a credential.
//   - The realtime channel at /ws/{gameID}/{playerName}.
//
// Notes:
//   - CORS is origin-list aware; "*" allows any origin.
//   - The websocket route is mounted outside the Timeout group because the
//     connection outlives the upgrade request.
//   - Errors are rendered as {"error": "..."} with a status derived from
//     the apperr kind (see errors.go).

package httpserver

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/hangman/apps/go-server/internal/realtime"
	"github.com/robalobadob/hangman/apps/go-server/internal/session"
	"github.com/robalobadob/hangman/apps/go-server/internal/words"
)

// Config tunes the HTTP surface.
type Config struct {
	AllowedOrigins []string      // CORS + websocket origins; "*" or empty allows any
	RequestTimeout time.Duration // per-request budget, excluding websockets
	PublicURL      string        // base URL encoded in join QR codes
}

// Server bundles the router and the components its handlers call.
type Server struct {
	r     *chi.Mux
	coord *session.Coordinator
	ws    *realtime.Upgrader
	words *words.Pack
	cfg   Config
}

// New constructs a Server, installs middleware, and registers routes.
func New(coord *session.Coordinator, reg *realtime.Registry, pack *words.Pack, cfg Config) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	s := &Server{r: chi.NewRouter(), coord: coord, words: pack, cfg: cfg}
	s.ws = realtime.NewUpgrader(reg, s.websocketOrigin)

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(hlog.NewHandler(log.Logger))
	s.r.Use(accessLog())
	s.r.Use(chimw.Recoverer)
	s.r.Use(s.cors)

	// realtime channel: no timeout, no JSON content type
	s.r.Get("/ws/{gameID}/{playerName}", s.handleWebSocket)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
		r.Use(jsonContentType)

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"hangman-go","endpoints":["/health","POST /create_game","POST /join_game/{gameID}","GET /ws/{gameID}/{playerName}"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		s.mountGameRoutes(r)

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
		})
	})

	return s
}

// Router exposes the internal router (useful for tests and http.Server).
func (s *Server) Router() http.Handler { return s.r }

// Run serves on addr until ctx is cancelled, then drains in-flight
// requests for up to grace.
func (s *Server) Run(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one structured line per request through the request logger.
func accessLog() func(http.Handler) http.Handler {
	return hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		lvl := zerolog.InfoLevel
		if status >= http.StatusInternalServerError {
			lvl = zerolog.WarnLevel
		}
		hlog.FromRequest(r).WithLevel(lvl).
			Str("reqId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	})
}

// originAllowed reports whether origin may call the API.
func (s *Server) originAllowed(origin string) bool {
	if len(s.cfg.AllowedOrigins) == 0 || slices.Contains(s.cfg.AllowedOrigins, "*") {
		return true
	}
	return slices.ContainsFunc(s.cfg.AllowedOrigins, func(o string) bool {
		return strings.EqualFold(strings.TrimRight(o, "/"), origin)
	})
}

// websocketOrigin lets non-browser clients (no Origin header) through.
func (s *Server) websocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.originAllowed(origin)
}

// cors echoes allowed origins and answers preflight requests.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
