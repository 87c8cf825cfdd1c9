package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/hangman/apps/go-server/assets"
	"github.com/robalobadob/hangman/apps/go-server/internal/auth"
	"github.com/robalobadob/hangman/apps/go-server/internal/httpserver"
	"github.com/robalobadob/hangman/apps/go-server/internal/realtime"
	"github.com/robalobadob/hangman/apps/go-server/internal/session"
	"github.com/robalobadob/hangman/apps/go-server/internal/store"
	"github.com/robalobadob/hangman/apps/go-server/internal/words"
)

const (
	releaseVersion = "0.1.0"
	shutdownGrace  = 10 * time.Second
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).ExecuteContext(ctx))
}

// serve wires storage, credentials, the registry and the coordinator, then
// runs the HTTP server until ctx is cancelled.
func serve(ctx context.Context, cfg *Config) error {
	st, err := openStore(cfg.db)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("close store")
		}
	}()

	pack, err := words.Load(cfg.wordsFile)
	if err != nil {
		return err
	}

	solveDelay := cfg.solveDelay
	if solveDelay == 0 {
		solveDelay = -1 // explicit 0 on the command line means no pause
	}

	reg := realtime.NewRegistry()
	coord := session.New(st, auth.NewIssuer(cfg.jwtSecret, cfg.tokenTTL), reg, session.Options{
		SolveDelay: solveDelay,
	})
	srv := httpserver.New(coord, reg, pack, httpserver.Config{
		AllowedOrigins: cfg.allowedOrigins,
		RequestTimeout: cfg.requestTimeout,
		PublicURL:      cfg.publicURL,
	})

	log.Info().
		Str("version", releaseVersion).
		Str("addr", cfg.addr()).
		Bool("sqlite", cfg.db != "").
		Int("words", pack.Len()).
		Dur("solveDelay", cfg.solveDelay).
		Msg("starting hangman server")
	return srv.Run(ctx, cfg.addr(), shutdownGrace)
}

func openStore(dsn string) (store.Store, error) {
	if dsn == "" {
		return store.NewMemoryStore(), nil
	}
	db, err := store.OpenSQLite(dsn, assets.Migrations())
	if err != nil {
		return nil, err
	}
	return db, nil
}
