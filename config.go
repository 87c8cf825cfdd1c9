package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/robalobadob/hangman/apps/go-server/internal/auth"
	"github.com/robalobadob/hangman/apps/go-server/internal/session"
)

const devSecret = "dev_secret_change_me"

type Config struct {
	allowedOrigins []string
	bind           string
	db             string
	jwtSecret      string
	logLevel       string
	port           int
	prettyLogs     bool
	publicURL      string
	requestTimeout time.Duration
	solveDelay     time.Duration
	tokenTTL       time.Duration
	wordsFile      string
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.jwtSecret == "" {
		return errors.New("--jwt-secret must not be empty")
	}
	if c.tokenTTL <= 0 {
		return fmt.Errorf("invalid token ttl (must be positive): %s", c.tokenTTL)
	}
	if c.requestTimeout <= 0 {
		return fmt.Errorf("invalid request timeout (must be positive): %s", c.requestTimeout)
	}
	if c.solveDelay < 0 {
		return fmt.Errorf("invalid solve delay (must not be negative): %s", c.solveDelay)
	}
	if _, err := zerolog.ParseLevel(c.logLevel); err != nil {
		return fmt.Errorf("invalid log level: %q", c.logLevel)
	}
	return nil
}

func (c *Config) addr() string {
	return fmt.Sprintf("%s:%d", c.bind, c.port)
}

// setupLogging applies the level and output format to the global logger.
func (c *Config) setupLogging() {
	lvl, _ := zerolog.ParseLevel(c.logLevel)
	zerolog.SetGlobalLevel(lvl)
	if c.prettyLogs {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("HANGMAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "hangman",
		Short:         "Real-time multiplayer hangman game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			cfg.setupLogging()
			if cfg.jwtSecret == devSecret {
				log.Warn().Msg("using the development JWT secret; set HANGMAN_JWT_SECRET")
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringSliceVar(&cfg.allowedOrigins, "allowed-origins", []string{"http://localhost:5173"}, "origins allowed by CORS and websocket checks, \"*\" for any (env: HANGMAN_ALLOWED_ORIGINS)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: HANGMAN_BIND)")
	fs.StringVar(&cfg.db, "db", "", "path to sqlite database, empty keeps games in memory (env: HANGMAN_DB)")
	fs.StringVar(&cfg.jwtSecret, "jwt-secret", devSecret, "secret used to sign player tokens (env: HANGMAN_JWT_SECRET)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "trace, debug, info, warn or error (env: HANGMAN_LOG_LEVEL)")
	fs.IntVarP(&cfg.port, "port", "p", 5175, "port to listen on (env: HANGMAN_PORT)")
	fs.BoolVar(&cfg.prettyLogs, "pretty-logs", false, "human readable console logs instead of JSON (env: HANGMAN_PRETTY_LOGS)")
	fs.StringVar(&cfg.publicURL, "public-url", "", "base URL encoded in join QR codes (env: HANGMAN_PUBLIC_URL)")
	fs.DurationVar(&cfg.requestTimeout, "request-timeout", 10*time.Second, "upper bound for one HTTP request (env: HANGMAN_REQUEST_TIMEOUT)")
	fs.DurationVar(&cfg.solveDelay, "solve-delay", session.DefaultSolveDelay, "pause after a solved word before the next one, 0 disables (env: HANGMAN_SOLVE_DELAY)")
	fs.DurationVar(&cfg.tokenTTL, "token-ttl", auth.DefaultTTL, "lifetime of issued player tokens (env: HANGMAN_TOKEN_TTL)")
	fs.StringVar(&cfg.wordsFile, "words-file", "", "word list used for suggestions, one per line (env: HANGMAN_WORDS_FILE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("hangman v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
