// internal/store/sqlite.go
//
// SQLite implementation of the Store interface.
// Responsibilities:
//   - Opening the database with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying the embedded migrations (idempotent, recorded in _migrations).
//   - Mapping games and players to rows; word lists are JSON text columns.
//
// Backend errors are wrapped as apperr.StorageUnavailable; primary-key
// violations on insert become ErrGameExists / ErrPlayerExists.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/hangman/apps/go-server/internal/apperr"
	"github.com/robalobadob/hangman/apps/go-server/internal/game"
)

// SQLite is a Store backed by a single SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if missing) the database at dsn and applies
// the migrations found in migrations.
func OpenSQLite(dsn string, migrations fs.FS) (*SQLite, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}
	if err := migrate(db, migrations); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// openDB ensures the parent directory exists and configures busy timeout,
// WAL journaling and foreign keys.
func openDB(dsn string) (*sql.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if isMemoryDSN(dsn) {
		// every pooled connection would open its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// migrate applies every *.sql file of migrations in lexical order, once.
// Applied file names are tracked in the _migrations table.
func migrate(db *sql.DB, migrations fs.FS) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	var files []string
	if err := fs.WalkDir(migrations, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("walk migrations: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		var done int
		err := db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		body, err := fs.ReadFile(migrations, f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", f, err)
		}
		log.Info().Str("migration", f).Msg("applied")
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }

const gameColumns = `game_id, admin, words, all_words, current_word, current_guess, started, finished, created_at, solved_by`

func (s *SQLite) GetGame(ctx context.Context, id string) (*game.Game, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE game_id=?`, id)

	var (
		g                 game.Game
		words, allWords   string
		started, finished int
		created           string
	)
	err := row.Scan(&g.ID, &g.Admin, &words, &allWords, &g.CurrentWord, &g.CurrentGuess, &started, &finished, &created, &g.SolvedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, apperr.Unavailable("get game", err)
	}
	if err := json.Unmarshal([]byte(words), &g.Words); err != nil {
		return nil, apperr.Unavailable("decode words", err)
	}
	if err := json.Unmarshal([]byte(allWords), &g.AllWords); err != nil {
		return nil, apperr.Unavailable("decode all_words", err)
	}
	g.Started, g.Finished = started == 1, finished == 1
	g.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &g, nil
}

func (s *SQLite) InsertGame(ctx context.Context, g *game.Game) error {
	args, err := gameArgs(g)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO games (`+gameColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`, args...)
	if isDuplicate(err) {
		return ErrGameExists
	}
	if err != nil {
		return apperr.Unavailable("insert game", err)
	}
	return nil
}

func (s *SQLite) PutGame(ctx context.Context, g *game.Game) error {
	args, err := gameArgs(g)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO games (`+gameColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(game_id) DO UPDATE SET
			admin=excluded.admin,
			words=excluded.words,
			all_words=excluded.all_words,
			current_word=excluded.current_word,
			current_guess=excluded.current_guess,
			started=excluded.started,
			finished=excluded.finished,
			solved_by=excluded.solved_by`, args...)
	if err != nil {
		return apperr.Unavailable("put game", err)
	}
	return nil
}

func (s *SQLite) GetPlayer(ctx context.Context, gameID, name string) (*game.Player, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT game_id, player_name, guesses, guessed_words, pin_hash
		FROM players WHERE game_id=? AND player_name=?`, gameID, name)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, apperr.Unavailable("get player", err)
	}
	return p, nil
}

func (s *SQLite) InsertPlayer(ctx context.Context, p *game.Player) error {
	guessed, err := json.Marshal(nonNil(p.GuessedWords))
	if err != nil {
		return apperr.Unavailable("encode guessed_words", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO players (game_id, player_name, guesses, guessed_words, pin_hash)
		VALUES (?,?,?,?,?)`, p.GameID, p.Name, p.Guesses, string(guessed), p.PinHash)
	if isDuplicate(err) {
		return ErrPlayerExists
	}
	if err != nil {
		return apperr.Unavailable("insert player", err)
	}
	return nil
}

func (s *SQLite) PutPlayer(ctx context.Context, p *game.Player) error {
	guessed, err := json.Marshal(nonNil(p.GuessedWords))
	if err != nil {
		return apperr.Unavailable("encode guessed_words", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO players (game_id, player_name, guesses, guessed_words, pin_hash)
		VALUES (?,?,?,?,?)
		ON CONFLICT(game_id, player_name) DO UPDATE SET
			guesses=excluded.guesses,
			guessed_words=excluded.guessed_words,
			pin_hash=excluded.pin_hash`, p.GameID, p.Name, p.Guesses, string(guessed), p.PinHash)
	if err != nil {
		return apperr.Unavailable("put player", err)
	}
	return nil
}

func (s *SQLite) ListPlayers(ctx context.Context, gameID string) ([]*game.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, player_name, guesses, guessed_words, pin_hash
		FROM players WHERE game_id=? ORDER BY rowid ASC`, gameID)
	if err != nil {
		return nil, apperr.Unavailable("list players", err)
	}
	defer rows.Close()

	out := []*game.Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, apperr.Unavailable("scan player", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Unavailable("list players", err)
	}
	return out, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row scanner) (*game.Player, error) {
	var (
		p       game.Player
		guessed string
	)
	if err := row.Scan(&p.GameID, &p.Name, &p.Guesses, &guessed, &p.PinHash); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(guessed), &p.GuessedWords); err != nil {
		return nil, err
	}
	return &p, nil
}

func gameArgs(g *game.Game) ([]any, error) {
	words, err := json.Marshal(nonNil(g.Words))
	if err != nil {
		return nil, apperr.Unavailable("encode words", err)
	}
	allWords, err := json.Marshal(nonNil(g.AllWords))
	if err != nil {
		return nil, apperr.Unavailable("encode all_words", err)
	}
	return []any{
		g.ID, g.Admin, string(words), string(allWords), g.CurrentWord, g.CurrentGuess,
		boolInt(g.Started), boolInt(g.Finished), g.CreatedAt.UTC().Format(time.RFC3339Nano),
		g.SolvedBy,
	}, nil
}

// isDuplicate reports a primary-key or unique constraint violation.
func isDuplicate(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
