// Package database archives finished match results in SQLite or PostgreSQL.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// Dialect selects the SQL backend.
type Dialect string

const (
	DialectNone     Dialect = "none"
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SeatResult is the final position of one player.
type SeatResult struct {
	Seat       int
	Nickname   string
	TowersLeft int
	Professors int
	Connected  bool
}

// MatchResult is the archived summary of a finished match. Winner is -1 for
// a draw.
type MatchResult struct {
	MatchID        uuid.UUID
	LobbyID        uuid.UUID
	NumPlayers     int
	Expert         bool
	Winner         int
	WinnerNickname string
	Reason         string
	Rounds         int
	Actions        int
	FinishedAt     time.Time
	Seats          []SeatResult
}

// Archive stores match results.
type Archive struct {
	dialect Dialect
	db      *sql.DB
}

// Open connects to the configured backend and applies pending migrations.
// DialectNone returns a nil *Archive, which drops every write.
func Open(ctx context.Context, dialect Dialect, sqlitePath, postgresDSN string) (*Archive, error) {
	dialect = Dialect(strings.TrimSpace(strings.ToLower(string(dialect))))
	var driverName, dsn string
	switch dialect {
	case "", DialectNone:
		return nil, nil
	case DialectSQLite:
		driverName = "sqlite"
		path := strings.TrimSpace(sqlitePath)
		if path == "" {
			path = filepath.Join("tmp", "archipelago.sqlite")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		dsn = filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	case DialectPostgres:
		driverName = "pgx"
		dsn = strings.TrimSpace(postgresDSN)
		if dsn == "" {
			return nil, errors.New("postgres archive requires a DSN")
		}
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", dialect)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	a := &Archive{dialect: dialect, db: db}
	if err := a.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

// Close closes the database handle.
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *Archive) bind(pos int) string {
	if a.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

func (a *Archive) insertQuery(table string, cols []string) string {
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = a.bind(i + 1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(cols, ", "),
		strings.Join(ph, ", "),
	)
}

func (a *Archive) applyMigrations(ctx context.Context) error {
	create := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at BIGINT NOT NULL
		)
	`
	if _, err := a.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	rows, err := a.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scan schema migration: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate schema migrations: %w", err)
	}
	rows.Close()

	files, err := fs.Glob(migrationFS, fmt.Sprintf("migrations/%s/*.sql", a.dialect))
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)
	for _, file := range files {
		base := filepath.Base(file)
		if applied[base] {
			continue
		}
		body, err := migrationFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		tx, err := a.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration tx %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		q := a.insertQuery("schema_migrations", []string{"version", "applied_at"})
		if _, err := tx.ExecContext(ctx, q, base, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

var resultCols = []string{
	"match_id", "lobby_id", "num_players", "expert", "winner", "winner_nickname",
	"reason", "rounds", "actions", "finished_at",
}

var seatCols = []string{"match_id", "seat", "nickname", "towers_left", "professors", "connected"}

// SaveResult stores r and its seats in one transaction.
func (a *Archive) SaveResult(ctx context.Context, r MatchResult) error {
	if a == nil || a.db == nil {
		return nil
	}
	if r.MatchID == uuid.Nil {
		return errors.New("match id is required")
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	_, err = tx.ExecContext(ctx, a.insertQuery("match_results", resultCols),
		r.MatchID.String(), r.LobbyID.String(), r.NumPlayers, r.Expert, r.Winner, r.WinnerNickname,
		r.Reason, r.Rounds, r.Actions, r.FinishedAt.UTC().UnixMilli(),
	)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert match %s: %w", r.MatchID, err)
	}
	q := a.insertQuery("match_players", seatCols)
	for _, s := range r.Seats {
		if _, err := tx.ExecContext(ctx, q, r.MatchID.String(), s.Seat, s.Nickname, s.TowersLeft, s.Professors, s.Connected); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert seat %d of match %s: %w", s.Seat, r.MatchID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit match %s: %w", r.MatchID, err)
	}
	return nil
}

// Results returns the most recent results, newest first.
func (a *Archive) Results(ctx context.Context, limit int) ([]MatchResult, error) {
	if a == nil || a.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf("SELECT %s FROM match_results ORDER BY finished_at DESC LIMIT %s",
		strings.Join(resultCols, ", "), a.bind(1))
	rows, err := a.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []MatchResult
	for rows.Next() {
		var (
			r                MatchResult
			matchID, lobbyID string
			finished         int64
		)
		if err := rows.Scan(&matchID, &lobbyID, &r.NumPlayers, &r.Expert, &r.Winner, &r.WinnerNickname,
			&r.Reason, &r.Rounds, &r.Actions, &finished); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if r.MatchID, err = uuid.Parse(matchID); err != nil {
			return nil, fmt.Errorf("parse match id: %w", err)
		}
		if r.LobbyID, err = uuid.Parse(lobbyID); err != nil {
			return nil, fmt.Errorf("parse lobby id: %w", err)
		}
		r.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	rows.Close()

	for i := range out {
		seats, err := a.seats(ctx, out[i].MatchID)
		if err != nil {
			return nil, err
		}
		out[i].Seats = seats
	}
	return out, nil
}

func (a *Archive) seats(ctx context.Context, matchID uuid.UUID) ([]SeatResult, error) {
	q := fmt.Sprintf("SELECT seat, nickname, towers_left, professors, connected FROM match_players WHERE match_id = %s ORDER BY seat",
		a.bind(1))
	rows, err := a.db.QueryContext(ctx, q, matchID.String())
	if err != nil {
		return nil, fmt.Errorf("query seats of match %s: %w", matchID, err)
	}
	defer rows.Close()
	var out []SeatResult
	for rows.Next() {
		var s SeatResult
		if err := rows.Scan(&s.Seat, &s.Nickname, &s.TowersLeft, &s.Professors, &s.Connected); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
