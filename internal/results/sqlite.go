package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/park285/dice-chess/internal/domain"
)

// SQLiteRepository stores results in a local SQLite file. Timestamps are unix milliseconds.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens path (":memory:" works for tests) and applies the embedded migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps :memory: databases alive and serialises writers
	db.SetMaxOpenConns(1)
	if err := applyMigrations(ctx, db, sqliteDialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *SQLiteRepository) SaveResult(ctx context.Context, game *domain.DiceGame) error {
	if err := validate(game); err != nil {
		return err
	}
	movesUCI, movesText, err := encodeMoves(game)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO dice_games (
			session_id, player_id, mode, difficulty, player_color,
			winner, result, reason, stake, token_delta,
			moves_uci, moves_text, final_fen, turn_count,
			started_at, ended_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			winner = excluded.winner,
			result = excluded.result,
			reason = excluded.reason,
			stake = excluded.stake,
			token_delta = excluded.token_delta,
			moves_uci = excluded.moves_uci,
			moves_text = excluded.moves_text,
			final_fen = excluded.final_fen,
			turn_count = excluded.turn_count,
			ended_at = excluded.ended_at,
			duration_ms = excluded.duration_ms`

	if _, err := r.db.ExecContext(ctx, query,
		game.SessionID,
		game.PlayerID,
		game.Mode,
		game.Difficulty,
		game.PlayerColor,
		game.Winner,
		game.Result,
		game.Reason,
		game.Stake,
		game.TokenDelta,
		string(movesUCI),
		string(movesText),
		game.FinalFEN,
		game.TurnCount,
		game.StartedAt.UTC().UnixMilli(),
		game.EndedAt.UTC().UnixMilli(),
		game.Duration.Milliseconds(),
	); err != nil {
		return fmt.Errorf("upsert dice game: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM dice_games WHERE session_id = ?`, game.SessionID).Scan(&game.ID); err != nil {
		return fmt.Errorf("read dice game id: %w", err)
	}
	return nil
}

const sqliteSelect = `
	SELECT id, session_id, player_id, mode, difficulty, player_color,
		winner, result, reason, stake, token_delta,
		moves_uci, moves_text, final_fen, turn_count,
		started_at, ended_at, duration_ms
	FROM dice_games`

func (r *SQLiteRepository) RecentGames(ctx context.Context, playerID string, limit int) ([]*domain.DiceGame, error) {
	limit = normalizeLimit(limit)
	rows, err := r.db.QueryContext(ctx, sqliteSelect+` WHERE player_id = ? ORDER BY ended_at DESC, id DESC LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("select dice games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.DiceGame, 0, limit)
	for rows.Next() {
		g, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (r *SQLiteRepository) GameBySession(ctx context.Context, sessionID string) (*domain.DiceGame, error) {
	g, err := scanSQLite(r.db.QueryRowContext(ctx, sqliteSelect+` WHERE session_id = ?`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

func scanSQLite(row rowScanner) (*domain.DiceGame, error) {
	var (
		g              domain.DiceGame
		uci, text      string
		startMS, endMS int64
		durationMS     int64
	)
	if err := row.Scan(
		&g.ID, &g.SessionID, &g.PlayerID, &g.Mode, &g.Difficulty, &g.PlayerColor,
		&g.Winner, &g.Result, &g.Reason, &g.Stake, &g.TokenDelta,
		&uci, &text, &g.FinalFEN, &g.TurnCount,
		&startMS, &endMS, &durationMS,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan dice game: %w", err)
	}
	g.StartedAt = time.UnixMilli(startMS).UTC()
	g.EndedAt = time.UnixMilli(endMS).UTC()
	g.Duration = time.Duration(durationMS) * time.Millisecond
	if err := decodeMoves(&g, []byte(uci), []byte(text)); err != nil {
		return nil, err
	}
	return &g, nil
}
