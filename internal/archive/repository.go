package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS broadcast_games (
	game_id     TEXT PRIMARY KEY,
	round_id    TEXT NOT NULL,
	round_name  TEXT NOT NULL DEFAULT '',
	tour_id     TEXT NOT NULL DEFAULT '',
	tour_name   TEXT NOT NULL DEFAULT '',
	white_name  TEXT NOT NULL DEFAULT '',
	black_name  TEXT NOT NULL DEFAULT '',
	result      TEXT NOT NULL DEFAULT '',
	fen         TEXT NOT NULL DEFAULT '',
	pgn         TEXT NOT NULL DEFAULT '',
	observed_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS broadcast_games_observed_at_idx ON broadcast_games (observed_at DESC);
`

type Repository struct {
	db *sql.DB
}

// Open connects to Postgres and creates the schema if needed.
func Open(ctx context.Context, databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	r := &Repository{db: db}
	if err := r.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create archive schema: %w", err)
	}
	return nil
}

const upsertQuery = `
	INSERT INTO broadcast_games (
		game_id, round_id, round_name, tour_id, tour_name,
		white_name, black_name, result, fen, pgn, observed_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	ON CONFLICT (game_id) DO UPDATE SET
		round_id=EXCLUDED.round_id,
		round_name=EXCLUDED.round_name,
		tour_id=EXCLUDED.tour_id,
		tour_name=EXCLUDED.tour_name,
		white_name=EXCLUDED.white_name,
		black_name=EXCLUDED.black_name,
		result=EXCLUDED.result,
		fen=EXCLUDED.fen,
		pgn=EXCLUDED.pgn,
		observed_at=EXCLUDED.observed_at`

func (r *Repository) SaveRound(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertQuery)
	if err != nil {
		return fmt.Errorf("prepare archive upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if strings.TrimSpace(rec.GameID) == "" {
			continue
		}
		if rec.PGN == "" {
			rec.PGN = BuildPGN(rec)
		}
		if _, err := stmt.ExecContext(ctx,
			rec.GameID, rec.RoundID, rec.RoundName, rec.TourID, rec.TourName,
			rec.White, rec.Black, rec.Result, rec.FEN, rec.PGN, rec.ObservedAt,
		); err != nil {
			return fmt.Errorf("upsert game %s: %w", rec.GameID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	return nil
}

func (r *Repository) Recent(ctx context.Context, limit int) ([]Record, error) {
	limit = normalizeLimit(limit)
	const query = `
		SELECT game_id, round_id, round_name, tour_id, tour_name,
		       white_name, black_name, result, fen, pgn, observed_at
		FROM broadcast_games
		ORDER BY observed_at DESC, game_id
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select archived games: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.GameID, &rec.RoundID, &rec.RoundName, &rec.TourID, &rec.TourName,
			&rec.White, &rec.Black, &rec.Result, &rec.FEN, &rec.PGN, &rec.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("scan archived game: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived games: %w", err)
	}
	return out, nil
}
