package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrEmptyPath - путь к базе не задан.
var ErrEmptyPath = errors.New("empty db path")

// ScoreRow - итог одного игрока на одной карте.
type ScoreRow struct {
	Map        uint16    `json:"map"`
	PlayerID   byte      `json:"playerId"`
	Name       string    `json:"name"`
	Score      uint32    `json:"score"`
	Cash       uint32    `json:"cash"`
	RecordedAt time.Time `json:"recordedAt"`
}

// ScoreStore хранит итоги пройденных карт в sqlite.
type ScoreStore struct {
	db *sql.DB
}

func OpenScoreStore(path string) (*ScoreStore, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// один писатель, sqlite не любит параллельные соединения
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initScoreSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init score schema: %w", err)
	}
	return &ScoreStore{db: db}, nil
}

func initScoreSchema(db *sql.DB) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			map INTEGER NOT NULL,
			player_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			score INTEGER NOT NULL,
			cash INTEGER NOT NULL,
			recorded_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_score ON scores(score DESC);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *ScoreStore) Close() error { return s.db.Close() }

// RecordLevel пишет итоги одной карты одной транзакцией.
func (s *ScoreStore) RecordLevel(ctx context.Context, rows []ScoreRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scores(map, player_id, name, score, cash, recorded_at) VALUES(?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		at := r.RecordedAt
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, int64(r.Map), int64(r.PlayerID), r.Name, int64(r.Score), int64(r.Cash), at.UnixMilli()); err != nil {
			return fmt.Errorf("insert score for %s: %w", r.Name, err)
		}
	}
	return tx.Commit()
}

// Top возвращает лучшие результаты. При равных очках выше более ранний.
func (s *ScoreStore) Top(ctx context.Context, limit int) ([]ScoreRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT map, player_id, name, score, cash, recorded_at FROM scores ORDER BY score DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScoreRow
	for rows.Next() {
		var (
			r                           ScoreRow
			mapID, playerID, score, csh int64
			at                          int64
		)
		if err := rows.Scan(&mapID, &playerID, &r.Name, &score, &csh, &at); err != nil {
			return nil, err
		}
		r.Map = uint16(mapID)
		r.PlayerID = byte(playerID)
		r.Score = uint32(score)
		r.Cash = uint32(csh)
		r.RecordedAt = time.UnixMilli(at)
		out = append(out, r)
	}
	return out, rows.Err()
}
