// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/wfunc/showdown/models"
)

// PostgreSQL implements Database on database/sql directly; match
// players are stored as a jsonb column instead of a child table.
type PostgreSQL struct {
	db *sql.DB
}

func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS match_records (
			id          BIGSERIAL PRIMARY KEY,
			room_code   TEXT NOT NULL,
			winner      TEXT NOT NULL,
			rounds      INT NOT NULL DEFAULT 0,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			players     JSONB NOT NULL DEFAULT '[]'::jsonb,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_match_records_room_code ON match_records (room_code);
	`)
	return err
}

func (p *PostgreSQL) SaveMatchRecord(record *models.MatchRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(`
		INSERT INTO match_records (room_code, winner, rounds, duration_ms, players, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.RoomCode, record.Winner, record.Rounds,
		record.Duration.Milliseconds(), players, record.CreatedAt,
	)
	return err
}

func (p *PostgreSQL) MatchHistory(roomCode string, limit int) ([]models.MatchRecord, error) {
	rows, err := p.db.Query(`
		SELECT room_code, winner, rounds, duration_ms, players, created_at
		FROM match_records
		WHERE room_code = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		roomCode, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.MatchRecord
	for rows.Next() {
		var (
			rec        models.MatchRecord
			durationMs int64
			players    []byte
		)
		if err := rows.Scan(&rec.RoomCode, &rec.Winner, &rec.Rounds,
			&durationMs, &players, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal(players, &rec.Players); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (p *PostgreSQL) PlayerStats(playerName string) (*models.PlayerStats, error) {
	rows, err := p.db.Query(`
		SELECT pl->>'outcome' AS outcome, count(*) AS n
		FROM match_records, jsonb_array_elements(players) AS pl
		WHERE pl->>'name' = $1
		GROUP BY pl->>'outcome'`,
		playerName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &models.PlayerStats{}
	found := false
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		found = true
		stats.TotalGames += n
		switch outcome {
		case "win":
			stats.Wins += n
		case "lose":
			stats.Losses += n
		case "draw":
			stats.Draws += n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrRecordNotFound
	}
	return stats, nil
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
