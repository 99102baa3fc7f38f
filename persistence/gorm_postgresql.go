// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/showdown/models"
)

// GormPostgreSQL implements Database on top of gorm.
type GormPostgreSQL struct {
	db *gorm.DB
}

func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormMatchRecord{}, &models.GormMatchPlayer{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (g *GormPostgreSQL) SaveMatchRecord(record *models.MatchRecord) error {
	row := models.GormMatchRecord{
		RoomCode:   record.RoomCode,
		Winner:     record.Winner,
		Rounds:     record.Rounds,
		DurationMs: record.Duration.Milliseconds(),
	}
	for _, p := range record.Players {
		row.Players = append(row.Players, models.GormMatchPlayer{
			PlayerID: p.PlayerID,
			Name:     p.Name,
			Team:     p.Team,
			Outcome:  p.Outcome,
			HPLeft:   p.HPLeft,
		})
	}
	return g.db.Create(&row).Error
}

func (g *GormPostgreSQL) MatchHistory(roomCode string, limit int) ([]models.MatchRecord, error) {
	var rows []models.GormMatchRecord
	err := g.db.Preload("Players").
		Where("room_code = ?", roomCode).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]models.MatchRecord, 0, len(rows))
	for _, row := range rows {
		rec := models.MatchRecord{
			RoomCode:  row.RoomCode,
			Winner:    row.Winner,
			Rounds:    row.Rounds,
			Duration:  time.Duration(row.DurationMs) * time.Millisecond,
			CreatedAt: row.CreatedAt,
		}
		for _, p := range row.Players {
			rec.Players = append(rec.Players, models.MatchPlayer{
				PlayerID: p.PlayerID,
				Name:     p.Name,
				Team:     p.Team,
				Outcome:  p.Outcome,
				HPLeft:   p.HPLeft,
			})
		}
		records = append(records, rec)
	}
	return records, nil
}

func (g *GormPostgreSQL) PlayerStats(playerName string) (*models.PlayerStats, error) {
	type row struct {
		Outcome string
		N       int
	}
	var rows []row
	err := g.db.Model(&models.GormMatchPlayer{}).
		Select("outcome, count(*) as n").
		Where("name = ?", playerName).
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrRecordNotFound
	}

	stats := &models.PlayerStats{}
	for _, r := range rows {
		stats.TotalGames += r.N
		switch r.Outcome {
		case "win":
			stats.Wins += r.N
		case "lose":
			stats.Losses += r.N
		case "draw":
			stats.Draws += r.N
		}
	}
	return stats, nil
}

func (g *GormPostgreSQL) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
