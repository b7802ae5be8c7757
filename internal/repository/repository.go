// Package repository provides data access implementations
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/carelog/daycare-bot/internal/entities"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when a record id does not exist
var ErrNotFound = errors.New("record not found")

// timeLayout keeps stored timestamps fixed-width so they sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// CareRecordRepository persists activity, meeting and plan records
type CareRecordRepository interface {
	CreateRecord(ctx context.Context, rec entities.CareRecord) error
	GetRecord(ctx context.Context, kind entities.RecordKind, id string) (entities.CareRecord, error)
	ListRecords(ctx context.Context, filter entities.RecordFilter) ([]entities.CareRecord, error)
	UpdateRecord(ctx context.Context, rec entities.CareRecord) error
	DeleteRecord(ctx context.Context, kind entities.RecordKind, id string) error
}

// NotificationRepository keeps the outcome of every push to a family contact
type NotificationRepository interface {
	SaveNotification(ctx context.Context, n *entities.NotificationLog) error
	ListNotifications(ctx context.Context, elderName string, limit int) ([]entities.NotificationLog, error)
	HasSuccessfulNotificationSince(ctx context.Context, elderName string, since time.Time) (bool, error)
}

// SQLiteRepository implements both repositories on one SQLite file
type SQLiteRepository struct {
	db     *sql.DB
	DBPath string
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS care_records (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	date TEXT NOT NULL,
	title TEXT NOT NULL,
	elder_name TEXT NOT NULL DEFAULT '',
	participants TEXT NOT NULL DEFAULT '[]',
	content TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	status TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_care_records_kind_date ON care_records(kind, date);
CREATE INDEX IF NOT EXISTS idx_care_records_elder ON care_records(elder_name);

CREATE TABLE IF NOT EXISTS notification_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	elder_name TEXT NOT NULL,
	target TEXT NOT NULL,
	action TEXT NOT NULL,
	success INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	sent_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notification_elder_sent ON notification_log(elder_name, sent_at);`

// NewSQLiteRepository opens the database at dbPath and creates missing tables.
// An empty path uses data/daycare.db.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dbPath == "" {
		dbPath = filepath.Join("data", "daycare.db")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	log.Info().Str("path", dbPath).Msg("Opening database")
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteRepository{db: db, DBPath: dbPath}, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp '%s': %w", s, err)
	}
	return t, nil
}
