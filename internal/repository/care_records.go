package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/carelog/daycare-bot/internal/entities"
	"github.com/rs/zerolog/log"
)

const recordColumns = `id, kind, date, title, elder_name, participants, content, tags, status, created_at, updated_at`

func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CreateRecord inserts a new record
func (r *SQLiteRepository) CreateRecord(ctx context.Context, rec entities.CareRecord) error {
	participants, err := encodeList(rec.Participants)
	if err != nil {
		return fmt.Errorf("failed to encode participants: %w", err)
	}
	tags, err := encodeList(rec.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO care_records(`+recordColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.Date, rec.Title, rec.ElderName,
		participants, rec.Content, tags, rec.Status,
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert %s %s: %w", rec.Kind, rec.ID, err)
	}

	log.Debug().Str("id", rec.ID).Str("kind", string(rec.Kind)).Msg("Saved care record")
	return nil
}

// GetRecord loads one record of the given kind
func (r *SQLiteRepository) GetRecord(ctx context.Context, kind entities.RecordKind, id string) (entities.CareRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM care_records WHERE kind = ? AND id = ?`, kind, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.CareRecord{}, ErrNotFound
	}
	if err != nil {
		return entities.CareRecord{}, fmt.Errorf("failed to get %s %s: %w", kind, id, err)
	}
	return rec, nil
}

// ListRecords returns records matching filter, newest date first
func (r *SQLiteRepository) ListRecords(ctx context.Context, filter entities.RecordFilter) ([]entities.CareRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.ElderName != "" {
		where = append(where, "elder_name = ?")
		args = append(args, filter.ElderName)
	}
	if filter.From != "" {
		where = append(where, "date >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		where = append(where, "date <= ?")
		args = append(args, filter.To)
	}

	query := `SELECT ` + recordColumns + ` FROM care_records`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY date DESC, created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query care records: %w", err)
	}
	defer rows.Close()

	result := []entities.CareRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return result, nil
}

// UpdateRecord replaces the mutable fields of an existing record
func (r *SQLiteRepository) UpdateRecord(ctx context.Context, rec entities.CareRecord) error {
	participants, err := encodeList(rec.Participants)
	if err != nil {
		return fmt.Errorf("failed to encode participants: %w", err)
	}
	tags, err := encodeList(rec.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE care_records
		SET date = ?, title = ?, elder_name = ?, participants = ?, content = ?, tags = ?, status = ?, updated_at = ?
		WHERE kind = ? AND id = ?`,
		rec.Date, rec.Title, rec.ElderName, participants, rec.Content, tags, rec.Status,
		formatTime(rec.UpdatedAt), rec.Kind, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", rec.Kind, rec.ID, err)
	}
	return expectOneRow(res)
}

// DeleteRecord removes a record
func (r *SQLiteRepository) DeleteRecord(ctx context.Context, kind entities.RecordKind, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM care_records WHERE kind = ? AND id = ?`, kind, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (entities.CareRecord, error) {
	var (
		rec                  entities.CareRecord
		participants, tags   string
		createdAt, updatedAt string
	)
	if err := s.Scan(
		&rec.ID,
		&rec.Kind,
		&rec.Date,
		&rec.Title,
		&rec.ElderName,
		&participants,
		&rec.Content,
		&tags,
		&rec.Status,
		&createdAt,
		&updatedAt,
	); err != nil {
		return entities.CareRecord{}, err
	}

	if err := json.Unmarshal([]byte(participants), &rec.Participants); err != nil {
		return entities.CareRecord{}, fmt.Errorf("failed to decode participants of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return entities.CareRecord{}, fmt.Errorf("failed to decode tags of %s: %w", rec.ID, err)
	}

	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return entities.CareRecord{}, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return entities.CareRecord{}, err
	}
	return rec, nil
}
