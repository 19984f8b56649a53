package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/nestmate/internal/model"
)

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

func (s *BackupStore) Create(nestID int64, s3Key string, sizeBytes int64) (*model.Backup, error) {
	now := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO backups (nest_id, s3_key, size_bytes, created_at) VALUES (?, ?, ?, ?)`,
		nestID, s3Key, sizeBytes, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	id, _ := result.LastInsertId()
	return &model.Backup{
		ID:        id,
		NestID:    nestID,
		S3Key:     s3Key,
		SizeBytes: sizeBytes,
		CreatedAt: now,
	}, nil
}

func scanBackup(sc scanner) (model.Backup, error) {
	var b model.Backup
	err := sc.Scan(&b.ID, &b.NestID, &b.S3Key, &b.SizeBytes, &b.CreatedAt)
	return b, err
}

func (s *BackupStore) GetByKey(s3Key string) (*model.Backup, error) {
	b, err := scanBackup(s.db.QueryRow(
		`SELECT id, nest_id, s3_key, size_bytes, created_at FROM backups WHERE s3_key = ?`, s3Key,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup %q: %w", s3Key, err)
	}
	return &b, nil
}

// List returns backups newest first.
func (s *BackupStore) List(limit int) ([]model.Backup, error) {
	rows, err := s.db.Query(
		`SELECT id, nest_id, s3_key, size_bytes, created_at FROM backups ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	backups := []model.Backup{}
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

// DeleteOlderThan deletes backups older than the given time and returns their S3 keys.
func (s *BackupStore) DeleteOlderThan(before time.Time) ([]string, error) {
	rows, err := s.db.Query(`SELECT s3_key FROM backups WHERE created_at < ?`, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("select old backups: %w", err)
	}
	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan s3 key: %w", err)
		}
		keys = append(keys, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := s.db.Exec(`DELETE FROM backups WHERE created_at < ?`, before.UTC()); err != nil {
		return nil, fmt.Errorf("delete old backups: %w", err)
	}
	return keys, nil
}
