// Package backup uploads encrypted copies of the local nest cache to
// S3-compatible storage and restores them.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/nestmate/internal/config"
	"github.com/dukerupert/nestmate/internal/database"
	"github.com/dukerupert/nestmate/internal/model"
	"github.com/dukerupert/nestmate/internal/store"
)

var (
	ErrDisabled = errors.New("backup not configured: S3 bucket and keys missing")
	ErrInMemory = errors.New("an in-memory cache cannot be backed up")
	ErrBusy     = errors.New("a backup or restore is already running")
)

// s3Client is the subset of *s3.Client used here, for mocks in tests.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Option func(*Manager)

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func withClient(c s3Client) Option {
	return func(m *Manager) { m.client = c }
}

// Manager runs one backup or restore at a time.
type Manager struct {
	running sync.Mutex
	db      *sql.DB
	dbPath  string
	records *store.BackupStore
	client  s3Client
	bucket  string
	logger  *slog.Logger
	now     func() time.Time
}

// NewManager returns a manager for the cache at dbPath. It is disabled
// unless cfg carries a bucket and both keys.
func NewManager(cfg config.S3Config, db *sql.DB, dbPath string, records *store.BackupStore, opts ...Option) *Manager {
	m := &Manager{
		db:      db,
		dbPath:  dbPath,
		records: records,
		bucket:  cfg.Bucket,
		logger:  slog.Default(),
		now:     time.Now,
	}
	if cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		m.client = newS3Client(cfg)
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "backup")
	return m
}

func newS3Client(cfg config.S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (m *Manager) Enabled() bool {
	return m.client != nil
}

// Key returns the object key for a backup of nestID taken at t.
func Key(nestID int64, t time.Time) string {
	return fmt.Sprintf("%d/backup-%s.db.enc", nestID, t.UTC().Format("2006-01-02T150405Z"))
}

// RunNow checkpoints and encrypts the cache, uploads it and records the
// backup locally.
func (m *Manager) RunNow(ctx context.Context, nestID int64, passphrase string) (*model.Backup, error) {
	if !m.Enabled() {
		return nil, ErrDisabled
	}
	if m.dbPath == ":memory:" {
		return nil, ErrInMemory
	}
	if !m.running.TryLock() {
		return nil, ErrBusy
	}
	defer m.running.Unlock()

	if err := database.Checkpoint(m.db); err != nil {
		return nil, err
	}
	plaintext, err := os.ReadFile(m.dbPath)
	if err != nil {
		return nil, fmt.Errorf("read database: %w", err)
	}
	sealed, err := Seal(plaintext, passphrase)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	key := Key(nestID, m.now())
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		m.logger.Error("upload failed", "key", key, "error", err)
		return nil, fmt.Errorf("upload to s3: %w", err)
	}

	record, err := m.records.Create(nestID, key, int64(len(sealed)))
	if err != nil {
		return nil, err
	}
	m.logger.Info("backup uploaded", "key", key, "size_bytes", record.SizeBytes)
	return record, nil
}

// List returns recorded backups newest first.
func (m *Manager) List(limit int) ([]model.Backup, error) {
	return m.records.List(limit)
}

// Restore downloads and decrypts key, checks its integrity and replaces the
// cache file. The caller must close the cache database first and reopen it
// afterwards.
func (m *Manager) Restore(ctx context.Context, key, passphrase string) error {
	if !m.Enabled() {
		return ErrDisabled
	}
	if m.dbPath == ":memory:" {
		return ErrInMemory
	}
	if !m.running.TryLock() {
		return ErrBusy
	}
	defer m.running.Unlock()

	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download %s: %w", key, err)
	}
	sealed, err := io.ReadAll(result.Body)
	_ = result.Body.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}

	plaintext, err := Open(sealed, passphrase)
	if err != nil {
		return err
	}

	// Stage next to the cache so the final rename stays on one filesystem.
	staged := filepath.Join(filepath.Dir(m.dbPath), "."+filepath.Base(m.dbPath)+".restore")
	defer os.Remove(staged)
	if err := os.WriteFile(staged, plaintext, 0600); err != nil {
		return fmt.Errorf("write restored db: %w", err)
	}
	if err := verify(staged); err != nil {
		return err
	}

	if err := os.Rename(staged, m.dbPath); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}
	os.Remove(m.dbPath + "-wal")
	os.Remove(m.dbPath + "-shm")

	m.logger.Info("backup restored", "key", key)
	return nil
}

func verify(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()
	return database.IntegrityCheck(db)
}

// Prune deletes backups recorded before the cutoff, locally and in the bucket.
func (m *Manager) Prune(ctx context.Context, before time.Time) (int, error) {
	if !m.Enabled() {
		return 0, ErrDisabled
	}
	keys, err := m.records.DeleteOlderThan(before)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete object failed", "key", key, "error", err)
		}
	}
	return len(keys), nil
}
