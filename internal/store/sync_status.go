package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/nestmate/internal/state"
)

type SyncStatusStore struct {
	db *sql.DB
}

func NewSyncStatusStore(db *sql.DB) *SyncStatusStore {
	return &SyncStatusStore{db: db}
}

func (s *SyncStatusStore) Save(r state.Resource, st state.SyncStatus) error {
	var syncedAt sql.NullTime
	if !st.SyncedAt.IsZero() {
		syncedAt = sql.NullTime{Time: st.SyncedAt.UTC(), Valid: true}
	}
	var stale int
	if st.Stale {
		stale = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO sync_status (resource, synced_at, error, stale) VALUES (?, ?, ?, ?)
		 ON CONFLICT(resource) DO UPDATE SET synced_at = excluded.synced_at, error = excluded.error, stale = excluded.stale`,
		string(r), syncedAt, st.Err, stale,
	)
	if err != nil {
		return fmt.Errorf("save sync status %s: %w", r, err)
	}
	return nil
}

func (s *SyncStatusStore) All() (map[state.Resource]state.SyncStatus, error) {
	rows, err := s.db.Query(`SELECT resource, synced_at, error, stale FROM sync_status`)
	if err != nil {
		return nil, fmt.Errorf("list sync status: %w", err)
	}
	defer rows.Close()

	out := make(map[state.Resource]state.SyncStatus)
	for rows.Next() {
		var r string
		var syncedAt sql.NullTime
		var st state.SyncStatus
		var stale int
		if err := rows.Scan(&r, &syncedAt, &st.Err, &stale); err != nil {
			return nil, fmt.Errorf("scan sync status: %w", err)
		}
		if syncedAt.Valid {
			st.SyncedAt = syncedAt.Time
		}
		st.Stale = stale == 1
		out[state.Resource(r)] = st
	}
	return out, rows.Err()
}
