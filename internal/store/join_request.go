package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/nestmate/internal/model"
)

type JoinRequestStore struct {
	db *sql.DB
}

func NewJoinRequestStore(db *sql.DB) *JoinRequestStore {
	return &JoinRequestStore{db: db}
}

func scanJoinRequest(sc scanner) (model.JoinRequest, error) {
	var jr model.JoinRequest
	var user string
	if err := sc.Scan(&jr.ID, &jr.NestID, &user, &jr.Status, &jr.CreatedAt); err != nil {
		return jr, err
	}
	if err := json.Unmarshal([]byte(user), &jr.User); err != nil {
		return jr, fmt.Errorf("decode user: %w", err)
	}
	return jr, nil
}

func (s *JoinRequestStore) List() ([]model.JoinRequest, error) {
	return listAll(s.db, "join_requests",
		`SELECT id, nest_id, user_json, status, created_at FROM join_requests ORDER BY position`,
		scanJoinRequest)
}

func (s *JoinRequestStore) ReplaceAll(reqs []model.JoinRequest) error {
	return replaceAll(s.db, "join_requests",
		`INSERT INTO join_requests (id, nest_id, user_json, status, created_at, position) VALUES (?, ?, ?, ?, ?, ?)`,
		reqs, func(i int, jr model.JoinRequest) ([]any, error) {
			data, err := json.Marshal(jr.User)
			if err != nil {
				return nil, err
			}
			return []any{jr.ID, jr.NestID, string(data), jr.Status, jr.CreatedAt.UTC(), i}, nil
		})
}
