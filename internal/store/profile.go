package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/nestmate/internal/model"
)

// ProfileStore holds the signed-in user. There is at most one row.
type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) Get() (*model.User, error) {
	var u model.User
	err := s.db.QueryRow(
		`SELECT id, nickname, avatar_id, role, member_type, email FROM profile LIMIT 1`,
	).Scan(&u.ID, &u.Nickname, &u.AvatarID, &u.Role, &u.MemberType, &u.Email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &u, nil
}

// Save replaces the stored profile. A nil user clears it.
func (s *ProfileStore) Save(u *model.User) error {
	var users []model.User
	if u != nil {
		users = append(users, *u)
	}
	return replaceAll(s.db, "profile",
		`INSERT INTO profile (id, nickname, avatar_id, role, member_type, email) VALUES (?, ?, ?, ?, ?, ?)`,
		users, func(_ int, u model.User) ([]any, error) {
			return []any{u.ID, u.Nickname, u.AvatarID, u.Role, u.MemberType, u.Email}, nil
		})
}
