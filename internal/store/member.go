package store

import (
	"database/sql"

	"github.com/dukerupert/nestmate/internal/model"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

func scanMember(sc scanner) (model.User, error) {
	var u model.User
	err := sc.Scan(&u.ID, &u.Nickname, &u.AvatarID, &u.Role, &u.MemberType, &u.Email)
	return u, err
}

func (s *MemberStore) List() ([]model.User, error) {
	return listAll(s.db, "members",
		`SELECT id, nickname, avatar_id, role, member_type, email FROM members ORDER BY position`,
		scanMember)
}

func (s *MemberStore) ReplaceAll(members []model.User) error {
	return replaceAll(s.db, "members",
		`INSERT INTO members (id, nickname, avatar_id, role, member_type, email, position) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		members, func(i int, u model.User) ([]any, error) {
			return []any{u.ID, u.Nickname, u.AvatarID, u.Role, u.MemberType, u.Email, i}, nil
		})
}
