package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/nestmate/internal/model"
)

type NestStore struct {
	db *sql.DB
}

func NewNestStore(db *sql.DB) *NestStore {
	return &NestStore{db: db}
}

func (s *NestStore) Get() (*model.Nest, error) {
	var n model.Nest
	err := s.db.QueryRow(
		`SELECT id, name, theme_id, avatar_id, invite_code, image_url FROM nest LIMIT 1`,
	).Scan(&n.ID, &n.Name, &n.ThemeID, &n.AvatarID, &n.InviteCode, &n.ImageURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get nest: %w", err)
	}
	return &n, nil
}

// Save replaces the stored nest. A nil nest clears it.
func (s *NestStore) Save(n *model.Nest) error {
	var nests []model.Nest
	if n != nil {
		nests = append(nests, *n)
	}
	return replaceAll(s.db, "nest",
		`INSERT INTO nest (id, name, theme_id, avatar_id, invite_code, image_url) VALUES (?, ?, ?, ?, ?, ?)`,
		nests, func(_ int, n model.Nest) ([]any, error) {
			return []any{n.ID, n.Name, n.ThemeID, n.AvatarID, n.InviteCode, n.ImageURL}, nil
		})
}

type BudgetStore struct {
	db *sql.DB
}

func NewBudgetStore(db *sql.DB) *BudgetStore {
	return &BudgetStore{db: db}
}

func (s *BudgetStore) Get() (int64, error) {
	var goal int64
	err := s.db.QueryRow(`SELECT budget_goal FROM budget WHERE id = 1`).Scan(&goal)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get budget: %w", err)
	}
	return goal, nil
}

func (s *BudgetStore) Save(goal int64) error {
	_, err := s.db.Exec(
		`INSERT INTO budget (id, budget_goal) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET budget_goal = excluded.budget_goal`,
		goal,
	)
	if err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}
