package store

import (
	"database/sql"

	"github.com/dukerupert/nestmate/internal/model"
)

type GoalStore struct {
	db *sql.DB
}

func NewGoalStore(db *sql.DB) *GoalStore {
	return &GoalStore{db: db}
}

func scanGoal(sc scanner) (model.Goal, error) {
	var g model.Goal
	err := sc.Scan(&g.ID, &g.Type, &g.Title, &g.Current, &g.Target, &g.Unit)
	return g, err
}

func (s *GoalStore) List() ([]model.Goal, error) {
	return listAll(s.db, "goals",
		`SELECT id, type, title, current, target, unit FROM goals ORDER BY position`,
		scanGoal)
}

func (s *GoalStore) ReplaceAll(goals []model.Goal) error {
	return replaceAll(s.db, "goals",
		`INSERT INTO goals (id, type, title, current, target, unit, position) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		goals, func(i int, g model.Goal) ([]any, error) {
			return []any{g.ID, g.Type, g.Title, g.Current, g.Target, g.Unit, i}, nil
		})
}
