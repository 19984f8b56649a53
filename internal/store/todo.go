package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/nestmate/internal/model"
)

type TodoStore struct {
	db *sql.DB
}

func NewTodoStore(db *sql.DB) *TodoStore {
	return &TodoStore{db: db}
}

func scanTodo(sc scanner) (model.Todo, error) {
	var t model.Todo
	var assignees string
	var completedBy sql.NullInt64
	var completedAt sql.NullTime
	var completed int
	if err := sc.Scan(&t.ID, &t.Title, &assignees, &t.Repeat, &completed, &completedBy, &completedAt, &t.ImageURL); err != nil {
		return t, err
	}
	if err := json.Unmarshal([]byte(assignees), &t.Assignees); err != nil {
		return t, fmt.Errorf("decode assignees: %w", err)
	}
	t.IsCompleted = completed == 1
	if completedBy.Valid {
		t.CompletedBy = &completedBy.Int64
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}

func (s *TodoStore) List() ([]model.Todo, error) {
	return listAll(s.db, "todos",
		`SELECT id, title, assignees, repeat, is_completed, completed_by, completed_at, image_url
		 FROM todos ORDER BY position`,
		scanTodo)
}

func (s *TodoStore) ReplaceAll(todos []model.Todo) error {
	return replaceAll(s.db, "todos",
		`INSERT INTO todos (id, title, assignees, repeat, is_completed, completed_by, completed_at, image_url, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		todos, func(i int, t model.Todo) ([]any, error) {
			assignees := t.Assignees
			if assignees == nil {
				assignees = []int64{}
			}
			data, err := json.Marshal(assignees)
			if err != nil {
				return nil, err
			}
			var completed int
			if t.IsCompleted {
				completed = 1
			}
			var completedBy sql.NullInt64
			if t.CompletedBy != nil {
				completedBy = sql.NullInt64{Int64: *t.CompletedBy, Valid: true}
			}
			var completedAt sql.NullTime
			if t.CompletedAt != nil {
				completedAt = sql.NullTime{Time: t.CompletedAt.UTC(), Valid: true}
			}
			return []any{t.ID, t.Title, string(data), t.Repeat, completed, completedBy, completedAt, t.ImageURL, i}, nil
		})
}
