package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/nestmate/internal/model"
)

type CreateTodoRequest struct {
	Title     string       `json:"title"`
	Assignees []int64      `json:"assignees"`
	Repeat    model.Repeat `json:"repeat"`
	ImageURL  string       `json:"image_url,omitempty"`
	UserID    int64        `json:"user_id"`
}

type updateTodoRequest struct {
	IsCompleted bool  `json:"is_completed"`
	UserID      int64 `json:"user_id"`
}

func (c *Client) ListTodos(ctx context.Context, nestID int64) ([]model.Todo, error) {
	var todos []model.Todo
	if err := c.do(ctx, http.MethodGet, nestPath(nestID, "todos"), 0, nil, &todos); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return listOrEmpty(todos), nil
}

func (c *Client) CreateTodo(ctx context.Context, nestID int64, req CreateTodoRequest) (*model.Todo, error) {
	var t model.Todo
	if err := c.do(ctx, http.MethodPost, nestPath(nestID, "todos"), req.UserID, req, &t); err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}
	return &t, nil
}

// SetTodoCompleted marks a todo done or not done on behalf of userID.
func (c *Client) SetTodoCompleted(ctx context.Context, nestID, todoID, userID int64, completed bool) (*model.Todo, error) {
	var t model.Todo
	body := updateTodoRequest{IsCompleted: completed, UserID: userID}
	if err := c.do(ctx, http.MethodPatch, nestPath(nestID, "todos", todoID), userID, body, &t); err != nil {
		return nil, fmt.Errorf("update todo: %w", err)
	}
	return &t, nil
}

func (c *Client) DeleteTodo(ctx context.Context, nestID, todoID, userID int64) error {
	if err := c.do(ctx, http.MethodDelete, nestPath(nestID, "todos", todoID), userID, nil, nil); err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	return nil
}
