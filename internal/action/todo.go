package action

import (
	"context"
	"fmt"

	"github.com/dukerupert/nestmate/internal/api"
	"github.com/dukerupert/nestmate/internal/household"
	"github.com/dukerupert/nestmate/internal/model"
	"github.com/dukerupert/nestmate/internal/state"
)

type TodoInput struct {
	Title     string       `validate:"required,max=50"`
	Assignees []int64      `validate:"dive,gt=0"`
	Repeat    model.Repeat `validate:"repeat"`
	ImageURL  string       `validate:"omitempty,url"`
}

func (a *Actions) AddTodo(ctx context.Context, in TodoInput) (*model.Todo, error) {
	me, nest, err := a.member()
	if err != nil {
		return nil, err
	}
	if in.Repeat == "" {
		in.Repeat = model.RepeatNone
	}
	if err := a.check(in); err != nil {
		return nil, err
	}
	if err := a.checkMembers(in.Assignees...); err != nil {
		return nil, err
	}

	var todo *model.Todo
	err = a.confirmed(state.ResourceTodos, "add_todo", func() error {
		t, err := a.api.CreateTodo(ctx, nest.ID, api.CreateTodoRequest{
			Title:     in.Title,
			Assignees: in.Assignees,
			Repeat:    in.Repeat,
			ImageURL:  in.ImageURL,
			UserID:    me.ID,
		})
		if err != nil {
			return fmt.Errorf("add todo: %w", err)
		}
		a.state.UpsertTodo(*t)
		todo = t
		return nil
	})
	return todo, err
}

// ToggleTodo flips a mission between done and not done for the current
// period. A repeating mission completed in an earlier period becomes done.
func (a *Actions) ToggleTodo(ctx context.Context, todoID int64) (*model.Todo, error) {
	me, nest, err := a.member()
	if err != nil {
		return nil, err
	}
	current, ok := findByID(a.state.Todos(), todoID, func(t model.Todo) int64 { return t.ID })
	if !ok {
		return nil, fmt.Errorf("toggle todo %d: %w", todoID, ErrUnknownItem)
	}
	completed := household.MissionStatus(current, a.now()) != household.StatusCompleted

	var todo *model.Todo
	err = a.confirmed(state.ResourceTodos, "toggle_todo", func() error {
		t, err := a.api.SetTodoCompleted(ctx, nest.ID, todoID, me.ID, completed)
		if err != nil {
			return fmt.Errorf("toggle todo: %w", err)
		}
		a.state.UpsertTodo(*t)
		todo = t
		return nil
	})
	return todo, err
}

func (a *Actions) DeleteTodo(ctx context.Context, todoID int64) error {
	me, nest, err := a.member()
	if err != nil {
		return err
	}
	return a.confirmed(state.ResourceTodos, "delete_todo", func() error {
		if err := a.api.DeleteTodo(ctx, nest.ID, todoID, me.ID); err != nil {
			return fmt.Errorf("delete todo: %w", err)
		}
		a.state.RemoveTodo(todoID)
		return nil
	})
}

// checkMembers rejects user IDs that are not nest members. It passes when
// the member list has not been synced yet.
func (a *Actions) checkMembers(ids ...int64) error {
	s := a.state.Snapshot()
	if len(s.Members) == 0 {
		return nil
	}
	var unknown []string
	for _, id := range ids {
		if _, ok := s.Member(id); !ok {
			unknown = append(unknown, fmt.Sprintf("user %d is not a nest member", id))
		}
	}
	if len(unknown) > 0 {
		return &InputError{Fields: unknown}
	}
	return nil
}

func findByID[T any](items []T, id int64, key func(T) int64) (T, bool) {
	for _, it := range items {
		if key(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}
