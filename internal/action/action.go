// Package action runs user mutations against the backend. Every mutation
// validates locally, marks its resource pending, and updates state only from
// the backend's response.
package action

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dukerupert/nestmate/internal/api"
	"github.com/dukerupert/nestmate/internal/model"
	"github.com/dukerupert/nestmate/internal/state"
)

var (
	ErrNoUser       = state.ErrNoUser
	ErrNoNest       = state.ErrNoNest
	ErrForbidden    = errors.New("only the nest master can do this")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnknownItem  = errors.New("item not found in local state")
)

// Retryable returns ctx with a fresh idempotency key. Running an action again
// with the same ctx after a failure cannot apply it twice on the backend.
func Retryable(ctx context.Context) context.Context {
	return api.WithIdempotencyKey(ctx, uuid.NewString())
}

// API is the subset of the REST client used for mutations.
type API interface {
	CreateUser(ctx context.Context, req api.CreateUserRequest) (*model.User, error)
	UpdateProfile(ctx context.Context, req api.UpdateProfileRequest) (*model.User, error)

	CreateNest(ctx context.Context, req api.NestRequest) (*model.Nest, error)
	JoinNest(ctx context.Context, req api.JoinNestRequest) (*model.JoinRequest, error)
	GetNest(ctx context.Context, nestID int64) (*model.Nest, error)
	UpdateNest(ctx context.Context, nestID int64, req api.NestRequest) (*model.Nest, error)
	ListMembers(ctx context.Context, nestID int64) ([]model.User, error)
	ApproveJoinRequest(ctx context.Context, nestID, requestID, userID int64) (*model.User, error)
	RejectJoinRequest(ctx context.Context, nestID, requestID, userID int64) error

	CreateTodo(ctx context.Context, nestID int64, req api.CreateTodoRequest) (*model.Todo, error)
	SetTodoCompleted(ctx context.Context, nestID, todoID, userID int64, completed bool) (*model.Todo, error)
	DeleteTodo(ctx context.Context, nestID, todoID, userID int64) error

	CreateEvent(ctx context.Context, nestID int64, req api.CreateEventRequest) (*model.CalendarEvent, error)
	ToggleVote(ctx context.Context, nestID, eventID int64, date string, userID int64) (*model.CalendarEvent, error)
	DeleteEvent(ctx context.Context, nestID, eventID, userID int64) error

	CreateGoal(ctx context.Context, nestID int64, req api.CreateGoalRequest) (*model.Goal, error)
	AddGoalProgress(ctx context.Context, nestID, goalID int64, delta int, userID int64) (*model.Goal, error)
	DeleteGoal(ctx context.Context, nestID, goalID, userID int64) error

	CreateTransaction(ctx context.Context, nestID int64, req api.CreateTransactionRequest) (*model.BudgetTransaction, error)
	DeleteTransaction(ctx context.Context, nestID, txID, userID int64) error
	SetBudget(ctx context.Context, nestID, budgetGoal, userID int64) (*model.Budget, error)
	CreateFixedExpense(ctx context.Context, nestID int64, req api.CreateFixedExpenseRequest) (*model.FixedExpense, error)
	DeleteFixedExpense(ctx context.Context, nestID, fixedID, userID int64) error

	CreateHouseRule(ctx context.Context, nestID int64, req api.CreateHouseRuleRequest) (*model.HouseRule, error)
	DeleteHouseRule(ctx context.Context, nestID, ruleID, userID int64) error
}

type Option func(*Actions)

func WithLogger(l *slog.Logger) Option {
	return func(a *Actions) { a.logger = l }
}

// WithClock overrides time.Now, used for default dates and mission periods.
func WithClock(now func() time.Time) Option {
	return func(a *Actions) { a.now = now }
}

type Actions struct {
	api      API
	state    *state.Container
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func New(client API, st *state.Container, opts ...Option) *Actions {
	a := &Actions{
		api:      client,
		state:    st,
		validate: newValidator(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "action")
	return a
}

// confirmed marks r pending, runs call, and clears the marker. State is only
// touched by call after the backend accepted the command.
func (a *Actions) confirmed(r state.Resource, name string, call func() error) error {
	op := a.state.BeginPending(r, name)
	defer a.state.EndPending(op)

	if err := call(); err != nil {
		a.logger.Warn("mutation failed", "action", name, "error", err)
		return err
	}
	a.logger.Debug("mutation applied", "action", name)
	return nil
}

func (a *Actions) currentUser() (*model.User, error) {
	u := a.state.User()
	if u == nil {
		return nil, ErrNoUser
	}
	return u, nil
}

// member returns the signed-in user and their nest.
func (a *Actions) member() (*model.User, *model.Nest, error) {
	u, err := a.currentUser()
	if err != nil {
		return nil, nil, err
	}
	n := a.state.Nest()
	if n == nil {
		return nil, nil, ErrNoNest
	}
	return u, n, nil
}

// master is member plus the master role check.
func (a *Actions) master() (*model.User, *model.Nest, error) {
	u, n, err := a.member()
	if err != nil {
		return nil, nil, err
	}
	if !u.IsMaster() {
		return nil, nil, ErrForbidden
	}
	return u, n, nil
}

// UserMessage returns alert text for an error returned by any action.
func UserMessage(err error) string {
	var inputErr *InputError
	switch {
	case errors.As(err, &inputErr):
		return inputErr.Error()
	case errors.Is(err, ErrForbidden):
		return "Only the nest master can do this."
	case errors.Is(err, ErrNoUser):
		return "Set up your profile first."
	case errors.Is(err, ErrNoNest):
		return "Create or join a nest first."
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnknownItem):
		return err.Error()
	}
	return api.UserMessage(err)
}
