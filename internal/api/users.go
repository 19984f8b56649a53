package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/nestmate/internal/model"
)

type CreateUserRequest struct {
	Nickname   string           `json:"nickname"`
	AvatarID   int              `json:"avatar_id"`
	MemberType model.MemberType `json:"member_type"`
	Email      string           `json:"email"`
}

// UpdateProfileRequest is a partial update; nil fields are left unchanged.
type UpdateProfileRequest struct {
	UserID     int64             `json:"user_id"`
	Nickname   *string           `json:"nickname,omitempty"`
	AvatarID   *int              `json:"avatar_id,omitempty"`
	MemberType *model.MemberType `json:"member_type,omitempty"`
}

func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodPost, "/users", 0, req, &u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodPatch, "/profile", req.UserID, req, &u); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &u, nil
}
