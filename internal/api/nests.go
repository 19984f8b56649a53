package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/nestmate/internal/model"
)

type NestRequest struct {
	Name     string `json:"name"`
	ThemeID  int    `json:"theme_id"`
	AvatarID int    `json:"avatar_id"`
	ImageURL string `json:"image_url,omitempty"`
	UserID   int64  `json:"user_id"`
}

type JoinNestRequest struct {
	InviteCode string `json:"invite_code"`
	UserID     int64  `json:"user_id"`
}

type actorRequest struct {
	UserID int64 `json:"user_id"`
}

func (c *Client) CreateNest(ctx context.Context, req NestRequest) (*model.Nest, error) {
	var n model.Nest
	if err := c.do(ctx, http.MethodPost, "/nests", req.UserID, req, &n); err != nil {
		return nil, fmt.Errorf("create nest: %w", err)
	}
	return &n, nil
}

// JoinNest submits a join request for the nest owning the invite code.
func (c *Client) JoinNest(ctx context.Context, req JoinNestRequest) (*model.JoinRequest, error) {
	var jr model.JoinRequest
	if err := c.do(ctx, http.MethodPost, "/nests/join", req.UserID, req, &jr); err != nil {
		return nil, fmt.Errorf("join nest: %w", err)
	}
	return &jr, nil
}

func (c *Client) GetNest(ctx context.Context, nestID int64) (*model.Nest, error) {
	var n model.Nest
	if err := c.do(ctx, http.MethodGet, nestPath(nestID), 0, nil, &n); err != nil {
		return nil, fmt.Errorf("get nest: %w", err)
	}
	return &n, nil
}

func (c *Client) UpdateNest(ctx context.Context, nestID int64, req NestRequest) (*model.Nest, error) {
	var n model.Nest
	if err := c.do(ctx, http.MethodPut, nestPath(nestID), req.UserID, req, &n); err != nil {
		return nil, fmt.Errorf("update nest: %w", err)
	}
	return &n, nil
}

func (c *Client) ListMembers(ctx context.Context, nestID int64) ([]model.User, error) {
	var members []model.User
	if err := c.do(ctx, http.MethodGet, nestPath(nestID, "members"), 0, nil, &members); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return listOrEmpty(members), nil
}

func (c *Client) ListJoinRequests(ctx context.Context, nestID int64) ([]model.JoinRequest, error) {
	var reqs []model.JoinRequest
	if err := c.do(ctx, http.MethodGet, nestPath(nestID, "join_requests"), 0, nil, &reqs); err != nil {
		return nil, fmt.Errorf("list join requests: %w", err)
	}
	return listOrEmpty(reqs), nil
}

// ApproveJoinRequest admits the requesting user and returns them as a member.
func (c *Client) ApproveJoinRequest(ctx context.Context, nestID, requestID, userID int64) (*model.User, error) {
	var u model.User
	path := nestPath(nestID, "join_requests", requestID, "approve")
	if err := c.do(ctx, http.MethodPost, path, userID, actorRequest{UserID: userID}, &u); err != nil {
		return nil, fmt.Errorf("approve join request: %w", err)
	}
	return &u, nil
}

func (c *Client) RejectJoinRequest(ctx context.Context, nestID, requestID, userID int64) error {
	path := nestPath(nestID, "join_requests", requestID, "reject")
	if err := c.do(ctx, http.MethodPost, path, userID, actorRequest{UserID: userID}, nil); err != nil {
		return fmt.Errorf("reject join request: %w", err)
	}
	return nil
}
