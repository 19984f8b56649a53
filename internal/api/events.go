package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/nestmate/internal/model"
)

type CreateEventRequest struct {
	Title    string          `json:"title"`
	Date     string          `json:"date"`
	EndDate  string          `json:"end_date,omitempty"`
	Time     string          `json:"time,omitempty"`
	ImageURL string          `json:"image_url,omitempty"`
	Type     model.EventType `json:"type"`
	UserID   int64           `json:"user_id"`
}

type voteRequest struct {
	Date   string `json:"date"`
	UserID int64  `json:"user_id"`
}

func (c *Client) ListEvents(ctx context.Context, nestID int64) ([]model.CalendarEvent, error) {
	var events []model.CalendarEvent
	if err := c.do(ctx, http.MethodGet, nestPath(nestID, "events"), 0, nil, &events); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return listOrEmpty(events), nil
}

func (c *Client) CreateEvent(ctx context.Context, nestID int64, req CreateEventRequest) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	if err := c.do(ctx, http.MethodPost, nestPath(nestID, "events"), req.UserID, req, &e); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return &e, nil
}

// ToggleVote flips userID's vote for date and returns the updated event.
func (c *Client) ToggleVote(ctx context.Context, nestID, eventID int64, date string, userID int64) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	body := voteRequest{Date: date, UserID: userID}
	if err := c.do(ctx, http.MethodPost, nestPath(nestID, "events", eventID, "votes"), userID, body, &e); err != nil {
		return nil, fmt.Errorf("vote event: %w", err)
	}
	return &e, nil
}

func (c *Client) DeleteEvent(ctx context.Context, nestID, eventID, userID int64) error {
	if err := c.do(ctx, http.MethodDelete, nestPath(nestID, "events", eventID), userID, nil, nil); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
