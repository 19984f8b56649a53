package action

import (
	"context"
	"fmt"

	"github.com/dukerupert/nestmate/internal/api"
	"github.com/dukerupert/nestmate/internal/household"
	"github.com/dukerupert/nestmate/internal/model"
	"github.com/dukerupert/nestmate/internal/state"
)

type EventInput struct {
	Title    string          `validate:"required,max=50"`
	Date     string          `validate:"required,calendar_date"`
	EndDate  string          `validate:"omitempty,calendar_date"`
	Time     string          `validate:"omitempty,datetime=15:04"`
	ImageURL string          `validate:"omitempty,url"`
	Type     model.EventType `validate:"event_type"`
}

func (a *Actions) AddEvent(ctx context.Context, in EventInput) (*model.CalendarEvent, error) {
	me, nest, err := a.member()
	if err != nil {
		return nil, err
	}
	if in.Type == "" {
		in.Type = model.EventPlain
	}
	if err := a.check(in); err != nil {
		return nil, err
	}

	var event *model.CalendarEvent
	err = a.confirmed(state.ResourceEvents, "add_event", func() error {
		e, err := a.api.CreateEvent(ctx, nest.ID, api.CreateEventRequest{
			Title:    in.Title,
			Date:     in.Date,
			EndDate:  in.EndDate,
			Time:     in.Time,
			ImageURL: in.ImageURL,
			Type:     in.Type,
			UserID:   me.ID,
		})
		if err != nil {
			return fmt.Errorf("add event: %w", err)
		}
		a.state.UpsertEvent(*e)
		event = e
		return nil
	})
	return event, err
}

// VoteEvent toggles the user's vote for date on a vote event. The date must
// fall inside the event's range.
func (a *Actions) VoteEvent(ctx context.Context, eventID int64, date string) (*model.CalendarEvent, error) {
	me, nest, err := a.member()
	if err != nil {
		return nil, err
	}
	ev, ok := findByID(a.state.Events(), eventID, func(e model.CalendarEvent) int64 { return e.ID })
	if !ok {
		return nil, fmt.Errorf("vote event %d: %w", eventID, ErrUnknownItem)
	}
	if ev.Type != model.EventVote {
		return nil, &InputError{Fields: []string{"event is not a vote"}}
	}
	if !household.IsDateInRange(date, ev.Date, ev.EndDate) {
		return nil, &InputError{Fields: []string{fmt.Sprintf("date %q is outside the event", date)}}
	}

	var event *model.CalendarEvent
	err = a.confirmed(state.ResourceEvents, "vote_event", func() error {
		e, err := a.api.ToggleVote(ctx, nest.ID, eventID, date, me.ID)
		if err != nil {
			return fmt.Errorf("vote event: %w", err)
		}
		a.state.UpsertEvent(*e)
		event = e
		return nil
	})
	return event, err
}

func (a *Actions) DeleteEvent(ctx context.Context, eventID int64) error {
	me, nest, err := a.member()
	if err != nil {
		return err
	}
	return a.confirmed(state.ResourceEvents, "delete_event", func() error {
		if err := a.api.DeleteEvent(ctx, nest.ID, eventID, me.ID); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		a.state.RemoveEvent(eventID)
		return nil
	})
}
