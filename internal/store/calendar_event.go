package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/nestmate/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func scanEvent(sc scanner) (model.CalendarEvent, error) {
	var e model.CalendarEvent
	var votes string
	if err := sc.Scan(&e.ID, &e.Title, &e.Date, &e.EndDate, &e.Time, &e.ImageURL, &e.Type, &votes, &e.CreatorID); err != nil {
		return e, err
	}
	if err := json.Unmarshal([]byte(votes), &e.Votes); err != nil {
		return e, fmt.Errorf("decode votes: %w", err)
	}
	return e, nil
}

func (s *EventStore) List() ([]model.CalendarEvent, error) {
	return listAll(s.db, "calendar_events",
		`SELECT id, title, date, end_date, time, image_url, type, votes, creator_id
		 FROM calendar_events ORDER BY position`,
		scanEvent)
}

func (s *EventStore) ReplaceAll(events []model.CalendarEvent) error {
	return replaceAll(s.db, "calendar_events",
		`INSERT INTO calendar_events (id, title, date, end_date, time, image_url, type, votes, creator_id, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		events, func(i int, e model.CalendarEvent) ([]any, error) {
			votes := e.Votes
			if votes == nil {
				votes = map[string][]int64{}
			}
			data, err := json.Marshal(votes)
			if err != nil {
				return nil, err
			}
			return []any{e.ID, e.Title, e.Date, e.EndDate, e.Time, e.ImageURL, e.Type, string(data), e.CreatorID, i}, nil
		})
}
