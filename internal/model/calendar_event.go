package model

// Date and time layouts used on the wire for calendar events and transactions.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type EventType string

const (
	EventPlain EventType = "plain"
	EventVote  EventType = "vote"
)

// CalendarEvent is a nest event. Vote events collect voter IDs per candidate date.
type CalendarEvent struct {
	ID        int64              `json:"id"`
	Title     string             `json:"title"`
	Date      string             `json:"date"`
	EndDate   string             `json:"end_date,omitempty"`
	Time      string             `json:"time,omitempty"`
	ImageURL  string             `json:"image_url,omitempty"`
	Type      EventType          `json:"type"`
	Votes     map[string][]int64 `json:"votes"`
	CreatorID int64              `json:"creator_id"`
}
