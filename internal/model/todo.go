package model

import "time"

type Repeat string

const (
	RepeatNone    Repeat = "none"
	RepeatDaily   Repeat = "daily"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
)

// Todo is a household mission. Assignees holds user IDs.
type Todo struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Assignees   []int64    `json:"assignees"`
	Repeat      Repeat     `json:"repeat"`
	IsCompleted bool       `json:"is_completed"`
	CompletedBy *int64     `json:"completed_by"`
	CompletedAt *time.Time `json:"completed_at"`
	ImageURL    string     `json:"image_url"`
}
