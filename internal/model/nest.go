package model

import "time"

type Nest struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ThemeID    int    `json:"theme_id"`
	AvatarID   int    `json:"avatar_id"`
	InviteCode string `json:"invite_code"`
	ImageURL   string `json:"image_url"`
}

type JoinRequestStatus string

const (
	JoinPending  JoinRequestStatus = "pending"
	JoinApproved JoinRequestStatus = "approved"
	JoinRejected JoinRequestStatus = "rejected"
)

type JoinRequest struct {
	ID        int64             `json:"id"`
	NestID    int64             `json:"nest_id"`
	User      User              `json:"user"`
	Status    JoinRequestStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}
