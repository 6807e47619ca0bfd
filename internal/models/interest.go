package models

import "time"

// InterestStatus is the lifecycle marker of one interest request.
type InterestStatus string

const (
	InterestPending  InterestStatus = "pending"
	InterestAccepted InterestStatus = "accepted"
	InterestDeclined InterestStatus = "declined"
)

// Interest is a unilateral request from FromID to ToID. Declined is terminal
// and is kept so a resend can be checked against the cooldown.
type Interest struct {
	ID          string         `json:"id"`
	FromID      string         `json:"from_id"`
	ToID        string         `json:"to_id"`
	Status      InterestStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	RespondedAt *time.Time     `json:"responded_at,omitempty"`
}

// InterestBox selects which side's index to enumerate.
type InterestBox string

const (
	InterestBoxSent     InterestBox = "sent"
	InterestBoxReceived InterestBox = "received"
)
