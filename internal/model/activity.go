package model

import "time"

// Activity action types.
const (
	ActionVoteCast = "VOTE_CAST"
)

// Activity is one append-only audit trail entry.
type Activity struct {
	ID         int64          `json:"id"`
	UserID     string         `json:"userId"`
	ActionType string         `json:"actionType"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"createdAt"`
}
