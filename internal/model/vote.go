package model

import "time"

// Rating bounds accepted by the engine.
const (
	MinRating = 1
	MaxRating = 10
)

// VoteContext tags where the vote was cast from.
type VoteContext string

const (
	VoteContextDirect   VoteContext = "DIRECT"
	VoteContextReferral VoteContext = "REFERRAL"
)

// Valid reports whether c is a known vote context.
func (c VoteContext) Valid() bool {
	return c == VoteContextDirect || c == VoteContextReferral
}

// Vote is an immutable record of one accepted rating.
type Vote struct {
	ID                string      `json:"id"`
	PostID            string      `json:"postId"`
	VoterID           *string     `json:"voterId,omitempty"`
	IPHash            string      `json:"-"`
	Rating            int         `json:"rating"`
	Weight            float64     `json:"weight"`
	BaseWeight        float64     `json:"baseWeight"`
	DemographicWeight float64     `json:"demographicWeight"`
	PatternWeight     float64     `json:"patternWeight"`
	Context           VoteContext `json:"context"`
	IsOutlier         bool        `json:"isOutlier"`
	CreatedAt         time.Time   `json:"createdAt"`
}

// VoteRequest is the API request body for submitting a vote.
type VoteRequest struct {
	Rating  int    `json:"rating"`
	Context string `json:"context,omitempty"`
}

// VoteResponse is the API response after an accepted vote.
type VoteResponse struct {
	Success   bool             `json:"success"`
	VoteID    string           `json:"voteId"`
	Weight    float64          `json:"weight"`
	Breakdown *WeightBreakdown `json:"breakdown"`
	IsOutlier bool             `json:"isOutlier"`
	Rating    *RatingResponse  `json:"rating"`
}

// RecordResult is what the store returns after committing a vote together
// with the aggregate and voter profile updates.
type RecordResult struct {
	Vote  Vote
	State RatingState
	Voter *VoterProfile
}
