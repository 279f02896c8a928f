package service

import (
	"context"
	"time"

	"github.com/mathieu-neron/postrate/internal/model"
)

// PostStore reads posts and their aggregates.
type PostStore interface {
	FindPost(ctx context.Context, postID string) (*model.Post, error)
	GetRatingState(ctx context.Context, postID string) (*model.RatingState, error)
}

// VoterStore reads voter trust profiles and rating history.
type VoterStore interface {
	FindVoter(ctx context.Context, userID string) (*model.VoterProfile, error)
	RecentRatings(ctx context.Context, userID string, since time.Time) ([]int, error)
}

// VoteStore owns the atomic vote unit: duplicate check, vote insert,
// aggregate update and voter profile update, all or nothing.
type VoteStore interface {
	RecordVote(ctx context.Context, vote *model.Vote) (*model.RecordResult, error)
	ListVotes(ctx context.Context, postID string) ([]model.Vote, error)
	ReconcileRatingState(ctx context.Context, postID string) (before, after model.RatingState, err error)
	ListPostIDsWithVotes(ctx context.Context) ([]string, error)
}

// ActivityStore appends audit trail entries.
type ActivityStore interface {
	AppendActivity(ctx context.Context, a model.Activity) error
}

// Store is the full persistence contract. Both the Postgres repositories
// (through repository.Store) and memory.Store satisfy it.
type Store interface {
	PostStore
	VoterStore
	VoteStore
	ActivityStore
	Ping(ctx context.Context) error
}
