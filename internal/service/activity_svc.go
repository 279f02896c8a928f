package service

import (
	"context"
	"fmt"

	"github.com/mathieu-neron/postrate/internal/model"
)

// ActivityLogger writes the audit trail of accepted votes.
type ActivityLogger struct {
	store ActivityStore
}

func NewActivityLogger(store ActivityStore) *ActivityLogger {
	return &ActivityLogger{store: store}
}

// LogVote records a VOTE_CAST entry for a registered voter. Failures are
// returned wrapped in model.ErrLogFailure.
func (l *ActivityLogger) LogVote(ctx context.Context, userID string, vote model.Vote, breakdown *model.WeightBreakdown) error {
	details := map[string]any{
		"postId":    vote.PostID,
		"voteId":    vote.ID,
		"rating":    vote.Rating,
		"weight":    vote.Weight,
		"context":   string(vote.Context),
		"isOutlier": vote.IsOutlier,
	}
	if breakdown != nil {
		details["breakdown"] = breakdown
	}

	err := l.store.AppendActivity(ctx, model.Activity{
		UserID:     userID,
		ActionType: model.ActionVoteCast,
		Details:    details,
		CreatedAt:  vote.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrLogFailure, err)
	}
	return nil
}
