package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/postrate/internal/metrics"
	"github.com/mathieu-neron/postrate/internal/model"
)

const DefaultVoteTimeout = 5 * time.Second

// VoteServiceConfig wires the vote pipeline. Cache and Reconciler are optional.
type VoteServiceConfig struct {
	Posts      PostStore
	Voters     VoterStore
	Votes      VoteStore
	Weights    *WeightService
	Anonymous  *AnonymousTracker
	Activity   *ActivityLogger
	Cache      *CacheService
	Reconciler *ReconcileWorker
	Locks      *KeyedMutex
	Clock      func() time.Time
	Timeout    time.Duration
	Logger     zerolog.Logger
}

type VoteService struct {
	posts      PostStore
	voters     VoterStore
	votes      VoteStore
	weights    *WeightService
	anon       *AnonymousTracker
	activity   *ActivityLogger
	cache      *CacheService
	reconciler *ReconcileWorker
	locks      *KeyedMutex
	clock      func() time.Time
	timeout    time.Duration
	logger     zerolog.Logger
}

func NewVoteService(cfg VoteServiceConfig) *VoteService {
	s := &VoteService{
		posts:      cfg.Posts,
		voters:     cfg.Voters,
		votes:      cfg.Votes,
		weights:    cfg.Weights,
		anon:       cfg.Anonymous,
		activity:   cfg.Activity,
		cache:      cfg.Cache,
		reconciler: cfg.Reconciler,
		locks:      cfg.Locks,
		clock:      cfg.Clock,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.weights == nil {
		s.weights = NewWeightService(s.clock)
	}
	if s.locks == nil {
		s.locks = NewKeyedMutex()
	}
	if s.timeout <= 0 {
		s.timeout = DefaultVoteTimeout
	}
	return s
}

// SubmitRequest is one vote submission after identity resolution.
// AnonToken is the client-held tracking token; only anonymous callers send it.
type SubmitRequest struct {
	Identity  model.Identity
	PostID    string
	Rating    int
	Context   string
	AnonToken string
}

// SubmitResult carries the response and, for anonymous callers, the token
// the client must present on its next vote.
type SubmitResult struct {
	Response       *model.VoteResponse
	AnonToken      string
	AnonExpiresAt  time.Time
	UpdatedProfile *model.VoterProfile
}

// Submit runs the full vote pipeline: validation, eligibility, weighting and
// the atomic record step. Nothing is persisted unless every check passes.
func (s *VoteService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.submit(ctx, req)
	metrics.VotesTotal.WithLabelValues(identityKind(req.Identity), outcomeOf(err)).Inc()
	if err == nil {
		metrics.VoteWeight.Observe(res.Response.Weight)
	}
	return res, err
}

func (s *VoteService) submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	voteCtx, err := validateSubmit(req)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.FindPost(ctx, req.PostID)
	if err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	vote := model.Vote{
		PostID:    post.PostID,
		IPHash:    req.Identity.NetworkAddress(),
		Rating:    req.Rating,
		Context:   voteCtx,
		CreatedAt: now,
	}

	var (
		input     WeightInput
		anonState AnonymousState
		userID    string
	)
	switch id := req.Identity.(type) {
	case model.Registered:
		userID = id.Profile.UserID
		if post.CreatorID == userID {
			return nil, model.ErrSelfVote
		}
		vote.VoterID = &userID

		creator, err := s.voters.FindVoter(ctx, post.CreatorID)
		if err != nil && !errors.Is(err, model.ErrVoterNotFound) {
			return nil, err
		}
		recent, err := s.voters.RecentRatings(ctx, userID, now.Add(-PatternWindow))
		if err != nil {
			return nil, err
		}
		input = WeightInput{Voter: id.Profile, Creator: creator, Rating: req.Rating, Recent: recent}

	case model.Anonymous:
		if s.anon == nil {
			return nil, fmt.Errorf("%w: anonymous voting is not configured", model.ErrValidation)
		}
		anonState = s.anon.Decode(req.AnonToken)
		if slices.Contains(anonState.Items, post.PostID) {
			return nil, model.ErrDuplicateVote
		}
		if s.anon.HasReachedDailyLimit(anonState) {
			return nil, model.ErrDailyLimitExceeded
		}
		input = WeightInput{Rating: req.Rating}
	}

	weight, breakdown := s.weights.Compute(input)
	vote.Weight = weight
	vote.BaseWeight, vote.DemographicWeight, vote.PatternWeight = componentWeights(breakdown)

	recorded, err := s.record(ctx, &vote)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{UpdatedProfile: recorded.Voter}

	if userID != "" && s.activity != nil {
		if err := s.activity.LogVote(ctx, userID, recorded.Vote, breakdown); err != nil {
			metrics.ActivityLogFailures.Inc()
			s.logger.Warn().Err(err).Str("vote_id", recorded.Vote.ID).Msg("activity log write failed")
		}
	}

	if userID == "" {
		next := s.anon.Record(anonState, post.PostID)
		token, expiresAt, err := s.anon.Encode(next)
		if err != nil {
			s.logger.Error().Err(err).Str("vote_id", recorded.Vote.ID).Msg("anonymous token encode failed")
		} else {
			result.AnonToken = token
			result.AnonExpiresAt = expiresAt
		}
	}

	if s.cache != nil {
		if err := s.cache.InvalidatePost(ctx, post.PostID); err != nil {
			s.logger.Warn().Err(err).Str("post_id", post.PostID).Msg("cache: invalidate failed")
		}
	}
	if s.reconciler != nil {
		s.reconciler.MarkDirty(post.PostID)
	}

	result.Response = &model.VoteResponse{
		Success:   true,
		VoteID:    recorded.Vote.ID,
		Weight:    recorded.Vote.Weight,
		Breakdown: breakdown,
		IsOutlier: recorded.Vote.IsOutlier,
		Rating:    recorded.State.Response(),
	}
	return result, nil
}

// record runs the atomic unit under the per-post lock, retrying once when the
// aggregate update fails transiently.
func (s *VoteService) record(ctx context.Context, vote *model.Vote) (*model.RecordResult, error) {
	unlock := s.locks.Lock(vote.PostID)
	defer unlock()

	res, err := s.votes.RecordVote(ctx, vote)
	if err == nil || !errors.Is(err, model.ErrAggregateUpdate) || ctx.Err() != nil {
		return res, err
	}

	metrics.RecordRetries.Inc()
	s.logger.Warn().Err(err).Str("post_id", vote.PostID).Msg("record vote failed, retrying")
	return s.votes.RecordVote(ctx, vote)
}

func validateSubmit(req SubmitRequest) (model.VoteContext, error) {
	if req.Identity == nil {
		return "", fmt.Errorf("%w: identity is required", model.ErrValidation)
	}
	if reg, ok := req.Identity.(model.Registered); ok && reg.Profile == nil {
		return "", fmt.Errorf("%w: registered identity without profile", model.ErrValidation)
	}
	if strings.TrimSpace(req.PostID) == "" {
		return "", fmt.Errorf("%w: postId is required", model.ErrValidation)
	}
	if req.Rating < model.MinRating || req.Rating > model.MaxRating {
		return "", fmt.Errorf("%w: rating must be between %d and %d", model.ErrValidation, model.MinRating, model.MaxRating)
	}
	voteCtx := model.VoteContext(strings.ToUpper(strings.TrimSpace(req.Context)))
	if voteCtx == "" {
		voteCtx = model.VoteContextDirect
	}
	if !voteCtx.Valid() {
		return "", fmt.Errorf("%w: context must be DIRECT or REFERRAL", model.ErrValidation)
	}
	return voteCtx, nil
}

// componentWeights returns the base, demographic and pattern factors stored
// with the vote. Anonymous votes carry the fixed weight as their base.
func componentWeights(b *model.WeightBreakdown) (float64, float64, float64) {
	if b.Anonymous {
		return b.Final, 1, 1
	}
	return b.Base.Value, b.Demographic.Value, b.Pattern.Value
}

func identityKind(id model.Identity) string {
	if _, ok := id.(model.Registered); ok {
		return "registered"
	}
	return "anonymous"
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAccepted
	case errors.Is(err, model.ErrDuplicateVote):
		return metrics.OutcomeDuplicate
	case errors.Is(err, model.ErrSelfVote):
		return metrics.OutcomeSelfVote
	case errors.Is(err, model.ErrDailyLimitExceeded):
		return metrics.OutcomeDailyLimit
	case errors.Is(err, model.ErrValidation):
		return metrics.OutcomeInvalid
	case errors.Is(err, model.ErrPostNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeFailed
	}
}
