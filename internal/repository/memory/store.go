// Package memory is an in-process vote store. Each post and each voter carries
// its own mutex, so votes on different posts never contend with each other.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mathieu-neron/postrate/internal/model"
)

type postEntry struct {
	mu    sync.Mutex
	post  model.Post
	state model.RatingState
	votes []model.Vote
}

type ratingAt struct {
	rating int
	at     time.Time
}

type voterEntry struct {
	mu      sync.Mutex
	profile model.VoterProfile
	history []ratingAt
}

// Store keeps posts, voters, votes and the activity log in memory.
type Store struct {
	mu     sync.RWMutex
	posts  map[string]*postEntry
	voters map[string]*voterEntry

	activityMu sync.Mutex
	activity   []model.Activity

	// FailRecord, when set, is called inside RecordVote after all checks pass
	// and before anything is written. A non-nil error aborts the unit.
	FailRecord func() error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		posts:  make(map[string]*postEntry),
		voters: make(map[string]*voterEntry),
	}
}

// PutPost inserts or replaces a post.
func (s *Store) PutPost(p model.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.posts[p.PostID]; ok {
		e.mu.Lock()
		e.post = p
		e.mu.Unlock()
		return
	}
	s.posts[p.PostID] = &postEntry{post: p, state: model.NewRatingState(p.PostID)}
}

// PutVoter inserts or replaces a voter profile.
func (s *Store) PutVoter(p model.VoterProfile) {
	if p.VotingPattern == "" {
		p.VotingPattern = model.NeutralVoter
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.voters[p.UserID]; ok {
		e.mu.Lock()
		e.profile = p
		e.mu.Unlock()
		return
	}
	s.voters[p.UserID] = &voterEntry{profile: p}
}

// SeedRatings adds historical ratings to a voter without touching any post.
func (s *Store) SeedRatings(userID string, at time.Time, ratings ...int) error {
	e := s.voter(userID)
	if e == nil {
		return model.ErrVoterNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range ratings {
		e.history = append(e.history, ratingAt{rating: r, at: at})
	}
	return nil
}

func (s *Store) post(postID string) *postEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.posts[postID]
}

func (s *Store) voter(userID string) *voterEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voters[userID]
}

// FindPost returns the post or model.ErrPostNotFound.
func (s *Store) FindPost(_ context.Context, postID string) (*model.Post, error) {
	e := s.post(postID)
	if e == nil {
		return nil, model.ErrPostNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.post
	return &p, nil
}

// FindVoter returns a copy of the voter profile or model.ErrVoterNotFound.
func (s *Store) FindVoter(_ context.Context, userID string) (*model.VoterProfile, error) {
	e := s.voter(userID)
	if e == nil {
		return nil, model.ErrVoterNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	p := copyProfile(e.profile)
	return &p, nil
}

// RecentRatings returns the ratings a voter gave at or after since, oldest first.
func (s *Store) RecentRatings(_ context.Context, userID string, since time.Time) ([]int, error) {
	e := s.voter(userID)
	if e == nil {
		return nil, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []int
	for _, h := range e.history {
		if !h.at.Before(since) {
			out = append(out, h.rating)
		}
	}
	return out, nil
}

// RecordVote runs the duplicate check, vote insert, aggregate update and voter
// profile update as one unit under the post lock (and the voter lock, taken
// second). Nothing is written unless every step succeeds.
func (s *Store) RecordVote(_ context.Context, vote *model.Vote) (*model.RecordResult, error) {
	pe := s.post(vote.PostID)
	if pe == nil {
		return nil, model.ErrPostNotFound
	}
	pe.mu.Lock()
	defer pe.mu.Unlock()

	for _, v := range pe.votes {
		if v.IPHash == vote.IPHash {
			return nil, model.ErrDuplicateVote
		}
		if vote.VoterID != nil && v.VoterID != nil && *v.VoterID == *vote.VoterID {
			return nil, model.ErrDuplicateVote
		}
	}

	var ve *voterEntry
	if vote.VoterID != nil {
		ve = s.voter(*vote.VoterID)
		if ve == nil {
			return nil, model.ErrVoterNotFound
		}
		ve.mu.Lock()
		defer ve.mu.Unlock()
	}

	if s.FailRecord != nil {
		if err := s.FailRecord(); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrAggregateUpdate, err)
		}
	}

	v := *vote
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	v.IsOutlier = pe.state.IsOutlier(v.Rating)

	state := pe.state
	state.Apply(v.Rating, v.Weight)
	state.UpdatedAt = v.CreatedAt

	res := &model.RecordResult{Vote: v, State: state}
	if ve != nil {
		profile := copyProfile(ve.profile)
		profile.ApplyVote(v.Rating, v.CreatedAt)
		ve.profile = profile
		ve.history = append(ve.history, ratingAt{rating: v.Rating, at: v.CreatedAt})
		out := copyProfile(profile)
		res.Voter = &out
	}
	pe.state = state
	pe.votes = append(pe.votes, v)
	return res, nil
}

// GetRatingState returns the post aggregate, zero-valued when nobody voted yet.
func (s *Store) GetRatingState(_ context.Context, postID string) (*model.RatingState, error) {
	e := s.post(postID)
	if e == nil {
		return nil, model.ErrPostNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.state
	return &st, nil
}

// ListVotes returns the votes recorded on a post in insertion order.
func (s *Store) ListVotes(_ context.Context, postID string) ([]model.Vote, error) {
	e := s.post(postID)
	if e == nil {
		return nil, model.ErrPostNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Vote(nil), e.votes...), nil
}

// ReconcileRatingState rebuilds the aggregate of a post from its votes and
// stores the result, returning the state before and after.
func (s *Store) ReconcileRatingState(_ context.Context, postID string) (model.RatingState, model.RatingState, error) {
	e := s.post(postID)
	if e == nil {
		return model.RatingState{}, model.RatingState{}, model.ErrPostNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	before := e.state
	after := model.RebuildRatingState(postID, e.votes)
	after.UpdatedAt = before.UpdatedAt
	e.state = after
	return before, after, nil
}

// ListPostIDsWithVotes returns every post that has at least one vote, sorted.
func (s *Store) ListPostIDsWithVotes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	entries := make(map[string]*postEntry, len(s.posts))
	for id, e := range s.posts {
		entries[id] = e
	}
	s.mu.RUnlock()

	var ids []string
	for id, e := range entries {
		e.mu.Lock()
		n := len(e.votes)
		e.mu.Unlock()
		if n > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// SetRatingState overwrites a post aggregate. Only used to simulate drift.
func (s *Store) SetRatingState(postID string, st model.RatingState) error {
	e := s.post(postID)
	if e == nil {
		return model.ErrPostNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = st
	return nil
}

// AppendActivity appends an audit trail entry.
func (s *Store) AppendActivity(_ context.Context, a model.Activity) error {
	s.activityMu.Lock()
	defer s.activityMu.Unlock()
	a.ID = int64(len(s.activity) + 1)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.activity = append(s.activity, a)
	return nil
}

// Activity returns a snapshot of the audit trail.
func (s *Store) Activity() []model.Activity {
	s.activityMu.Lock()
	defer s.activityMu.Unlock()
	return append([]model.Activity(nil), s.activity...)
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func copyProfile(p model.VoterProfile) model.VoterProfile {
	if p.DateOfBirth != nil {
		dob := *p.DateOfBirth
		p.DateOfBirth = &dob
	}
	return p
}
