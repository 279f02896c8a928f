package model

import "errors"

// Vote submission errors. Every one except ErrLogFailure aborts the vote
// before anything is persisted.
var (
	ErrValidation         = errors.New("invalid vote request")
	ErrSelfVote           = errors.New("cannot vote on own content")
	ErrDuplicateVote      = errors.New("already voted on this post")
	ErrDailyLimitExceeded = errors.New("daily anonymous vote limit reached")
	ErrPostNotFound       = errors.New("post not found")
	ErrVoterNotFound      = errors.New("voter not found")
	ErrAggregateUpdate    = errors.New("aggregate update failed")
	ErrLogFailure         = errors.New("activity log write failed")
)

// ErrInvalidSession is returned when a presented session credential does not
// resolve to a known voter.
var ErrInvalidSession = errors.New("invalid session")
