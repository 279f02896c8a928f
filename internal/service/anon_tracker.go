package service

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const (
	DefaultAnonDailyLimit = 10
	DefaultAnonTokenTTL   = 48 * time.Hour

	dayLayout = "2006-01-02"
)

var errMissingAnonSecret = errors.New("anonymous tracker: signing secret required")

// AnonymousState is the client-held record of what an anonymous caller
// voted on during one calendar day.
type AnonymousState struct {
	Day   string
	Items []string
}

type anonClaims struct {
	Day   string   `json:"day"`
	Items []string `json:"items"`
	jwt.RegisteredClaims
}

type AnonymousTrackerConfig struct {
	SigningSecret []byte
	DailyLimit    int
	TokenTTL      time.Duration
	Location      *time.Location
	Clock         func() time.Time
	Logger        zerolog.Logger
}

// AnonymousTracker enforces the daily vote ceiling for unauthenticated callers.
// Its state travels as an HS256 token and is never stored server-side.
type AnonymousTracker struct {
	secret []byte
	limit  int
	ttl    time.Duration
	loc    *time.Location
	clock  func() time.Time
	logger zerolog.Logger
}

func NewAnonymousTracker(cfg AnonymousTrackerConfig) (*AnonymousTracker, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, errMissingAnonSecret
	}
	t := &AnonymousTracker{
		secret: append([]byte(nil), cfg.SigningSecret...),
		limit:  cfg.DailyLimit,
		ttl:    cfg.TokenTTL,
		loc:    cfg.Location,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}
	if t.limit <= 0 {
		t.limit = DefaultAnonDailyLimit
	}
	if t.ttl <= 0 {
		t.ttl = DefaultAnonTokenTTL
	}
	if t.loc == nil {
		t.loc = time.UTC
	}
	if t.clock == nil {
		t.clock = time.Now
	}
	return t, nil
}

// Limit returns the configured daily ceiling.
func (t *AnonymousTracker) Limit() int { return t.limit }

// Today returns the current calendar day in the tracker's location.
func (t *AnonymousTracker) Today() string {
	return t.clock().In(t.loc).Format(dayLayout)
}

// Decode verifies a client token. A missing, tampered or expired token
// yields an empty state for today; it never fails the request.
func (t *AnonymousTracker) Decode(token string) AnonymousState {
	fresh := AnonymousState{Day: t.Today()}
	if token == "" {
		return fresh
	}

	claims := &anonClaims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(tok *jwt.Token) (interface{}, error) {
			return t.secret, nil
		},
		jwt.WithTimeFunc(t.clock),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		t.logger.Debug().Err(err).Msg("anonymous token rejected, starting fresh")
		return fresh
	}
	return t.current(AnonymousState{Day: claims.Day, Items: claims.Items})
}

// current resets the item set when the stored day is not today.
func (t *AnonymousTracker) current(s AnonymousState) AnonymousState {
	today := t.Today()
	if s.Day != today {
		return AnonymousState{Day: today}
	}
	return AnonymousState{Day: today, Items: slices.Clone(s.Items)}
}

// HasReachedDailyLimit reports whether another vote would exceed the ceiling.
func (t *AnonymousTracker) HasReachedDailyLimit(s AnonymousState) bool {
	return len(t.current(s).Items) >= t.limit
}

// Record returns the state after a vote on itemID was accepted.
func (t *AnonymousTracker) Record(s AnonymousState, itemID string) AnonymousState {
	next := t.current(s)
	if !slices.Contains(next.Items, itemID) {
		next.Items = append(next.Items, itemID)
	}
	return next
}

// Encode signs the state. The token expires after the retention window.
func (t *AnonymousTracker) Encode(s AnonymousState) (string, time.Time, error) {
	now := t.clock()
	expiresAt := now.Add(t.ttl)
	claims := anonClaims{
		Day:   s.Day,
		Items: s.Items,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign anonymous token: %w", err)
	}
	return signed, expiresAt, nil
}
