package router

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathieu-neron/postrate/internal/auth"
	"github.com/mathieu-neron/postrate/internal/handler"
	"github.com/mathieu-neron/postrate/internal/model"
	"github.com/mathieu-neron/postrate/internal/repository/memory"
	"github.com/mathieu-neron/postrate/internal/service"
)

const cookieName = "postrate_anon"

type testServer struct {
	app    *fiber.App
	store  *memory.Store
	issuer *auth.TokenIssuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	now := time.Now()
	store := memory.NewStore()
	store.PutVoter(model.VoterProfile{UserID: "creator", CreatedAt: now.AddDate(-1, 0, 0)})
	store.PutVoter(model.VoterProfile{UserID: "alice", CreatedAt: now.AddDate(-1, 0, 0), IsVerified: true})
	store.PutPost(model.Post{PostID: "post-1", CreatorID: "creator", CreatedAt: now})
	store.PutPost(model.Post{PostID: "post-2", CreatorID: "creator", CreatedAt: now})

	sessionCfg := auth.Config{SigningSecret: []byte("session"), Issuer: "postrate-auth", Audience: "postrate-api"}
	issuer, err := auth.NewTokenIssuer(sessionCfg)
	require.NoError(t, err)
	validator, err := auth.NewSessionValidator(sessionCfg)
	require.NoError(t, err)

	anon, err := service.NewAnonymousTracker(service.AnonymousTrackerConfig{
		SigningSecret: []byte("anon"),
		DailyLimit:    2,
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)

	cache := service.NewCacheServiceWithClient(nil)
	voteSvc := service.NewVoteService(service.VoteServiceConfig{
		Posts:     store,
		Voters:    store,
		Votes:     store,
		Anonymous: anon,
		Activity:  service.NewActivityLogger(store),
		Cache:     cache,
		Logger:    zerolog.Nop(),
	})

	app := fiber.New()
	Setup(app, &Handlers{
		Vote:     handler.NewVoteHandler(voteSvc, cookieName, false),
		Post:     handler.NewPostHandler(service.NewRatingService(store, cache, zerolog.Nop())),
		Health:   handler.NewHealthHandler(store, nil, "test"),
		Identity: service.NewIdentityService(store, validator, "salt"),
	}, Options{CORSOrigins: "*", VoteRateLimit: 100})

	return &testServer{app: app, store: store, issuer: issuer}
}

func (s *testServer) vote(t *testing.T, postID, body string, header http.Header) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/posts/"+postID+"/votes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	return resp
}

func (s *testServer) bearer(t *testing.T, userID string) http.Header {
	t.Helper()
	token, _, err := s.issuer.Issue(userID)
	require.NoError(t, err)
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, v), string(body))
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Hint    string `json:"hint"`
	} `json:"error"`
}

func anonCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	return nil
}

func TestHealthLive(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestSubmitVote_Registered(t *testing.T) {
	s := newTestServer(t)

	resp := s.vote(t, "post-1", `{"rating":7,"context":"REFERRAL"}`, s.bearer(t, "alice"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Nil(t, anonCookie(resp), "registered voters get no anonymous cookie")

	var body model.VoteResponse
	decode(t, resp, &body)
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.VoteID)
	assert.Greater(t, body.Weight, 1.0)
	require.NotNil(t, body.Rating)
	assert.EqualValues(t, 1, body.Rating.Count)
	assert.EqualValues(t, 1, body.Rating.Buckets[7])

	resp = s.vote(t, "post-1", `{"rating":3}`, s.bearer(t, "alice"))
	var dup errorBody
	decode(t, resp, &dup)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE_VOTE", dup.Error.Code)
}

func TestSubmitVote_SelfVote(t *testing.T) {
	s := newTestServer(t)
	resp := s.vote(t, "post-1", `{"rating":10}`, s.bearer(t, "creator"))
	var body errorBody
	decode(t, resp, &body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "SELF_VOTE", body.Error.Code)
}

func TestSubmitVote_InvalidSession(t *testing.T) {
	s := newTestServer(t)

	tests := map[string]http.Header{
		"garbage token": {"Authorization": []string{"Bearer nope"}},
		"unknown user":  s.bearer(t, "mallory"),
		"basic auth":    {"Authorization": []string{"Basic Zm9vOmJhcg=="}},
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			resp := s.vote(t, "post-1", `{"rating":5}`, header)
			var body errorBody
			decode(t, resp, &body)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "INVALID_SESSION", body.Error.Code)
		})
	}
}

func TestSubmitVote_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		postID string
		body   string
		status int
		code   string
	}{
		{"rating too low", "post-1", `{"rating":0}`, http.StatusBadRequest, "INVALID_FIELD"},
		{"rating too high", "post-1", `{"rating":11}`, http.StatusBadRequest, "INVALID_FIELD"},
		{"bad context", "post-1", `{"rating":5,"context":"SHARED"}`, http.StatusBadRequest, "INVALID_FIELD"},
		{"malformed body", "post-1", `{"rating":`, http.StatusBadRequest, "INVALID_BODY"},
		{"bad post id", "bad%20id", `{"rating":5}`, http.StatusBadRequest, "INVALID_FIELD"},
		{"unknown post", "post-404", `{"rating":5}`, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.vote(t, tt.postID, tt.body, nil)
			var body errorBody
			decode(t, resp, &body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestSubmitVote_AnonymousCookieAndDailyLimit(t *testing.T) {
	s := newTestServer(t)
	s.store.PutPost(model.Post{PostID: "post-3", CreatorID: "creator"})

	resp := s.vote(t, "post-1", `{"rating":6}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	cookie := anonCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	var body model.VoteResponse
	decode(t, resp, &body)
	assert.Equal(t, service.AnonymousWeight, body.Weight)
	assert.True(t, body.Breakdown.Anonymous)

	header := http.Header{"Cookie": []string{fmt.Sprintf("%s=%s", cookieName, cookie.Value)}}
	resp = s.vote(t, "post-2", `{"rating":6}`, header)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	cookie = anonCookie(resp)
	require.NotNil(t, cookie)
	resp.Body.Close()

	header = http.Header{"Cookie": []string{fmt.Sprintf("%s=%s", cookieName, cookie.Value)}}
	resp = s.vote(t, "post-3", `{"rating":6}`, header)
	var limited errorBody
	decode(t, resp, &limited)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "DAILY_LIMIT", limited.Error.Code)
	assert.NotEmpty(t, limited.Error.Hint)
}

func TestGetRating(t *testing.T) {
	s := newTestServer(t)

	resp := s.vote(t, "post-1", `{"rating":9}`, s.bearer(t, "alice"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/api/posts/post-1/rating", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rating model.RatingResponse
	decode(t, resp, &rating)
	assert.Equal(t, "post-1", rating.PostID)
	assert.EqualValues(t, 1, rating.Count)
	assert.InDelta(t, 9.0, rating.WeightedRating, 1e-9)

	resp, err = s.app.Test(httptest.NewRequest(http.MethodGet, "/api/posts/nope/rating", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
