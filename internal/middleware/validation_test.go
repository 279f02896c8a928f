package middleware

import (
	"strings"
	"testing"

	"github.com/mathieu-neron/postrate/internal/model"
)

func TestValidatePostID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantID  string
		wantErr bool
	}{
		{"valid", "post-123", "post-123", false},
		{"uuid", "550e8400-e29b-41d4-a716-446655440000", "550e8400-e29b-41d4-a716-446655440000", false},
		{"trims whitespace", "  abc  ", "abc", false},
		{"empty", "", "", true},
		{"too long", strings.Repeat("a", 65), "", true},
		{"exactly 64", strings.Repeat("a", 64), strings.Repeat("a", 64), false},
		{"invalid chars", "abc def", "", true},
		{"sql injection", "a'; DROP--", "", true},
		{"unicode", "abcédef", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := ValidatePostID(tt.input)
			if tt.wantErr && errMsg == "" {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && errMsg != "" {
				t.Errorf("unexpected error: %s", errMsg)
			}
			if got != tt.wantID {
				t.Errorf("got %q, want %q", got, tt.wantID)
			}
		})
	}
}

func TestValidateRating(t *testing.T) {
	for rating := -1; rating <= 12; rating++ {
		errMsg := ValidateRating(rating)
		valid := rating >= 1 && rating <= 10
		if valid && errMsg != "" {
			t.Errorf("rating %d: unexpected error %s", rating, errMsg)
		}
		if !valid && errMsg == "" {
			t.Errorf("rating %d: expected error", rating)
		}
	}
}

func TestValidateVoteContext(t *testing.T) {
	tests := []struct {
		input   string
		want    model.VoteContext
		wantErr bool
	}{
		{"", model.VoteContextDirect, false},
		{"DIRECT", model.VoteContextDirect, false},
		{" referral ", model.VoteContextReferral, false},
		{"SHARED", "", true},
	}
	for _, tt := range tests {
		got, errMsg := ValidateVoteContext(tt.input)
		if (errMsg != "") != tt.wantErr {
			t.Errorf("ValidateVoteContext(%q) error = %q, wantErr %v", tt.input, errMsg, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ValidateVoteContext(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSanitizePath(t *testing.T) {
	tests := map[string]string{
		"/api/posts/abc123/votes":  "/api/posts/:postId/votes",
		"/api/posts/abc123/rating": "/api/posts/:postId/rating",
		"/health/ready":            "/health/ready",
		"/api/users/u1":            "/api/users/:userId",
	}
	for in, want := range tests {
		if got := SanitizePath(in); got != want {
			t.Errorf("SanitizePath(%q) = %q, want %q", in, got, want)
		}
	}
}
