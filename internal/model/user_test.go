package model

import (
	"math"
	"testing"
	"time"
)

func TestClassifyVotingPattern(t *testing.T) {
	tests := []struct {
		avg  float64
		want VotingPattern
	}{
		{1, LowVoter},
		{5, LowVoter},
		{5.01, NeutralVoter},
		{7.99, NeutralVoter},
		{8, HighVoter},
		{10, HighVoter},
	}
	for _, tt := range tests {
		if got := ClassifyVotingPattern(tt.avg); got != tt.want {
			t.Errorf("ClassifyVotingPattern(%v) = %s, want %s", tt.avg, got, tt.want)
		}
	}
}

func TestVoterProfile_ApplyVote(t *testing.T) {
	day := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	p := VoterProfile{TotalVotesGiven: 3, AverageRatingGiven: 6, VotingPattern: NeutralVoter}

	p.ApplyVote(10, day)
	if p.TotalVotesGiven != 4 {
		t.Errorf("TotalVotesGiven = %d, want 4", p.TotalVotesGiven)
	}
	if math.Abs(p.AverageRatingGiven-7) > 1e-9 {
		t.Errorf("AverageRatingGiven = %v, want 7", p.AverageRatingGiven)
	}
	if p.VotingStreak != 1 || !p.LastActiveAt.Equal(day) {
		t.Errorf("streak = %d, last active = %v", p.VotingStreak, p.LastActiveAt)
	}

	p.ApplyVote(10, day.Add(2*time.Hour))
	if p.VotingStreak != 1 {
		t.Errorf("same day streak = %d, want 1", p.VotingStreak)
	}
	if p.VotingPattern != NeutralVoter {
		t.Errorf("pattern = %s, want NEUTRAL at average 7.6", p.VotingPattern)
	}

	p.ApplyVote(10, day.AddDate(0, 0, 1))
	if p.VotingStreak != 2 {
		t.Errorf("next day streak = %d, want 2", p.VotingStreak)
	}
	if p.VotingPattern != HighVoter {
		t.Errorf("pattern = %s, want HIGH_VOTER", p.VotingPattern)
	}

	p.ApplyVote(1, day.AddDate(0, 0, 5))
	if p.VotingStreak != 1 {
		t.Errorf("streak after a gap = %d, want 1", p.VotingStreak)
	}
}

func TestAgeAt(t *testing.T) {
	tests := []struct {
		dob, at time.Time
		want    int
	}{
		{time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC), time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), 36},
		{time.Date(1990, 6, 16, 0, 0, 0, 0, time.UTC), time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), 35},
		{time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), 25},
		{time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 26},
	}
	for _, tt := range tests {
		if got := AgeAt(tt.dob, tt.at); got != tt.want {
			t.Errorf("AgeAt(%s, %s) = %d, want %d", tt.dob.Format("2006-01-02"), tt.at.Format("2006-01-02"), got, tt.want)
		}
	}
}
