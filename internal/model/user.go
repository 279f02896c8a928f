package model

import "time"

// VotingPattern is a voter's behavioral bucket derived from the average rating they give.
type VotingPattern string

const (
	LowVoter     VotingPattern = "LOW_VOTER"
	NeutralVoter VotingPattern = "NEUTRAL"
	HighVoter    VotingPattern = "HIGH_VOTER"
)

// Classification thresholds on average rating given.
const (
	LowVoterMaxAverage  = 5.0
	HighVoterMinAverage = 8.0
)

type Gender string

const (
	GenderUnknown Gender = ""
	GenderMale    Gender = "MALE"
	GenderFemale  Gender = "FEMALE"
)

type Orientation string

const (
	OrientationUnknown  Orientation = ""
	OrientationStraight Orientation = "STRAIGHT"
	OrientationGay      Orientation = "GAY"
	OrientationBi       Orientation = "BI"
)

// VoterProfile is the part of a user's profile that feeds vote weighting.
// Demographic fields never leave the server.
type VoterProfile struct {
	UserID             string        `json:"userId"`
	IsVerified         bool          `json:"isVerified"`
	CreatedAt          time.Time     `json:"-"`
	CommentCount       int           `json:"-"`
	PhotoCount         int           `json:"-"`
	TotalSpent         float64       `json:"-"`
	TotalVotesGiven    int           `json:"totalVotesGiven"`
	VotingStreak       int           `json:"votingStreak"`
	LastActiveAt       time.Time     `json:"-"`
	AverageRatingGiven float64       `json:"averageRatingGiven"`
	VotingPattern      VotingPattern `json:"votingPattern"`
	Gender             Gender        `json:"-"`
	Orientation        Orientation   `json:"-"`
	DateOfBirth        *time.Time    `json:"-"`
}

// ClassifyVotingPattern maps an average rating given onto a voting pattern.
func ClassifyVotingPattern(avg float64) VotingPattern {
	switch {
	case avg <= LowVoterMaxAverage:
		return LowVoter
	case avg >= HighVoterMinAverage:
		return HighVoter
	default:
		return NeutralVoter
	}
}

// ApplyVote folds one more rating into the running average, bumps the vote
// count, reclassifies the pattern and stamps activity. The streak grows by one
// when the previous activity was the day before now, stays on the same day and
// restarts otherwise.
func (p *VoterProfile) ApplyVote(rating int, now time.Time) {
	old := float64(p.TotalVotesGiven)
	p.AverageRatingGiven = (p.AverageRatingGiven*old + float64(rating)) / (old + 1)
	p.TotalVotesGiven++
	p.VotingPattern = ClassifyVotingPattern(p.AverageRatingGiven)
	p.VotingStreak = nextStreak(p.VotingStreak, p.LastActiveAt, now)
	p.LastActiveAt = now
}

func nextStreak(streak int, last, now time.Time) int {
	if last.IsZero() {
		return 1
	}
	lastDay := truncateDay(last.In(now.Location()))
	today := truncateDay(now)
	switch {
	case lastDay.Equal(today):
		if streak == 0 {
			return 1
		}
		return streak
	case lastDay.AddDate(0, 0, 1).Equal(today):
		return streak + 1
	default:
		return 1
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AgeAt returns the whole years between dob and at.
func AgeAt(dob, at time.Time) int {
	years := at.Year() - dob.Year()
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		years--
	}
	return years
}
