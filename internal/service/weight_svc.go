package service

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mathieu-neron/postrate/internal/model"
)

const (
	// AnonymousWeight is the fixed weight of every vote cast without a session.
	AnonymousWeight = 0.3

	// Base trust
	newAccountAge     = 30 * 24 * time.Hour
	newAccountPenalty = 0.7
	verifiedBonus     = 1.2

	// Activity bonus: 1 + min(maxActivityBonus, linear combination of activity counters)
	commentActivity  = 0.002
	photoActivity    = 0.005
	voteActivity     = 0.001
	spendActivity    = 0.0005
	streakActivity   = 0.01
	maxActivityBonus = 0.3

	// Demographic
	sameGenderPenalty    = 0.5
	maxAgeGapYears       = 20
	ageGapPenalty        = 0.8
	lowVoterBonus        = 1.2
	highVoterPenalty     = 0.8
	extremeRatingPenalty = 0.8
	extremeLowRating     = 2
	extremeHighRating    = 9

	// Recent voting pattern
	PatternWindow         = 30 * 24 * time.Hour
	MinPatternVotes       = 5
	extremeRatioThreshold = 0.7
	extremeRatioPenalty   = 0.6
	maxRatingStdDev       = 4.5
	consistencyThreshold  = 0.7
	consistencyBonus      = 1.1
	lowSkewAverage        = 4.0
	highSkewAverage       = 7.0
	lowSkewBonus          = 1.1
	highSkewPenalty       = 0.9

	weightPlaces = 3
)

// WeightInput is everything the weight model looks at for one vote.
// Voter is nil for anonymous votes. Creator may be nil when the creator
// profile is unavailable, in which case relationship terms are skipped.
type WeightInput struct {
	Voter   *model.VoterProfile
	Creator *model.VoterProfile
	Rating  int
	Recent  []int
}

type WeightService struct {
	clock func() time.Time
}

func NewWeightService(clock func() time.Time) *WeightService {
	if clock == nil {
		clock = time.Now
	}
	return &WeightService{clock: clock}
}

// Compute returns the final vote weight and the breakdown that produced it:
//
//	weight = round3(base * demographic * pattern)
func (s *WeightService) Compute(in WeightInput) (float64, *model.WeightBreakdown) {
	if in.Voter == nil {
		return AnonymousWeight, &model.WeightBreakdown{Anonymous: true, Final: AnonymousWeight}
	}

	now := s.clock()
	base := model.NewFactorGroup(s.BaseFactors(in.Voter, now))
	demo := model.NewFactorGroup(s.DemographicFactors(in.Voter, in.Creator, in.Rating, now))
	patternFactors, stats := s.PatternFactors(in.Recent)
	pattern := model.NewFactorGroup(patternFactors)

	final := RoundWeight(base.Value * demo.Value * pattern.Value)
	return final, &model.WeightBreakdown{
		Base:         base,
		Demographic:  demo,
		Pattern:      pattern,
		PatternStats: stats,
		Final:        final,
	}
}

// BaseFactors derives trust from the voter's own account attributes.
func (s *WeightService) BaseFactors(voter *model.VoterProfile, now time.Time) []model.Factor {
	var factors []model.Factor
	if age := now.Sub(voter.CreatedAt); age < newAccountAge {
		factors = append(factors, model.Factor{
			Name:       "new_account",
			Multiplier: newAccountPenalty,
			Detail:     fmt.Sprintf("account is %d days old", int(age.Hours()/24)),
		})
	}
	if voter.IsVerified {
		factors = append(factors, model.Factor{Name: "verified", Multiplier: verifiedBonus})
	}
	factors = append(factors, model.Factor{
		Name:       "activity",
		Multiplier: 1 + s.ActivityBonus(voter),
	})
	return factors
}

// ActivityBonus returns the capped additive bonus earned through activity.
func (s *WeightService) ActivityBonus(voter *model.VoterProfile) float64 {
	bonus := float64(voter.CommentCount)*commentActivity +
		float64(voter.PhotoCount)*photoActivity +
		float64(voter.TotalVotesGiven)*voteActivity +
		voter.TotalSpent*spendActivity +
		float64(voter.VotingStreak)*streakActivity
	return math.Min(math.Max(bonus, 0), maxActivityBonus)
}

// DemographicFactors adjusts for the voter/creator relationship, the voter's
// historical bias and the extremity of the submitted rating.
func (s *WeightService) DemographicFactors(voter, creator *model.VoterProfile, rating int, now time.Time) []model.Factor {
	var factors []model.Factor

	if creator != nil {
		if voter.Gender != model.GenderUnknown && voter.Gender == creator.Gender &&
			voter.Orientation == model.OrientationStraight {
			factors = append(factors, model.Factor{
				Name:       "same_gender",
				Multiplier: sameGenderPenalty,
			})
		}
		if voter.DateOfBirth != nil && creator.DateOfBirth != nil {
			gap := model.AgeAt(*voter.DateOfBirth, now) - model.AgeAt(*creator.DateOfBirth, now)
			if gap < 0 {
				gap = -gap
			}
			if gap > maxAgeGapYears {
				factors = append(factors, model.Factor{
					Name:       "age_gap",
					Multiplier: ageGapPenalty,
					Detail:     fmt.Sprintf("%d years", gap),
				})
			}
		}
	}

	switch voter.VotingPattern {
	case model.LowVoter:
		factors = append(factors, model.Factor{Name: "low_voter", Multiplier: lowVoterBonus})
	case model.HighVoter:
		factors = append(factors, model.Factor{Name: "high_voter", Multiplier: highVoterPenalty})
	}

	if IsExtremeRating(rating) {
		factors = append(factors, model.Factor{
			Name:       "extreme_rating",
			Multiplier: extremeRatingPenalty,
			Detail:     fmt.Sprintf("rating %d", rating),
		})
	}
	return factors
}

// PatternFactors analyses the voter's ratings from the trailing window. With
// fewer than MinPatternVotes ratings it returns no factors.
func (s *WeightService) PatternFactors(recent []int) ([]model.Factor, *model.PatternStats) {
	stats := &model.PatternStats{RecentVotes: len(recent)}
	if len(recent) < MinPatternVotes {
		return nil, stats
	}

	var sum, extreme float64
	for _, r := range recent {
		sum += float64(r)
		if IsExtremeRating(r) {
			extreme++
		}
	}
	n := float64(len(recent))
	stats.Average = sum / n
	stats.ExtremeRatio = extreme / n

	var sq float64
	for _, r := range recent {
		d := float64(r) - stats.Average
		sq += d * d
	}
	stats.StdDev = math.Sqrt(sq / n)
	stats.Consistency = math.Max(0, 1-stats.StdDev/maxRatingStdDev)

	var factors []model.Factor
	if stats.ExtremeRatio > extremeRatioThreshold {
		factors = append(factors, model.Factor{
			Name:       "extreme_ratio",
			Multiplier: extremeRatioPenalty,
			Detail:     fmt.Sprintf("%.2f of recent votes extreme", stats.ExtremeRatio),
		})
	}
	if stats.Consistency > consistencyThreshold {
		factors = append(factors, model.Factor{
			Name:       "consistency",
			Multiplier: consistencyBonus,
			Detail:     fmt.Sprintf("stddev %.2f", stats.StdDev),
		})
	}
	switch {
	case stats.Average < lowSkewAverage:
		factors = append(factors, model.Factor{Name: "low_skew", Multiplier: lowSkewBonus})
	case stats.Average > highSkewAverage:
		factors = append(factors, model.Factor{Name: "high_skew", Multiplier: highSkewPenalty})
	}
	return factors, stats
}

// IsExtremeRating reports whether rating sits at either end of the scale.
func IsExtremeRating(rating int) bool {
	return rating <= extremeLowRating || rating >= extremeHighRating
}

// RoundWeight rounds a weight to three decimal places.
func RoundWeight(w float64) float64 {
	return decimal.NewFromFloat(w).Round(weightPlaces).InexactFloat64()
}
