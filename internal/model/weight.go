package model

// Factor is one multiplicative adjustment applied while weighting a vote.
type Factor struct {
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
	Detail     string  `json:"detail,omitempty"`
}

// FactorGroup is the product of a set of factors together with the factors themselves.
type FactorGroup struct {
	Value   float64  `json:"value"`
	Factors []Factor `json:"factors"`
}

// PatternStats holds the sub-scores derived from a voter's recent ratings.
type PatternStats struct {
	RecentVotes  int     `json:"recentVotes"`
	ExtremeRatio float64 `json:"extremeRatio"`
	StdDev       float64 `json:"stdDev"`
	Consistency  float64 `json:"consistency"`
	Average      float64 `json:"average"`
}

// WeightBreakdown explains how a final vote weight was reached. Moderation
// tooling reads it from the vote response and the activity log.
type WeightBreakdown struct {
	Anonymous    bool          `json:"anonymous"`
	Base         *FactorGroup  `json:"base,omitempty"`
	Demographic  *FactorGroup  `json:"demographic,omitempty"`
	Pattern      *FactorGroup  `json:"pattern,omitempty"`
	PatternStats *PatternStats `json:"patternStats,omitempty"`
	Final        float64       `json:"final"`
}

// Product multiplies the factors of a group, starting from 1.0.
func Product(factors []Factor) float64 {
	p := 1.0
	for _, f := range factors {
		p *= f.Multiplier
	}
	return p
}

// NewFactorGroup builds a group whose value is the product of its factors.
func NewFactorGroup(factors []Factor) *FactorGroup {
	if factors == nil {
		factors = []Factor{}
	}
	return &FactorGroup{Value: Product(factors), Factors: factors}
}
