package model

import (
	"math"
	"time"
)

// Outlier detection thresholds, evaluated against the pre-vote aggregate.
const (
	OutlierMinVotes = 5
	OutlierDistance = 4.0
)

// Post is the content item being rated.
type Post struct {
	PostID    string    `json:"postId"`
	CreatorID string    `json:"creatorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// RatingState is the running rating distribution of a single post.
// Buckets[i] counts ratings equal to i+1.
type RatingState struct {
	PostID         string
	Buckets        [MaxRating]int64
	WeightedSum    float64
	TotalWeight    float64
	Count          int64
	AverageRating  float64
	WeightedRating float64
	UpdatedAt      time.Time
}

// RatingResponse is the aggregate shape exposed to readers.
type RatingResponse struct {
	PostID         string        `json:"postId"`
	Buckets        map[int]int64 `json:"buckets"`
	WeightedSum    float64       `json:"weightedSum"`
	TotalWeight    float64       `json:"totalWeight"`
	Count          int64         `json:"count"`
	AverageRating  float64       `json:"averageRating"`
	WeightedRating float64       `json:"weightedRating"`
}

// NewRatingState returns the zero aggregate for a post that has no votes yet.
func NewRatingState(postID string) RatingState {
	return RatingState{PostID: postID}
}

// Apply adds one (rating, weight) pair and recomputes both averages.
func (s *RatingState) Apply(rating int, weight float64) {
	s.Buckets[rating-MinRating]++
	s.Count++
	s.WeightedSum += float64(rating) * weight
	s.TotalWeight += weight
	s.recompute()
}

func (s *RatingState) recompute() {
	var sum, n int64
	for i, c := range s.Buckets {
		sum += int64(i+MinRating) * c
		n += c
	}
	s.AverageRating = 0
	if n > 0 {
		s.AverageRating = float64(sum) / float64(n)
	}
	s.WeightedRating = 0
	if s.TotalWeight > 0 {
		s.WeightedRating = s.WeightedSum / s.TotalWeight
	}
}

// BucketTotal returns the sum of all bucket counts. It always equals Count.
func (s RatingState) BucketTotal() int64 {
	var n int64
	for _, c := range s.Buckets {
		n += c
	}
	return n
}

// IsOutlier reports whether rating lies far from the current weighted rating
// of a post that already has enough votes to have a meaningful average.
func (s RatingState) IsOutlier(rating int) bool {
	if s.Count < OutlierMinVotes {
		return false
	}
	return math.Abs(float64(rating)-s.WeightedRating) >= OutlierDistance
}

// Equal compares two aggregates, allowing eps of floating point drift.
func (s RatingState) Equal(o RatingState, eps float64) bool {
	if s.Buckets != o.Buckets || s.Count != o.Count {
		return false
	}
	return math.Abs(s.WeightedSum-o.WeightedSum) <= eps &&
		math.Abs(s.TotalWeight-o.TotalWeight) <= eps &&
		math.Abs(s.WeightedRating-o.WeightedRating) <= eps &&
		math.Abs(s.AverageRating-o.AverageRating) <= eps
}

// Response converts the aggregate into its public shape.
func (s RatingState) Response() *RatingResponse {
	buckets := make(map[int]int64, MaxRating)
	for i, c := range s.Buckets {
		buckets[i+MinRating] = c
	}
	return &RatingResponse{
		PostID:         s.PostID,
		Buckets:        buckets,
		WeightedSum:    s.WeightedSum,
		TotalWeight:    s.TotalWeight,
		Count:          s.Count,
		AverageRating:  s.AverageRating,
		WeightedRating: s.WeightedRating,
	}
}

// RebuildRatingState recomputes a post aggregate from scratch over its votes.
func RebuildRatingState(postID string, votes []Vote) RatingState {
	s := NewRatingState(postID)
	for _, v := range votes {
		s.Apply(v.Rating, v.Weight)
	}
	return s
}
