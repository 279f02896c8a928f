package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/postrate/internal/metrics"
	"github.com/mathieu-neron/postrate/internal/model"
)

// RatingService serves post aggregates, cache first.
type RatingService struct {
	posts  PostStore
	cache  *CacheService
	logger zerolog.Logger
}

func NewRatingService(posts PostStore, cache *CacheService, logger zerolog.Logger) *RatingService {
	return &RatingService{posts: posts, cache: cache, logger: logger}
}

// GetRating returns the aggregate of a post or model.ErrPostNotFound.
// Cache errors degrade to a store read.
func (s *RatingService) GetRating(ctx context.Context, postID string) (*model.RatingResponse, error) {
	if s.cache != nil {
		cached, err := s.cache.GetRating(ctx, postID)
		if err != nil {
			s.logger.Warn().Err(err).Str("post_id", postID).Msg("cache: read rating failed")
		}
		if cached != nil {
			metrics.CacheHits.Inc()
			return cached, nil
		}
		metrics.CacheMisses.Inc()
	}

	state, err := s.posts.GetRatingState(ctx, postID)
	if err != nil {
		return nil, err
	}
	resp := state.Response()

	if s.cache != nil {
		if err := s.cache.SetRating(ctx, resp); err != nil {
			s.logger.Warn().Err(err).Str("post_id", postID).Msg("cache: store rating failed")
		}
	}
	return resp, nil
}
