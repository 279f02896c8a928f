package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathieu-neron/postrate/internal/model"
)

const ratingColumns = `post_id, buckets, weighted_sum, total_weight, vote_count,
	average_rating, weighted_rating, updated_at`

type PostRepo struct {
	pool *pgxpool.Pool
}

func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

// FindPost returns a post by id, or model.ErrPostNotFound.
func (r *PostRepo) FindPost(ctx context.Context, postID string) (*model.Post, error) {
	var p model.Post
	err := r.pool.QueryRow(ctx, `
		SELECT post_id, creator_id, created_at FROM posts WHERE post_id = $1`,
		postID).Scan(&p.PostID, &p.CreatorID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetRatingState returns the aggregate of a post. A post nobody voted on yet
// gets the zero state.
func (r *PostRepo) GetRatingState(ctx context.Context, postID string) (*model.RatingState, error) {
	st, err := scanRatingState(r.pool.QueryRow(ctx, `SELECT `+ratingColumns+` FROM post_ratings WHERE post_id = $1`, postID))
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if _, err := r.FindPost(ctx, postID); err != nil {
		return nil, err
	}
	zero := model.NewRatingState(postID)
	return &zero, nil
}

func scanRatingState(row pgx.Row) (*model.RatingState, error) {
	var (
		st      model.RatingState
		buckets []int64
	)
	err := row.Scan(&st.PostID, &buckets, &st.WeightedSum, &st.TotalWeight, &st.Count,
		&st.AverageRating, &st.WeightedRating, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	copy(st.Buckets[:], buckets)
	return &st, nil
}

func writeRatingState(ctx context.Context, tx pgx.Tx, st *model.RatingState) error {
	_, err := tx.Exec(ctx, `
		UPDATE post_ratings
		SET buckets = $2, weighted_sum = $3, total_weight = $4, vote_count = $5,
		    average_rating = $6, weighted_rating = $7, updated_at = $8
		WHERE post_id = $1`,
		st.PostID, st.Buckets[:], st.WeightedSum, st.TotalWeight, st.Count,
		st.AverageRating, st.WeightedRating, st.UpdatedAt)
	return err
}
