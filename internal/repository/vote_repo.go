package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathieu-neron/postrate/internal/model"
)

const uniqueViolation = "23505"

type VoteRepo struct {
	pool *pgxpool.Pool
}

func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

// RecordVote performs the duplicate check, the vote insert, the aggregate
// update and the voter profile update in one transaction.
//
// The post_ratings row is locked FOR UPDATE before the duplicate check, so two
// votes on the same post are serialized while votes on other posts proceed.
// The voter row is locked second. The partial unique indexes on votes catch
// anything that slips past the check.
func (r *VoteRepo) RecordVote(ctx context.Context, vote *model.Vote) (*model.RecordResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, aggregateErr("begin", err)
	}
	defer tx.Rollback(ctx)

	// Lazily create the aggregate row; no row is created for unknown posts.
	_, err = tx.Exec(ctx, `
		INSERT INTO post_ratings (post_id)
		SELECT post_id FROM posts WHERE post_id = $1
		ON CONFLICT (post_id) DO NOTHING`,
		vote.PostID)
	if err != nil {
		return nil, aggregateErr("ensure aggregate", err)
	}

	state, err := scanRatingState(tx.QueryRow(ctx,
		`SELECT `+ratingColumns+` FROM post_ratings WHERE post_id = $1 FOR UPDATE`, vote.PostID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, aggregateErr("lock aggregate", err)
	}

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM votes
			WHERE post_id = $1 AND (ip_hash = $2 OR ($3::text IS NOT NULL AND voter_id = $3))
		)`,
		vote.PostID, vote.IPHash, vote.VoterID).Scan(&exists)
	if err != nil {
		return nil, aggregateErr("duplicate check", err)
	}
	if exists {
		return nil, model.ErrDuplicateVote
	}

	var voter *model.VoterProfile
	if vote.VoterID != nil {
		voter, err = scanVoter(tx.QueryRow(ctx,
			`SELECT `+voterColumns+` FROM users WHERE user_id = $1 FOR UPDATE`, *vote.VoterID))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrVoterNotFound
		}
		if err != nil {
			return nil, aggregateErr("lock voter", err)
		}
	}

	v := *vote
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	v.IsOutlier = state.IsOutlier(v.Rating)

	_, err = tx.Exec(ctx, `
		INSERT INTO votes (id, post_id, voter_id, ip_hash, rating, weight, base_weight,
		                   demographic_weight, pattern_weight, context, is_outlier, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		v.ID, v.PostID, v.VoterID, v.IPHash, v.Rating, v.Weight, v.BaseWeight,
		v.DemographicWeight, v.PatternWeight, string(v.Context), v.IsOutlier, v.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, model.ErrDuplicateVote
		}
		return nil, aggregateErr("insert vote", err)
	}

	state.Apply(v.Rating, v.Weight)
	state.UpdatedAt = v.CreatedAt
	if err := writeRatingState(ctx, tx, state); err != nil {
		return nil, aggregateErr("update aggregate", err)
	}

	if voter != nil {
		voter.ApplyVote(v.Rating, v.CreatedAt)
		if err := updateVoterStats(ctx, tx, voter); err != nil {
			return nil, aggregateErr("update voter", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, aggregateErr("commit", err)
	}
	return &model.RecordResult{Vote: v, State: *state, Voter: voter}, nil
}

// ListVotes returns every vote on a post in insertion order.
func (r *VoteRepo) ListVotes(ctx context.Context, postID string) ([]model.Vote, error) {
	return listVotes(ctx, r.pool, postID)
}

// ReconcileRatingState rebuilds a post aggregate from its vote records under
// the same row lock RecordVote takes, and stores the rebuilt state.
func (r *VoteRepo) ReconcileRatingState(ctx context.Context, postID string) (model.RatingState, model.RatingState, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.RatingState{}, model.RatingState{}, err
	}
	defer tx.Rollback(ctx)

	before, err := scanRatingState(tx.QueryRow(ctx,
		`SELECT `+ratingColumns+` FROM post_ratings WHERE post_id = $1 FOR UPDATE`, postID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RatingState{}, model.RatingState{}, model.ErrPostNotFound
	}
	if err != nil {
		return model.RatingState{}, model.RatingState{}, err
	}

	votes, err := listVotes(ctx, tx, postID)
	if err != nil {
		return model.RatingState{}, model.RatingState{}, err
	}

	after := model.RebuildRatingState(postID, votes)
	after.UpdatedAt = before.UpdatedAt
	if !after.Equal(*before, 0) {
		if err := writeRatingState(ctx, tx, &after); err != nil {
			return model.RatingState{}, model.RatingState{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.RatingState{}, model.RatingState{}, err
	}
	return *before, after, nil
}

// ListPostIDsWithVotes returns every post that has at least one vote.
func (r *VoteRepo) ListPostIDsWithVotes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT post_id FROM post_ratings WHERE vote_count > 0 ORDER BY post_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listVotes(ctx context.Context, q querier, postID string) ([]model.Vote, error) {
	rows, err := q.Query(ctx, `
		SELECT id, post_id, voter_id, ip_hash, rating, weight, base_weight, demographic_weight,
		       pattern_weight, context, is_outlier, created_at
		FROM votes
		WHERE post_id = $1
		ORDER BY created_at, id`,
		postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []model.Vote
	for rows.Next() {
		var (
			v       model.Vote
			voteCtx string
		)
		if err := rows.Scan(&v.ID, &v.PostID, &v.VoterID, &v.IPHash, &v.Rating, &v.Weight,
			&v.BaseWeight, &v.DemographicWeight, &v.PatternWeight, &voteCtx, &v.IsOutlier,
			&v.CreatedAt); err != nil {
			return nil, err
		}
		v.Context = model.VoteContext(voteCtx)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func aggregateErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", model.ErrAggregateUpdate, op, err)
}
