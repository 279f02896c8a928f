package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathieu-neron/postrate/internal/model"
)

const voterColumns = `user_id, is_verified, created_at, comment_count, photo_count, total_spent,
	total_votes_given, voting_streak, last_active_at, average_rating_given, voting_pattern,
	gender, orientation, date_of_birth`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// FindVoter returns the trust profile of a user, or model.ErrVoterNotFound.
func (r *UserRepo) FindVoter(ctx context.Context, userID string) (*model.VoterProfile, error) {
	p, err := scanVoter(r.pool.QueryRow(ctx, `SELECT `+voterColumns+` FROM users WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrVoterNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RecentRatings returns the ratings a user gave since the given instant, oldest first.
func (r *UserRepo) RecentRatings(ctx context.Context, userID string, since time.Time) ([]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rating FROM votes
		WHERE voter_id = $1 AND created_at >= $2
		ORDER BY created_at`,
		userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}

func scanVoter(row pgx.Row) (*model.VoterProfile, error) {
	var (
		p          model.VoterProfile
		lastActive *time.Time
		pattern    string
		gender     string
		orient     string
	)
	err := row.Scan(
		&p.UserID, &p.IsVerified, &p.CreatedAt, &p.CommentCount, &p.PhotoCount, &p.TotalSpent,
		&p.TotalVotesGiven, &p.VotingStreak, &lastActive, &p.AverageRatingGiven, &pattern,
		&gender, &orient, &p.DateOfBirth,
	)
	if err != nil {
		return nil, err
	}
	if lastActive != nil {
		p.LastActiveAt = *lastActive
	}
	p.VotingPattern = model.VotingPattern(pattern)
	p.Gender = model.Gender(gender)
	p.Orientation = model.Orientation(orient)
	return &p, nil
}

// updateVoterStats writes back the fields the profile updater owns.
func updateVoterStats(ctx context.Context, tx pgx.Tx, p *model.VoterProfile) error {
	_, err := tx.Exec(ctx, `
		UPDATE users
		SET total_votes_given = $2, average_rating_given = $3, voting_pattern = $4,
		    voting_streak = $5, last_active_at = $6
		WHERE user_id = $1`,
		p.UserID, p.TotalVotesGiven, p.AverageRatingGiven, string(p.VotingPattern),
		p.VotingStreak, p.LastActiveAt)
	return err
}
