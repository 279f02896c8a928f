package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathieu-neron/postrate/internal/model"
)

type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

// AppendActivity inserts one audit trail row. details is stored as JSONB.
func (r *ActivityRepo) AppendActivity(ctx context.Context, a model.Activity) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activity_log (user_id, action_type, details)
		VALUES ($1, $2, $3)`,
		a.UserID, a.ActionType, a.Details)
	return err
}
