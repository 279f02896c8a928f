package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store bundles the Postgres repositories behind one value.
type Store struct {
	*PostRepo
	*UserRepo
	*VoteRepo
	*ActivityRepo

	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		PostRepo:     NewPostRepo(pool),
		UserRepo:     NewUserRepo(pool),
		VoteRepo:     NewVoteRepo(pool),
		ActivityRepo: NewActivityRepo(pool),
		pool:         pool,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Pool exposes the connection pool for pool-level metrics.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
