package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiwari-pos/opsdash/internal/persist"
)

// openStore connects to PostgreSQL and makes sure the document table
// exists. The caller closes the returned pool.
func openStore(ctx context.Context, dbURL string) (*persist.Store, *pgxpool.Pool, error) {
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database url is required (--database-url or DATABASE_URL)")
	}
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	store := persist.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool, nil
}

func parseStoreID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid store id: %w", err)
	}
	return id, nil
}
