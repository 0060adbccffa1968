package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

// typeNameCacheTTL bounds staleness of cached names; the static data export
// changes rarely.
const typeNameCacheTTL = 24 * time.Hour

// InvTypeRepository resolves item type names for notification text, with a
// Redis read-through cache in front of the static data table.
type InvTypeRepository struct {
	db    *PostgresDB
	cache *RedisCache
}

// NewInvTypeRepository creates a new inv type repository. cache may be nil,
// in which case every lookup hits Postgres.
func NewInvTypeRepository(db *PostgresDB, cache *RedisCache) *InvTypeRepository {
	return &InvTypeRepository{db: db, cache: cache}
}

// TypeName returns the display name for a type id, or empty when unknown
func (r *InvTypeRepository) TypeName(ctx context.Context, typeID int64) (string, error) {
	cacheKey := fmt.Sprintf("invtype:name:%d", typeID)

	if r.cache != nil {
		name, err := r.cache.Get(ctx, cacheKey)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, redis.Nil) {
			// Cache trouble is not fatal; fall through to Postgres.
			return r.typeNameFromDB(ctx, typeID)
		}
	}

	name, err := r.typeNameFromDB(ctx, typeID)
	if err != nil {
		return "", err
	}

	if r.cache != nil && name != "" {
		_ = r.cache.Set(ctx, cacheKey, name, typeNameCacheTTL) // nolint:errcheck // best-effort cache fill
	}
	return name, nil
}

func (r *InvTypeRepository) typeNameFromDB(ctx context.Context, typeID int64) (string, error) {
	query := `SELECT type_name FROM inv_types WHERE type_id = $1`

	var name string
	err := r.db.Pool().QueryRow(ctx, query, typeID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get type name: %w", err)
	}
	return name, nil
}
