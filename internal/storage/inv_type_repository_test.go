package storage

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeNameServedFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	require.NoError(t, mr.Set("invtype:name:34", "Tritanium"))

	// A cache hit never reaches Postgres, so no database is needed.
	repo := NewInvTypeRepository(nil, cache)
	name, err := repo.TypeName(testContext(t), 34)
	require.NoError(t, err)
	assert.Equal(t, "Tritanium", name)
}

func TestTypeNameFillsCacheFromDB(t *testing.T) {
	db := testPostgres(t)
	mr := miniredis.RunT(t)
	cache := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	ctx := testContext(t)
	_, err := db.Pool().Exec(ctx,
		`INSERT INTO inv_types (type_id, type_name, group_id) VALUES (35, 'Pyerite', 18)
		 ON CONFLICT (type_id) DO UPDATE SET type_name = EXCLUDED.type_name`)
	require.NoError(t, err)

	repo := NewInvTypeRepository(db, cache)
	name, err := repo.TypeName(ctx, 35)
	require.NoError(t, err)
	assert.Equal(t, "Pyerite", name)

	cached, getErr := mr.Get("invtype:name:35")
	require.NoError(t, getErr)
	assert.Equal(t, "Pyerite", cached)
}
