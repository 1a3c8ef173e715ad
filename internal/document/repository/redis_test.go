package repository

import (
	"context"
	"errors"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/jsonstash/jsonstash/internal/document"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisMirror_PutGetDelete(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	mirror := NewRedisMirror(client, "test:doc:")

	repo := NewMemoryRepo()
	entry, err := repo.Put("user_20240102_030405", map[string]any{"user": map[string]any{"name": "Ann"}})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, mirror.Put(ctx, entry))

	raw, err := m.Get("test:doc:user_20240102_030405")
	require.NoError(t, err)
	require.Equal(t, string(entry.Body), raw)

	got, err := mirror.Get(ctx, "user_20240102_030405")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"user": map[string]any{"name": "Ann"}}, got)

	require.NoError(t, mirror.Delete(ctx, "user_20240102_030405"))
	require.False(t, m.Exists("test:doc:user_20240102_030405"))

	_, err = mirror.Get(ctx, "user_20240102_030405")
	require.True(t, errors.Is(err, document.ErrNotFound))
}

func TestRedisMirror_DefaultPrefix(t *testing.T) {
	mirror := NewRedisMirror(nil, "")
	require.Equal(t, "doc:k", mirror.key("k"))
	require.Equal(t, "redis", mirror.Name())
}
