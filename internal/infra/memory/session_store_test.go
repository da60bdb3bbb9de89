package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"quiz-rush-service/internal/app"
	"quiz-rush-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	first := app.NewSession(domain.Player{ID: "u1"}, nil)
	require.Nil(t, store.Put(first))

	got, ok := store.Get("u1")
	require.True(t, ok)
	require.Same(t, first, got)

	second := app.NewSession(domain.Player{ID: "u1"}, nil)
	require.Same(t, first, store.Put(second))

	store.Delete(first)
	_, ok = store.Get("u1")
	require.True(t, ok, "stale delete must keep the replacement")

	store.Delete(second)
	_, ok = store.Get("u1")
	require.False(t, ok)
	online, err := store.Online(context.Background())
	require.NoError(t, err)
	require.Zero(t, online)
}
