package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmadash/internal/engine"
	"pharmadash/internal/models"
)

var noFetch = engine.FetchFunc[models.Record](func(context.Context, string) ([]models.Record, error) {
	return nil, nil
})

func TestSessionStoreLifecycle(t *testing.T) {
	s := NewSessionStore(noFetch, time.Hour)
	u := s.Create()
	assert.Equal(t, 1, s.Len())

	got, err := s.Get(u.ID)
	require.NoError(t, err)
	assert.Same(t, u, got)

	for _, name := range []string{ViewDrugs, ViewCompany} {
		v, err := got.view(name)
		require.NoError(t, err)
		assert.NotNil(t, v)
	}
	_, err = got.view("charts")
	assert.ErrorIs(t, err, ErrUnknownView)

	_, err = s.Get("not-a-uuid")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.True(t, s.Delete(u.ID))
	assert.False(t, s.Delete(u.ID))
	assert.Zero(t, s.Len())
}

func TestSessionStoreSweep(t *testing.T) {
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	s := NewSessionStore(noFetch, 30*time.Minute)
	s.now = func() time.Time { return now }

	idle := s.Create()
	now = now.Add(20 * time.Minute)
	active := s.Create()

	now = now.Add(15 * time.Minute)
	_, err := s.Get(active.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Sweep())
	_, err = s.Get(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.Get(active.ID)
	assert.NoError(t, err)
}
