package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/council-portal-api/internal/models"
)

func TestDraftRepositoryMemoryRoundTrip(t *testing.T) {
	repo := NewDraftRepository(nil, time.Hour)
	ctx := context.Background()

	_, found, err := repo.Get(ctx, "u1", models.TableEvents)
	require.NoError(t, err)
	assert.False(t, found)

	draft := models.NewDraft(models.TableEvents)
	draft.Event.Title = "Expo"
	require.NoError(t, repo.Save(ctx, "u1", &draft))

	got, found, err := repo.Get(ctx, "u1", models.TableEvents)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Expo", got.Event.Title)

	_, found, err = repo.Get(ctx, "u2", models.TableEvents)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Delete(ctx, "u1", models.TableEvents))
	_, found, err = repo.Get(ctx, "u1", models.TableEvents)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDraftRepositoryMemoryExpiry(t *testing.T) {
	repo := NewDraftRepository(nil, time.Minute)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	draft := models.NewDraft(models.TableNotices)
	require.NoError(t, repo.Save(context.Background(), "u1", &draft))

	now = now.Add(2 * time.Minute)
	_, found, err := repo.Get(context.Background(), "u1", models.TableNotices)
	require.NoError(t, err)
	assert.False(t, found)
}
