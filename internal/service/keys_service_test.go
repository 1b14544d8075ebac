package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/maheshrc27/tupae-api/internal/models"
	"github.com/maheshrc27/tupae-api/internal/repository"
	"github.com/maheshrc27/tupae-api/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKeyRepo struct {
	keys   []*models.ApiKey
	nextID int64
}

func (r *fakeKeyRepo) GetUserIDByKey(_ context.Context, apiKey string) (int64, bool, error) {
	for _, k := range r.keys {
		if k.Key == apiKey {
			return k.UserID, true, nil
		}
	}
	return 0, false, nil
}

func (r *fakeKeyRepo) GetByUserID(_ context.Context, userID int64) ([]*models.ApiKey, error) {
	var out []*models.ApiKey
	for _, k := range r.keys {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *fakeKeyRepo) Create(_ context.Context, apiKey *models.ApiKey) (int64, error) {
	r.nextID++
	stored := *apiKey
	stored.ID = r.nextID
	r.keys = append(r.keys, &stored)
	return r.nextID, nil
}

func (r *fakeKeyRepo) TouchLastUsed(_ context.Context, apiKey string, at time.Time) error {
	for _, k := range r.keys {
		if k.Key == apiKey {
			k.LastUsedAt = &at
		}
	}
	return nil
}

func (r *fakeKeyRepo) RemoveForUser(_ context.Context, keyID, userID int64) error {
	for i, k := range r.keys {
		if k.ID == keyID && k.UserID == userID {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func TestApiKeyService_CreateListResolve(t *testing.T) {
	repo := &fakeKeyRepo{}
	svc := NewApiKeyService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, owner, &transfer.ApiKeyCreation{Name: " ci "})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "ci", created.Name)
	assert.True(t, strings.HasPrefix(created.Key, "tp_"))

	keys, err := svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "****"+created.Key[len(created.Key)-4:], keys[0].Key)

	userID, err := svc.GetUserID(ctx, created.Key)
	require.NoError(t, err)
	assert.Equal(t, owner, userID)
	assert.NotNil(t, repo.keys[0].LastUsedAt)

	_, err = svc.GetUserID(ctx, "tp_unknown")
	assert.ErrorIs(t, err, ErrInvalidApiKey)
}

func TestApiKeyService_Limit(t *testing.T) {
	svc := NewApiKeyService(&fakeKeyRepo{})
	ctx := context.Background()

	for i := 0; i < maxApiKeysPerUser; i++ {
		_, err := svc.Create(ctx, owner, nil)
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, owner, nil)
	assert.ErrorAs(t, err, new(*ConflictError))

	_, err = svc.Create(ctx, intruder, &transfer.ApiKeyCreation{Name: strings.Repeat("x", 65)})
	requireValidation(t, err, "name", "")
}

func TestApiKeyService_Remove(t *testing.T) {
	svc := NewApiKeyService(&fakeKeyRepo{})
	ctx := context.Background()
	created, err := svc.Create(ctx, owner, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Remove(ctx, intruder, created.ID), ErrNotFound)
	requireValidation(t, svc.Remove(ctx, owner, 0), "id", "")
	require.NoError(t, svc.Remove(ctx, owner, created.ID))

	keys, err := svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
