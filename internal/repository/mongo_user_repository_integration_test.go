//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/iliyamo/account-service/internal/database"
	"github.com/iliyamo/account-service/internal/model"
)

func newMongoRepo(t *testing.T) *MongoUserRepo {
	t.Helper()
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	client, err := database.OpenMongo(uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	repo := NewMongoUserRepo(client.Database("accounts_test"))
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo
}

func TestMongoUserRepoUniqueEmail(t *testing.T) {
	repo := newMongoRepo(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, model.User{Email: "a@b.com", PasswordHash: "h"})
	require.NoError(t, err)
	assert.Equal(t, []string{model.DefaultRole}, a.Roles)

	_, err = repo.Create(ctx, model.User{Email: " A@B.com ", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrConflict)

	b, err := repo.Create(ctx, model.User{Email: "c@d.com", PasswordHash: "h"})
	require.NoError(t, err)
	taken := "a@b.com"
	_, err = repo.UpdateByID(ctx, b.ID, model.UserPatch{Email: &taken})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "c@d.com", got.Email)
}

func TestMongoUserRepoUpdateReturnsNewDocument(t *testing.T) {
	repo := newMongoRepo(t)
	ctx := context.Background()
	u, err := repo.Create(ctx, model.User{Email: "a@b.com", PasswordHash: "old", EmailNotifications: true})
	require.NoError(t, err)

	hash, off := "new", false
	got, err := repo.UpdateByID(ctx, u.ID, model.UserPatch{PasswordHash: &hash, EmailNotifications: &off})
	require.NoError(t, err)
	assert.Equal(t, "new", got.PasswordHash)
	assert.False(t, got.EmailNotifications)

	byEmail, err := repo.FindByEmail(ctx, "A@b.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = repo.UpdateByID(ctx, "0123456789abcdef01234567", model.UserPatch{PasswordHash: &hash})
	assert.ErrorIs(t, err, ErrNotFound)
}
