package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/iliyamo/account-service/internal/model"
)

func TestPatchDocumentFieldNames(t *testing.T) {
	email, hash := " New@B.com", "h"
	on := true
	now := time.Now().UTC()

	got := patchDocument(model.UserPatch{Email: &email, PasswordHash: &hash, EmailNotifications: &on}, now)

	assert.Equal(t, bson.D{
		{Key: "email", Value: "new@b.com"},
		{Key: "password", Value: "h"},
		{Key: "emailNotifications", Value: true},
		{Key: "updatedAt", Value: now},
	}, got)
}

func TestUserDocumentToModel(t *testing.T) {
	oid := bson.NewObjectID()
	doc := userDocument{ID: oid, Email: "a@b.com", PasswordHash: "h", Roles: []string{"user"}}

	u := doc.toModel()

	assert.Equal(t, oid.Hex(), u.ID)
	assert.Equal(t, "h", u.PasswordHash)
	assert.Equal(t, []string{"user"}, u.Roles)
}

func TestMongoUserRepoRejectsMalformedID(t *testing.T) {
	// A malformed id can never match a document, so it short-circuits before
	// touching the collection.
	r := &MongoUserRepo{}

	_, err := r.FindByID(context.Background(), "not-an-object-id")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = r.UpdateByID(context.Background(), "not-an-object-id", model.UserPatch{})
	require.ErrorIs(t, err, ErrNotFound)
}
