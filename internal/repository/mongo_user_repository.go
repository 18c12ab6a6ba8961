package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/account-service/internal/model"
)

// UsersCollection is the collection holding user documents.
const UsersCollection = "users"

// userDocument is the stored shape of a user in MongoDB.
type userDocument struct {
	ID                 bson.ObjectID `bson:"_id,omitempty"`
	Name               string        `bson:"name"`
	FirstName          string        `bson:"firstName"`
	LastName           string        `bson:"lastName"`
	Email              string        `bson:"email"`
	PasswordHash       string        `bson:"password"`
	DateOfBirth        *time.Time    `bson:"dateOfBirth,omitempty"`
	PhoneNo            string        `bson:"phoneNo,omitempty"`
	Roles              []string      `bson:"role"`
	EmailNotifications bool          `bson:"emailNotifications"`
	CreatedAt          time.Time     `bson:"createdAt"`
	UpdatedAt          time.Time     `bson:"updatedAt"`
}

func (d userDocument) toModel() model.User {
	return model.User{
		ID:                 d.ID.Hex(),
		Name:               d.Name,
		FirstName:          d.FirstName,
		LastName:           d.LastName,
		Email:              d.Email,
		PasswordHash:       d.PasswordHash,
		DateOfBirth:        d.DateOfBirth,
		PhoneNo:            d.PhoneNo,
		Roles:              d.Roles,
		EmailNotifications: d.EmailNotifications,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

// MongoUserRepo is the MongoDB-backed UserStore.
type MongoUserRepo struct{ coll *mongo.Collection }

func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{coll: db.Collection(UsersCollection)}
}

// EnsureIndexes creates the unique email index. It must run before the
// store serves writes; uniqueness is not checked anywhere else.
func (r *MongoUserRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uq_users_email"),
	})
	if err != nil {
		return fmt.Errorf("create email index: %w", err)
	}
	return nil
}

func (r *MongoUserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	roles := model.NormalizeRoles(u.Roles)
	if len(roles) == 0 {
		roles = []string{model.DefaultRole}
	}
	now := time.Now().UTC()
	doc := userDocument{
		ID:                 bson.NewObjectID(),
		Name:               u.Name,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		Email:              model.NormalizeEmail(u.Email),
		PasswordHash:       u.PasswordHash,
		DateOfBirth:        u.DateOfBirth,
		PhoneNo:            u.PhoneNo,
		Roles:              roles,
		EmailNotifications: u.EmailNotifications,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.User{}, ErrConflict
		}
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: model.NormalizeEmail(email)}})
}

func (r *MongoUserRepo) FindByID(ctx context.Context, id string) (model.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return model.User{}, ErrNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (r *MongoUserRepo) UpdateByID(ctx context.Context, id string, patch model.UserPatch) (model.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return model.User{}, ErrNotFound
	}
	update := bson.D{{Key: "$set", Value: patchDocument(patch, time.Now().UTC())}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	err = r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update, opts).Decode(&doc)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return model.User{}, ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return model.User{}, ErrConflict
	case err != nil:
		return model.User{}, fmt.Errorf("update user: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.D) (model.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	return doc.toModel(), nil
}

// patchDocument renders the $set document for patch using the stored field
// names.
func patchDocument(p model.UserPatch, now time.Time) bson.D {
	set := bson.D{}
	add := func(key string, v any) { set = append(set, bson.E{Key: key, Value: v}) }
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.FirstName != nil {
		add("firstName", *p.FirstName)
	}
	if p.LastName != nil {
		add("lastName", *p.LastName)
	}
	if p.Email != nil {
		add("email", model.NormalizeEmail(*p.Email))
	}
	if p.PasswordHash != nil {
		add("password", *p.PasswordHash)
	}
	if p.DateOfBirth != nil {
		add("dateOfBirth", *p.DateOfBirth)
	}
	if p.PhoneNo != nil {
		add("phoneNo", *p.PhoneNo)
	}
	if p.EmailNotifications != nil {
		add("emailNotifications", *p.EmailNotifications)
	}
	add("updatedAt", now)
	return set
}
