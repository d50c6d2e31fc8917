package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"postfeed/apperr"
	"postfeed/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserRepo struct {
	coll *mongo.Collection
}

func NewUserRepo(coll *mongo.Collection) *UserRepo {
	return &UserRepo{coll: coll}
}

func (u *UserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var user models.User
	err := u.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (u *UserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return u.findOne(ctx, bson.M{"_id": id})
}

func (u *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return u.findOne(ctx, bson.M{"email": email})
}

func (u *UserRepo) Insert(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Posts == nil {
		user.Posts = []primitive.ObjectID{}
	}

	if _, err := u.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (u *UserRepo) update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	update["$set"] = mergeSet(update["$set"], bson.M{"updatedAt": time.Now().UTC()})
	res, err := u.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update user %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (u *UserRepo) AddPost(ctx context.Context, userID, postID primitive.ObjectID) error {
	return u.update(ctx, userID, bson.M{"$addToSet": bson.M{"posts": postID}})
}

func (u *UserRepo) RemovePost(ctx context.Context, userID, postID primitive.ObjectID) error {
	return u.update(ctx, userID, bson.M{"$pull": bson.M{"posts": postID}})
}

func (u *UserRepo) SetStatus(ctx context.Context, userID primitive.ObjectID, status string) error {
	return u.update(ctx, userID, bson.M{"$set": bson.M{"status": status}})
}

func mergeSet(existing any, extra bson.M) bson.M {
	out := bson.M{}
	if m, ok := existing.(bson.M); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
