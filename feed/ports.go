package feed

import (
	"context"

	"postfeed/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostStore interface {
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, skip, limit int64) ([]models.FeedPost, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	Insert(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	AddPost(ctx context.Context, userID, postID primitive.ObjectID) error
	RemovePost(ctx context.Context, userID, postID primitive.ObjectID) error
}

// ImageStore removes stored image files. Removal is best-effort and never
// reports failure to the caller.
type ImageStore interface {
	Remove(ref string)
}

// Notifier pushes a payload to every listener of channel.
type Notifier interface {
	Emit(ctx context.Context, channel string, payload any) error
}
