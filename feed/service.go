package feed

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"postfeed/apperr"
	"postfeed/filemgr"
	"postfeed/globals"
	"postfeed/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPageSize = 2
	minTextLength   = 5
)

// PostInput carries the writable fields of a post. Upload is the reference
// of a file stored while handling this request and wins over ImageURL.
type PostInput struct {
	Title    string
	Content  string
	ImageURL string
	Upload   string
}

type Page struct {
	Posts      []models.FeedPost
	TotalItems int64
}

type Service struct {
	posts    PostStore
	users    UserStore
	images   ImageStore
	bus      Notifier
	pageSize int64
	now      func() time.Time
}

func NewService(posts PostStore, users UserStore, images ImageStore, bus Notifier, pageSize int) *Service {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Service{
		posts:    posts,
		users:    users,
		images:   images,
		bus:      bus,
		pageSize: int64(pageSize),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ListPosts(ctx context.Context, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}

	total, err := s.posts.Count(ctx)
	if err != nil {
		return nil, apperr.Internal("Fetching posts failed.", err)
	}
	posts, err := s.posts.List(ctx, int64(page-1)*s.pageSize, s.pageSize)
	if err != nil {
		return nil, apperr.Internal("Fetching posts failed.", err)
	}
	if posts == nil {
		posts = []models.FeedPost{}
	}
	return &Page{Posts: posts, TotalItems: total}, nil
}

func (s *Service) CreatePost(ctx context.Context, userID primitive.ObjectID, in PostInput) (*models.Post, models.Creator, error) {
	if fields := validate(&in); len(fields) > 0 {
		s.discard(in.Upload)
		return nil, models.Creator{}, apperr.Validation("Validation failed, entered data is incorrect.", fields...)
	}
	if in.Upload == "" {
		return nil, models.Creator{}, apperr.Validation("No file provided.")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.discard(in.Upload)
		return nil, models.Creator{}, lookupErr(err, "User not found.")
	}

	now := s.now()
	post := &models.Post{
		ID:        primitive.NewObjectID(),
		Title:     in.Title,
		Content:   in.Content,
		ImageURL:  filemgr.NormalizeRef(in.Upload),
		Creator:   user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.Insert(ctx, post); err != nil {
		s.discard(in.Upload)
		return nil, models.Creator{}, apperr.Internal("Creating post failed.", err)
	}

	if err := s.users.AddPost(ctx, user.ID, post.ID); err != nil {
		// undo the insert so no post exists without its owner knowing it
		if cerr := s.posts.Delete(context.WithoutCancel(ctx), post.ID); cerr != nil {
			log.Printf("[Feed] compensation failed, post %s left without owner link: %v", post.ID.Hex(), cerr)
		}
		s.discard(in.Upload)
		return nil, models.Creator{}, apperr.Internal("Creating post failed.", err)
	}

	log.Printf("[Feed] Post created! id=%s creator=%s", post.ID.Hex(), user.ID.Hex())
	creator := user.Summary()
	s.emit(ctx, models.PostEvent{Action: models.ActionCreate, Post: post.Announce(creator)})
	return post, creator, nil
}

func (s *Service) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	id, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, apperr.NotFound("Post not found.")
	}
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Post not found.")
	}
	return post, nil
}

func (s *Service) UpdatePost(ctx context.Context, userID primitive.ObjectID, postID string, in PostInput) (*models.Post, error) {
	if fields := validate(&in); len(fields) > 0 {
		s.discard(in.Upload)
		return nil, apperr.Validation("Validation failed, entered data is incorrect.", fields...)
	}

	imageURL := filemgr.NormalizeRef(strings.TrimSpace(in.ImageURL))
	if in.Upload != "" {
		imageURL = filemgr.NormalizeRef(in.Upload)
	}
	if imageURL == "" {
		return nil, apperr.Validation("Problems with the image.")
	}

	post, err := s.GetPost(ctx, postID)
	if err != nil {
		s.discard(in.Upload)
		return nil, err
	}
	if post.Creator != userID {
		s.discard(in.Upload)
		return nil, apperr.Forbidden("Not authorized.")
	}
	// a new image must arrive as an upload; a client path may only keep the current one
	if in.Upload == "" && imageURL != post.ImageURL {
		return nil, apperr.Validation("Problems with the image.",
			apperr.FieldError{Field: "image", Message: "Upload a file to change the image."})
	}

	previous := post.ImageURL
	post.Title = in.Title
	post.Content = in.Content
	post.ImageURL = imageURL
	post.UpdatedAt = s.now()

	if err := s.posts.Update(ctx, post); err != nil {
		s.discard(in.Upload)
		return nil, lookupErr(err, "Post not found.")
	}
	if previous != imageURL {
		s.images.Remove(previous)
	}

	s.emit(ctx, models.PostEvent{Action: models.ActionUpdate, Post: post})
	return post, nil
}

func (s *Service) DeletePost(ctx context.Context, userID primitive.ObjectID, postID string) error {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.Creator != userID {
		return apperr.Forbidden("Not authorized.")
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return lookupErr(err, "Post not found.")
	}

	err = s.users.RemovePost(ctx, userID, post.ID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		log.Printf("[Feed] owner %s of deleted post %s no longer exists", userID.Hex(), post.ID.Hex())
	case err != nil:
		// put the post back so it stays listed on its owner
		if cerr := s.posts.Insert(context.WithoutCancel(ctx), post); cerr != nil {
			log.Printf("[Feed] compensation failed, post %s still linked from user %s: %v", post.ID.Hex(), userID.Hex(), cerr)
		}
		return apperr.Internal("Deleting post failed.", err)
	}

	s.images.Remove(post.ImageURL)
	log.Printf("[Feed] Deleted post. id=%s", post.ID.Hex())
	s.emit(ctx, models.PostEvent{Action: models.ActionDelete, Post: post.ID.Hex()})
	return nil
}

func (s *Service) emit(ctx context.Context, ev models.PostEvent) {
	if err := s.bus.Emit(ctx, globals.PostsChannel, ev); err != nil {
		log.Printf("[Feed] emit %s failed: %v", ev.Action, err)
	}
}

// discard drops a file uploaded for a request that did not persist it.
func (s *Service) discard(upload string) {
	if upload != "" {
		s.images.Remove(upload)
	}
}

func validate(in *PostInput) []apperr.FieldError {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)

	var fields []apperr.FieldError
	if utf8.RuneCountInString(in.Title) < minTextLength {
		fields = append(fields, apperr.FieldError{Field: "title", Message: "Title must be at least 5 characters."})
	}
	if utf8.RuneCountInString(in.Content) < minTextLength {
		fields = append(fields, apperr.FieldError{Field: "content", Message: "Content must be at least 5 characters."})
	}
	return fields
}

func lookupErr(err error, notFound string) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFound(notFound)
	}
	return apperr.Internal("Database operation failed.", err)
}
