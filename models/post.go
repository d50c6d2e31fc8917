package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Post struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Title     string             `json:"title" bson:"title"`
	Content   string             `json:"content" bson:"content"`
	ImageURL  string             `json:"imageUrl" bson:"imageUrl"`
	Creator   primitive.ObjectID `json:"creator" bson:"creator"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Creator is the public summary of a post's owner.
type Creator struct {
	ID   primitive.ObjectID `json:"_id" bson:"_id"`
	Name string             `json:"name" bson:"name"`
}

// FeedPost is a Post with its creator populated.
type FeedPost struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Title     string             `json:"title" bson:"title"`
	Content   string             `json:"content" bson:"content"`
	ImageURL  string             `json:"imageUrl" bson:"imageUrl"`
	Creator   Creator            `json:"creator" bson:"creator"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// WithCreator populates p with c.
func (p *Post) WithCreator(c Creator) FeedPost {
	return FeedPost{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		ImageURL:  p.ImageURL,
		Creator:   c,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// EventCreator is the creator summary carried by the create notification.
type EventCreator struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

// CreatedPost is the post payload of a create notification.
type CreatedPost struct {
	ID        primitive.ObjectID `json:"_id"`
	Title     string             `json:"title"`
	Content   string             `json:"content"`
	ImageURL  string             `json:"imageUrl"`
	Creator   EventCreator       `json:"creator"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Announce builds the create notification payload for p.
func (p *Post) Announce(c Creator) CreatedPost {
	return CreatedPost{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		ImageURL:  p.ImageURL,
		Creator:   EventCreator{ID: c.ID, Name: c.Name},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
