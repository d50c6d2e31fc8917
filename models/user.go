package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultStatus = "I am new!"

type User struct {
	ID        primitive.ObjectID   `json:"_id" bson:"_id"`
	Email     string               `json:"email" bson:"email"`
	Password  string               `json:"-" bson:"password"`
	Name      string               `json:"name" bson:"name"`
	Status    string               `json:"status" bson:"status"`
	Posts     []primitive.ObjectID `json:"posts" bson:"posts"`
	CreatedAt time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt" bson:"updatedAt"`
}

func (u *User) Summary() Creator {
	return Creator{ID: u.ID, Name: u.Name}
}
