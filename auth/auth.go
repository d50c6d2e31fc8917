// Package auth registers users, issues login tokens and manages the
// per-user status line.
package auth

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"
	"unicode/utf8"

	"postfeed/apperr"
	"postfeed/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost        = 12
	minPasswordLength = 5
	maxPasswordBytes  = 72
)

type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	SetStatus(ctx context.Context, userID primitive.ObjectID, status string) error
}

// Signer issues bearer tokens.
type Signer interface {
	Sign(userID, email string) (string, error)
}

type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type Service struct {
	users  UserStore
	tokens Signer
	cost   int
}

func NewService(users UserStore, tokens Signer) *Service {
	return &Service{users: users, tokens: tokens, cost: bcryptCost}
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (primitive.ObjectID, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	in.Name = strings.TrimSpace(in.Name)

	var fields []apperr.FieldError
	if _, err := mail.ParseAddress(in.Email); err != nil || strings.ContainsAny(in.Email, "<> ") {
		fields = append(fields, apperr.FieldError{Field: "email", Message: "Please enter a valid email."})
	} else {
		_, err := s.users.FindByEmail(ctx, in.Email)
		switch {
		case err == nil:
			fields = append(fields, apperr.FieldError{Field: "email", Message: "Email already exists."})
		case !errors.Is(err, apperr.ErrNotFound):
			return primitive.NilObjectID, apperr.Internal("Looking up user failed.", err)
		}
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLength {
		fields = append(fields, apperr.FieldError{Field: "password", Message: "Password must be at least 5 characters."})
	} else if len(in.Password) > maxPasswordBytes {
		// bcrypt only hashes the first 72 bytes
		fields = append(fields, apperr.FieldError{Field: "password", Message: "Password must be at most 72 bytes."})
	}
	if in.Name == "" {
		fields = append(fields, apperr.FieldError{Field: "name", Message: "Name must not be empty."})
	}
	if len(fields) > 0 {
		return primitive.NilObjectID, apperr.Validation("Validation failed.", fields...)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return primitive.NilObjectID, apperr.Internal("Hashing password failed.", err)
	}

	user := &models.User{
		ID:       primitive.NewObjectID(),
		Email:    in.Email,
		Password: string(hash),
		Name:     in.Name,
		Status:   models.DefaultStatus,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrDuplicateEmail) {
			return primitive.NilObjectID, apperr.Validation("Validation failed.",
				apperr.FieldError{Field: "email", Message: "Email already exists."})
		}
		return primitive.NilObjectID, apperr.Internal("Creating user failed.", err)
	}

	log.Printf("[Auth] User created! id=%s", user.ID.Hex())
	return user.ID, nil
}

// Login checks the credentials and returns a signed token with the user id.
func (s *Service) Login(ctx context.Context, email, password string) (string, primitive.ObjectID, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, apperr.ErrNotFound) {
		return "", primitive.NilObjectID, apperr.Unauthenticated("A user with this email could not be found.")
	}
	if err != nil {
		return "", primitive.NilObjectID, apperr.Internal("Looking up user failed.", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", primitive.NilObjectID, apperr.Unauthenticated("Wrong password!")
	}

	token, err := s.tokens.Sign(user.ID.Hex(), user.Email)
	if err != nil {
		return "", primitive.NilObjectID, apperr.Internal("Failed to generate token", err)
	}
	return token, user.ID, nil
}

func (s *Service) GetStatus(ctx context.Context, userID primitive.ObjectID) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", apperr.NotFound("User not found.")
	}
	if err != nil {
		return "", apperr.Internal("Looking up user failed.", err)
	}
	return user.Status, nil
}

func (s *Service) UpdateStatus(ctx context.Context, userID primitive.ObjectID, status string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return apperr.Validation("Validation failed.",
			apperr.FieldError{Field: "status", Message: "Status must not be empty."})
	}

	err := s.users.SetStatus(ctx, userID, status)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFound("User not found.")
	}
	if err != nil {
		return apperr.Internal("Updating status failed.", err)
	}
	return nil
}
