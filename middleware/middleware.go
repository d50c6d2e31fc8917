package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"postfeed/apperr"
	"postfeed/globals"
	"postfeed/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

// JWT claims
type Claims struct {
	Email  string `json:"email"`
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Verifier turns a bearer token into the id of the user it was issued to.
type Verifier interface {
	Verify(token string) (string, error)
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign issues an HS256 token for the user.
func (m *TokenManager) Sign(userID, email string) (string, error) {
	now := m.now()
	claims := &Claims{
		Email:  email,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *TokenManager) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.UserID == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.UserID, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", apperr.Unauthenticated("Not authenticated.")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", apperr.Unauthenticated("Invalid token format.")
	}
	return token, nil
}

// Authenticate rejects the request with 401 unless it carries a valid bearer
// token, and stores the token's user id in the request context.
func Authenticate(v Verifier) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			token, err := bearerToken(r)
			if err != nil {
				utils.SendError(w, r, err)
				return
			}
			userID, err := v.Verify(token)
			if err != nil {
				utils.SendError(w, r, apperr.Unauthenticated("Not authenticated."))
				return
			}
			ctx := context.WithValue(r.Context(), globals.UserIDKey, userID)
			next(w, r.WithContext(ctx), ps)
		}
	}
}

// OptionalAuth attaches the user id when a valid token is present and
// proceeds regardless.
func OptionalAuth(v Verifier) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			if token, err := bearerToken(r); err == nil {
				if userID, err := v.Verify(token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), globals.UserIDKey, userID))
				}
			}
			next(w, r, ps)
		}
	}
}
