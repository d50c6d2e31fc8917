package utils

import (
	"net/http"

	"postfeed/apperr"
	"postfeed/globals"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func GetUserIDFromRequest(r *http.Request) string {
	requestingUserID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok || requestingUserID == "" {
		return ""
	}
	return requestingUserID
}

// UserObjectID returns the authenticated user's id in canonical form.
func UserObjectID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(GetUserIDFromRequest(r))
	if err != nil {
		return primitive.NilObjectID, apperr.Unauthenticated("Not authenticated.")
	}
	return id, nil
}
