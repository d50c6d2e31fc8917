package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"postfeed/apperr"
)

type M map[string]any

func RespondWithJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, M{"message": msg})
}

// SendError is the single place request failures are turned into responses.
// Internal causes are logged and never echoed to the client.
func SendError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", r.Method, r.URL.Path, err)
		RespondWithError(w, status, "An internal error occurred.")
		return
	}

	var e *apperr.Error
	errors.As(err, &e)
	body := M{"message": e.Message}
	if len(e.Data) > 0 {
		body["data"] = e.Data
	}
	RespondWithJSON(w, status, body)
}
