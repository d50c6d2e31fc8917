package utils

import (
	"encoding/json"
	"net/http"
	"strconv"

	"postfeed/apperr"
)

// ParsePage reads the 1-based page query parameter; anything missing or
// below 1 yields the first page.
func ParsePage(r *http.Request) int {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	return page
}

// DecodeJSON decodes a JSON request body into v.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("Invalid request body.")
	}
	return nil
}
