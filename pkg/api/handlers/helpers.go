package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// decodeJSONBody decodes the request body into dst. On failure it writes a
// 400 problem response and returns false; the caller should just return.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "Invalid JSON in request body")
		return false
	}
	return true
}

// parsePagination reads the page and page_size query parameters. Missing or
// unparsable values come back as zero; the catalog normalizes from there.
func parsePagination(r *http.Request) (page, pageSize int) {
	if v := r.URL.Query().Get("page"); v != "" {
		page, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		pageSize, _ = strconv.Atoi(v)
	}
	return page, pageSize
}
