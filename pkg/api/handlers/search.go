package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/chronolens/chronolens/internal/logger"
	"github.com/chronolens/chronolens/pkg/api/middleware"
	"github.com/chronolens/chronolens/pkg/bus"
)

// searchTimeout bounds the request/reply round trip to the embedding worker.
const searchTimeout = 10 * time.Second

// SearchHandler handles GET /search by delegating to the embedding worker
// over the bus. The worker's reply is forwarded verbatim.
type SearchHandler struct {
	requester bus.Requester
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(requester bus.Requester) *SearchHandler {
	return &SearchHandler{requester: requester}
}

// searchRequest is the request/reply payload sent on clip-process-search.
type searchRequest struct {
	UserID   string `json:"user_id"`
	Query    string `json:"query"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// Search handles GET /search?query=&page=&page_size=.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	query := r.URL.Query().Get("query")
	if query == "" {
		BadRequest(w, "Query must not be empty")
		return
	}
	page, pageSize := parsePagination(r)

	payload, err := json.Marshal(searchRequest{
		UserID:   userID,
		Query:    query,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		InternalServerError(w, "Failed to encode search request")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), searchTimeout)
	defer cancel()

	reply, err := h.requester.Request(ctx, bus.SubjectSearch, payload)
	if err != nil {
		logger.ErrorCtx(r.Context(), "search request failed", logger.KeyError, err.Error())
		InternalServerError(w, "Search is unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(reply)
}
