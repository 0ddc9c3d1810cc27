package handlers

import (
	"net/http"

	"github.com/chronolens/chronolens/pkg/api/middleware"
	"github.com/chronolens/chronolens/pkg/catalog"
)

// LogsHandler handles GET /logs.
type LogsHandler struct {
	store *catalog.Store
}

// NewLogsHandler creates a new LogsHandler.
func NewLogsHandler(store *catalog.Store) *LogsHandler {
	return &LogsHandler{store: store}
}

// LogsResponse is the response body for GET /logs.
type LogsResponse struct {
	Logs []catalog.Log `json:"logs"`
}

// Logs returns the user's activity stream, newest first, paginated.
func (h *LogsHandler) Logs(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	page, pageSize := parsePagination(r)

	logs, err := h.store.GetLogs(r.Context(), userID, page, pageSize)
	if err != nil {
		InternalServerError(w, "Failed to load logs")
		return
	}
	if logs == nil {
		logs = []catalog.Log{}
	}

	WriteJSONOK(w, LogsResponse{Logs: logs})
}
