package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/pluma/pkg/httputil"
)

// Searcher reads stored audit events
type Searcher interface {
	Search(ctx context.Context, filter SearchFilter) ([]*AuditEvent, error)
}

// Handlers provides HTTP handlers for the audit log API. The routes carry
// no permission check of their own; mount them behind the administrator gate.
type Handlers struct {
	store Searcher
}

// NewHandlers creates new audit handlers
func NewHandlers(store Searcher) *Handlers {
	return &Handlers{
		store: store,
	}
}

// RegisterRoutes registers audit log routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/audit/events", h.listEvents).Methods("GET")
	router.HandleFunc("/audit/export", h.exportEvents).Methods("GET")
}

// listEvents handles GET /audit/events
func (h *Handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	events, err := h.store.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	httputil.WriteOK(w, map[string]interface{}{
		"events": events,
		"count":  len(events),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// exportEvents handles GET /audit/export?format=csv|ndjson
func (h *Handlers) exportEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "ndjson"
	}
	if format != "ndjson" && format != "csv" {
		httputil.WriteBadRequest(w, fmt.Sprintf("unsupported export format %q", format))
		return
	}

	events, err := h.store.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=audit-logs.csv")
		writeCSV(w, events)
	default:
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Content-Disposition", "attachment; filename=audit-logs.ndjson")
		enc := json.NewEncoder(w)
		for _, event := range events {
			if err := enc.Encode(event); err != nil {
				return
			}
		}
	}
}

func writeCSV(w http.ResponseWriter, events []*AuditEvent) {
	cw := csv.NewWriter(w)
	cw.Write([]string{"id", "timestamp", "event_type", "status", "user_id", "resource_type", "resource_id", "request_id", "message"})
	for _, e := range events {
		userID := ""
		if e.UserID != nil {
			userID = strconv.FormatInt(*e.UserID, 10)
		}
		cw.Write([]string{
			strconv.FormatInt(e.ID, 10),
			e.Timestamp.UTC().Format(time.RFC3339),
			string(e.EventType),
			string(e.Status),
			userID,
			string(e.ResourceType),
			e.ResourceID,
			e.RequestID,
			e.Message,
		})
	}
	cw.Flush()
}

// parseFilter reads the search filter from query parameters
func parseFilter(r *http.Request) (SearchFilter, error) {
	query := r.URL.Query()
	filter := SearchFilter{
		EventType:    EventType(query.Get("event_type")),
		ResourceType: ResourceType(query.Get("resource_type")),
		ResourceID:   query.Get("resource_id"),
	}

	if s := query.Get("user_id"); s != "" {
		userID, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid user_id: %s", s)
		}
		filter.UserID = &userID
	}

	if s := query.Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return filter, fmt.Errorf("invalid since: must be RFC3339")
		}
		filter.Since = &since
	}

	limit, err := httputil.ParseQueryInt(r, "limit", 100)
	if err != nil {
		return filter, err
	}
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		return filter, err
	}
	if offset < 0 {
		return filter, fmt.Errorf("invalid offset: must not be negative")
	}
	filter.Limit = limit
	filter.Offset = offset

	return filter, nil
}
