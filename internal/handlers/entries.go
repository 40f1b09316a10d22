package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
	"github.com/AnshRaj112/moodlog-backend/internal/services"
)

type entryService interface {
	List(ctx context.Context, input services.ListEntriesInput) (*services.ListEntriesResult, error)
	Create(ctx context.Context, input services.CreateEntryInput) (*models.Entry, error)
	Update(ctx context.Context, input services.UpdateEntryInput) (*models.Entry, error)
	Delete(ctx context.Context, input services.DeleteEntryInput) error
}

// EntryHandler serves the /api/entry endpoints. It expects RequireAuth to have
// placed the caller's subject in the request context.
type EntryHandler struct {
	entries   entryService
	log       *slog.Logger
	opTimeout time.Duration
}

// NewEntryHandler creates an EntryHandler. opTimeout bounds each store call; zero disables it.
func NewEntryHandler(entries entryService, logger *slog.Logger, opTimeout time.Duration) *EntryHandler {
	return &EntryHandler{
		entries:   entries,
		log:       logger.With("handler", "entries"),
		opTimeout: opTimeout,
	}
}

type createEntryRequest struct {
	Date           string   `json:"date"`
	Time           string   `json:"time"`
	Mood           string   `json:"mood"`
	Description    []string `json:"description"`
	Activities     []string `json:"activities"`
	TimezoneOffset *int     `json:"timezoneOffset"`
}

type updateEntryRequest struct {
	EntryID     string    `json:"entryId"`
	Mood        *string   `json:"mood"`
	Description *[]string `json:"description"`
	Activities  *[]string `json:"activities"`
}

type deleteEntryRequest struct {
	EntryID string `json:"entryId"`
}

type listEntriesResponse struct {
	Entries []models.Entry `json:"entries"`
	Total   int64          `json:"total"`
}

type entryResponse struct {
	Message string        `json:"message,omitempty"`
	Entry   *models.Entry `json:"entry"`
}

func (h *EntryHandler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.opTimeout)
}

// List returns the caller's entries.
// GET /api/entry?date=&from=&to=&mood=&limit=&skip=
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := services.ListEntriesInput{
		Date: q.Get("date"),
		From: q.Get("from"),
		To:   q.Get("to"),
		Mood: q.Get("mood"),
	}

	var fieldErrs []models.FieldError
	for _, p := range []struct {
		name string
		out  *int64
	}{
		{"limit", &input.Limit},
		{"skip", &input.Skip},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: p.name, Message: "must be an integer"})
			continue
		}
		*p.out = n
	}
	if len(fieldErrs) > 0 {
		writeError(w, http.StatusBadRequest, (&models.ValidationError{Errors: fieldErrs}).Error())
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	result, err := h.entries.List(ctx, input)
	if err != nil {
		writeServiceError(w, r, h.log, "list entries", err)
		return
	}

	writeJSON(w, http.StatusOK, listEntriesResponse{Entries: result.Entries, Total: result.Total})
}

// Create stores a new entry for the caller.
// POST /api/entry
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	entry, err := h.entries.Create(ctx, services.CreateEntryInput{
		Date:           req.Date,
		Time:           req.Time,
		Mood:           req.Mood,
		TimezoneOffset: req.TimezoneOffset,
		Feelings:       req.Description,
		Activities:     req.Activities,
	})
	if err != nil {
		writeServiceError(w, r, h.log, "create entry", err)
		return
	}

	writeJSON(w, http.StatusCreated, entryResponse{Message: "Entry saved successfully", Entry: entry})
}

// Update merges the supplied fields into one of the caller's entries.
// PATCH /api/entry
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateEntryRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	entry, err := h.entries.Update(ctx, services.UpdateEntryInput{
		EntryID:    req.EntryID,
		Mood:       req.Mood,
		Feelings:   req.Description,
		Activities: req.Activities,
	})
	if err != nil {
		writeServiceError(w, r, h.log, "update entry", err)
		return
	}

	writeJSON(w, http.StatusOK, entryResponse{Entry: entry})
}

// Delete removes one of the caller's entries. The id comes from the JSON body,
// or from the entryId query parameter for clients that cannot send a DELETE body.
// DELETE /api/entry
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteEntryRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.EntryID == "" {
		req.EntryID = r.URL.Query().Get("entryId")
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	if err := h.entries.Delete(ctx, services.DeleteEntryInput{EntryID: req.EntryID}); err != nil {
		writeServiceError(w, r, h.log, "delete entry", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Entry deleted successfully"})
}
