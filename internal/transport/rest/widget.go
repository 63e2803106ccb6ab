package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/heartmarshall/roomcast/internal/domain"
	widgetsvc "github.com/heartmarshall/roomcast/internal/service/widget"
)

const maxBodyBytes = 1 << 20

type widgetService interface {
	Create(ctx context.Context, input widgetsvc.CreateInput) (*domain.Widget, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Widget, error)
	Update(ctx context.Context, input widgetsvc.UpdateInput) (*domain.Widget, error)
	Delete(ctx context.Context, id uuid.UUID) (*domain.Widget, error)
}

// WidgetHandler serves widget REST endpoints.
type WidgetHandler struct {
	svc widgetService
	log *slog.Logger
}

// NewWidgetHandler creates a WidgetHandler.
func NewWidgetHandler(svc widgetService, logger *slog.Logger) *WidgetHandler {
	return &WidgetHandler{svc: svc, log: logger.With("handler", "widget")}
}

// Routes mounts the widget endpoints on r.
func (h *WidgetHandler) Routes(r chi.Router) {
	r.Post("/widgets", h.Create)
	r.Get("/widgets/{id}", h.Get)
	r.Patch("/widgets/{id}", h.Update)
	r.Delete("/widgets/{id}", h.Delete)
}

type createWidgetRequest struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type updateWidgetRequest struct {
	Name    *string         `json:"name,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type widgetResponse struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"ownerId"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Create handles POST /widgets.
func (h *WidgetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createWidgetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	widget, err := h.svc.Create(r.Context(), widgetsvc.CreateInput{Name: req.Name, Payload: req.Payload})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWidgetResponse(widget))
}

// Get handles GET /widgets/{id}.
func (h *WidgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := widgetID(w, r)
	if !ok {
		return
	}

	widget, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWidgetResponse(widget))
}

// Update handles PATCH /widgets/{id}.
func (h *WidgetHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := widgetID(w, r)
	if !ok {
		return
	}
	var req updateWidgetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	widget, err := h.svc.Update(r.Context(), widgetsvc.UpdateInput{ID: id, Name: req.Name, Payload: req.Payload})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWidgetResponse(widget))
}

// Delete handles DELETE /widgets/{id}.
func (h *WidgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := widgetID(w, r)
	if !ok {
		return
	}

	if _, err := h.svc.Delete(r.Context(), id); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WidgetHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "conflict")
	default:
		h.log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func widgetID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid widget id")
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func toWidgetResponse(w *domain.Widget) widgetResponse {
	return widgetResponse{
		ID:        w.ID.String(),
		OwnerID:   w.OwnerID.String(),
		Name:      w.Name,
		Payload:   w.Payload,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}
