package appointments

import (
	"encoding/json"
	"errors"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/telecare-appointments/pkg/logging"
)

// Handler exposes the store to booking and presentation clients over HTTP.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a new appointments handler
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Routes returns the appointment routes, mounted under /appointments.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/in-person", h.CreateInPerson)
	r.Post("/remote", h.CreateRemote)
	r.Get("/upcoming", h.Upcoming)
	r.Get("/past", h.Past)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Patch("/status", h.UpdateStatus)
		r.Patch("/schedule", h.Reschedule)
	})
	return r
}

// ListResponse is the response for appointment listings
type ListResponse struct {
	Appointments []Appointment `json:"appointments"`
	Count        int           `json:"count"`
}

// UpdateStatusRequest is the body of PATCH /appointments/{id}/status
type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

// RescheduleRequest is the body of PATCH /appointments/{id}/schedule
type RescheduleRequest struct {
	Date civil.Date `json:"date"`
	Time string     `json:"time"`
}

// CreateInPerson handles POST /appointments/in-person
func (h *Handler) CreateInPerson(w http.ResponseWriter, r *http.Request) {
	var req InPersonDetails
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := h.store.AddInPerson(r.Context(), req)
	if err != nil {
		h.writeError(w, "failed to create appointment", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// CreateRemote handles POST /appointments/remote. The meeting is attached
// later; clients poll GET /appointments/{id} until it is provisioned.
func (h *Handler) CreateRemote(w http.ResponseWriter, r *http.Request) {
	var req RemoteDetails
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := h.store.AddRemote(r.Context(), req)
	if err != nil {
		h.writeError(w, "failed to create appointment", err)
		return
	}
	writeJSON(w, http.StatusAccepted, rec)
}

// List handles GET /appointments[?kind=in_person|remote]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var list []Appointment
	switch kind := Kind(r.URL.Query().Get("kind")); kind {
	case "":
		list = h.store.All()
	case KindInPerson, KindRemote:
		list = h.store.ByKind(kind)
	default:
		http.Error(w, "unknown kind", http.StatusBadRequest)
		return
	}
	writeList(w, list)
}

// Upcoming handles GET /appointments/upcoming
func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	writeList(w, h.store.Upcoming())
}

// Past handles GET /appointments/past
func (h *Handler) Past(w http.ResponseWriter, r *http.Request) {
	writeList(w, h.store.Past())
}

// Get handles GET /appointments/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "failed to get appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateStatus handles PATCH /appointments/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Status.Known() {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	rec, err := h.store.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeError(w, "failed to update status", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Reschedule handles PATCH /appointments/{id}/schedule
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := h.store.Reschedule(r.Context(), chi.URLParam(r, "id"), req.Date, req.Time)
	if err != nil {
		h.writeError(w, "failed to reschedule appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /appointments/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, "failed to delete appointment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "appointment not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidAppointment):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error(msg, "error", err)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func writeList(w http.ResponseWriter, list []Appointment) {
	writeJSON(w, http.StatusOK, ListResponse{Appointments: list, Count: len(list)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
