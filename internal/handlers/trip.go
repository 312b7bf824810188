package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/openride/rideshare-api/internal/metrics"
	"github.com/openride/rideshare-api/internal/middleware"
	"github.com/openride/rideshare-api/internal/models"
	"github.com/openride/rideshare-api/internal/repo"
)

// MsgTripNotFound is sent when a trip lookup finds nothing.
const MsgTripNotFound = "Trip not found"

// MsgTripInserted is the success message for trip creation.
const MsgTripInserted = "Trip succesfully inserted"

// ==========================
// TripHandler
// ==========================
// One handler instance per ledger; Ledger is "driver" or "passenger" and
// only feeds logs and metrics labels.
type TripHandler struct {
	Repo   *repo.TripRepo
	Ledger string
}

// ==========================
// Create Trip
// ==========================
func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID         int       `json:"userid"`
		PickupLocation string    `json:"pickupLocation" validate:"required,max=255"`
		Destination    string    `json:"destination" validate:"required,max=255"`
		Price          float64   `json:"price" validate:"gte=0"`
		DepartureTime  time.Time `json:"departureTime" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONMessage(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		JSONMessage(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Default the owner to the authenticated identity.
	if input.UserID == 0 {
		if identity, ok := middleware.GetIdentity(r.Context()); ok {
			input.UserID = identity.ID
		}
	}

	trip := &models.Trip{
		UserID:         input.UserID,
		PickupLocation: input.PickupLocation,
		Destination:    input.Destination,
		Price:          input.Price,
		DepartureTime:  input.DepartureTime,
	}

	id, err := h.Repo.Add(r.Context(), trip)
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			JSONMessage(w, "Trip already exists", http.StatusConflict)
			return
		}
		slog.Error("insert trip failed", "ledger", h.Ledger, "error", err)
		JSONMessage(w, "Invalid trip information", http.StatusBadRequest)
		return
	}

	metrics.IncTripsInserted(h.Ledger)
	JSONResponse(w, map[string]interface{}{
		"message": MsgTripInserted,
		"id":      id,
	}, http.StatusOK)
}

// ==========================
// Get Trip
// ==========================
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "tid"))
	if err != nil {
		JSONMessage(w, MsgTripNotFound, http.StatusNotFound)
		return
	}

	trip, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		JSONMessage(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	if trip == nil {
		JSONMessage(w, MsgTripNotFound, http.StatusNotFound)
		return
	}

	JSONResponse(w, trip, http.StatusOK)
}

// ==========================
// List Trips
// ==========================
// Supports page/size pagination and exact-match filtering by destination,
// pickup location, or both. Same has_more approximation as user listing.
func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	pickup := r.URL.Query().Get("pickup")
	destination := r.URL.Query().Get("destination")

	trips, err := h.Repo.List(r.Context(), pickup, destination, page, size)
	if err != nil {
		slog.Error("list trips failed", "ledger", h.Ledger, "error", err)
		JSONMessage(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	JSONResponse(w, map[string]interface{}{
		"trips":    trips,
		"has_more": len(trips) == size,
	}, http.StatusOK)
}
