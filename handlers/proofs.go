package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"entregacerta.com.br/backend/config"
	"entregacerta.com.br/backend/middleware"
	"entregacerta.com.br/backend/models"
	"entregacerta.com.br/backend/utils"
)

// SubmitProof records the delivery evidence for one stop and closes the
// invoice. Drivers may only close their own stops.
// POST /api/v1/invoices/{id}/proof
func SubmitProof(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid invoice id", http.StatusBadRequest)
		return
	}

	var sub ProofSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	sub.InvoiceID = id

	if middleware.GetRole(r) == middleware.RoleDriver {
		var inv models.Invoice
		if err := config.DB.First(&inv, "id = ?", id).Error; err != nil {
			http.Error(w, "record not found", http.StatusNotFound)
			return
		}
		if inv.DriverID == nil || inv.DriverID.String() != middleware.GetUserID(r) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	svc := NewDeliveryService(config.DB, NewNotificationService(config.DB), config.LockFailedInvoices())
	proof, err := svc.SubmitProof(sub)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			http.Error(w, "record not found", http.StatusNotFound)
		case errors.Is(err, models.ErrProofExists):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, models.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		case models.IsValidationError(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(proof)
}

// proofView decorates the stored proof with review helpers for the
// manager console.
type proofView struct {
	models.DeliveryProof
	// Distance in meters between the proof coordinates and the driver's
	// last known position, when both exist. An integrity hint, nothing is
	// enforced on it.
	DriverDistanceM *float64 `json:"driverDistanceM,omitempty"`
	MapsURL         string   `json:"mapsUrl,omitempty"`
}

// GetProof fetches the proof for an invoice, 404 when none was submitted.
// GET /api/v1/invoices/{id}/proof
func GetProof(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid invoice id", http.StatusBadRequest)
		return
	}

	svc := NewDeliveryService(config.DB, NewNotificationService(config.DB), config.LockFailedInvoices())
	proof, err := svc.GetProof(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "proof not found", http.StatusNotFound)
			return
		}
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	view := proofView{DeliveryProof: *proof}
	if proof.GeoLat != nil && proof.GeoLng != nil {
		view.MapsURL = utils.PointURL(*proof.GeoLat, *proof.GeoLng)

		var inv models.Invoice
		if err := config.DB.First(&inv, "id = ?", id).Error; err == nil && inv.DriverID != nil {
			var drv models.Driver
			if err := config.DB.First(&drv, "id = ?", *inv.DriverID).Error; err == nil &&
				drv.LastLocation != nil && !drv.LastLocation.Zero() {
				d := utils.DistanceMeters(*proof.GeoLat, *proof.GeoLng, drv.LastLocation.Lat, drv.LastLocation.Lng)
				view.DriverDistanceM = &d
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}
