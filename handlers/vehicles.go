package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"entregacerta.com.br/backend/config"
	"entregacerta.com.br/backend/models"
)

// GetAllVehicles lists the fleet.
// GET /api/v1/vehicles
func GetAllVehicles(w http.ResponseWriter, r *http.Request) {
	var vehicles []models.Vehicle
	if err := config.DB.Order("plate ASC").Find(&vehicles).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(vehicles)
}

type vehicleReq struct {
	Plate string `json:"plate"`
	Model string `json:"model"`
}

// CreateVehicle registers a vehicle. Plates are stored uppercase.
// POST /api/v1/vehicles
func CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req vehicleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	plate := strings.ToUpper(strings.TrimSpace(req.Plate))
	if plate == "" {
		http.Error(w, "plate is required", http.StatusBadRequest)
		return
	}
	v := models.Vehicle{Plate: plate, Model: req.Model}
	if err := config.DB.Create(&v).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "UNIQUE constraint") {
			http.Error(w, "plate already registered", http.StatusConflict)
			return
		}
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(v)
}

// DeleteVehicle removes a vehicle and detaches it from any invoices.
// DELETE /api/v1/vehicles/{id}
func DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid vehicle id", http.StatusBadRequest)
		return
	}
	if err := config.DB.Delete(&models.Vehicle{}, "id = ?", id).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := config.DB.Model(&models.Invoice{}).
		Where("vehicle_id = ?", id).
		Update("vehicle_id", nil).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
