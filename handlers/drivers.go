package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"entregacerta.com.br/backend/config"
	"entregacerta.com.br/backend/middleware"
	"entregacerta.com.br/backend/models"
	"entregacerta.com.br/backend/utils"
)

// GetAllDrivers lists drivers.
// GET /api/v1/drivers
func GetAllDrivers(w http.ResponseWriter, r *http.Request) {
	var drivers []models.Driver
	if err := config.DB.Order("name ASC").Find(&drivers).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(drivers)
}

type driverReq struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// CreateDriver registers a driver. Password stays optional.
// POST /api/v1/drivers
func CreateDriver(w http.ResponseWriter, r *http.Request) {
	var req driverReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	d := models.Driver{Name: req.Name, Password: req.Password}
	if err := config.DB.Create(&d).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(d)
}

// DeleteDriver removes a driver and detaches their invoices: those go back
// to the unassigned pool rather than dangling.
// DELETE /api/v1/drivers/{id}
func DeleteDriver(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid driver id", http.StatusBadRequest)
		return
	}
	if err := config.DB.Delete(&models.Driver{}, "id = ?", id).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := config.DB.Model(&models.Invoice{}).
		Where("driver_id = ?", id).
		Update("driver_id", nil).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type locationReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// UpdateDriverLocation records a GPS ping for the calling driver. Sent
// repeatedly by the driver console while a route is active.
// POST /api/v1/location
func UpdateDriverLocation(w http.ResponseWriter, r *http.Request) {
	var req locationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if !utils.ValidCoordinates(req.Lat, req.Lng) {
		http.Error(w, "coordinates out of range", http.StatusBadRequest)
		return
	}

	loc := models.Location{Lat: req.Lat, Lng: req.Lng, UpdatedAt: time.Now()}
	if err := config.DB.Model(&models.Driver{}).
		Where("id = ?", middleware.GetUserID(r)).
		Update("last_location", loc).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartRoute moves the calling driver's PENDING invoices to IN_PROGRESS.
// POST /api/v1/route/start
func StartRoute(w http.ResponseWriter, r *http.Request) {
	driverID, err := uuid.Parse(middleware.GetUserID(r))
	if err != nil {
		http.Error(w, "invalid driver token", http.StatusUnauthorized)
		return
	}

	svc := NewDeliveryService(config.DB, NewNotificationService(config.DB), config.LockFailedInvoices())
	count, err := svc.StartRoute(driverID)
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"started": count})
}

// fleetEntry is one driver row of the fleet monitor.
type fleetEntry struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	LastLocation *models.Location `json:"lastLocation,omitempty"`
	// Seconds since the last GPS ping; nil when no ping was ever seen.
	LastSeenSec *int64 `json:"lastSeenSec,omitempty"`
	// Meters from the reference point passed as ?lat=&lng= (the depot,
	// usually); nil without a reference or a ping.
	DistanceM  *float64 `json:"distanceM,omitempty"`
	InProgress int64    `json:"inProgress"`
}

// FleetMonitor lists every driver with last ping age, distance to an
// optional reference point and active stop count, for the manager's
// live map.
// GET /api/v1/fleet?lat=&lng=
func FleetMonitor(w http.ResponseWriter, r *http.Request) {
	var drivers []models.Driver
	if err := config.DB.Order("name ASC").Find(&drivers).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	var refLat, refLng float64
	var hasRef bool
	if latStr, lngStr := r.URL.Query().Get("lat"), r.URL.Query().Get("lng"); latStr != "" && lngStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		if errLat != nil || errLng != nil || !utils.ValidCoordinates(lat, lng) {
			http.Error(w, "invalid reference coordinates", http.StatusBadRequest)
			return
		}
		refLat, refLng, hasRef = lat, lng, true
	}

	now := time.Now()
	entries := make([]fleetEntry, 0, len(drivers))
	for _, d := range drivers {
		e := fleetEntry{ID: d.ID, Name: d.Name}
		if d.LastLocation != nil && !d.LastLocation.Zero() {
			e.LastLocation = d.LastLocation
			age := int64(now.Sub(d.LastLocation.UpdatedAt).Seconds())
			e.LastSeenSec = &age
			if hasRef {
				dist := utils.DistanceMeters(refLat, refLng, d.LastLocation.Lat, d.LastLocation.Lng)
				e.DistanceM = &dist
			}
		}
		config.DB.Model(&models.Invoice{}).
			Where("driver_id = ? AND status = ?", d.ID, models.StatusInProgress).
			Count(&e.InProgress)
		entries = append(entries, e)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}
