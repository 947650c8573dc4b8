package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"entregacerta.com.br/backend/config"
	"entregacerta.com.br/backend/middleware"
	"entregacerta.com.br/backend/models"
	"entregacerta.com.br/backend/utils"
)

// GetAllInvoices lists invoices, optionally filtered by status or driver.
// GET /api/v1/invoices
func GetAllInvoices(w http.ResponseWriter, r *http.Request) {
	q := config.DB.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("idx ASC")
	}).Order("created_at DESC")

	if status := r.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if driverID := r.URL.Query().Get("driver_id"); driverID != "" {
		q = q.Where("driver_id = ?", driverID)
	}

	var invoices []models.Invoice
	if err := q.Find(&invoices).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(invoices)
}

// GetInvoice returns one invoice with its items.
// GET /api/v1/invoices/{id}
func GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var inv models.Invoice
	if err := config.DB.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("idx ASC")
	}).First(&inv, "id = ?", id).Error; err != nil {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(inv)
}

// routeStop is one delivery of the driver's route with ready-made
// navigation deep links.
type routeStop struct {
	models.Invoice
	GoogleMapsURL string `json:"googleMapsUrl"`
	WazeURL       string `json:"wazeUrl"`
}

// GetDriverRoute lists the calling driver's own invoices.
// GET /api/v1/route
func GetDriverRoute(w http.ResponseWriter, r *http.Request) {
	driverID := middleware.GetUserID(r)
	var invoices []models.Invoice
	if err := config.DB.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("idx ASC")
	}).Where("driver_id = ?", driverID).
		Order("created_at ASC").
		Find(&invoices).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	stops := make([]routeStop, 0, len(invoices))
	for _, inv := range invoices {
		// Geocoders choke on the OBS/LOCAL suffix; navigate to the plain
		// street address.
		addr := inv.CustomerAddress
		if i := strings.Index(addr, " || OBS/LOCAL:"); i >= 0 {
			addr = addr[:i]
		}
		stops = append(stops, routeStop{
			Invoice:       inv,
			GoogleMapsURL: utils.GoogleMapsURL(addr, inv.CustomerZip),
			WazeURL:       utils.WazeURL(addr, inv.CustomerZip),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stops)
}

// ImportInvoices receives a multipart batch of NF-e XML files and returns
// the import summary. Individual file failures are part of the summary,
// never a request failure.
// POST /api/v1/invoices/import
func ImportInvoices(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		http.Error(w, "bad multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	var files []ImportFile
	for _, headers := range r.MultipartForm.File {
		for _, h := range headers {
			f, err := h.Open()
			if err != nil {
				http.Error(w, "failed to read upload: "+err.Error(), http.StatusBadRequest)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				http.Error(w, "failed to read upload: "+err.Error(), http.StatusBadRequest)
				return
			}
			files = append(files, ImportFile{Name: h.Filename, Data: data})
		}
	}
	if len(files) == 0 {
		http.Error(w, "no files uploaded", http.StatusBadRequest)
		return
	}

	summary := NewImportCoordinator(config.DB).ImportBatch(files)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// GetImportHistory lists past batch imports, newest first.
// GET /api/v1/imports
func GetImportHistory(w http.ResponseWriter, r *http.Request) {
	var records []models.ImportRecord
	if err := config.DB.Order("created_at DESC").Limit(50).Find(&records).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

type importKeyReq struct {
	AccessKey string `json:"accessKey"`
}

// ImportByKey imports a single invoice from the public fiscal lookup,
// sharing the batch path's duplicate rules.
// POST /api/v1/invoices/import-key
func ImportByKey(w http.ResponseWriter, r *http.Request) {
	var req importKeyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	parsed, err := NewSefazClient().FetchInvoice(r.Context(), req.AccessKey)
	if err != nil {
		if models.IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "não foi possível buscar os dados automaticamente, tente a importação via XML", http.StatusBadGateway)
		return
	}

	inv, err := NewImportCoordinator(config.DB).ImportParsed(parsed)
	if err != nil {
		if models.IsDuplicateError(err) {
			http.Error(w, "esta nota fiscal já está cadastrada no sistema", http.StatusConflict)
			return
		}
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(inv)
}

type assignReq struct {
	DriverID  *uuid.UUID `json:"driverId"`
	VehicleID *uuid.UUID `json:"vehicleId"`
}

// AssignLogistics updates an invoice's driver/vehicle pair.
// PUT /api/v1/invoices/{id}/logistics
func AssignLogistics(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid invoice id", http.StatusBadRequest)
		return
	}
	var req assignReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	svc := NewDeliveryService(config.DB, NewNotificationService(config.DB), config.LockFailedInvoices())
	inv, err := svc.AssignLogistics(id, req.DriverID, req.VehicleID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			http.Error(w, "record not found", http.StatusNotFound)
		case errors.Is(err, models.ErrInvoiceLocked):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(inv)
}

// DeleteInvoice removes an invoice and cascades its proof and items.
// DELETE /api/v1/invoices/{id}
func DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid invoice id", http.StatusBadRequest)
		return
	}
	svc := NewDeliveryService(config.DB, NewNotificationService(config.DB), config.LockFailedInvoices())
	if err := svc.DeleteInvoice(id); err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
