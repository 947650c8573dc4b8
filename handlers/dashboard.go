package handlers

import (
	"encoding/json"
	"net/http"

	"entregacerta.com.br/backend/config"
	"entregacerta.com.br/backend/models"
)

type driverRank struct {
	DriverID  string `json:"driverId"`
	Name      string `json:"name"`
	Delivered int64  `json:"delivered"`
}

type dashboardView struct {
	TotalInvoices  int64        `json:"totalInvoices"`
	TotalPending   int64        `json:"totalPending"`
	TotalInRoute   int64        `json:"totalInRoute"`
	TotalDelivered int64        `json:"totalDelivered"`
	TotalFailed    int64        `json:"totalFailed"`
	TotalValue     float64      `json:"totalValue"`
	DeliveredValue float64      `json:"deliveredValue"`
	FailedValue    float64      `json:"failedValue"`
	TotalLoss      float64      `json:"totalLoss"`
	TopDrivers     []driverRank `json:"topDrivers"`
}

// GetDashboard aggregates the manager's overview: status counts, value
// moved, accumulated loss and the five best performing drivers.
// GET /api/v1/dashboard
func GetDashboard(w http.ResponseWriter, r *http.Request) {
	var view dashboardView

	counts := map[models.DeliveryStatus]*int64{
		models.StatusPending:    &view.TotalPending,
		models.StatusInProgress: &view.TotalInRoute,
		models.StatusDelivered:  &view.TotalDelivered,
		models.StatusFailed:     &view.TotalFailed,
	}
	if err := config.DB.Model(&models.Invoice{}).Count(&view.TotalInvoices).Error; err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	for status, dst := range counts {
		if err := config.DB.Model(&models.Invoice{}).Where("status = ?", status).Count(dst).Error; err != nil {
			http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	config.DB.Model(&models.Invoice{}).Select("COALESCE(SUM(value), 0)").Scan(&view.TotalValue)
	config.DB.Model(&models.Invoice{}).Where("status = ?", models.StatusDelivered).
		Select("COALESCE(SUM(value), 0)").Scan(&view.DeliveredValue)
	config.DB.Model(&models.Invoice{}).Where("status = ?", models.StatusFailed).
		Select("COALESCE(SUM(value), 0)").Scan(&view.FailedValue)
	config.DB.Model(&models.DeliveryProof{}).Select("COALESCE(SUM(loss_amount), 0)").Scan(&view.TotalLoss)

	rows, err := config.DB.Model(&models.Invoice{}).
		Select("drivers.id AS driver_id, drivers.name, COUNT(*) AS delivered").
		Joins("JOIN drivers ON drivers.id = invoices.driver_id").
		Where("invoices.status = ?", models.StatusDelivered).
		Group("drivers.id, drivers.name").
		Order("delivered DESC").
		Limit(5).
		Rows()
	if err != nil {
		http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()
	view.TopDrivers = []driverRank{}
	for rows.Next() {
		var rank driverRank
		if err := rows.Scan(&rank.DriverID, &rank.Name, &rank.Delivered); err != nil {
			http.Error(w, "DB error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		view.TopDrivers = append(view.TopDrivers, rank)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}
