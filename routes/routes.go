package routes

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"entregacerta.com.br/backend/handlers"
	"entregacerta.com.br/backend/middleware"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// =====================================================
	// Public Routes (no authentication)
	// =====================================================
	r.HandleFunc("/login/admin", handlers.AdminLogin).Methods("POST")
	r.HandleFunc("/login/driver", handlers.DriverLogin).Methods("POST")
	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir("./uploads"))),
	)

	// =====================================================
	// Protected API Routes (require JWT authentication)
	// =====================================================
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.JWTMiddleware)

	api.HandleFunc("/profile", handleProfile).Methods("GET")

	// Invoice reads are shared: drivers see their route, managers see all
	api.HandleFunc("/invoices", handlers.GetAllInvoices).Methods("GET")
	api.HandleFunc("/invoices/{id}", handlers.GetInvoice).Methods("GET")
	api.HandleFunc("/route", handlers.GetDriverRoute).Methods("GET")
	api.HandleFunc("/route/start", handlers.StartRoute).Methods("POST")

	// Proofs
	api.HandleFunc("/invoices/{id}/proof", handlers.SubmitProof).Methods("POST")
	api.HandleFunc("/invoices/{id}/proof", handlers.GetProof).Methods("GET")
	api.HandleFunc("/uploads", handlers.UploadProofPhoto).Methods("POST")

	// GPS and notifications
	api.HandleFunc("/location", handlers.UpdateDriverLocation).Methods("POST")
	api.HandleFunc("/notifications/consume", handlers.ConsumeNotifications).Methods("POST")
	api.HandleFunc("/notifications/unread", handlers.UnreadNotificationCount).Methods("GET")

	// =====================================================
	// Manager Routes (require admin role)
	// =====================================================
	registerAdminRoutes(api)

	return r
}

func registerAdminRoutes(api *mux.Router) {
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireRole([]string{middleware.RoleAdmin}, h)
	}

	api.Handle("/register", adminOnly(handlers.RegisterAdmin)).Methods("POST")

	api.Handle("/invoices/import", adminOnly(handlers.ImportInvoices)).Methods("POST")
	api.Handle("/imports", adminOnly(handlers.GetImportHistory)).Methods("GET")
	api.Handle("/invoices/import-key", adminOnly(handlers.ImportByKey)).Methods("POST")
	api.Handle("/invoices/{id}/logistics", adminOnly(handlers.AssignLogistics)).Methods("PUT")
	api.Handle("/invoices/{id}", adminOnly(handlers.DeleteInvoice)).Methods("DELETE")

	api.Handle("/drivers", adminOnly(handlers.GetAllDrivers)).Methods("GET")
	api.Handle("/drivers", adminOnly(handlers.CreateDriver)).Methods("POST")
	api.Handle("/drivers/{id}", adminOnly(handlers.DeleteDriver)).Methods("DELETE")

	api.Handle("/vehicles", adminOnly(handlers.GetAllVehicles)).Methods("GET")
	api.Handle("/vehicles", adminOnly(handlers.CreateVehicle)).Methods("POST")
	api.Handle("/vehicles/{id}", adminOnly(handlers.DeleteVehicle)).Methods("DELETE")

	api.Handle("/fleet", adminOnly(handlers.FleetMonitor)).Methods("GET")
	api.Handle("/dashboard", adminOnly(handlers.GetDashboard)).Methods("GET")
	api.Handle("/reports/ledger.xlsx", adminOnly(handlers.ExportLedgerToExcel)).Methods("GET")
	api.Handle("/reports/ledger.csv", adminOnly(handlers.ExportLedgerToCSV)).Methods("GET")
}

// handleProfile returns the caller's identity from the token
func handleProfile(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	response := map[string]interface{}{
		"userID": claims.UserID,
		"name":   claims.Name,
		"role":   claims.Role,
	}
	json.NewEncoder(w).Encode(response)
}
