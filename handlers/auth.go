// handlers/auth.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"entregacerta.com.br/backend/config"
	"entregacerta.com.br/backend/middleware"
	"entregacerta.com.br/backend/models"
)

type adminLoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type driverLoginReq struct {
	DriverID string `json:"driverId"`
	Password string `json:"password"`
}

type loginResp struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

type userPayload struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role"`
}

// AdminLogin authenticates a manager-console account. Failures are the
// same generic message either way: the response never says which half of
// the pair was wrong.
func AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	var u models.User
	if err := config.DB.Where("email = ? AND is_active = ?", req.Email, true).First(&u).Error; err != nil {
		http.Error(w, models.ErrBadCredentials.Error(), http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, models.ErrBadCredentials.Error(), http.StatusUnauthorized)
		return
	}
	token, err := middleware.GenerateToken(u.ID.String(), middleware.RoleAdmin, u.Name)
	if err != nil {
		http.Error(w, "couldn't create token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResp{
		Token: token,
		User:  userPayload{ID: u.ID, Name: u.Name, Role: middleware.RoleAdmin},
	})
}

// DriverLogin authenticates a driver against the legacy credential rule:
// drivers without a stored password accept any input.
func DriverLogin(w http.ResponseWriter, r *http.Request) {
	var req driverLoginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(req.DriverID)
	if err != nil {
		http.Error(w, "invalid driver id", http.StatusBadRequest)
		return
	}
	var d models.Driver
	if err := config.DB.First(&d, "id = ?", id).Error; err != nil {
		http.Error(w, models.ErrBadCredentials.Error(), http.StatusUnauthorized)
		return
	}
	if !d.CheckPassword(req.Password) {
		http.Error(w, models.ErrBadCredentials.Error(), http.StatusUnauthorized)
		return
	}
	token, err := middleware.GenerateToken(d.ID.String(), middleware.RoleDriver, d.Name)
	if err != nil {
		http.Error(w, "couldn't create token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResp{
		Token: token,
		User:  userPayload{ID: d.ID, Name: d.Name, Role: middleware.RoleDriver},
	})
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterAdmin creates another manager account. Admin-only route.
func RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "error hashing password", http.StatusInternalServerError)
		return
	}
	u := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         "admin",
	}
	if err := config.DB.Create(&u).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "UNIQUE constraint") {
			http.Error(w, "email already taken", http.StatusConflict)
		} else {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusCreated)
}
