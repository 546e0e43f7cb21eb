package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"github.com/serenity-wellness/serenity-server/cmd/config"
	"github.com/serenity-wellness/serenity-server/cmd/models"
	"github.com/serenity-wellness/serenity-server/cmd/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Handler struct {
    db  *gorm.DB
    cfg *config.Config
}

func NewHandler(db *gorm.DB, cfg *config.Config) *Handler {
    return &Handler{db: db, cfg: cfg}
}


// RegisterAuthRoutes registers the routes that must stay outside the auth
// middleware.
func (h *Handler) RegisterAuthRoutes(router *mux.Router) {
    router.HandleFunc("/admin/login", h.HandleLogin).Methods("POST")
}

func (h *Handler) RegisterAdminRoutes(router *mux.Router) {
    router.HandleFunc("/admin-users", h.GetAdminUsers).Methods("GET")
    router.HandleFunc("/admin-users", h.CreateAdminUser).Methods("POST")
    router.HandleFunc("/admin-users/{id}", h.UpdateAdminUser).Methods("PUT")
    router.HandleFunc("/admin-users/{id}", h.DeactivateAdminUser).Methods("DELETE")
    router.HandleFunc("/settings", h.GetSettings).Methods("GET")
}


func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
    var loginRequest struct {
        Username string `json:"username"`
        Password string `json:"password"`
    }

    if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
        return
    }

    var admin models.AdminUser
    result := h.db.Where("username = ?", loginRequest.Username).First(&admin)
    if result.Error != nil {
        utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
        return
    }

    if !admin.IsActive {
        utils.WriteError(w, http.StatusUnauthorized, "Account is inactive")
        return
    }

    if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(loginRequest.Password)); err != nil {
        utils.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
        return
    }

    accessToken, err := h.generateJWT(admin.ID, 12*time.Hour)
    if err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error generating access token")
        return
    }

    h.db.Model(&admin).Update("last_login", time.Now())

    utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
        "success":      true,
        "access_token": accessToken,
        "admin": map[string]interface{}{
            "id":         admin.ID,
            "username":   admin.Username,
            "email":      admin.Email,
            "first_name": admin.FirstName,
            "last_name":  admin.LastName,
            "role":       admin.Role,
        },
    })
}

func (h *Handler) generateJWT(adminID uint, ttl time.Duration) (string, error) {
    claims := &jwt.RegisteredClaims{
        Subject:   fmt.Sprint(adminID),
        ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
    }
    token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return token.SignedString([]byte(h.cfg.JWTSecret))
}


type adminUserRequest struct {
    Username  string `json:"username"`
    Password  string `json:"password"`
    Email     string `json:"email"`
    FirstName string `json:"first_name"`
    LastName  string `json:"last_name"`
    Role      string `json:"role"`
    IsActive  *bool  `json:"is_active"`
}

func (h *Handler) CreateAdminUser(w http.ResponseWriter, r *http.Request) {
    var request adminUserRequest
    if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
        return
    }

    if request.Username == "" || request.Password == "" || request.Email == "" {
        utils.WriteError(w, http.StatusBadRequest, "Username, password and email are required")
        return
    }

    var existing models.AdminUser
    if result := h.db.Where("username = ?", request.Username).First(&existing); !errors.Is(result.Error, gorm.ErrRecordNotFound) {
        if result.Error != nil {
            utils.WriteError(w, http.StatusInternalServerError, "Database error")
            return
        }
        utils.WriteError(w, http.StatusConflict, "Username is already in use")
        return
    }

    passwordHash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
    if err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error hashing password")
        return
    }

    admin := models.AdminUser{
        Username:     request.Username,
        PasswordHash: string(passwordHash),
        Email:        request.Email,
        FirstName:    request.FirstName,
        LastName:     request.LastName,
        Role:         "admin",
        IsActive:     true,
    }
    if request.Role != "" {
        admin.Role = request.Role
    }

    if err := h.db.Create(&admin).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error creating admin user")
        return
    }

    utils.WriteJSON(w, http.StatusCreated, admin)
}

func (h *Handler) GetAdminUsers(w http.ResponseWriter, r *http.Request) {
    var admins []models.AdminUser
    if err := h.db.Order("username ASC").Find(&admins).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error retrieving admin users")
        return
    }

    utils.WriteJSON(w, http.StatusOK, admins)
}

func (h *Handler) UpdateAdminUser(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    adminID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid admin user ID")
        return
    }

    var admin models.AdminUser
    if err := h.db.First(&admin, adminID).Error; err != nil {
        utils.WriteError(w, http.StatusNotFound, "Admin user not found")
        return
    }

    var request adminUserRequest
    if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
        return
    }

    if request.Email != "" {
        admin.Email = request.Email
    }
    if request.FirstName != "" {
        admin.FirstName = request.FirstName
    }
    if request.LastName != "" {
        admin.LastName = request.LastName
    }
    if request.Role != "" {
        admin.Role = request.Role
    }
    if request.IsActive != nil {
        admin.IsActive = *request.IsActive
    }
    if request.Password != "" {
        passwordHash, err := bcrypt.GenerateFromPassword([]byte(request.Password), bcrypt.DefaultCost)
        if err != nil {
            utils.WriteError(w, http.StatusInternalServerError, "Error hashing password")
            return
        }
        admin.PasswordHash = string(passwordHash)
    }

    if err := h.db.Save(&admin).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error updating admin user")
        return
    }

    utils.WriteJSON(w, http.StatusOK, admin)
}

func (h *Handler) DeactivateAdminUser(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    adminID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid admin user ID")
        return
    }

    result := h.db.Model(&models.AdminUser{}).Where("id = ?", adminID).
        Update("is_active", false)
    if result.Error != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error deactivating admin user")
        return
    }
    if result.RowsAffected == 0 {
        utils.WriteError(w, http.StatusNotFound, "Admin user not found")
        return
    }

    utils.WriteJSON(w, http.StatusOK, map[string]string{
        "message": "Admin user deactivated successfully",
    })
}


// GetSettings exposes the non-secret parts of the running configuration.
// Settings are loaded once at startup; changing them means redeploying with
// new environment values.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
    utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
        "currency":               h.cfg.Currency,
        "sender_name":            h.cfg.SenderName,
        "sender_email":           h.cfg.SenderEmail,
        "stripe_publishable_key": h.cfg.StripePublishableKey,
    })
}
