package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/serenity-wellness/serenity-server/cmd/models"
	"github.com/serenity-wellness/serenity-server/cmd/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ServiceHandler struct {
    db *gorm.DB
}

func NewServiceHandler(db *gorm.DB) *ServiceHandler {
    return &ServiceHandler{db: db}
}


func (h *ServiceHandler) RegisterRoutes(router *mux.Router) {
    router.HandleFunc("/services", h.GetActiveServices).Methods("GET")
    router.HandleFunc("/services/{id}", h.GetService).Methods("GET")
}

func (h *ServiceHandler) RegisterAdminRoutes(router *mux.Router) {
    router.HandleFunc("/services", h.GetAllServices).Methods("GET")
    router.HandleFunc("/services", h.CreateService).Methods("POST")
    router.HandleFunc("/services/{id}", h.UpdateService).Methods("PUT")
    router.HandleFunc("/services/{id}", h.DeactivateService).Methods("DELETE")
}


// GetActiveServices lists the services clients can book.
func (h *ServiceHandler) GetActiveServices(w http.ResponseWriter, r *http.Request) {
    var services []models.Service
    if err := h.db.Where("active = ?", true).Order("title ASC").Find(&services).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error retrieving services")
        return
    }

    utils.WriteJSON(w, http.StatusOK, services)
}

func (h *ServiceHandler) GetService(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    serviceID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid service ID")
        return
    }

    var service models.Service
    if err := h.db.First(&service, serviceID).Error; err != nil {
        utils.WriteError(w, http.StatusNotFound, "Service not found")
        return
    }

    utils.WriteJSON(w, http.StatusOK, service)
}


type serviceRequest struct {
    Title           string          `json:"title"`
    Description     string          `json:"description"`
    Price           decimal.Decimal `json:"price"`
    Duration        int             `json:"duration"`
    SessionType     string          `json:"session_type"`
    MaxParticipants int             `json:"max_participants"`
    Active          *bool           `json:"active"`
}

func (r *serviceRequest) check() string {
    if r.Title == "" {
        return "Title is required"
    }
    if r.Price.IsNegative() {
        return "Price must not be negative"
    }
    if r.Duration <= 0 {
        return "Duration must be a positive number of minutes"
    }
    switch r.SessionType {
    case models.SessionOneOnOne, models.SessionGroup, models.SessionEvent:
    default:
        return "Session type must be one-on-one, group or event"
    }
    if r.MaxParticipants < 1 {
        return "Max participants must be at least 1"
    }
    return ""
}

func (h *ServiceHandler) CreateService(w http.ResponseWriter, r *http.Request) {
    var request serviceRequest
    if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
        return
    }
    if request.SessionType == "" {
        request.SessionType = models.SessionOneOnOne
    }
    if request.MaxParticipants == 0 {
        request.MaxParticipants = 1
    }
    if msg := request.check(); msg != "" {
        utils.WriteError(w, http.StatusBadRequest, msg)
        return
    }

    service := models.Service{
        Title:           request.Title,
        Description:     request.Description,
        Price:           request.Price,
        Duration:        request.Duration,
        SessionType:     request.SessionType,
        MaxParticipants: request.MaxParticipants,
        Active:          true,
    }
    if request.Active != nil {
        service.Active = *request.Active
    }

    if err := h.db.Create(&service).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error creating service")
        return
    }

    utils.WriteJSON(w, http.StatusCreated, service)
}

func (h *ServiceHandler) GetAllServices(w http.ResponseWriter, r *http.Request) {
    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    if page < 1 {
        page = 1
    }
    pageSize := 100

    query := h.db.Model(&models.Service{})

    var total int64
    query.Count(&total)

    var services []models.Service
    if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
        Order("title ASC").Find(&services).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error retrieving services")
        return
    }

    utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
        "services":  services,
        "total":     total,
        "page":      page,
        "page_size": pageSize,
    })
}

func (h *ServiceHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    serviceID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid service ID")
        return
    }

    var service models.Service
    if err := h.db.First(&service, serviceID).Error; err != nil {
        utils.WriteError(w, http.StatusNotFound, "Service not found")
        return
    }

    var request serviceRequest
    if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
        return
    }
    if msg := request.check(); msg != "" {
        utils.WriteError(w, http.StatusBadRequest, msg)
        return
    }

    service.Title = request.Title
    service.Description = request.Description
    service.Price = request.Price
    service.Duration = request.Duration
    service.SessionType = request.SessionType
    service.MaxParticipants = request.MaxParticipants
    if request.Active != nil {
        service.Active = *request.Active
    }

    if err := h.db.Save(&service).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error updating service")
        return
    }

    utils.WriteJSON(w, http.StatusOK, service)
}

// DeactivateService flips the active flag. Services are never physically
// deleted; existing consultations keep a valid reference.
func (h *ServiceHandler) DeactivateService(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    serviceID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid service ID")
        return
    }

    result := h.db.Model(&models.Service{}).Where("id = ?", serviceID).
        Update("active", false)
    if result.Error != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error deactivating service")
        return
    }
    if result.RowsAffected == 0 {
        utils.WriteError(w, http.StatusNotFound, "Service not found")
        return
    }

    utils.WriteJSON(w, http.StatusOK, map[string]string{
        "message": "Service deactivated successfully",
    })
}
