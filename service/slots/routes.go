package slots

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/serenity-wellness/serenity-server/cmd/models"
	"github.com/serenity-wellness/serenity-server/cmd/utils"
	"gorm.io/gorm"
)

type SlotHandler struct {
    db *gorm.DB
}

func NewSlotHandler(db *gorm.DB) *SlotHandler {
    return &SlotHandler{db: db}
}


func (h *SlotHandler) RegisterRoutes(router *mux.Router) {
    router.HandleFunc("/available-slots", h.GetAvailableSlots).Methods("GET")
}

func (h *SlotHandler) RegisterAdminRoutes(router *mux.Router) {
    router.HandleFunc("/slots", h.GetSlots).Methods("GET")
    router.HandleFunc("/slots", h.CreateSlot).Methods("POST")
    router.HandleFunc("/slots/bulk", h.CreateSlotsBulk).Methods("POST")
    router.HandleFunc("/slots/{id}", h.UpdateSlot).Methods("PUT")
    router.HandleFunc("/slots/{id}", h.DeleteSlot).Methods("DELETE")
}


// GetAvailableSlots lists unbooked slots from a given date on. A serviceId
// filter also matches slots with no service, which accept any service.
// Session-type filtering stays on the client.
func (h *SlotHandler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
    fromDate := time.Now().Truncate(24 * time.Hour)
    if from := r.URL.Query().Get("fromDate"); from != "" {
        parsed, err := time.Parse("2006-01-02", from)
        if err != nil {
            utils.WriteError(w, http.StatusBadRequest, "Invalid fromDate, expected YYYY-MM-DD")
            return
        }
        fromDate = parsed
    }

    query := h.db.Model(&models.AvailableSlot{}).
        Where("is_booked = ?", false).
        Where("date >= ?", fromDate)

    if serviceID := r.URL.Query().Get("serviceId"); serviceID != "" {
        sid, err := strconv.ParseUint(serviceID, 10, 64)
        if err != nil {
            utils.WriteError(w, http.StatusBadRequest, "Invalid serviceId")
            return
        }
        query = query.Where("service_id = ? OR service_id IS NULL", sid)
    }

    var slots []models.AvailableSlot
    if err := query.Order("date ASC, start_time ASC").Find(&slots).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error retrieving slots")
        return
    }

    utils.WriteJSON(w, http.StatusOK, slots)
}


type slotRequest struct {
    Date            time.Time `json:"date"`
    StartTime       time.Time `json:"start_time"`
    EndTime         time.Time `json:"end_time"`
    SessionType     string    `json:"session_type"`
    ServiceID       *uint     `json:"service_id"`
    MaxParticipants int       `json:"max_participants"`
}

func (r *slotRequest) check() string {
    if r.Date.IsZero() {
        return "Date is required"
    }
    if !r.EndTime.After(r.StartTime) {
        return "End time must be after start time"
    }
    switch r.SessionType {
    case models.SlotIndividual, models.SlotGroup:
    default:
        return "Session type must be individual or group"
    }
    return ""
}

func (h *SlotHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
    var request slotRequest
    if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
        return
    }
    if request.SessionType == "" {
        request.SessionType = models.SlotIndividual
    }
    if request.MaxParticipants == 0 {
        request.MaxParticipants = 1
    }
    if msg := request.check(); msg != "" {
        utils.WriteError(w, http.StatusBadRequest, msg)
        return
    }

    // Reject overlapping windows on the same day.
    var existing models.AvailableSlot
    overlap := h.db.Where("date = ? AND start_time < ? AND end_time > ?",
        request.Date,
        request.EndTime,
        request.StartTime,
    ).First(&existing)

    if overlap.Error != nil && overlap.Error != gorm.ErrRecordNotFound {
        utils.WriteError(w, http.StatusInternalServerError, "Database error")
        return
    }
    if overlap.Error == nil {
        utils.WriteError(w, http.StatusConflict, "Time slot overlaps with an existing slot")
        return
    }

    slot := models.AvailableSlot{
        Date:            request.Date,
        StartTime:       request.StartTime,
        EndTime:         request.EndTime,
        SessionType:     request.SessionType,
        ServiceID:       request.ServiceID,
        MaxParticipants: request.MaxParticipants,
    }

    if err := h.db.Create(&slot).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error creating slot")
        return
    }

    utils.WriteJSON(w, http.StatusCreated, slot)
}

// CreateSlotsBulk creates one slot per day across a date range, all at the
// same time of day.
func (h *SlotHandler) CreateSlotsBulk(w http.ResponseWriter, r *http.Request) {
    var request struct {
        StartDate       time.Time `json:"start_date"`
        EndDate         time.Time `json:"end_date"`
        StartTime       time.Time `json:"start_time"`
        EndTime         time.Time `json:"end_time"`
        SessionType     string    `json:"session_type"`
        ServiceID       *uint     `json:"service_id"`
        MaxParticipants int       `json:"max_participants"`
    }

    if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
        return
    }
    if request.SessionType == "" {
        request.SessionType = models.SlotIndividual
    }
    if request.MaxParticipants == 0 {
        request.MaxParticipants = 1
    }
    if request.StartDate.IsZero() || request.EndDate.Before(request.StartDate) {
        utils.WriteError(w, http.StatusBadRequest, "Invalid date range")
        return
    }
    if !request.EndTime.After(request.StartTime) {
        utils.WriteError(w, http.StatusBadRequest, "End time must be after start time")
        return
    }

    var created []models.AvailableSlot
    tx := h.db.Begin()

    for day := request.StartDate; !day.After(request.EndDate); day = day.AddDate(0, 0, 1) {
        slot := models.AvailableSlot{
            Date:            day,
            StartTime:       request.StartTime,
            EndTime:         request.EndTime,
            SessionType:     request.SessionType,
            ServiceID:       request.ServiceID,
            MaxParticipants: request.MaxParticipants,
        }
        if err := tx.Create(&slot).Error; err != nil {
            tx.Rollback()
            utils.WriteError(w, http.StatusInternalServerError, "Error creating slots")
            return
        }
        created = append(created, slot)
    }

    if err := tx.Commit().Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error completing bulk creation")
        return
    }

    utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
        "slots":   created,
        "created": len(created),
    })
}

func (h *SlotHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    if page < 1 {
        page = 1
    }
    pageSize := 100

    query := h.db.Model(&models.AvailableSlot{})

    if startDate := r.URL.Query().Get("start_date"); startDate != "" {
        query = query.Where("date >= ?", startDate)
    }
    if endDate := r.URL.Query().Get("end_date"); endDate != "" {
        query = query.Where("date <= ?", endDate)
    }
    if booked := r.URL.Query().Get("booked"); booked != "" {
        query = query.Where("is_booked = ?", booked == "true")
    }

    var total int64
    query.Count(&total)

    var slots []models.AvailableSlot
    if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
        Order("date ASC, start_time ASC").Find(&slots).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error retrieving slots")
        return
    }

    utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
        "slots":     slots,
        "total":     total,
        "page":      page,
        "page_size": pageSize,
    })
}

func (h *SlotHandler) UpdateSlot(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    slotID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid slot ID")
        return
    }

    var slot models.AvailableSlot
    if err := h.db.First(&slot, slotID).Error; err != nil {
        utils.WriteError(w, http.StatusNotFound, "Slot not found")
        return
    }
    if slot.IsBooked {
        utils.WriteError(w, http.StatusConflict, "Cannot modify a booked slot")
        return
    }

    var request slotRequest
    if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
        return
    }
    if msg := request.check(); msg != "" {
        utils.WriteError(w, http.StatusBadRequest, msg)
        return
    }

    slot.Date = request.Date
    slot.StartTime = request.StartTime
    slot.EndTime = request.EndTime
    slot.SessionType = request.SessionType
    slot.ServiceID = request.ServiceID
    if request.MaxParticipants > 0 {
        slot.MaxParticipants = request.MaxParticipants
    }

    if err := h.db.Save(&slot).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error updating slot")
        return
    }

    utils.WriteJSON(w, http.StatusOK, slot)
}

func (h *SlotHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    slotID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid slot ID")
        return
    }

    var slot models.AvailableSlot
    if err := h.db.First(&slot, slotID).Error; err != nil {
        utils.WriteError(w, http.StatusNotFound, "Slot not found")
        return
    }
    if slot.IsBooked {
        utils.WriteError(w, http.StatusConflict, "Cannot delete a booked slot")
        return
    }

    if err := h.db.Delete(&slot).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error deleting slot")
        return
    }

    utils.WriteJSON(w, http.StatusOK, map[string]string{
        "message": "Slot deleted successfully",
    })
}
