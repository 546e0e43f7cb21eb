package booking

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/serenity-wellness/serenity-server/cmd/config"
	"github.com/serenity-wellness/serenity-server/cmd/models"
	"github.com/serenity-wellness/serenity-server/cmd/utils"
	"github.com/serenity-wellness/serenity-server/service/discount"
	"github.com/serenity-wellness/serenity-server/service/mailer"
	"gorm.io/gorm"
)

var validate = validator.New()

type BookingHandler struct {
    db  *gorm.DB
    cfg *config.Config
}

func NewBookingHandler(db *gorm.DB, cfg *config.Config) *BookingHandler {
    return &BookingHandler{db: db, cfg: cfg}
}


func (h *BookingHandler) RegisterRoutes(router *mux.Router) {
    router.HandleFunc("/consultations", h.BookConsultation).Methods("POST")
}

func (h *BookingHandler) RegisterAdminRoutes(router *mux.Router) {
    router.HandleFunc("/consultations", h.GetAllConsultations).Methods("GET")
    router.HandleFunc("/consultations/{id}", h.GetConsultation).Methods("GET")
    router.HandleFunc("/consultations/{id}/status", h.UpdateStatus).Methods("PATCH")
}


type bookingRequest struct {
    SlotID       uint   `json:"slotId" validate:"required"`
    ServiceID    uint   `json:"serviceId" validate:"required"`
    Name         string `json:"name" validate:"required"`
    Email        string `json:"email" validate:"required,email"`
    Phone        string `json:"phone" validate:"required"`
    Message      string `json:"message"`
    DiscountCode string `json:"discountCode"`
}

// BookConsultation runs the whole booking workflow in one transaction: the
// slot is claimed with a conditional update so two concurrent requests for
// the same slot cannot both succeed, and a discount is redeemed with a
// conditional increment so a code cannot exceed its usage limit.
//
// An invalid discount code does not block the booking; it books at full
// price. Only the standalone validate endpoint rejects.
func (h *BookingHandler) BookConsultation(w http.ResponseWriter, r *http.Request) {
    var request bookingRequest
    if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
        return
    }

    if err := validate.Struct(request); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Missing or invalid fields: name, email, phone, slotId and serviceId are required")
        return
    }

    tx := h.db.Begin()

    var slot models.AvailableSlot
    if err := tx.First(&slot, request.SlotID).Error; err != nil {
        tx.Rollback()
        if errors.Is(err, gorm.ErrRecordNotFound) {
            utils.WriteError(w, http.StatusNotFound, "Slot does not exist")
            return
        }
        utils.WriteError(w, http.StatusInternalServerError, "Database error")
        return
    }

    if slot.IsBooked {
        tx.Rollback()
        utils.WriteError(w, http.StatusConflict, "Slot already booked")
        return
    }

    var service models.Service
    if err := tx.First(&service, request.ServiceID).Error; err != nil {
        tx.Rollback()
        if errors.Is(err, gorm.ErrRecordNotFound) {
            utils.WriteError(w, http.StatusNotFound, "Service does not exist")
            return
        }
        utils.WriteError(w, http.StatusInternalServerError, "Database error")
        return
    }

    basePrice := service.Price
    finalPrice := basePrice.Round(2)

    var appliedCode *models.DiscountCode
    if request.DiscountCode != "" {
        dc, err := discount.Lookup(tx, request.DiscountCode)
        if err != nil && !discount.IsRejection(err) {
            tx.Rollback()
            utils.WriteError(w, http.StatusInternalServerError, "Database error")
            return
        }
        if err == nil {
            if verr := discount.Validate(dc, time.Now()); verr == nil {
                // Redeem with a guard on the usage limit. Zero rows means a
                // concurrent booking took the last redemption; fall back to
                // full price like any other invalid code.
                result := tx.Model(&models.DiscountCode{}).
                    Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", dc.ID).
                    Update("usage_count", gorm.Expr("usage_count + 1"))
                if result.Error != nil {
                    tx.Rollback()
                    utils.WriteError(w, http.StatusInternalServerError, "Error redeeming discount code")
                    return
                }
                if result.RowsAffected > 0 {
                    appliedCode = dc
                    finalPrice = discount.Apply(basePrice, dc)
                }
            }
        }
    }

    consultation := models.Consultation{
        SlotID:    slot.ID,
        ServiceID: service.ID,
        Name:      request.Name,
        Email:     request.Email,
        Phone:     request.Phone,
        Message:   request.Message,
        Status:    models.StatusPending,
        Amount:    finalPrice,
    }
    if appliedCode != nil {
        consultation.DiscountCodeID = &appliedCode.ID
    }

    if err := tx.Create(&consultation).Error; err != nil {
        tx.Rollback()
        utils.WriteError(w, http.StatusInternalServerError, "Error creating consultation")
        return
    }

    // Claim the slot. The is_booked guard makes the reservation atomic even
    // though the earlier read ran outside any lock.
    result := tx.Model(&models.AvailableSlot{}).
        Where("id = ? AND is_booked = ?", slot.ID, false).
        Update("is_booked", true)
    if result.Error != nil {
        tx.Rollback()
        utils.WriteError(w, http.StatusInternalServerError, "Error booking slot")
        return
    }
    if result.RowsAffected == 0 {
        tx.Rollback()
        utils.WriteError(w, http.StatusConflict, "Slot already booked")
        return
    }

    discountDescription := ""
    if appliedCode != nil {
        discountDescription = appliedCode.Description
    }
    body := mailer.BookingConfirmationBody(&consultation, &service, &slot, discountDescription, finalPrice, h.cfg.Currency)
    if err := mailer.Enqueue(tx, consultation.Email, "Booking confirmation", body); err != nil {
        tx.Rollback()
        utils.WriteError(w, http.StatusInternalServerError, "Error queueing confirmation email")
        return
    }

    if err := tx.Commit().Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error completing booking")
        return
    }

    var discountInfo interface{}
    if appliedCode != nil {
        discountInfo = map[string]interface{}{
            "id":          appliedCode.ID,
            "code":        appliedCode.Code,
            "type":        appliedCode.DiscountType,
            "value":       appliedCode.DiscountValue,
            "description": appliedCode.Description,
        }
    }

    utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
        "success":      true,
        "consultation": consultation,
        "discount":     discountInfo,
        "finalPrice":   finalPrice.StringFixed(2),
    })
}


func (h *BookingHandler) GetAllConsultations(w http.ResponseWriter, r *http.Request) {
    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    if page < 1 {
        page = 1
    }
    pageSize := 100

    query := h.db.Model(&models.Consultation{}).Preload("Service").Preload("Slot")

    if status := r.URL.Query().Get("status"); status != "" {
        query = query.Where("status = ?", status)
    }
    if email := r.URL.Query().Get("email"); email != "" {
        query = query.Where("email = ?", email)
    }

    var total int64
    query.Count(&total)

    var consultations []models.Consultation
    if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
        Order("created_at DESC").Find(&consultations).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error retrieving consultations")
        return
    }

    utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
        "consultations": consultations,
        "total":         total,
        "page":          page,
        "page_size":     pageSize,
    })
}

func (h *BookingHandler) GetConsultation(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    consultationID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid consultation ID")
        return
    }

    var consultation models.Consultation
    if err := h.db.Preload("Service").Preload("Slot").Preload("DiscountCode").
        First(&consultation, consultationID).Error; err != nil {
        utils.WriteError(w, http.StatusNotFound, "Consultation not found")
        return
    }

    utils.WriteJSON(w, http.StatusOK, consultation)
}

// UpdateStatus moves a consultation along the status machine. Transitions
// out of cancelled or completed are rejected.
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    consultationID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid consultation ID")
        return
    }

    var request struct {
        Status string `json:"status"`
    }
    if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
        return
    }

    var consultation models.Consultation
    if err := h.db.First(&consultation, consultationID).Error; err != nil {
        utils.WriteError(w, http.StatusNotFound, "Consultation not found")
        return
    }

    if !models.CanTransition(consultation.Status, request.Status) {
        utils.WriteError(w, http.StatusConflict, "Cannot change status from "+consultation.Status+" to "+request.Status)
        return
    }

    // Guard against a concurrent transition between the read and the write.
    result := h.db.Model(&models.Consultation{}).
        Where("id = ? AND status = ?", consultation.ID, consultation.Status).
        Update("status", request.Status)
    if result.Error != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error updating status")
        return
    }
    if result.RowsAffected == 0 {
        utils.WriteError(w, http.StatusConflict, "Consultation status changed concurrently")
        return
    }

    utils.WriteJSON(w, http.StatusOK, map[string]string{
        "message": "Status updated successfully",
        "status":  request.Status,
    })
}
