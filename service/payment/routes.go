package payment

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/serenity-wellness/serenity-server/cmd/config"
	"github.com/serenity-wellness/serenity-server/cmd/models"
	"github.com/serenity-wellness/serenity-server/cmd/utils"
	"github.com/serenity-wellness/serenity-server/service/mailer"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentHandler struct {
    db     *gorm.DB
    stripe *StripeClient
    cfg    *config.Config
}

func NewPaymentHandler(db *gorm.DB, stripe *StripeClient, cfg *config.Config) *PaymentHandler {
    return &PaymentHandler{db: db, stripe: stripe, cfg: cfg}
}


func (h *PaymentHandler) RegisterRoutes(router *mux.Router) {
    router.HandleFunc("/create-payment-intent", h.CreatePaymentIntent).Methods("POST")
    router.HandleFunc("/payment-success", h.PaymentSuccess).Methods("POST")
    router.HandleFunc("/stripe/webhook", h.HandleStripeWebhook).Methods("POST")
}


func (h *PaymentHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
    var request struct {
        Amount         decimal.Decimal `json:"amount"`
        ConsultationID uint            `json:"consultationId"`
    }

    if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
        return
    }

    if !request.Amount.IsPositive() {
        utils.WriteError(w, http.StatusBadRequest, "Amount must be a positive number")
        return
    }

    var consultation models.Consultation
    if err := h.db.First(&consultation, request.ConsultationID).Error; err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            utils.WriteError(w, http.StatusNotFound, "Consultation not found")
            return
        }
        utils.WriteError(w, http.StatusInternalServerError, "Database error")
        return
    }

    // Stripe wants the amount in the currency's minor unit.
    amountMinor := request.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()

    intent, err := h.stripe.CreatePaymentIntent(r.Context(), amountMinor, h.cfg.Currency, consultation.ID)
    if err != nil {
        log.Printf("payment: error creating payment intent for consultation %d: %v", consultation.ID, err)
        utils.WriteError(w, http.StatusBadGateway, "Error creating payment intent")
        return
    }

    if err := h.db.Model(&consultation).Update("payment_intent_id", intent.ID).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error saving payment reference")
        return
    }

    utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
        "success":      true,
        "clientSecret": intent.ClientSecret,
    })
}


func (h *PaymentHandler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
    var request struct {
        ConsultationID  uint   `json:"consultationId"`
        PaymentIntentID string `json:"paymentIntentId"`
    }

    if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
        return
    }

    status, message := h.confirmPayment(request.ConsultationID, request.PaymentIntentID)
    if status != http.StatusOK {
        utils.WriteError(w, status, message)
        return
    }

    utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
        "success":            true,
        "message":            message,
        "consultationStatus": models.StatusPaid,
    })
}

// confirmPayment performs the guarded pending -> paid transition and queues
// the receipt email. A consultation that is already paid is a no-op success;
// any other prior status is a conflict.
func (h *PaymentHandler) confirmPayment(consultationID uint, paymentIntentID string) (int, string) {
    var consultation models.Consultation
    if err := h.db.First(&consultation, consultationID).Error; err != nil {
        return http.StatusNotFound, "Consultation not found"
    }

    var service models.Service
    if err := h.db.First(&service, consultation.ServiceID).Error; err != nil {
        return http.StatusNotFound, "Service not found"
    }

    var slot models.AvailableSlot
    if err := h.db.First(&slot, consultation.SlotID).Error; err != nil {
        return http.StatusNotFound, "Slot not found"
    }

    if consultation.Status == models.StatusPaid {
        return http.StatusOK, "Payment already confirmed"
    }

    tx := h.db.Begin()

    result := tx.Model(&models.Consultation{}).
        Where("id = ? AND status = ?", consultation.ID, models.StatusPending).
        Updates(map[string]interface{}{
            "status":            models.StatusPaid,
            "payment_intent_id": paymentIntentID,
        })
    if result.Error != nil {
        tx.Rollback()
        return http.StatusInternalServerError, "Error updating consultation"
    }
    if result.RowsAffected == 0 {
        tx.Rollback()
        // Re-read: a concurrent confirmation may have won the race.
        if err := h.db.First(&consultation, consultationID).Error; err == nil && consultation.Status == models.StatusPaid {
            return http.StatusOK, "Payment already confirmed"
        }
        return http.StatusConflict, "Consultation cannot be marked as paid from status " + consultation.Status
    }

    body := mailer.PaymentConfirmationBody(&consultation, &service, &slot, h.cfg.Currency)
    if err := mailer.Enqueue(tx, consultation.Email, "Payment confirmation", body); err != nil {
        tx.Rollback()
        return http.StatusInternalServerError, "Error queueing confirmation email"
    }

    if err := tx.Commit().Error; err != nil {
        return http.StatusInternalServerError, "Error completing payment confirmation"
    }

    return http.StatusOK, "Payment confirmed successfully"
}


// HandleStripeWebhook processes payment_intent.succeeded events, driving the
// same guarded confirmation as the payment-success endpoint.
func (h *PaymentHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
    body, err := io.ReadAll(r.Body)
    if err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Error reading request body")
        return
    }

    if !VerifyWebhookSignature(h.cfg.StripeWebhookSecret, body, r.Header.Get("Stripe-Signature")) {
        utils.WriteError(w, http.StatusBadRequest, "Invalid signature")
        return
    }

    var event struct {
        Type string `json:"type"`
        Data struct {
            Object struct {
                ID       string `json:"id"`
                Metadata struct {
                    ConsultationID string `json:"consultation_id"`
                } `json:"metadata"`
            } `json:"object"`
        } `json:"data"`
    }

    if err := json.Unmarshal(body, &event); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Error parsing webhook payload")
        return
    }

    if event.Type != "payment_intent.succeeded" {
        w.WriteHeader(http.StatusOK)
        return
    }

    var consultation models.Consultation
    query := h.db.Where("payment_intent_id = ?", event.Data.Object.ID)
    if err := query.First(&consultation).Error; err != nil {
        log.Printf("payment: webhook for unknown payment intent %s", event.Data.Object.ID)
        // Acknowledge so Stripe stops retrying an event we cannot match.
        w.WriteHeader(http.StatusOK)
        return
    }

    status, message := h.confirmPayment(consultation.ID, event.Data.Object.ID)
    if status != http.StatusOK {
        log.Printf("payment: webhook confirmation failed for consultation %d: %s", consultation.ID, message)
        utils.WriteError(w, status, message)
        return
    }

    w.WriteHeader(http.StatusOK)
}
