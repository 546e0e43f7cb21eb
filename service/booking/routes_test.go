package booking

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/serenity-wellness/serenity-server/cmd/config"
	"github.com/serenity-wellness/serenity-server/cmd/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Service{},
		&models.AvailableSlot{},
		&models.Consultation{},
		&models.DiscountCode{},
		&models.OutboxEmail{},
	))
	return db
}

func newTestRouter(db *gorm.DB) *mux.Router {
	cfg := &config.Config{Currency: "usd"}
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	handler := NewBookingHandler(db, cfg)
	handler.RegisterRoutes(api)
	handler.RegisterAdminRoutes(api.PathPrefix("/admin").Subrouter())
	return router
}

func seedService(t *testing.T, db *gorm.DB, price string) models.Service {
	t.Helper()
	service := models.Service{
		Title:           "Initial Consultation",
		Price:           decimal.RequireFromString(price),
		Duration:        60,
		Active:          true,
		SessionType:     models.SessionOneOnOne,
		MaxParticipants: 1,
	}
	require.NoError(t, db.Create(&service).Error)
	return service
}

func seedSlot(t *testing.T, db *gorm.DB, booked bool) models.AvailableSlot {
	t.Helper()
	day := time.Now().AddDate(0, 0, 7).Truncate(24 * time.Hour)
	slot := models.AvailableSlot{
		Date:            day,
		StartTime:       day.Add(10 * time.Hour),
		EndTime:         day.Add(11 * time.Hour),
		IsBooked:        booked,
		SessionType:     models.SlotIndividual,
		MaxParticipants: 1,
	}
	require.NoError(t, db.Create(&slot).Error)
	return slot
}

func bookingPayload(slotID, serviceID uint) map[string]interface{} {
	return map[string]interface{}{
		"slotId":    slotID,
		"serviceId": serviceID,
		"name":      "Ama Mensah",
		"email":     "ama@example.com",
		"phone":     "+233201234567",
	}
}

func postBooking(t *testing.T, router *mux.Router, payload map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/api/consultations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type bookingResponse struct {
	Success      bool                `json:"success"`
	Consultation models.Consultation `json:"consultation"`
	Discount     *struct {
		Code string `json:"code"`
	} `json:"discount"`
	FinalPrice string `json:"finalPrice"`
}

func TestBookConsultationSuccess(t *testing.T) {
	db := setupTestDB(t)
	service := seedService(t, db, "120")
	slot := seedSlot(t, db, false)
	router := newTestRouter(db)

	rec := postBooking(t, router, bookingPayload(slot.ID, service.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var response bookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, "120.00", response.FinalPrice)
	assert.Equal(t, models.StatusPending, response.Consultation.Status)
	assert.Nil(t, response.Discount)

	// Exactly one consultation, and the slot is now booked.
	var count int64
	db.Model(&models.Consultation{}).Count(&count)
	assert.EqualValues(t, 1, count)

	var updated models.AvailableSlot
	require.NoError(t, db.First(&updated, slot.ID).Error)
	assert.True(t, updated.IsBooked)

	// Confirmation email is queued, not sent inline.
	var email models.OutboxEmail
	require.NoError(t, db.First(&email).Error)
	assert.Equal(t, "ama@example.com", email.ToEmail)
	assert.Equal(t, models.EmailPending, email.Status)
	assert.Contains(t, email.Body, "Initial Consultation")
}

func TestBookConsultationWithPercentageDiscount(t *testing.T) {
	db := setupTestDB(t)
	service := seedService(t, db, "120")
	slot := seedSlot(t, db, false)
	require.NoError(t, db.Create(&models.DiscountCode{
		Code:          "SAVE10",
		Description:   "10% off",
		DiscountType:  models.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		IsActive:      true,
	}).Error)
	router := newTestRouter(db)

	payload := bookingPayload(slot.ID, service.ID)
	payload["discountCode"] = "save10"
	rec := postBooking(t, router, payload)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var response bookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "108.00", response.FinalPrice)
	require.NotNil(t, response.Discount)
	assert.Equal(t, "SAVE10", response.Discount.Code)

	var dc models.DiscountCode
	require.NoError(t, db.Where("code = ?", "SAVE10").First(&dc).Error)
	assert.Equal(t, 1, dc.UsageCount)
}

func TestBookConsultationFixedDiscountClampsToZero(t *testing.T) {
	db := setupTestDB(t)
	service := seedService(t, db, "50")
	slot := seedSlot(t, db, false)
	require.NoError(t, db.Create(&models.DiscountCode{
		Code:          "FLAT60",
		DiscountType:  models.DiscountFixed,
		DiscountValue: decimal.NewFromInt(60),
		IsActive:      true,
	}).Error)
	router := newTestRouter(db)

	payload := bookingPayload(slot.ID, service.ID)
	payload["discountCode"] = "FLAT60"
	rec := postBooking(t, router, payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	var response bookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "0.00", response.FinalPrice)
}

func TestBookConsultationSlotAlreadyBooked(t *testing.T) {
	db := setupTestDB(t)
	service := seedService(t, db, "120")
	slot := seedSlot(t, db, true)
	router := newTestRouter(db)

	rec := postBooking(t, router, bookingPayload(slot.ID, service.ID))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Rejected before any side effect.
	var consultations, emails int64
	db.Model(&models.Consultation{}).Count(&consultations)
	db.Model(&models.OutboxEmail{}).Count(&emails)
	assert.EqualValues(t, 0, consultations)
	assert.EqualValues(t, 0, emails)
}

func TestBookConsultationSlotMissing(t *testing.T) {
	db := setupTestDB(t)
	service := seedService(t, db, "120")
	router := newTestRouter(db)

	rec := postBooking(t, router, bookingPayload(9999, service.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookConsultationServiceMissing(t *testing.T) {
	db := setupTestDB(t)
	slot := seedSlot(t, db, false)
	router := newTestRouter(db)

	rec := postBooking(t, router, bookingPayload(slot.ID, 9999))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var count int64
	db.Model(&models.Consultation{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestBookConsultationValidationFailureHasNoSideEffects(t *testing.T) {
	db := setupTestDB(t)
	service := seedService(t, db, "120")
	slot := seedSlot(t, db, false)
	router := newTestRouter(db)

	payload := bookingPayload(slot.ID, service.ID)
	payload["email"] = "not-an-email"
	rec := postBooking(t, router, payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var count int64
	db.Model(&models.Consultation{}).Count(&count)
	assert.EqualValues(t, 0, count)

	var updated models.AvailableSlot
	require.NoError(t, db.First(&updated, slot.ID).Error)
	assert.False(t, updated.IsBooked)
}

// An expired code on the booking path is silently ignored and the booking
// proceeds at full price. Only /discount/validate rejects; this asymmetry is
// deliberate.
func TestBookConsultationExpiredCodeBooksAtFullPrice(t *testing.T) {
	db := setupTestDB(t)
	service := seedService(t, db, "120")
	slot := seedSlot(t, db, false)
	expired := time.Now().Add(-24 * time.Hour)
	require.NoError(t, db.Create(&models.DiscountCode{
		Code:          "OLD",
		DiscountType:  models.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(10),
		ValidUntil:    &expired,
		IsActive:      true,
	}).Error)
	router := newTestRouter(db)

	payload := bookingPayload(slot.ID, service.ID)
	payload["discountCode"] = "OLD"
	rec := postBooking(t, router, payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	var response bookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "120.00", response.FinalPrice)
	assert.Nil(t, response.Discount)

	var dc models.DiscountCode
	require.NoError(t, db.Where("code = ?", "OLD").First(&dc).Error)
	assert.Equal(t, 0, dc.UsageCount)
}

func TestBookConsultationUsageLimitReached(t *testing.T) {
	db := setupTestDB(t)
	service := seedService(t, db, "120")
	slot := seedSlot(t, db, false)
	limit := 1
	require.NoError(t, db.Create(&models.DiscountCode{
		Code:          "ONCE",
		DiscountType:  models.DiscountPercentage,
		DiscountValue: decimal.NewFromInt(50),
		UsageLimit:    &limit,
		UsageCount:    1,
		IsActive:      true,
	}).Error)
	router := newTestRouter(db)

	payload := bookingPayload(slot.ID, service.ID)
	payload["discountCode"] = "ONCE"
	rec := postBooking(t, router, payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	var response bookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "120.00", response.FinalPrice)

	var dc models.DiscountCode
	require.NoError(t, db.Where("code = ?", "ONCE").First(&dc).Error)
	assert.Equal(t, 1, dc.UsageCount)
}

func TestUpdateStatusGuardsTransitions(t *testing.T) {
	db := setupTestDB(t)
	service := seedService(t, db, "120")
	slot := seedSlot(t, db, false)
	consultation := models.Consultation{
		SlotID:    slot.ID,
		ServiceID: service.ID,
		Name:      "Ama Mensah",
		Email:     "ama@example.com",
		Phone:     "+233201234567",
		Status:    models.StatusCancelled,
		Amount:    decimal.NewFromInt(120),
	}
	require.NoError(t, db.Create(&consultation).Error)
	router := newTestRouter(db)

	body, _ := json.Marshal(map[string]string{"status": models.StatusCompleted})
	req := httptest.NewRequest("PATCH", "/api/admin/consultations/1/status", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Nothing moves out of cancelled.
	assert.Equal(t, http.StatusConflict, rec.Code)
}
