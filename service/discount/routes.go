package discount

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/serenity-wellness/serenity-server/cmd/models"
	"github.com/serenity-wellness/serenity-server/cmd/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DiscountHandler struct {
    db *gorm.DB
}

func NewDiscountHandler(db *gorm.DB) *DiscountHandler {
    return &DiscountHandler{db: db}
}


func (h *DiscountHandler) RegisterRoutes(router *mux.Router) {
    router.HandleFunc("/discount/validate", h.ValidateCode).Methods("POST")
}

func (h *DiscountHandler) RegisterAdminRoutes(router *mux.Router) {
    router.HandleFunc("/discount-codes", h.ListCodes).Methods("GET")
    router.HandleFunc("/discount-codes", h.CreateCode).Methods("POST")
    router.HandleFunc("/discount-codes/{id}", h.GetCode).Methods("GET")
    router.HandleFunc("/discount-codes/{id}", h.UpdateCode).Methods("PUT")
    router.HandleFunc("/discount-codes/{id}", h.DeleteCode).Methods("DELETE")
}


// ValidateCode is the standalone validation endpoint. Unlike the booking
// path, an invalid code here is a hard rejection.
func (h *DiscountHandler) ValidateCode(w http.ResponseWriter, r *http.Request) {
    var request struct {
        Code string `json:"code"`
    }

    if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
        return
    }
    if request.Code == "" {
        utils.WriteError(w, http.StatusBadRequest, "Discount code is required")
        return
    }

    dc, err := Lookup(h.db, request.Code)
    if err != nil {
        if errors.Is(err, ErrCodeNotFound) {
            utils.WriteError(w, http.StatusNotFound, err.Error())
            return
        }
        utils.WriteError(w, http.StatusInternalServerError, "Database error")
        return
    }

    if err := Validate(dc, time.Now()); err != nil {
        utils.WriteError(w, http.StatusBadRequest, err.Error())
        return
    }

    utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
        "success": true,
        "discount": map[string]interface{}{
            "id":          dc.ID,
            "code":        dc.Code,
            "type":        dc.DiscountType,
            "value":       dc.DiscountValue,
            "description": dc.Description,
        },
    })
}


type codeRequest struct {
    Code          string          `json:"code"`
    Description   string          `json:"description"`
    DiscountType  string          `json:"discount_type"`
    DiscountValue decimal.Decimal `json:"discount_value"`
    ValidFrom     *time.Time      `json:"valid_from"`
    ValidUntil    *time.Time      `json:"valid_until"`
    UsageLimit    *int            `json:"usage_limit"`
    IsActive      *bool           `json:"is_active"`
}

func (r *codeRequest) check() string {
    if r.Code == "" {
        return "Code is required"
    }
    if r.DiscountType != models.DiscountPercentage && r.DiscountType != models.DiscountFixed {
        return "Discount type must be percentage or fixed"
    }
    if r.DiscountValue.IsNegative() {
        return "Discount value must not be negative"
    }
    if r.DiscountType == models.DiscountPercentage && r.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
        return "Percentage discount cannot exceed 100"
    }
    return ""
}

func (h *DiscountHandler) CreateCode(w http.ResponseWriter, r *http.Request) {
    var request codeRequest
    if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
        return
    }
    if msg := request.check(); msg != "" {
        utils.WriteError(w, http.StatusBadRequest, msg)
        return
    }

    dc := models.DiscountCode{
        Code:          Normalize(request.Code),
        Description:   request.Description,
        DiscountType:  request.DiscountType,
        DiscountValue: request.DiscountValue,
        ValidFrom:     request.ValidFrom,
        ValidUntil:    request.ValidUntil,
        UsageLimit:    request.UsageLimit,
        IsActive:      true,
    }
    if request.IsActive != nil {
        dc.IsActive = *request.IsActive
    }

    var existing models.DiscountCode
    if err := h.db.Where("code = ?", dc.Code).First(&existing).Error; err == nil {
        utils.WriteError(w, http.StatusConflict, "Discount code already exists")
        return
    } else if !errors.Is(err, gorm.ErrRecordNotFound) {
        utils.WriteError(w, http.StatusInternalServerError, "Database error")
        return
    }

    if err := h.db.Create(&dc).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error creating discount code")
        return
    }

    utils.WriteJSON(w, http.StatusCreated, dc)
}

func (h *DiscountHandler) ListCodes(w http.ResponseWriter, r *http.Request) {
    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    if page < 1 {
        page = 1
    }
    pageSize := 100

    query := h.db.Model(&models.DiscountCode{})

    if active := r.URL.Query().Get("active"); active != "" {
        query = query.Where("is_active = ?", active == "true")
    }

    var total int64
    query.Count(&total)

    var codes []models.DiscountCode
    if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
        Order("created_at DESC").Find(&codes).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error retrieving discount codes")
        return
    }

    utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
        "discount_codes": codes,
        "total":          total,
        "page":           page,
        "page_size":      pageSize,
    })
}

func (h *DiscountHandler) GetCode(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    codeID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid discount code ID")
        return
    }

    var dc models.DiscountCode
    if err := h.db.First(&dc, codeID).Error; err != nil {
        utils.WriteError(w, http.StatusNotFound, "Discount code not found")
        return
    }

    utils.WriteJSON(w, http.StatusOK, dc)
}

func (h *DiscountHandler) UpdateCode(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    codeID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid discount code ID")
        return
    }

    var dc models.DiscountCode
    if err := h.db.First(&dc, codeID).Error; err != nil {
        utils.WriteError(w, http.StatusNotFound, "Discount code not found")
        return
    }

    var request codeRequest
    if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid request body")
        return
    }
    if msg := request.check(); msg != "" {
        utils.WriteError(w, http.StatusBadRequest, msg)
        return
    }

    dc.Code = Normalize(request.Code)
    dc.Description = request.Description
    dc.DiscountType = request.DiscountType
    dc.DiscountValue = request.DiscountValue
    dc.ValidFrom = request.ValidFrom
    dc.ValidUntil = request.ValidUntil
    dc.UsageLimit = request.UsageLimit
    if request.IsActive != nil {
        dc.IsActive = *request.IsActive
    }

    if err := h.db.Save(&dc).Error; err != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error updating discount code")
        return
    }

    utils.WriteJSON(w, http.StatusOK, dc)
}

func (h *DiscountHandler) DeleteCode(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    codeID, err := strconv.ParseUint(vars["id"], 10, 64)
    if err != nil {
        utils.WriteError(w, http.StatusBadRequest, "Invalid discount code ID")
        return
    }

    result := h.db.Delete(&models.DiscountCode{}, codeID)
    if result.Error != nil {
        utils.WriteError(w, http.StatusInternalServerError, "Error deleting discount code")
        return
    }
    if result.RowsAffected == 0 {
        utils.WriteError(w, http.StatusNotFound, "Discount code not found")
        return
    }

    utils.WriteJSON(w, http.StatusOK, map[string]string{
        "message": "Discount code deleted successfully",
    })
}
