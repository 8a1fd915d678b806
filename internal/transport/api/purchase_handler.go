package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/provider"
	"github.com/fsdevblog/groph-vtu/internal/service"
)

type PurchaseHandler struct {
	svs PurchaseServicer
}

func NewPurchaseHandler(svs PurchaseServicer) *PurchaseHandler {
	return &PurchaseHandler{
		svs: svs,
	}
}

type PurchaseParams struct {
	Category          string            `binding:"required,oneof=airtime data electricity cable" json:"category"`
	Provider          string            `binding:"required"                                      json:"provider"`
	ServiceID         string            `binding:"required"                                      json:"service_id"`
	CustomerAccountID string            `binding:"required"                                      json:"customer_account_id"`
	Amount            decimal.Decimal   `binding:"required"                                      json:"amount"`
	PriceOverride     *decimal.Decimal  `json:"price_override"`
	Extra             map[string]string `json:"extra"`
}

type PurchaseResponse struct {
	TransID   string    `json:"trans_id"`
	Status    string    `json:"status"`
	Amount    string    `json:"amount"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Create POST RouteGroup + PurchaseRoute. Выполняет покупку услуги.
//
// Коды ответа:
//   - 200 услуга оказана, средства списаны;
//   - 202 исход у провайдера не определился, транзакция в processing;
//   - 402 недостаточно средств;
//   - 422 провайдер отклонил реквизиты либо ценообразование не позволяет
//     выполнить запрос.
func (h *PurchaseHandler) Create(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params PurchaseParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		var valErrs validator.ValidationErrors
		if errors.As(bindErr, &valErrs) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": valErrs})
			return
		}
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}
	if !params.Amount.IsPositive() {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "amount must be positive"})
		return
	}

	reqCtx, cancel := context.WithTimeout(c, PurchaseTimeout)
	defer cancel()

	result, err := h.svs.Purchase(reqCtx, service.PurchaseRequest{
		UserID:            currentUserID,
		ServiceCategory:   domain.ServiceCategoryType(params.Category),
		Provider:          params.Provider,
		ServiceID:         params.ServiceID,
		CustomerAccountID: params.CustomerAccountID,
		Amount:            params.Amount,
		PriceOverride:     params.PriceOverride,
		Extra:             params.Extra,
	})
	if err != nil {
		h.abortPurchaseError(c, err)
		return
	}

	status := http.StatusOK
	if result.Pending {
		status = http.StatusAccepted
	}
	c.JSON(status, PurchaseResponse{
		TransID:   result.Transaction.TransID,
		Status:    string(result.Transaction.Status),
		Amount:    result.Transaction.Amount.StringFixed(2),
		Detail:    result.Detail,
		CreatedAt: result.Transaction.CreatedAt,
	})
}

func (h *PurchaseHandler) abortPurchaseError(c *gin.Context, err error) {
	var valErr *domain.ValidationError
	var confErr *domain.ConfigurationError
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "insufficient funds"})
	case errors.Is(err, domain.ErrWalletNotFound), errors.Is(err, domain.ErrRecordNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	case errors.Is(err, provider.ErrUnknownProvider):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
	case errors.As(err, &valErr):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": valErr.Error()})
	case errors.As(err, &confErr):
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "service is misconfigured"})
	default:
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
	}
}

type ValidateParams struct {
	Provider          string `binding:"required" json:"provider"`
	ServiceID         string `binding:"required" json:"service_id"`
	CustomerAccountID string `binding:"required" json:"customer_account_id"`
}

type ValidateResponse struct {
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	AccountID string `json:"account_id"`
}

// Validate POST RouteGroup + ValidateRoute. Проверяет реквизиты клиента у
// провайдера до покупки. Денежных эффектов не имеет.
func (h *PurchaseHandler) Validate(c *gin.Context) {
	var params ValidateParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	details, err := h.svs.ValidateCustomer(c, params.Provider, params.ServiceID, params.CustomerAccountID)
	if err != nil {
		var valErr *domain.ValidationError
		switch {
		case errors.Is(err, provider.ErrUnknownProvider):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown provider"})
		case errors.Is(err, provider.ErrValidationUnsupported):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "provider does not support validation"})
		case errors.As(err, &valErr):
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": valErr.Error()})
		default:
			_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		}
		return
	}

	c.JSON(http.StatusOK, ValidateResponse{
		Name:      details.Name,
		Address:   details.Address,
		AccountID: details.AccountID,
	})
}
