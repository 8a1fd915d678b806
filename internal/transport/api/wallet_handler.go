package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/service"
)

const (
	defaultTransactionsLimit uint = 50
	maxTransactionsLimit     uint = 200
)

type WalletHandler struct {
	svs WalletServicer
}

func NewWalletHandler(svs WalletServicer) *WalletHandler {
	return &WalletHandler{
		svs: svs,
	}
}

type WalletResponse struct {
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

// Index GET RouteGroup + WalletRoute. Текущий баланс кошелька.
func (w *WalletHandler) Index(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	wallet, err := w.svs.GetWallet(reqCtx, currentUserID)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, &WalletResponse{
		Balance:  wallet.Balance.StringFixed(2),
		Currency: wallet.Currency,
	})
}

type FundParams struct {
	Reference string          `binding:"required,min=1,max=100" json:"reference"`
	Amount    decimal.Decimal `binding:"required"               json:"amount"`
}

type FundResponse struct {
	TransID   string `json:"trans_id"`
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
}

// Fund POST RouteGroup + FundRoute. Зачисляет подтверждённый платёж на
// кошелёк. Повторный запрос с тем же reference не зачисляет деньги второй раз.
func (w *WalletHandler) Fund(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params FundParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}
	if !params.Amount.IsPositive() {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "amount must be positive"})
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	trans, err := w.svs.Credit(reqCtx, service.CreditArgs{
		UserID:    currentUserID,
		Amount:    params.Amount,
		Reference: params.Reference,
		Metadata:  "Wallet funding",
	})
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, &FundResponse{
		TransID:   trans.TransID,
		Reference: trans.Reference,
		Amount:    trans.Amount.StringFixed(2),
		Status:    string(trans.Status),
	})
}

type TransactionsQueryParams struct {
	Limit  uint `form:"limit"`
	Offset uint `form:"offset"`
}

type TransactionResponseItem struct {
	TransID   string `json:"trans_id"`
	Direction string `json:"direction"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
	Category  string `json:"category"`
	Provider  string `json:"provider,omitempty"`
	Reference string `json:"reference,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Transactions GET RouteGroup + TransactionsRoute. Постраничная история
// движений по кошельку, новые записи первыми.
func (w *WalletHandler) Transactions(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params TransactionsQueryParams
	if bindErr := c.ShouldBindQuery(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}
	if params.Limit == 0 || params.Limit > maxTransactionsLimit {
		params.Limit = defaultTransactionsLimit
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	transactions, err := w.svs.Transactions(reqCtx, currentUserID, params.Limit, params.Offset)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	if len(transactions) == 0 {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	response := make([]TransactionResponseItem, len(transactions))
	for i, transaction := range transactions {
		response[i] = TransactionResponseItem{
			TransID:   transaction.TransID,
			Direction: string(transaction.Direction),
			Amount:    transaction.Amount.StringFixed(2),
			Status:    string(transaction.Status),
			Category:  string(transaction.ServiceCategory),
			Provider:  transaction.Provider,
			Reference: transaction.Reference,
			CreatedAt: transaction.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, response)
}
