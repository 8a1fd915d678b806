package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/repository/repoargs"
)

type PricesHandler struct {
	svs PriceServicer
}

func NewPricesHandler(svs PriceServicer) *PricesHandler {
	return &PricesHandler{
		svs: svs,
	}
}

type PriceResponseItem struct {
	ServiceIdentifier string `json:"service_identifier"`
	MarginType        string `json:"margin_type"`
	MarginValue       string `json:"margin_value"`
}

// Index GET RouteGroup + PricesRoute. Список правил ценообразования.
func (p *PricesHandler) Index(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	prices, err := p.svs.List(reqCtx)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	response := make([]PriceResponseItem, len(prices))
	for i, price := range prices {
		response[i] = PriceResponseItem{
			ServiceIdentifier: price.ServiceIdentifier,
			MarginType:        string(price.MarginType),
			MarginValue:       price.MarginValue.String(),
		}
	}
	c.JSON(http.StatusOK, response)
}

type PriceUpsertParams struct {
	ServiceIdentifier string          `binding:"required,min=1,max=100"          json:"service_identifier"`
	MarginType        string          `binding:"required,oneof=fixed percentage" json:"margin_type"`
	MarginValue       decimal.Decimal `binding:"required"                        json:"margin_value"`
}

// Upsert POST RouteGroup + PricesRoute. Создаёт либо обновляет правило для
// идентификатора услуги.
func (p *PricesHandler) Upsert(c *gin.Context) {
	var params PriceUpsertParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		var valErrs validator.ValidationErrors
		if errors.As(bindErr, &valErrs) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": valErrs})
			return
		}
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	price, err := p.svs.SetPrice(reqCtx, repoargs.ServicePriceUpsert{
		ServiceIdentifier: params.ServiceIdentifier,
		MarginType:        domain.MarginType(params.MarginType),
		MarginValue:       params.MarginValue,
	})
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, PriceResponseItem{
		ServiceIdentifier: price.ServiceIdentifier,
		MarginType:        string(price.MarginType),
		MarginValue:       price.MarginValue.String(),
	})
}
