package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/repository/repoargs"
	"github.com/fsdevblog/groph-vtu/pkg/uow"
)

// moneyPrecision денежная точность в знаках после запятой.
const moneyPrecision = 2

type PriceQuote struct {
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
	Margin       decimal.Decimal
}

// PricingService вычисляет цену продажи и маржу по правилам ServicePrice.
type PricingService struct {
	priceRepo ServicePriceRepository
}

func NewPricingService(u uow.UOW) (*PricingService, error) {
	priceRepo, err := uow.GetRepositoryAs[ServicePriceRepository](u, uow.RepositoryName(repoargs.ServicePriceRepoName))
	if err != nil {
		return nil, err
	}
	return &PricingService{priceRepo: priceRepo}, nil
}

// Quote вычисляет цену продажи для услуги.
//
// Алгоритм работы:
//  1. Если передан override (цена выставленная оператором), маржа считается
//     как разница с себестоимостью, правила не применяются.
//  2. Иначе ищется правило ServicePrice: fixed — фиксированная надбавка,
//     percentage — процент от себестоимости. Отсутствие правила — нулевая маржа.
//  3. Отрицательная маржа (скидка) допустима, но итоговая цена продажи обязана
//     быть положительной, иначе это ошибка конфигурации.
func (s *PricingService) Quote(
	ctx context.Context,
	serviceIdentifier string,
	costPrice decimal.Decimal,
	override *decimal.Decimal,
) (*PriceQuote, error) {
	var margin decimal.Decimal

	if override != nil {
		margin = override.Sub(costPrice)
	} else {
		rule, ruleErr := s.priceRepo.FindByIdentifier(ctx, serviceIdentifier)
		if ruleErr != nil {
			if !errors.Is(ruleErr, domain.ErrRecordNotFound) {
				return nil, fmt.Errorf("quoting %s: %w", serviceIdentifier, ruleErr)
			}
			rule = nil
		}
		margin = marginFromRule(rule, costPrice)
	}

	sellingPrice := costPrice.Add(margin)
	if !sellingPrice.IsPositive() {
		return nil, domain.NewConfigurationError(serviceIdentifier,
			fmt.Sprintf("computed selling price %s is not positive", sellingPrice))
	}

	return &PriceQuote{
		CostPrice:    costPrice,
		SellingPrice: sellingPrice,
		Margin:       margin,
	}, nil
}

func marginFromRule(rule *domain.ServicePrice, costPrice decimal.Decimal) decimal.Decimal {
	if rule == nil {
		return decimal.Zero
	}
	switch rule.MarginType {
	case domain.MarginTypePercentage:
		return costPrice.Mul(rule.MarginValue).
			Div(decimal.NewFromInt(100)). //nolint:mnd
			Round(moneyPrecision)
	default:
		return rule.MarginValue
	}
}
