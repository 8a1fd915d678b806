package repoargs

import (
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-vtu/internal/domain"
)

type ServicePriceUpsert struct {
	ServiceIdentifier string
	MarginType        domain.MarginType
	MarginValue       decimal.Decimal
}
