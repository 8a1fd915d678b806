package repoargs

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-vtu/internal/domain"
)

type TransactionCreate struct {
	WalletID        uuid.UUID
	UserID          int64
	TransID         string
	Direction       domain.DirectionType
	Amount          decimal.Decimal
	Status          domain.TransactionStatusType
	ServiceCategory domain.ServiceCategoryType
	Provider        string
	Reference       string
	Metadata        string
	Profit          decimal.Decimal
	RefundFor       *uuid.UUID
}

// TransactionMarkStatus условный переход статуса. Репозиторий обновляет запись
// только если текущий статус равен From — это и есть защита от повторной
// компенсации.
type TransactionMarkStatus struct {
	ID             uuid.UUID
	From           domain.TransactionStatusType
	To             domain.TransactionStatusType
	AppendMetadata string
	ClearRequery   bool
}
