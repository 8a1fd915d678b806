package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
	Username  string
	Email     string
	FullName  string
	Password  string
}

// Wallet хранит баланс юзера. Баланс изменяется только атомарными операциями
// леджера (резерв, компенсация, пополнение), прямых апдейтов поля быть не должно.
type Wallet struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    int64
	Balance   decimal.Decimal
	Currency  string
}

// Transaction одно движение денег по кошельку. Запись append-mostly: после
// достижения терминального статуса (success, failed) сумма и направление
// неизменны, дописываться может только Metadata.
type Transaction struct {
	ID              uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
	WalletID        uuid.UUID
	UserID          int64
	TransID         string
	Direction       DirectionType
	Amount          decimal.Decimal
	Status          TransactionStatusType
	ServiceCategory ServiceCategoryType
	Provider        string
	Reference       string
	Metadata        string
	Profit          decimal.Decimal
	RequeryAttempts uint
	NeedsRequery    bool
	ManualReview    bool
	RefundFor       *uuid.UUID
}

// ServicePrice правило ценообразования для идентификатора услуги
// (например "airtime-mtn"). Отсутствие правила означает нулевую маржу.
type ServicePrice struct {
	ID                uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ServiceIdentifier string
	MarginType        MarginType
	MarginValue       decimal.Decimal
}
