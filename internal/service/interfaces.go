package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/provider"
	"github.com/fsdevblog/groph-vtu/internal/repository/repoargs"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(password string, hashedPassword string) bool
}

type UserRepository interface {
	CreateUser(ctx context.Context, args repoargs.CreateUser) (*domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
}

type WalletRepository interface {
	Create(ctx context.Context, userID int64, currency string) (*domain.Wallet, error)
	FindByUserID(ctx context.Context, userID int64) (*domain.Wallet, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	LockByUserID(ctx context.Context, userID int64) (*domain.Wallet, error)
	LockByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (*domain.Wallet, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, args repoargs.TransactionCreate) (*domain.Transaction, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	FindByTransID(ctx context.Context, transID string) (*domain.Transaction, error)
	FindFundingByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	MarkStatus(ctx context.Context, args repoargs.TransactionMarkStatus) (*domain.Transaction, error)
	AppendMetadata(ctx context.Context, id uuid.UUID, note string) error
	SetNeedsRequery(ctx context.Context, id uuid.UUID, needs bool) error
	GetByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset uint) ([]domain.Transaction, error)
	GetForRequery(ctx context.Context, limit uint) ([]domain.Transaction, error)
	IncrementRequeryAttempts(ctx context.Context, ids []uuid.UUID) error
	MarkManualReview(ctx context.Context, id uuid.UUID, note string) error
}

type ServicePriceRepository interface {
	Upsert(ctx context.Context, args repoargs.ServicePriceUpsert) (*domain.ServicePrice, error)
	FindByIdentifier(ctx context.Context, identifier string) (*domain.ServicePrice, error)
	GetAll(ctx context.Context) ([]domain.ServicePrice, error)
}

// Pricer контракт ценового движка для оркестратора.
type Pricer interface {
	Quote(
		ctx context.Context,
		serviceIdentifier string,
		costPrice decimal.Decimal,
		override *decimal.Decimal,
	) (*PriceQuote, error)
}

// Ledger атомарные операции над кошельком, потребляемые оркестратором саги.
type Ledger interface {
	Reserve(ctx context.Context, args ReserveArgs) (*domain.Transaction, error)
	SettleSuccess(ctx context.Context, transactionID uuid.UUID, metadata string) (*domain.Transaction, error)
	SettleFailureAndRefund(
		ctx context.Context,
		transactionID uuid.UUID,
		metadata string,
	) (*domain.Transaction, error)
	FlagForRequery(ctx context.Context, transactionID uuid.UUID) error
	TransactionsForRequery(ctx context.Context, limit uint) ([]domain.Transaction, error)
	IncrementRequeryAttempts(ctx context.Context, ids []uuid.UUID) error
	MarkManualReview(ctx context.Context, id uuid.UUID, note string) error
}

// GatewayResolver выдаёт шлюз провайдера по имени.
type GatewayResolver interface {
	Resolve(name string) (provider.Gateway, error)
}
