package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/provider"
	"github.com/fsdevblog/groph-vtu/internal/repository/repoargs"
	"github.com/fsdevblog/groph-vtu/internal/service"
)

// UserServicer интерфейс исключительно для моков.
type UserServicer interface {
	Register(ctx context.Context, args service.RegisterUserArgs) (*domain.User, string, error)
	Login(ctx context.Context, username, password string) (*domain.User, string, error)
}

type PurchaseServicer interface {
	Purchase(ctx context.Context, req service.PurchaseRequest) (*service.PurchaseResult, error)
	ValidateCustomer(
		ctx context.Context,
		providerName, serviceID, customerAccountID string,
	) (*provider.CustomerDetails, error)
}

type WalletServicer interface {
	GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error)
	Credit(ctx context.Context, args service.CreditArgs) (*domain.Transaction, error)
	Transactions(ctx context.Context, userID int64, limit, offset uint) ([]domain.Transaction, error)
}

type PriceServicer interface {
	SetPrice(ctx context.Context, args repoargs.ServicePriceUpsert) (*domain.ServicePrice, error)
	List(ctx context.Context) ([]domain.ServicePrice, error)
}
