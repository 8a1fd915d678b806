package reconcile

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/provider"
)

type Servicer interface {
	TransactionsForRequery(ctx context.Context, limit uint) ([]domain.Transaction, error)
	ApplyRequeryOutcome(ctx context.Context, trans domain.Transaction, outcome provider.Outcome) error
}

type GatewayResolver interface {
	Resolve(name string) (provider.Gateway, error)
}
