package service

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/repository/repoargs"
	"github.com/fsdevblog/groph-vtu/pkg/uow"
)

// ServicePriceService управление правилами ценообразования.
type ServicePriceService struct {
	priceRepo ServicePriceRepository
}

func NewServicePriceService(u uow.UOW) (*ServicePriceService, error) {
	priceRepo, err := uow.GetRepositoryAs[ServicePriceRepository](u, uow.RepositoryName(repoargs.ServicePriceRepoName))
	if err != nil {
		return nil, err
	}
	return &ServicePriceService{priceRepo: priceRepo}, nil
}

// SetPrice создаёт либо обновляет правило для идентификатора услуги.
func (s *ServicePriceService) SetPrice(
	ctx context.Context,
	args repoargs.ServicePriceUpsert,
) (*domain.ServicePrice, error) {
	switch args.MarginType {
	case domain.MarginTypeFixed, domain.MarginTypePercentage:
	default:
		return nil, fmt.Errorf("set price %s: unknown margin type %q", args.ServiceIdentifier, args.MarginType)
	}
	return s.priceRepo.Upsert(ctx, args) //nolint:wrapcheck
}

func (s *ServicePriceService) List(ctx context.Context) ([]domain.ServicePrice, error) {
	return s.priceRepo.GetAll(ctx) //nolint:wrapcheck
}
