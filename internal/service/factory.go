package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-vtu/internal/notify"
	"github.com/fsdevblog/groph-vtu/internal/service/psswd"
	"github.com/fsdevblog/groph-vtu/pkg/uow"
)

type AppServices struct {
	UserService     *UserService
	LedgerService   *LedgerService
	PricingService  *PricingService
	PriceService    *ServicePriceService
	PurchaseService *PurchaseService
}

func Factory(
	unitOfWork uow.UOW,
	gateways GatewayResolver,
	notifier notify.Notifier,
	jwtSecret []byte,
	l *logrus.Logger,
) (*AppServices, error) {
	userService, userServiceErr := NewUserService(unitOfWork, psswd.PasswordHash(""), jwtSecret)
	if userServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", userServiceErr.Error())
	}

	ledgerService, ledgerServiceErr := NewLedgerService(unitOfWork, l)
	if ledgerServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", ledgerServiceErr.Error())
	}

	pricingService, pricingServiceErr := NewPricingService(unitOfWork)
	if pricingServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", pricingServiceErr.Error())
	}

	priceService, priceServiceErr := NewServicePriceService(unitOfWork)
	if priceServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", priceServiceErr.Error())
	}

	userRepo := userService.userRepo
	purchaseService := NewPurchaseService(pricingService, ledgerService, gateways, userRepo, notifier, l)

	return &AppServices{
		UserService:     userService,
		LedgerService:   ledgerService,
		PricingService:  pricingService,
		PriceService:    priceService,
		PurchaseService: purchaseService,
	}, nil
}
