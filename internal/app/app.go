package app

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-vtu/internal/repository/repoargs"

	"github.com/fsdevblog/groph-vtu/internal/notify"
	"github.com/fsdevblog/groph-vtu/internal/provider"
	"github.com/fsdevblog/groph-vtu/internal/provider/browservtu"
	"github.com/fsdevblog/groph-vtu/internal/provider/ebills"
	"github.com/fsdevblog/groph-vtu/internal/provider/mobilenig"
	"github.com/fsdevblog/groph-vtu/internal/provider/vtpass"
	"github.com/fsdevblog/groph-vtu/internal/transport/reconcile"

	"github.com/fsdevblog/groph-vtu/pkg/uow"

	"github.com/fsdevblog/groph-vtu/internal/config"
	"github.com/fsdevblog/groph-vtu/internal/repository/pgrepo"
	"github.com/fsdevblog/groph-vtu/internal/service"
	"github.com/fsdevblog/groph-vtu/internal/transport/api"
	"github.com/sirupsen/logrus"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	"os/signal"
	"syscall"

	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
	"github.com/jackc/pgx/v5/pgxpool"
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.WithField("runAddress", a.Config.RunAddress).Info("Starting app")
	conn, connErr := pgrepo.Connect(notifyCtx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return fmt.Errorf("app run: %s", connErr.Error())
	}
	defer conn.Close()

	unitOfWork, uowErr := initUOW(conn)
	if uowErr != nil {
		return fmt.Errorf("app run: %s", uowErr.Error())
	}

	gateways := a.initGateways()

	notifier := notify.NewEmailNotifier(a.Config.RedisAddr, notify.SMTPConfig{
		Host:     a.Config.SMTPHost,
		Port:     a.Config.SMTPPort,
		User:     a.Config.SMTPUser,
		Password: a.Config.SMTPPassword,
		From:     a.Config.SMTPFrom,
		FromName: a.Config.SMTPFromName,
	}, a.Logger)
	go notifier.Run(notifyCtx)

	services, sErr := service.Factory(unitOfWork, gateways, notifier, []byte(a.Config.JWTUserSecret), a.Logger)
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}

	router := api.New(api.RouterArgs{
		Logger:          a.Logger,
		UserService:     services.UserService,
		PurchaseService: services.PurchaseService,
		WalletService:   services.LedgerService,
		PriceService:    services.PriceService,
		JWTSecretKey:    []byte(a.Config.JWTUserSecret),
	})

	errChan := make(chan error, 1)

	go func() {
		if runErr := router.Run(a.Config.RunAddress); runErr != nil {
			errChan <- runErr
		}
	}()

	processor := reconcile.New(services.PurchaseService, gateways, a.Logger).
		SetQueryWorkers(5).      //nolint:mnd
		SetLimitPerIteration(50) //nolint:mnd

	go processor.Run(notifyCtx)

	select {
	case <-notifyCtx.Done():
		return notifyCtx.Err() //nolint:wrapcheck
	case err := <-errChan:
		return err
	}
}

// initGateways собирает реестр шлюзов провайдеров. Браузерный провайдер
// включается только при настроенном сайдкаре автоматизации.
func (a *App) initGateways() *provider.Registry {
	gateways := []provider.Gateway{
		mobilenig.New(mobilenig.Config{
			BaseURL:   a.Config.MobileNigBaseURL,
			PublicKey: a.Config.MobileNigPublicKey,
			SecretKey: a.Config.MobileNigSecretKey,
		}),
		ebills.New(ebills.Config{
			BaseURL:  a.Config.EBillsBaseURL,
			Username: a.Config.EBillsUsername,
			Password: a.Config.EBillsPassword,
		}),
		vtpass.New(vtpass.Config{
			BaseURL:   a.Config.VTpassBaseURL,
			APIKey:    a.Config.VTpassAPIKey,
			PublicKey: a.Config.VTpassPublicKey,
			SecretKey: a.Config.VTpassSecretKey,
		}),
	}
	if a.Config.BrowserAutomationURL != "" {
		gateways = append(gateways, browservtu.New(browservtu.NewHTTPAutomator(a.Config.BrowserAutomationURL)))
	}
	return provider.NewRegistry(gateways...)
}

func initUOW(conn *pgxpool.Pool) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn)

	// user repo
	userRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewUserRepository(dbtx)
	}
	if regErr := unitOfWork.Register(uow.RepositoryName(repoargs.UserRepoName), userRepoFactoryFn); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	// wallet repo
	walletRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewWalletRepository(dbtx)
	}
	if regErr := unitOfWork.Register(uow.RepositoryName(repoargs.WalletRepoName), walletRepoFactoryFn); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	// transaction repo
	transactionRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewTransactionRepository(dbtx)
	}
	if regErr := unitOfWork.Register(
		uow.RepositoryName(repoargs.TransactionRepoName),
		transactionRepoFactoryFn,
	); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	// service price repo
	servicePriceRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewServicePriceRepository(dbtx)
	}
	if regErr := unitOfWork.Register(
		uow.RepositoryName(repoargs.ServicePriceRepoName),
		servicePriceRepoFactoryFn,
	); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	return unitOfWork, nil
}
