package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-vtu/internal/transport/api/middlewares"
)

const (
	DefaultServiceTimeout = 3 * time.Second
	// PurchaseTimeout покрывает вызов провайдера и серию опросов статуса в
	// рамках запроса.
	PurchaseTimeout = 90 * time.Second
)

const (
	RouteGroup        = "/api"
	RegisterRoute     = "/user/register"
	LoginRoute        = "/user/login"
	PurchaseRoute     = "/purchase"
	ValidateRoute     = "/purchase/validate"
	WalletRoute       = "/wallet"
	FundRoute         = "/wallet/fund"
	TransactionsRoute = "/wallet/transactions"
	PricesRoute       = "/prices"
	MetricsRoute      = "/metrics"
)

type RouterArgs struct {
	Logger          *logrus.Logger
	UserService     UserServicer
	PurchaseService PurchaseServicer
	WalletService   WalletServicer
	PriceService    PriceServicer
	JWTSecretKey    []byte
}

func New(args RouterArgs) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	authHandler := NewAuthHandler(args.UserService)
	purchaseHandler := NewPurchaseHandler(args.PurchaseService)
	walletHandler := NewWalletHandler(args.WalletService)
	pricesHandler := NewPricesHandler(args.PriceService)

	r.GET(MetricsRoute, gin.WrapH(promhttp.Handler()))

	api := r.Group(RouteGroup)

	api.POST(RegisterRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Register)
	api.POST(LoginRoute, middlewares.NonAuthRequired(args.JWTSecretKey), authHandler.Login)

	api.Use(middlewares.AuthRequired(args.JWTSecretKey))
	// ниже все роуты группы требуют авторизованного пользователя.
	api.POST(PurchaseRoute, purchaseHandler.Create)
	api.POST(ValidateRoute, purchaseHandler.Validate)

	api.GET(WalletRoute, walletHandler.Index)
	api.POST(FundRoute, walletHandler.Fund)
	api.GET(TransactionsRoute, walletHandler.Transactions)

	api.GET(PricesRoute, pricesHandler.Index)
	api.POST(PricesRoute, pricesHandler.Upsert)
	return r
}
