package service_test

import (
	. "github.com/fsdevblog/groph-vtu/internal/service"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/notify"
	notifymocks "github.com/fsdevblog/groph-vtu/internal/notify/mocks"
	"github.com/fsdevblog/groph-vtu/internal/provider"
	providermocks "github.com/fsdevblog/groph-vtu/internal/provider/mocks"
	"github.com/fsdevblog/groph-vtu/internal/service/mocks"
	"github.com/fsdevblog/groph-vtu/internal/service/transid"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type PurchaseServiceTestSuite struct {
	suite.Suite
	mockCtrl     *gomock.Controller
	mockPricer   *mocks.MockPricer
	mockLedger   *mocks.MockLedger
	mockResolver *mocks.MockGatewayResolver
	mockUserRepo *mocks.MockUserRepository
	mockGateway  *providermocks.MockGateway
	mockNotifier *notifymocks.MockNotifier
	service      *PurchaseService

	user domain.User
}

func TestPurchaseServiceSuite(t *testing.T) {
	suite.Run(t, new(PurchaseServiceTestSuite))
}

func (s *PurchaseServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockPricer = mocks.NewMockPricer(s.mockCtrl)
	s.mockLedger = mocks.NewMockLedger(s.mockCtrl)
	s.mockResolver = mocks.NewMockGatewayResolver(s.mockCtrl)
	s.mockUserRepo = mocks.NewMockUserRepository(s.mockCtrl)
	s.mockGateway = providermocks.NewMockGateway(s.mockCtrl)
	s.mockNotifier = notifymocks.NewMockNotifier(s.mockCtrl)

	s.user = domain.User{ID: 1, Username: "user1", Email: "user1@example.com", FullName: "User One"}

	s.service = NewPurchaseService(
		s.mockPricer,
		s.mockLedger,
		s.mockResolver,
		s.mockUserRepo,
		s.mockNotifier,
		logrus.New(),
	).SetInlineBackoff([]time.Duration{time.Millisecond}).
		SetMaxRequeryAttempts(3)
}

func (s *PurchaseServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *PurchaseServiceTestSuite) expectGateway(name string) {
	s.mockResolver.EXPECT().Resolve(name).Return(s.mockGateway, nil)
	s.mockGateway.EXPECT().Name().Return(name).AnyTimes()
	s.mockGateway.EXPECT().TransIDMode().Return(transid.ModeAlphanumeric).AnyTimes()
}

func (s *PurchaseServiceTestSuite) expectQuote(cost, selling, margin int64) {
	s.mockPricer.EXPECT().
		Quote(gomock.Any(), "airtime-mtn", gomock.Any(), nil).
		Return(&PriceQuote{
			CostPrice:    decimal.NewFromInt(cost),
			SellingPrice: decimal.NewFromInt(selling),
			Margin:       decimal.NewFromInt(margin),
		}, nil)
}

func purchaseReq() PurchaseRequest {
	return PurchaseRequest{
		UserID:            1,
		ServiceCategory:   domain.ServiceCategoryAirtime,
		Provider:          "mobilenig",
		ServiceID:         "MTN",
		CustomerAccountID: "08030000001",
		Amount:            decimal.NewFromInt(100),
	}
}

// TestPurchase_Success резервируется цена продажи, провайдеру уходит
// себестоимость.
func (s *PurchaseServiceTestSuite) TestPurchase_Success() {
	trans := domain.Transaction{
		ID:              uuid.New(),
		UserID:          1,
		Amount:          decimal.NewFromInt(110),
		Status:          domain.TransactionStatusProcessing,
		ServiceCategory: domain.ServiceCategoryAirtime,
		Provider:        "mobilenig",
	}
	settled := trans
	settled.Status = domain.TransactionStatusSuccess

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), int64(1)).Return(&s.user, nil)
	s.expectGateway("mobilenig")
	s.expectQuote(100, 110, 10)

	s.mockLedger.EXPECT().
		Reserve(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args ReserveArgs) (*domain.Transaction, error) {
			s.True(decimal.NewFromInt(110).Equal(args.Amount), "reserve amount %s", args.Amount)
			s.True(decimal.NewFromInt(10).Equal(args.Profit))
			s.Equal("AIRTIME-08030000001", args.Reference)
			trans.TransID = args.TransID
			settled.TransID = args.TransID
			return &trans, nil
		})

	s.mockGateway.EXPECT().
		Purchase(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args provider.PurchaseArgs) provider.Outcome {
			s.True(decimal.NewFromInt(100).Equal(args.Amount), "provider amount %s", args.Amount)
			s.Equal("MTN", args.ServiceID)
			return provider.Success("topup delivered", "REF123", "")
		})

	s.mockLedger.EXPECT().
		SettleSuccess(gomock.Any(), trans.ID, gomock.Any()).
		Return(&settled, nil)

	s.mockNotifier.EXPECT().
		Notify(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, n notify.Notification) {
			s.Equal(notify.KindPurchaseSuccess, n.Kind)
			s.Equal(s.user.Email, n.Email)
		})

	result, err := s.service.Purchase(s.T().Context(), purchaseReq())
	s.Require().NoError(err)
	s.False(result.Pending)
	s.Equal(domain.TransactionStatusSuccess, result.Transaction.Status)
}

// TestPurchase_FailureRefunds подтверждённый отказ компенсируется и порождает
// два уведомления: об отказе и о возврате.
func (s *PurchaseServiceTestSuite) TestPurchase_FailureRefunds() {
	trans := domain.Transaction{
		ID:              uuid.New(),
		UserID:          1,
		Amount:          decimal.NewFromInt(110),
		Status:          domain.TransactionStatusProcessing,
		ServiceCategory: domain.ServiceCategoryAirtime,
		Provider:        "mobilenig",
	}
	refund := domain.Transaction{
		ID:        uuid.New(),
		Direction: domain.DirectionCredit,
		Amount:    trans.Amount,
		RefundFor: &trans.ID,
	}

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), int64(1)).Return(&s.user, nil)
	s.expectGateway("mobilenig")
	s.expectQuote(100, 110, 10)

	s.mockLedger.EXPECT().Reserve(gomock.Any(), gomock.Any()).Return(&trans, nil)

	s.mockGateway.EXPECT().
		Purchase(gomock.Any(), gomock.Any()).
		Return(provider.Failure("INSUFFICIENT_BALANCE", ""))

	s.mockLedger.EXPECT().
		SettleFailureAndRefund(gomock.Any(), trans.ID, gomock.Any()).
		Return(&refund, nil)

	kinds := make([]notify.Kind, 0, 2)
	s.mockNotifier.EXPECT().
		Notify(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, n notify.Notification) {
			kinds = append(kinds, n.Kind)
		}).Times(2)

	result, err := s.service.Purchase(s.T().Context(), purchaseReq())
	s.Require().NoError(err)
	s.Equal(domain.TransactionStatusFailed, result.Transaction.Status)
	s.Require().NotNil(result.Refund)
	s.Equal([]notify.Kind{notify.KindPurchaseFailed, notify.KindRefundIssued}, kinds)
}

// TestPurchase_InsufficientFunds при нехватке средств провайдер не вызывается.
func (s *PurchaseServiceTestSuite) TestPurchase_InsufficientFunds() {
	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), int64(1)).Return(&s.user, nil)
	s.expectGateway("mobilenig")
	s.expectQuote(100, 110, 10)

	s.mockLedger.EXPECT().
		Reserve(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrInsufficientFunds)

	// Purchase у шлюза не ожидается вовсе
	_, err := s.service.Purchase(s.T().Context(), purchaseReq())
	s.Require().ErrorIs(err, domain.ErrInsufficientFunds)
}

// TestPurchase_AmbiguousResolvedInline неоднозначный исход разрешается
// повторным опросом статуса в рамках запроса.
func (s *PurchaseServiceTestSuite) TestPurchase_AmbiguousResolvedInline() {
	trans := domain.Transaction{
		ID:      uuid.New(),
		UserID:  1,
		TransID: "250101120000ABC",
		Amount:  decimal.NewFromInt(110),
		Status:  domain.TransactionStatusProcessing,
	}
	settled := trans
	settled.Status = domain.TransactionStatusSuccess

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), int64(1)).Return(&s.user, nil)
	s.expectGateway("mobilenig")
	s.expectQuote(100, 110, 10)
	s.mockLedger.EXPECT().Reserve(gomock.Any(), gomock.Any()).Return(&trans, nil)

	s.mockGateway.EXPECT().
		Purchase(gomock.Any(), gomock.Any()).
		Return(provider.Ambiguous("request timed out"))

	s.mockGateway.EXPECT().
		QueryStatus(gomock.Any(), trans.TransID).
		Return(provider.Success("delivered", "REF9", ""))

	s.mockLedger.EXPECT().
		SettleSuccess(gomock.Any(), trans.ID, gomock.Any()).
		Return(&settled, nil)
	s.mockNotifier.EXPECT().Notify(gomock.Any(), gomock.Any())

	result, err := s.service.Purchase(s.T().Context(), purchaseReq())
	s.Require().NoError(err)
	s.False(result.Pending)
	s.Equal(domain.TransactionStatusSuccess, result.Transaction.Status)
}

// TestPurchase_AmbiguousUnresolved исчерпание опросов не приводит к возврату:
// резерв удерживается, транзакция уходит фоновой доразведке.
func (s *PurchaseServiceTestSuite) TestPurchase_AmbiguousUnresolved() {
	trans := domain.Transaction{
		ID:      uuid.New(),
		UserID:  1,
		TransID: "250101120000ABC",
		Amount:  decimal.NewFromInt(110),
		Status:  domain.TransactionStatusProcessing,
	}

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), int64(1)).Return(&s.user, nil)
	s.expectGateway("mobilenig")
	s.expectQuote(100, 110, 10)
	s.mockLedger.EXPECT().Reserve(gomock.Any(), gomock.Any()).Return(&trans, nil)

	s.mockGateway.EXPECT().
		Purchase(gomock.Any(), gomock.Any()).
		Return(provider.Ambiguous("request timed out"))

	s.mockGateway.EXPECT().
		QueryStatus(gomock.Any(), trans.TransID).
		Return(provider.Pending("still processing", "")).
		Times(1)

	// компенсация не вызывается, только пометка для доразведки
	s.mockLedger.EXPECT().FlagForRequery(gomock.Any(), trans.ID).Return(nil)

	result, err := s.service.Purchase(s.T().Context(), purchaseReq())
	s.Require().NoError(err)
	s.True(result.Pending)
	s.Equal(domain.TransactionStatusProcessing, result.Transaction.Status)
}

// TestPurchase_SettleSurvivesDisconnect обрыв клиентского соединения после
// ответа провайдера не отменяет расчёт: исход уже известен и обязан дойти
// до леджера.
func (s *PurchaseServiceTestSuite) TestPurchase_SettleSurvivesDisconnect() {
	trans := domain.Transaction{
		ID:     uuid.New(),
		UserID: 1,
		Amount: decimal.NewFromInt(110),
		Status: domain.TransactionStatusProcessing,
	}
	settled := trans
	settled.Status = domain.TransactionStatusSuccess

	ctx, cancel := context.WithCancel(s.T().Context())
	defer cancel()

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), int64(1)).Return(&s.user, nil)
	s.expectGateway("mobilenig")
	s.expectQuote(100, 110, 10)
	s.mockLedger.EXPECT().Reserve(gomock.Any(), gomock.Any()).Return(&trans, nil)

	s.mockGateway.EXPECT().
		Purchase(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ provider.PurchaseArgs) provider.Outcome {
			// клиент отваливается ровно в момент ответа провайдера
			cancel()
			return provider.Success("delivered", "REF1", "")
		})

	s.mockLedger.EXPECT().
		SettleSuccess(gomock.Any(), trans.ID, gomock.Any()).
		DoAndReturn(func(settleCtx context.Context, _ uuid.UUID, _ string) (*domain.Transaction, error) {
			s.NoError(settleCtx.Err(), "settlement inherited the cancelled request context")
			return &settled, nil
		})
	s.mockNotifier.EXPECT().Notify(gomock.Any(), gomock.Any())

	result, err := s.service.Purchase(ctx, purchaseReq())
	s.Require().NoError(err)
	s.Equal(domain.TransactionStatusSuccess, result.Transaction.Status)
}

// TestPurchase_SettleErrorFlagsRequery неудавшийся расчёт по известному исходу
// передаёт транзакцию фоновой доразведке, иначе она зависнет в processing
// незаметно для воркера.
func (s *PurchaseServiceTestSuite) TestPurchase_SettleErrorFlagsRequery() {
	trans := domain.Transaction{
		ID:     uuid.New(),
		UserID: 1,
		Amount: decimal.NewFromInt(110),
		Status: domain.TransactionStatusProcessing,
	}

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), int64(1)).Return(&s.user, nil)
	s.expectGateway("mobilenig")
	s.expectQuote(100, 110, 10)
	s.mockLedger.EXPECT().Reserve(gomock.Any(), gomock.Any()).Return(&trans, nil)

	s.mockGateway.EXPECT().
		Purchase(gomock.Any(), gomock.Any()).
		Return(provider.Failure("declined", ""))

	settleErr := errors.New("connection reset by peer")
	s.mockLedger.EXPECT().
		SettleFailureAndRefund(gomock.Any(), trans.ID, gomock.Any()).
		Return(nil, settleErr)
	s.mockLedger.EXPECT().FlagForRequery(gomock.Any(), trans.ID).Return(nil)

	_, err := s.service.Purchase(s.T().Context(), purchaseReq())
	s.Require().ErrorIs(err, settleErr)
}

// TestPurchase_SettleConflictNotFlagged транзакция в терминальном статусе
// доразведки не требует.
func (s *PurchaseServiceTestSuite) TestPurchase_SettleConflictNotFlagged() {
	trans := domain.Transaction{
		ID:     uuid.New(),
		UserID: 1,
		Amount: decimal.NewFromInt(110),
		Status: domain.TransactionStatusProcessing,
	}

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), int64(1)).Return(&s.user, nil)
	s.expectGateway("mobilenig")
	s.expectQuote(100, 110, 10)
	s.mockLedger.EXPECT().Reserve(gomock.Any(), gomock.Any()).Return(&trans, nil)

	s.mockGateway.EXPECT().
		Purchase(gomock.Any(), gomock.Any()).
		Return(provider.Success("delivered", "REF1", ""))

	// FlagForRequery не ожидается
	s.mockLedger.EXPECT().
		SettleSuccess(gomock.Any(), trans.ID, gomock.Any()).
		Return(nil, domain.ErrTransactionSettled)

	_, err := s.service.Purchase(s.T().Context(), purchaseReq())
	s.Require().ErrorIs(err, domain.ErrTransactionSettled)
}

// TestApplyRequeryOutcome_Unresolved неразрешённый исход копит попытки,
// на пределе транзакция уходит на ручной разбор.
func (s *PurchaseServiceTestSuite) TestApplyRequeryOutcome_Unresolved() {
	cases := []struct {
		name     string
		attempts uint
		manual   bool
	}{
		{name: "below limit", attempts: 0},
		{name: "at limit", attempts: 2, manual: true},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			trans := domain.Transaction{
				ID:              uuid.New(),
				UserID:          1,
				TransID:         "250101120000ABC",
				RequeryAttempts: t.attempts,
			}

			s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), int64(1)).Return(&s.user, nil)

			if t.manual {
				s.mockLedger.EXPECT().
					MarkManualReview(gomock.Any(), trans.ID, gomock.Any()).
					Return(nil)
			} else {
				s.mockLedger.EXPECT().
					IncrementRequeryAttempts(gomock.Any(), []uuid.UUID{trans.ID}).
					Return(nil)
			}

			err := s.service.ApplyRequeryOutcome(s.T().Context(), trans, provider.Ambiguous("no response"))
			s.Require().NoError(err)
		})
	}
}

// TestApplyRequeryOutcome_Failure подтверждённый отказ при доразведке
// компенсируется как обычный отказ.
func (s *PurchaseServiceTestSuite) TestApplyRequeryOutcome_Failure() {
	trans := domain.Transaction{
		ID:      uuid.New(),
		UserID:  1,
		TransID: "250101120000ABC",
		Amount:  decimal.NewFromInt(110),
	}
	refund := domain.Transaction{ID: uuid.New(), Amount: trans.Amount}

	s.mockUserRepo.EXPECT().FindUserByID(gomock.Any(), int64(1)).Return(&s.user, nil)
	s.mockLedger.EXPECT().
		SettleFailureAndRefund(gomock.Any(), trans.ID, gomock.Any()).
		Return(&refund, nil)
	s.mockNotifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Times(2)

	err := s.service.ApplyRequeryOutcome(s.T().Context(), trans, provider.Failure("declined", ""))
	s.Require().NoError(err)
}
