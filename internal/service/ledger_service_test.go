package service_test

import (
	. "github.com/fsdevblog/groph-vtu/internal/service"
	"context"
	"testing"
	"time"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/repository/repoargs"
	"github.com/fsdevblog/groph-vtu/internal/service/mocks"
	"github.com/fsdevblog/groph-vtu/pkg/uow"
	uowmocks "github.com/fsdevblog/groph-vtu/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type LedgerServiceTestSuite struct {
	suite.Suite
	mockCtrl       *gomock.Controller
	mockUOW        *uowmocks.MockUOW
	mockTX         *uowmocks.MockTX
	mockWalletRepo *mocks.MockWalletRepository
	mockTransRepo  *mocks.MockTransactionRepository
	service        *LedgerService
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

func (s *LedgerServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockTX = uowmocks.NewMockTX(s.mockCtrl)
	s.mockWalletRepo = mocks.NewMockWalletRepository(s.mockCtrl)
	s.mockTransRepo = mocks.NewMockTransactionRepository(s.mockCtrl)

	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.WalletRepoName)).
		Return(s.mockWalletRepo, nil).AnyTimes()
	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTransRepo, nil).AnyTimes()

	var err error
	s.service, err = NewLedgerService(s.mockUOW, logrus.New())
	s.Require().NoError(err)
}

func (s *LedgerServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

// expectTx настраивает выполнение fn внутри мок-транзакции.
func (s *LedgerServiceTestSuite) expectTx(times int) {
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.WalletRepoName)).
		Return(s.mockWalletRepo, nil).AnyTimes()
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTransRepo, nil).AnyTimes()

	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(ctx, s.mockTX)
		},
	).Times(times)
}

func (s *LedgerServiceTestSuite) TestReserve() {
	wallet := domain.Wallet{
		ID:      uuid.New(),
		UserID:  1,
		Balance: decimal.NewFromInt(100),
	}

	s.expectTx(2)

	s.mockWalletRepo.EXPECT().
		LockByUserID(gomock.Any(), wallet.UserID).
		Return(&wallet, nil).Times(2)

	// списание выполняется только при достаточном балансе
	s.mockWalletRepo.EXPECT().
		AdjustBalance(gomock.Any(), wallet.ID, decimal.NewFromInt(80).Neg()).
		Return(&wallet, nil)

	s.mockTransRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.TransactionCreate) (*domain.Transaction, error) {
			s.Equal(domain.DirectionDebit, args.Direction)
			s.Equal(domain.TransactionStatusProcessing, args.Status)
			s.True(decimal.NewFromInt(80).Equal(args.Amount))
			return &domain.Transaction{
				ID:       uuid.New(),
				WalletID: wallet.ID,
				UserID:   wallet.UserID,
				TransID:  args.TransID,
				Amount:   args.Amount,
				Status:   args.Status,
			}, nil
		})

	cases := []struct {
		name    string
		amount  decimal.Decimal
		wantErr error
	}{
		{name: "ok", amount: decimal.NewFromInt(80)},
		{
			name:    "insufficient funds",
			amount:  decimal.NewFromFloat(100.01),
			wantErr: domain.ErrInsufficientFunds,
		},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			trans, err := s.service.Reserve(s.T().Context(), ReserveArgs{
				UserID:          wallet.UserID,
				Amount:          t.amount,
				TransID:         "250101120000ABC",
				ServiceCategory: domain.ServiceCategoryAirtime,
				Provider:        "mobilenig",
			})
			if t.wantErr != nil {
				s.Require().ErrorIs(err, t.wantErr)
				return
			}
			s.Require().NoError(err)
			s.Equal(domain.TransactionStatusProcessing, trans.Status)
		})
	}
}

// TestSettleFailureAndRefund возврат средств происходит ровно один раз:
// повторная компенсация отбивается условным переходом статуса.
func (s *LedgerServiceTestSuite) TestSettleFailureAndRefund() {
	walletID := uuid.New()
	failed := domain.Transaction{
		ID:        uuid.New(),
		CreatedAt: time.Now(),
		WalletID:  walletID,
		UserID:    1,
		TransID:   "250101120000XYZ",
		Direction: domain.DirectionDebit,
		Amount:    decimal.NewFromInt(110),
		Status:    domain.TransactionStatusFailed,
		Provider:  "vtpass",
	}

	s.expectTx(2)

	first := s.mockTransRepo.EXPECT().
		MarkStatus(gomock.Any(), repoargs.TransactionMarkStatus{
			ID:             failed.ID,
			From:           domain.TransactionStatusProcessing,
			To:             domain.TransactionStatusFailed,
			AppendMetadata: "provider declined",
			ClearRequery:   true,
		}).
		Return(&failed, nil)

	// вторая попытка: статус уже не processing
	s.mockTransRepo.EXPECT().
		MarkStatus(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrRecordNotFound).
		After(first)

	s.mockWalletRepo.EXPECT().
		LockByID(gomock.Any(), walletID).
		Return(&domain.Wallet{ID: walletID, UserID: 1}, nil)

	s.mockWalletRepo.EXPECT().
		AdjustBalance(gomock.Any(), walletID, failed.Amount).
		Return(&domain.Wallet{ID: walletID, UserID: 1, Balance: failed.Amount}, nil)

	s.mockTransRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.TransactionCreate) (*domain.Transaction, error) {
			// возвратная транзакция ссылается на исходную
			s.Require().NotNil(args.RefundFor)
			s.Equal(failed.ID, *args.RefundFor)
			s.Equal(domain.DirectionCredit, args.Direction)
			s.Equal(domain.ServiceCategoryRefund, args.ServiceCategory)
			s.True(failed.Amount.Equal(args.Amount))
			return &domain.Transaction{
				ID:        uuid.New(),
				WalletID:  walletID,
				Amount:    args.Amount,
				Direction: args.Direction,
				RefundFor: args.RefundFor,
			}, nil
		})

	refund, err := s.service.SettleFailureAndRefund(s.T().Context(), failed.ID, "provider declined")
	s.Require().NoError(err)
	s.True(failed.Amount.Equal(refund.Amount))

	// повторный вызов не создаёт второй возврат
	_, err = s.service.SettleFailureAndRefund(s.T().Context(), failed.ID, "provider declined")
	s.Require().ErrorIs(err, domain.ErrTransactionSettled)
}

// TestSettleSuccess_Idempotent повторный расчёт уже успешной транзакции — no-op.
func (s *LedgerServiceTestSuite) TestSettleSuccess_Idempotent() {
	settled := domain.Transaction{
		ID:     uuid.New(),
		Status: domain.TransactionStatusSuccess,
	}

	s.expectTx(1)

	s.mockTransRepo.EXPECT().
		MarkStatus(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrRecordNotFound)

	s.mockTransRepo.EXPECT().
		FindByID(gomock.Any(), settled.ID).
		Return(&settled, nil)

	trans, err := s.service.SettleSuccess(s.T().Context(), settled.ID, "")
	s.Require().NoError(err)
	s.Equal(settled.ID, trans.ID)
}

// TestSettleSuccess_Conflict расчёт уже компенсированной транзакции запрещён.
func (s *LedgerServiceTestSuite) TestSettleSuccess_Conflict() {
	failed := domain.Transaction{
		ID:     uuid.New(),
		Status: domain.TransactionStatusFailed,
	}

	s.expectTx(1)

	s.mockTransRepo.EXPECT().
		MarkStatus(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrRecordNotFound)

	s.mockTransRepo.EXPECT().
		FindByID(gomock.Any(), failed.ID).
		Return(&failed, nil)

	_, err := s.service.SettleSuccess(s.T().Context(), failed.ID, "")
	s.Require().ErrorIs(err, domain.ErrTransactionSettled)
}

// TestCredit_DuplicateReference повторное пополнение с тем же референсом
// возвращает существующую транзакцию и не меняет баланс.
func (s *LedgerServiceTestSuite) TestCredit_DuplicateReference() {
	wallet := domain.Wallet{ID: uuid.New(), UserID: 1}
	existing := domain.Transaction{
		ID:        uuid.New(),
		WalletID:  wallet.ID,
		Reference: "PSK-REF-1",
		Amount:    decimal.NewFromInt(500),
	}

	s.expectTx(1)

	s.mockWalletRepo.EXPECT().
		LockByUserID(gomock.Any(), wallet.UserID).
		Return(&wallet, nil)

	s.mockTransRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrDuplicateKey)

	s.mockTransRepo.EXPECT().
		FindFundingByReference(gomock.Any(), "PSK-REF-1").
		Return(&existing, nil)

	trans, err := s.service.Credit(s.T().Context(), CreditArgs{
		UserID:    wallet.UserID,
		Amount:    decimal.NewFromInt(500),
		Reference: "PSK-REF-1",
	})
	s.Require().NoError(err)
	s.Equal(existing.ID, trans.ID)
}
