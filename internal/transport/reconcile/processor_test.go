package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/provider"
	providermocks "github.com/fsdevblog/groph-vtu/internal/provider/mocks"
	"github.com/fsdevblog/groph-vtu/internal/transport/reconcile/mocks"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type ProcessorTestSuite struct {
	suite.Suite
	mockCtrl     *gomock.Controller
	mockServicer *mocks.MockServicer
	mockResolver *mocks.MockGatewayResolver
	mockGateway  *providermocks.MockGateway
	processor    *Processor
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorTestSuite))
}

func (s *ProcessorTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockServicer = mocks.NewMockServicer(s.mockCtrl)
	s.mockResolver = mocks.NewMockGatewayResolver(s.mockCtrl)
	s.mockGateway = providermocks.NewMockGateway(s.mockCtrl)

	s.processor = New(s.mockServicer, s.mockResolver, logrus.New()).
		SetLimitPerIteration(10).
		SetQueryWorkers(3)
}

func (s *ProcessorTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *ProcessorTestSuite) TestProcess_NoTransactions() {
	s.mockServicer.EXPECT().
		TransactionsForRequery(gomock.Any(), uint(10)).
		Return(nil, nil)

	err := s.processor.process(s.T().Context())
	s.Require().ErrorIs(err, ErrNoTransactions)
}

func (s *ProcessorTestSuite) TestProcess_ProduceError() {
	dbErr := errors.New("connection lost")
	s.mockServicer.EXPECT().
		TransactionsForRequery(gomock.Any(), uint(10)).
		Return(nil, dbErr)

	err := s.processor.process(s.T().Context())
	s.Require().ErrorIs(err, dbErr)
}

// TestProcess каждый опрошенный статус применяется через сервисный слой.
func (s *ProcessorTestSuite) TestProcess() {
	transactions := []domain.Transaction{
		{ID: uuid.New(), TransID: "250101120000AAA", Provider: "mobilenig"},
		{ID: uuid.New(), TransID: "250101120000BBB", Provider: "mobilenig"},
		{ID: uuid.New(), TransID: "250101120000CCC", Provider: "mobilenig"},
	}
	outcomes := map[string]provider.Outcome{
		"250101120000AAA": provider.Success("delivered", "REF1", ""),
		"250101120000BBB": provider.Failure("declined", ""),
		"250101120000CCC": provider.Pending("still processing", ""),
	}

	s.mockServicer.EXPECT().
		TransactionsForRequery(gomock.Any(), uint(10)).
		Return(transactions, nil)

	s.mockResolver.EXPECT().
		Resolve("mobilenig").
		Return(s.mockGateway, nil).
		Times(len(transactions))

	s.mockGateway.EXPECT().
		QueryStatus(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, transID string) provider.Outcome {
			return outcomes[transID]
		}).
		AnyTimes()

	// применение идёт последовательно, но порядок результатов воркеров
	// недетерминирован
	var mu sync.Mutex
	applied := make(map[string]provider.OutcomeStatus, len(transactions))
	s.mockServicer.EXPECT().
		ApplyRequeryOutcome(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, trans domain.Transaction, outcome provider.Outcome) error {
			mu.Lock()
			defer mu.Unlock()
			applied[trans.TransID] = outcome.Status
			return nil
		}).
		Times(len(transactions))

	err := s.processor.process(s.T().Context())
	s.Require().NoError(err)

	s.Equal(provider.OutcomeSuccess, applied["250101120000AAA"])
	s.Equal(provider.OutcomeFailure, applied["250101120000BBB"])
	s.Equal(provider.OutcomePending, applied["250101120000CCC"])
}

// TestProcess_UnknownProvider неизвестный провайдер сворачивается в
// неоднозначный исход, транзакция не компенсируется.
func (s *ProcessorTestSuite) TestProcess_UnknownProvider() {
	trans := domain.Transaction{ID: uuid.New(), TransID: "250101120000AAA", Provider: "legacy"}

	s.mockServicer.EXPECT().
		TransactionsForRequery(gomock.Any(), uint(10)).
		Return([]domain.Transaction{trans}, nil)

	s.mockResolver.EXPECT().
		Resolve("legacy").
		Return(nil, provider.ErrUnknownProvider)

	s.mockServicer.EXPECT().
		ApplyRequeryOutcome(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, got domain.Transaction, outcome provider.Outcome) error {
			s.Equal(trans.ID, got.ID)
			s.Equal(provider.OutcomeAmbiguous, outcome.Status)
			return nil
		})

	err := s.processor.process(s.T().Context())
	s.Require().NoError(err)
}
