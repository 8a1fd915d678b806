package browservtu

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/groph-vtu/internal/provider"
	"github.com/fsdevblog/groph-vtu/internal/provider/browservtu/mocks"
)

type ClientTestSuite struct {
	suite.Suite
	mockCtrl      *gomock.Controller
	mockAutomator *mocks.MockAutomator
	client        *Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockAutomator = mocks.NewMockAutomator(s.mockCtrl)
	s.client = New(s.mockAutomator)
}

func (s *ClientTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func purchaseArgs() provider.PurchaseArgs {
	return provider.PurchaseArgs{
		TransID:           "250101120000ABC",
		ServiceID:         "MTN",
		CustomerAccountID: "08030000001",
		Amount:            decimal.NewFromInt(100),
	}
}

func (s *ClientTestSuite) TestPurchase_Success() {
	s.mockAutomator.EXPECT().
		Purchase(gomock.Any(), purchaseArgs()).
		Return("topup delivered", nil)

	outcome := s.client.Purchase(s.T().Context(), purchaseArgs())
	s.Equal(provider.OutcomeSuccess, outcome.Status)
	s.Equal("topup delivered", outcome.Detail)
	s.Equal("250101120000ABC", outcome.ProviderRef)
}

func (s *ClientTestSuite) TestPurchase_ScenarioError() {
	s.mockAutomator.EXPECT().
		Purchase(gomock.Any(), gomock.Any()).
		Return("", errors.New("balance insufficient on dashboard"))

	outcome := s.client.Purchase(s.T().Context(), purchaseArgs())
	s.Equal(provider.OutcomeFailure, outcome.Status)
}

// TestPurchase_Cancelled обрыв посреди браузерного сценария — исход неизвестен,
// компенсировать нельзя.
func (s *ClientTestSuite) TestPurchase_Cancelled() {
	ctx, cancel := context.WithCancel(s.T().Context())

	s.mockAutomator.EXPECT().
		Purchase(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ provider.PurchaseArgs) (string, error) {
			cancel()
			return "", ctx.Err()
		})

	outcome := s.client.Purchase(ctx, purchaseArgs())
	s.Equal(provider.OutcomeAmbiguous, outcome.Status)
}

// TestPurchase_QueueExpired контекст истёк ещё в очереди за мьютексом:
// автоматизация не запускалась, денег не уходило — это отказ, не
// неоднозначность.
func (s *ClientTestSuite) TestPurchase_QueueExpired() {
	ctx, cancel := context.WithCancel(s.T().Context())
	cancel()

	// Purchase у автоматизатора не ожидается
	outcome := s.client.Purchase(ctx, purchaseArgs())
	s.Equal(provider.OutcomeFailure, outcome.Status)
}

func (s *ClientTestSuite) TestValidateCustomer_Unsupported() {
	_, err := s.client.ValidateCustomer(s.T().Context(), "MTN", "08030000001")
	s.Require().ErrorIs(err, provider.ErrValidationUnsupported)
}

func (s *ClientTestSuite) TestQueryStatus_Ambiguous() {
	outcome := s.client.QueryStatus(s.T().Context(), "250101120000ABC")
	s.Equal(provider.OutcomeAmbiguous, outcome.Status)
}
