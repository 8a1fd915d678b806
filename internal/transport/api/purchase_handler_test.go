package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/logger"
	"github.com/fsdevblog/groph-vtu/internal/service"
	"github.com/fsdevblog/groph-vtu/internal/service/tokens"
	"github.com/fsdevblog/groph-vtu/internal/transport/api/mocks"
	"github.com/fsdevblog/groph-vtu/internal/transport/api/testutils"
)

type PurchaseHandlerTestSuite struct {
	suite.Suite
	mockCtrl            *gomock.Controller
	router              *gin.Engine
	mockPurchaseService *mocks.MockPurchaseServicer
	jwtSecret           []byte
	jwtToken            string
}

func TestPurchaseHandlerSuite(t *testing.T) {
	suite.Run(t, new(PurchaseHandlerTestSuite))
}

func (s *PurchaseHandlerTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockPurchaseService = mocks.NewMockPurchaseServicer(s.mockCtrl)
	s.jwtSecret = []byte("super secret key")

	var tokenErr error
	s.jwtToken, tokenErr = tokens.GenerateUserJWT(1, time.Hour, s.jwtSecret)
	s.Require().NoError(tokenErr)

	s.router = New(RouterArgs{
		Logger:          logger.New(os.Stdout),
		PurchaseService: s.mockPurchaseService,
		JWTSecretKey:    s.jwtSecret,
	})
}

func (s *PurchaseHandlerTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *PurchaseHandlerTestSuite) makePurchase(payload []byte, token string) *http.Response {
	args := testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodPost,
		URL:    RouteGroup + PurchaseRoute,
		Body:   bytes.NewReader(payload),
	}
	reqOpts := []func(*testutils.RequestOptions){
		testutils.WithHeader("Content-Type", "application/json"),
	}
	if token != "" {
		reqOpts = append(reqOpts, testutils.WithBearer(token))
	}
	res, err := testutils.MakeRequest(args, reqOpts...)
	s.Require().NoError(err)
	return res
}

func purchasePayload() []byte {
	b, _ := json.Marshal(gin.H{ //nolint:errchkjson
		"category":            "airtime",
		"provider":            "mobilenig",
		"service_id":          "MTN",
		"customer_account_id": "08030000001",
		"amount":              "100",
	})
	return b
}

func (s *PurchaseHandlerTestSuite) TestCreate() {
	settled := &service.PurchaseResult{
		Transaction: &domain.Transaction{
			TransID:   "250101120000ABC",
			Status:    domain.TransactionStatusSuccess,
			Amount:    decimal.NewFromInt(110),
			CreatedAt: time.Now(),
		},
		Detail: "topup delivered",
	}
	pending := &service.PurchaseResult{
		Transaction: &domain.Transaction{
			TransID: "250101120000DEF",
			Status:  domain.TransactionStatusProcessing,
			Amount:  decimal.NewFromInt(110),
		},
		Detail:  "transaction is processing",
		Pending: true,
	}

	cases := []struct {
		name       string
		result     *service.PurchaseResult
		err        error
		wantStatus int
	}{
		{name: "success", result: settled, wantStatus: http.StatusOK},
		{name: "outcome pending", result: pending, wantStatus: http.StatusAccepted},
		{name: "insufficient funds", err: domain.ErrInsufficientFunds, wantStatus: http.StatusPaymentRequired},
		{
			name:       "customer rejected",
			err:        domain.NewValidationError("MTN", "invalid account"),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "pricing misconfigured",
			err:        domain.NewConfigurationError("airtime-mtn", "selling price is not positive"),
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			s.mockPurchaseService.EXPECT().
				Purchase(gomock.Any(), gomock.Any()).
				Return(t.result, t.err)

			res := s.makePurchase(purchasePayload(), s.jwtToken)
			defer func() {
				s.Require().NoError(res.Body.Close())
			}()

			s.Equal(t.wantStatus, res.StatusCode)

			if t.err == nil {
				var body PurchaseResponse
				s.Require().NoError(json.NewDecoder(res.Body).Decode(&body))
				s.Equal(t.result.Transaction.TransID, body.TransID)
				s.Equal(string(t.result.Transaction.Status), body.Status)
				s.Equal("110.00", body.Amount)
			}
		})
	}
}

// TestCreate_InvalidParams невалидные параметры отсекаются до сервисного слоя.
func (s *PurchaseHandlerTestSuite) TestCreate_InvalidParams() {
	s.mockPurchaseService.EXPECT().Purchase(gomock.Any(), gomock.Any()).Times(0)

	cases := []struct {
		name       string
		payload    gin.H
		wantStatus int
	}{
		{
			name: "unknown category",
			payload: gin.H{
				"category": "lottery", "provider": "mobilenig", "service_id": "MTN",
				"customer_account_id": "08030000001", "amount": "100",
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "negative amount",
			payload: gin.H{
				"category": "airtime", "provider": "mobilenig", "service_id": "MTN",
				"customer_account_id": "08030000001", "amount": "-10",
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "missing fields",
			payload:    gin.H{"category": "airtime"},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			payload, err := json.Marshal(t.payload)
			s.Require().NoError(err)

			res := s.makePurchase(payload, s.jwtToken)
			defer func() {
				s.Require().NoError(res.Body.Close())
			}()

			s.Equal(t.wantStatus, res.StatusCode)
		})
	}
}

func (s *PurchaseHandlerTestSuite) TestCreate_NotAuthorized() {
	s.mockPurchaseService.EXPECT().Purchase(gomock.Any(), gomock.Any()).Times(0)

	res := s.makePurchase(purchasePayload(), "")
	defer func() {
		s.Require().NoError(res.Body.Close())
	}()

	s.Equal(http.StatusUnauthorized, res.StatusCode)
}
