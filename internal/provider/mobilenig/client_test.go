package mobilenig

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/groph-vtu/internal/provider"
)

type ClientTestSuite struct {
	suite.Suite
	server *httptest.Server
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) TearDownTest() {
	if s.server != nil {
		s.server.Close()
	}
}

func (s *ClientTestSuite) newClient(handler http.HandlerFunc) *Client {
	s.server = httptest.NewServer(handler)
	return New(Config{
		BaseURL:   s.server.URL,
		PublicKey: "pub",
		SecretKey: "sec",
	})
}

// TestPurchase классификация исходов: логическая ошибка в теле это отказ,
// 5xx и обрыв соединения — неоднозначность, 4xx — отказ.
func (s *ClientTestSuite) TestPurchase() {
	type tcase struct {
		name       string
		transID    string
		httpStatus int
		body       map[string]any
		wantStatus provider.OutcomeStatus
	}

	cases := []tcase{
		{
			name:       "success",
			transID:    "100000000000001",
			httpStatus: http.StatusOK,
			body: map[string]any{
				"message":  "success",
				"details":  "N100 airtime delivered",
				"trans_id": "100000000000001",
			},
			wantStatus: provider.OutcomeSuccess,
		}, {
			name:       "logical failure in 200 body",
			transID:    "100000000000002",
			httpStatus: http.StatusOK,
			body: map[string]any{
				"message": "failure",
				"details": "INSUFFICIENT_BALANCE",
			},
			wantStatus: provider.OutcomeFailure,
		}, {
			name:       "server error is ambiguous",
			transID:    "100000000000003",
			httpStatus: http.StatusInternalServerError,
			wantStatus: provider.OutcomeAmbiguous,
		}, {
			name:       "client error is a failure",
			transID:    "100000000000004",
			httpStatus: http.StatusForbidden,
			wantStatus: provider.OutcomeFailure,
		},
	}

	byTransID := make(map[string]*tcase, len(cases))
	for i := range cases {
		byTransID[cases[i].transID] = &cases[i]
	}

	client := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("Bearer sec", r.Header.Get("Authorization"))

		var payload struct {
			TransID string          `json:"trans_id"`
			Amount  decimal.Decimal `json:"amount"`
		}
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&payload))

		rc, ok := byTransID[payload.TransID]
		s.Require().Truef(ok, "тест для trans_id %s не найден", payload.TransID)

		w.WriteHeader(rc.httpStatus)
		if rc.body != nil {
			s.Require().NoError(json.NewEncoder(w).Encode(rc.body))
		}
	})

	for _, t := range cases {
		s.Run(t.name, func() {
			outcome := client.Purchase(s.T().Context(), provider.PurchaseArgs{
				TransID:           t.transID,
				ServiceID:         "BCA",
				CustomerAccountID: "08030000001",
				Amount:            decimal.NewFromInt(100),
			})
			s.Equal(t.wantStatus, outcome.Status)
		})
	}
}

// TestPurchase_Unreachable обрыв соединения никогда не считается отказом.
func (s *ClientTestSuite) TestPurchase_Unreachable() {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := New(Config{BaseURL: server.URL, SecretKey: "sec"})
	outcome := client.Purchase(s.T().Context(), provider.PurchaseArgs{
		TransID:   "100000000000001",
		ServiceID: "BCA",
		Amount:    decimal.NewFromInt(100),
	})
	s.Equal(provider.OutcomeAmbiguous, outcome.Status)
}

func (s *ClientTestSuite) TestQueryStatus() {
	cases := []struct {
		name       string
		status     string
		wantStatus provider.OutcomeStatus
	}{
		{name: "completed", status: "COMPLETED", wantStatus: provider.OutcomeSuccess},
		{name: "processing", status: "PROCESSING", wantStatus: provider.OutcomePending},
		{name: "failed", status: "FAILED", wantStatus: provider.OutcomeFailure},
		{name: "reversed", status: "REVERSED", wantStatus: provider.OutcomeFailure},
		{name: "unrecognized", status: "WAT", wantStatus: provider.OutcomeAmbiguous},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			client := s.newClient(func(w http.ResponseWriter, r *http.Request) {
				s.Equal("100000000000001", r.URL.Query().Get("trans_id"))
				s.Require().NoError(json.NewEncoder(w).Encode(map[string]any{
					"message":  "success",
					"status":   t.status,
					"trans_id": "100000000000001",
				}))
			})

			outcome := client.QueryStatus(s.T().Context(), "100000000000001")
			s.Equal(t.wantStatus, outcome.Status)

			s.server.Close()
			s.server = nil
		})
	}
}

// TestQueryStatus_TransportErrors ошибка опроса, включая 4xx, никогда не
// превращается в отказ: по ней нельзя судить об исходе транзакции.
func (s *ClientTestSuite) TestQueryStatus_TransportErrors() {
	cases := []struct {
		name       string
		httpStatus int
	}{
		{name: "rate limited", httpStatus: http.StatusTooManyRequests},
		{name: "forbidden", httpStatus: http.StatusForbidden},
		{name: "server error", httpStatus: http.StatusInternalServerError},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			client := s.newClient(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(t.httpStatus)
			})

			outcome := client.QueryStatus(s.T().Context(), "100000000000001")
			s.Equal(provider.OutcomeAmbiguous, outcome.Status)

			s.server.Close()
			s.server = nil
		})
	}
}

// TestQueryStatus_APIFailureBody message=failure на эндпоинте опроса описывает
// сам запрос, а не транзакцию.
func (s *ClientTestSuite) TestQueryStatus_APIFailureBody() {
	client := s.newClient(func(w http.ResponseWriter, _ *http.Request) {
		s.Require().NoError(json.NewEncoder(w).Encode(map[string]any{
			"message": "failure",
			"details": "INVALID_TRANS_ID",
		}))
	})

	outcome := client.QueryStatus(s.T().Context(), "100000000000001")
	s.Equal(provider.OutcomeAmbiguous, outcome.Status)
}

func (s *ClientTestSuite) TestValidateCustomer() {
	client := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("Bearer pub", r.Header.Get("Authorization"))
		s.Require().NoError(json.NewEncoder(w).Encode(map[string]any{
			"message": "success",
			"details": map[string]string{
				"customerName":      "JOHN DOE",
				"address":           "12 Marina Rd",
				"customerAccountId": "45028916532",
			},
		}))
	})

	details, err := client.ValidateCustomer(s.T().Context(), "AEDC", "45028916532")
	s.Require().NoError(err)
	s.Equal("JOHN DOE", details.Name)
	s.Equal("45028916532", details.AccountID)
}
