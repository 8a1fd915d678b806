// Package mobilenig реализует шлюз провайдера MobileNig (airtime, data,
// cable, часть электричества). REST+JSON, Bearer-авторизация двумя ключами:
// публичный для чтения, секретный для покупок.
package mobilenig

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/provider"
	"github.com/fsdevblog/groph-vtu/internal/service/transid"
)

const (
	RouteValidate = "/services/proxy"
	RoutePurchase = "/services/"
	RouteQuery    = "/services/query"
)

const Name = "mobilenig"

type Config struct {
	BaseURL   string
	PublicKey string
	SecretKey string
}

type Client struct {
	conf       Config
	httpClient *http.Client
}

func New(conf Config) *Client {
	return &Client{
		conf:       conf,
		httpClient: http.DefaultClient,
	}
}

func (c *Client) Name() string { return Name }

// TransIDMode MobileNig принимает только цифровые trans_id длиной до 15.
func (c *Client) TransIDMode() transid.Mode { return transid.ModeDigits }

// apiResponse общая форма ответа MobileNig. API возвращает 200 и
// message=failure при логической ошибке.
type apiResponse struct {
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
	TransID string          `json:"trans_id"`
	Status  string          `json:"status"`
}

func (r *apiResponse) isFailure() bool {
	return strings.EqualFold(r.Message, "failure")
}

func (r *apiResponse) detailsText() string {
	return string(r.Details)
}

func (c *Client) ValidateCustomer(
	ctx context.Context,
	serviceID, customerAccountID string,
) (*provider.CustomerDetails, error) {
	payload := map[string]any{
		"service_id":        serviceID,
		"customerAccountId": customerAccountID,
	}
	resp, raw, err := c.do(ctx, http.MethodPost, RouteValidate, payload, c.conf.PublicKey)
	if err != nil {
		return nil, errors.Wrap(err, "mobilenig validate customer")
	}
	if resp.isFailure() {
		return nil, domain.NewValidationError(serviceID, resp.detailsText())
	}

	var details struct {
		Details struct {
			Name      string `json:"customerName"`
			Address   string `json:"address"`
			AccountID string `json:"customerAccountId"`
		} `json:"details"`
	}
	// имя/адрес опциональны, ошибки парсинга деталей не фатальны
	_ = json.Unmarshal(raw, &details)

	return &provider.CustomerDetails{
		Name:      details.Details.Name,
		Address:   details.Details.Address,
		AccountID: customerAccountID,
		Raw:       string(raw),
	}, nil
}

func (c *Client) Purchase(ctx context.Context, args provider.PurchaseArgs) provider.Outcome {
	payload := map[string]any{
		"service_id": args.ServiceID,
		"trans_id":   args.TransID,
		"amount":     args.Amount,
	}
	if args.CustomerAccountID != "" {
		payload["customerAccountId"] = args.CustomerAccountID
	}
	for k, v := range args.Extra {
		payload[k] = v
	}

	resp, raw, err := c.do(ctx, http.MethodPost, RoutePurchase, payload, c.conf.SecretKey)
	if err != nil {
		return c.classifyPurchaseErr(err)
	}
	if resp.isFailure() {
		return provider.Failure(resp.detailsText(), string(raw))
	}
	return provider.Success(resp.detailsText(), resp.TransID, string(raw))
}

func (c *Client) QueryStatus(ctx context.Context, transID string) provider.Outcome {
	route := RouteQuery + "?trans_id=" + transID
	resp, raw, err := c.do(ctx, http.MethodGet, route, nil, c.conf.SecretKey)
	if err != nil {
		// ошибка опроса (включая 4xx) ничего не говорит об исходе самой
		// транзакции, компенсировать по ней нельзя
		return provider.Ambiguous(err.Error())
	}
	if resp.isFailure() {
		// message=failure на опросе — ошибка уровня API, не статус транзакции
		return provider.Ambiguous(resp.detailsText())
	}

	switch strings.ToUpper(resp.Status) {
	case "COMPLETED", "DELIVERED", "SUCCESSFUL":
		return provider.Success(resp.detailsText(), resp.TransID, string(raw))
	case "PROCESSING", "PENDING":
		return provider.Pending(resp.Status, string(raw))
	case "FAILED", "REVERSED":
		return provider.Failure(resp.detailsText(), string(raw))
	default:
		return provider.Ambiguous(fmt.Sprintf("unrecognized status %q", resp.Status))
	}
}

// classifyPurchaseErr транспортные ошибки и 5xx — неоднозначный исход, 4xx —
// явный отказ провайдера принять покупку. Применима только к самой покупке.
func (c *Client) classifyPurchaseErr(err error) provider.Outcome {
	var statusErr *provider.StatusCodeError
	if errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
		return provider.Failure(err.Error(), "")
	}
	return provider.Ambiguous(err.Error())
}

//nolint:nonamedreturns
func (c *Client) do(
	ctx context.Context,
	method, route string,
	payload any,
	bearer string,
) (response *apiResponse, raw []byte, err error) {
	var body io.Reader
	if payload != nil {
		data, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			return nil, nil, fmt.Errorf("marshal request: %s", marshalErr.Error())
		}
		body = bytes.NewReader(data)
	}

	req, reqErr := http.NewRequestWithContext(ctx, method, c.conf.BaseURL+route, body)
	if reqErr != nil {
		return nil, nil, fmt.Errorf("create request: %s", reqErr.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, nil, fmt.Errorf("do request: %s", doErr.Error())
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Wrap(closeErr, "close response body")
		}
	}()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, nil, fmt.Errorf("read response: %s", readErr.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return nil, raw, provider.NewStatusCodeError(resp.StatusCode)
	}

	if jsonErr := json.Unmarshal(raw, &response); jsonErr != nil {
		return nil, raw, fmt.Errorf("parse response: %s", jsonErr.Error())
	}
	return response, raw, nil
}

// Balance остаток на кошельке оператора у провайдера. Используется админкой
// для контроля достаточности средств.
func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	resp, raw, err := c.do(ctx, http.MethodGet, "/control/balance", nil, c.conf.PublicKey)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "mobilenig balance")
	}
	if resp.isFailure() {
		return decimal.Zero, fmt.Errorf("mobilenig balance: %s", resp.detailsText())
	}
	var balanceResp struct {
		Balance decimal.Decimal `json:"balance"`
	}
	if jsonErr := json.Unmarshal(raw, &balanceResp); jsonErr != nil {
		return decimal.Zero, fmt.Errorf("mobilenig balance: parse response: %s", jsonErr.Error())
	}
	return balanceResp.Balance, nil
}
