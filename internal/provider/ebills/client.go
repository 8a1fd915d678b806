// Package ebills реализует шлюз провайдера eBillsAfrica (электричество).
// Авторизация через JWT: токен живёт 7 дней, обновляем заранее на шестой день.
package ebills

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/provider"
	"github.com/fsdevblog/groph-vtu/internal/service/transid"
)

const (
	RouteToken    = "/jwt-auth/v1/token"
	RouteVerify   = "/api/v2/verify-customer"
	RoutePurchase = "/api/v2/electricity"
	RouteRequery  = "/api/v2/requery"
)

const Name = "ebills"

// tokenTTL токен выдается на 7 дней, обновляем на шестой чтобы не поймать
// просрочку посреди покупки.
const tokenTTL = 6 * 24 * time.Hour

type Config struct {
	BaseURL  string
	Username string
	Password string
}

type Client struct {
	conf       Config
	httpClient *http.Client

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
	// refreshGroup схлопывает конкурентные обновления токена в один запрос,
	// иначе под нагрузкой при истечении токена получим шторм аутентификаций.
	refreshGroup singleflight.Group
}

func New(conf Config) *Client {
	return &Client{
		conf:       conf,
		httpClient: http.DefaultClient,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) TransIDMode() transid.Mode { return transid.ModeAlphanumeric }

type apiResponse struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (r *apiResponse) isSuccess() bool {
	return strings.EqualFold(r.Code, "success")
}

func (c *Client) ValidateCustomer(
	ctx context.Context,
	serviceID, customerAccountID string,
) (*provider.CustomerDetails, error) {
	payload := map[string]any{
		"customer_id":  customerAccountID,
		"service_id":   serviceID,
		"variation_id": "prepaid",
	}
	resp, raw, err := c.do(ctx, RouteVerify, payload)
	if err != nil {
		return nil, errors.Wrap(err, "ebills verify customer")
	}
	if !resp.isSuccess() {
		return nil, domain.NewValidationError(serviceID, resp.Message)
	}

	var data struct {
		CustomerName    string `json:"customer_name"`
		CustomerAddress string `json:"customer_address"`
	}
	_ = json.Unmarshal(resp.Data, &data)

	return &provider.CustomerDetails{
		Name:      data.CustomerName,
		Address:   data.CustomerAddress,
		AccountID: customerAccountID,
		Raw:       string(raw),
	}, nil
}

func (c *Client) Purchase(ctx context.Context, args provider.PurchaseArgs) provider.Outcome {
	payload := map[string]any{
		"request_id":   args.TransID,
		"customer_id":  args.CustomerAccountID,
		"service_id":   args.ServiceID,
		"variation_id": variationID(args.Extra),
		"amount":       args.Amount,
	}
	resp, raw, err := c.do(ctx, RoutePurchase, payload)
	if err != nil {
		return classifyPurchaseErr(err)
	}
	if !resp.isSuccess() {
		return provider.Failure(resp.Message, string(raw))
	}

	var data struct {
		Token   string `json:"token"`
		OrderID json.Number `json:"order_id"`
	}
	_ = json.Unmarshal(resp.Data, &data)

	detail := resp.Message
	if data.Token != "" {
		detail = "Token: " + data.Token
	}
	return provider.Success(detail, data.OrderID.String(), string(raw))
}

func (c *Client) QueryStatus(ctx context.Context, transID string) provider.Outcome {
	resp, raw, err := c.do(ctx, RouteRequery, map[string]any{"request_id": transID})
	if err != nil {
		// ошибка опроса (токен, транспорт, 4xx) ничего не говорит об исходе
		// самой транзакции, компенсировать по ней нельзя
		return provider.Ambiguous(err.Error())
	}
	if !resp.isSuccess() {
		// code != success на опросе описывает сам запрос, не транзакцию
		return provider.Ambiguous(resp.Message)
	}

	var data struct {
		Status string `json:"status"`
		Token  string `json:"token"`
	}
	_ = json.Unmarshal(resp.Data, &data)

	switch strings.ToLower(data.Status) {
	case "completed-api", "completed", "delivered":
		detail := resp.Message
		if data.Token != "" {
			detail = "Token: " + data.Token
		}
		return provider.Success(detail, "", string(raw))
	case "refunded", "failed", "cancelled":
		return provider.Failure(data.Status, string(raw))
	case "processing-api", "processing", "initiated-api", "queued-api":
		return provider.Pending(data.Status, string(raw))
	default:
		return provider.Ambiguous(fmt.Sprintf("unrecognized status %q", data.Status))
	}
}

func variationID(extra map[string]string) string {
	if v, ok := extra["variation_id"]; ok && v != "" {
		return v
	}
	return "prepaid"
}

// errRequestNotSent провайдер не вызывался, денежного эффекта нет.
var errRequestNotSent = errors.New("request was not sent")

// classifyPurchaseErr применима только к вызову покупки: если запрос до
// провайдера не дошёл (нет токена) либо провайдер его отверг (4xx), покупка
// не состоялась и возврат безопасен. Всё остальное — неизвестность.
func classifyPurchaseErr(err error) provider.Outcome {
	if errors.Is(err, errRequestNotSent) {
		return provider.Failure(err.Error(), "")
	}
	var statusErr *provider.StatusCodeError
	if errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
		return provider.Failure(err.Error(), "")
	}
	return provider.Ambiguous(err.Error())
}

// getToken возвращает валидный токен, при необходимости аутентифицируясь
// заново. Чтение конкурентное, обновление сериализовано через singleflight.
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	token, expiry := c.token, c.tokenExpiry
	c.mu.RUnlock()

	if token != "" && time.Now().Before(expiry) {
		return token, nil
	}

	result, err, _ := c.refreshGroup.Do("token", func() (any, error) {
		return c.authenticate(ctx)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil //nolint:forcetypeassert
}

func (c *Client) authenticate(ctx context.Context) (string, error) {
	payload, _ := json.Marshal(map[string]string{
		"username": c.conf.Username,
		"password": c.conf.Password,
	})

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.conf.BaseURL+RouteToken,
		bytes.NewReader(payload))
	if reqErr != nil {
		return "", fmt.Errorf("create auth request: %s", reqErr.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return "", fmt.Errorf("do auth request: %s", doErr.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", fmt.Errorf("read auth response: %s", readErr.Error())
	}

	var tokenResp struct {
		Token   string `json:"token"`
		Message string `json:"message"`
	}
	if jsonErr := json.Unmarshal(body, &tokenResp); jsonErr != nil {
		return "", fmt.Errorf("parse auth response: %s", jsonErr.Error())
	}
	if resp.StatusCode != http.StatusOK || tokenResp.Token == "" {
		return "", fmt.Errorf("ebills authentication failed: %s", tokenResp.Message)
	}

	c.mu.Lock()
	c.token = tokenResp.Token
	c.tokenExpiry = time.Now().Add(tokenTTL)
	c.mu.Unlock()

	return tokenResp.Token, nil
}

//nolint:nonamedreturns
func (c *Client) do(ctx context.Context, route string, payload any) (response *apiResponse, raw []byte, err error) {
	token, tokenErr := c.getToken(ctx)
	if tokenErr != nil {
		return nil, nil, fmt.Errorf("%w: %s", errRequestNotSent, tokenErr.Error())
	}

	data, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return nil, nil, fmt.Errorf("marshal request: %s", marshalErr.Error())
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.conf.BaseURL+route, bytes.NewReader(data))
	if reqErr != nil {
		return nil, nil, fmt.Errorf("create request: %s", reqErr.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

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
