// Package vtpass реализует шлюз провайдера VTpass (электричество, cable).
// Авторизация тройкой ключей в заголовках. Особенность API: HTTP 200 не
// означает успех, логический статус лежит в поле code тела ответа.
package vtpass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/provider"
	"github.com/fsdevblog/groph-vtu/internal/service/transid"
)

const (
	RouteVerify   = "/merchant-verify"
	RoutePurchase = "/pay"
	RouteRequery  = "/requery"
)

const Name = "vtpass"

// Коды ответов VTpass.
const (
	codeDelivered  = "000"
	codeProcessing = "099"
)

type Config struct {
	BaseURL   string
	APIKey    string
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

func (c *Client) TransIDMode() transid.Mode { return transid.ModeAlphanumeric }

type apiResponse struct {
	Code                string          `json:"code"`
	ResponseDescription string          `json:"response_description"`
	Content             json.RawMessage `json:"content"`
}

func (c *Client) ValidateCustomer(
	ctx context.Context,
	serviceID, customerAccountID string,
) (*provider.CustomerDetails, error) {
	payload := map[string]any{
		"billersCode": customerAccountID,
		"serviceID":   serviceID,
		"type":        "prepaid",
	}
	resp, raw, err := c.do(ctx, RouteVerify, payload)
	if err != nil {
		return nil, errors.Wrap(err, "vtpass verify customer")
	}

	var content struct {
		CustomerName string `json:"Customer_Name"`
		Address      string `json:"Address"`
		Error        string `json:"error"`
	}
	_ = json.Unmarshal(resp.Content, &content)

	if content.Error != "" || resp.Code != codeDelivered {
		reason := content.Error
		if reason == "" {
			reason = resp.ResponseDescription
		}
		return nil, domain.NewValidationError(serviceID, reason)
	}

	return &provider.CustomerDetails{
		Name:      content.CustomerName,
		Address:   content.Address,
		AccountID: customerAccountID,
		Raw:       string(raw),
	}, nil
}

func (c *Client) Purchase(ctx context.Context, args provider.PurchaseArgs) provider.Outcome {
	payload := map[string]any{
		"request_id":     args.TransID,
		"serviceID":      args.ServiceID,
		"billersCode":    args.CustomerAccountID,
		"variation_code": args.Extra["variation_code"],
		"amount":         args.Amount,
		"phone":          args.Extra["phone"],
	}
	resp, raw, err := c.do(ctx, RoutePurchase, payload)
	if err != nil {
		return classifyPurchaseErr(err)
	}
	return c.outcomeFromResponse(resp, raw)
}

func (c *Client) QueryStatus(ctx context.Context, transID string) provider.Outcome {
	resp, raw, err := c.do(ctx, RouteRequery, map[string]any{"request_id": transID})
	if err != nil {
		// ошибка опроса (включая 4xx вроде 429) ничего не говорит об исходе
		// самой транзакции, компенсировать по ней нельзя
		return provider.Ambiguous(err.Error())
	}
	return c.outcomeFromResponse(resp, raw)
}

func (c *Client) outcomeFromResponse(resp *apiResponse, raw []byte) provider.Outcome {
	switch resp.Code {
	case codeDelivered:
		var content struct {
			Transactions struct {
				Status        string `json:"status"`
				TransactionID string `json:"transactionId"`
			} `json:"transactions"`
			Token string `json:"purchased_code"`
		}
		_ = json.Unmarshal(resp.Content, &content)

		switch strings.ToLower(content.Transactions.Status) {
		case "pending", "initiated":
			return provider.Pending(content.Transactions.Status, string(raw))
		case "reversed", "failed":
			return provider.Failure(content.Transactions.Status, string(raw))
		default:
			detail := resp.ResponseDescription
			if content.Token != "" {
				detail = content.Token
			}
			return provider.Success(detail, content.Transactions.TransactionID, string(raw))
		}
	case codeProcessing:
		return provider.Pending(resp.ResponseDescription, string(raw))
	default:
		return provider.Failure(
			fmt.Sprintf("code %s: %s", resp.Code, resp.ResponseDescription), string(raw))
	}
}

// classifyPurchaseErr применима только к вызову покупки: 4xx означает что
// провайдер отверг сам запрос и покупка не состоялась. Ошибка опроса статуса
// исхода не определяет.
func classifyPurchaseErr(err error) provider.Outcome {
	var statusErr *provider.StatusCodeError
	if errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
		return provider.Failure(err.Error(), "")
	}
	return provider.Ambiguous(err.Error())
}

//nolint:nonamedreturns
func (c *Client) do(ctx context.Context, route string, payload any) (response *apiResponse, raw []byte, err error) {
	data, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return nil, nil, fmt.Errorf("marshal request: %s", marshalErr.Error())
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.conf.BaseURL+route, bytes.NewReader(data))
	if reqErr != nil {
		return nil, nil, fmt.Errorf("create request: %s", reqErr.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.conf.APIKey)
	req.Header.Set("secret-key", c.conf.SecretKey)
	req.Header.Set("public-key", c.conf.PublicKey)

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
