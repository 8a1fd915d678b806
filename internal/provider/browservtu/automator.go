package browservtu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/fsdevblog/groph-vtu/internal/provider"
)

// HTTPAutomator драйвер сайдкара браузерной автоматизации: отдельный процесс
// держит сессию личного кабинета и принимает команды по HTTP.
type HTTPAutomator struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPAutomator(baseURL string) *HTTPAutomator {
	return &HTTPAutomator{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
}

type automatorRequest struct {
	TransID           string            `json:"trans_id"`
	ServiceID         string            `json:"service_id"`
	CustomerAccountID string            `json:"customer_account_id"`
	Amount            string            `json:"amount"`
	Extra             map[string]string `json:"extra,omitempty"`
}

type automatorResponse struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

func (a *HTTPAutomator) Purchase(ctx context.Context, args provider.PurchaseArgs) (string, error) {
	payload, marshalErr := json.Marshal(automatorRequest{
		TransID:           args.TransID,
		ServiceID:         args.ServiceID,
		CustomerAccountID: args.CustomerAccountID,
		Amount:            args.Amount.StringFixed(2),
		Extra:             args.Extra,
	})
	if marshalErr != nil {
		return "", errors.Wrap(marshalErr, "browser automator")
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/purchase", bytes.NewReader(payload))
	if reqErr != nil {
		return "", errors.Wrap(reqErr, "browser automator")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, doErr := a.httpClient.Do(req)
	if doErr != nil {
		return "", errors.Wrap(doErr, "browser automator")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", errors.Wrap(readErr, "browser automator")
	}

	var parsed automatorResponse
	if jsonErr := json.Unmarshal(body, &parsed); jsonErr != nil {
		return "", errors.Wrapf(jsonErr, "browser automator: unparseable response %q", string(body))
	}
	if resp.StatusCode != http.StatusOK || parsed.Error != "" {
		return "", fmt.Errorf("browser automator: %s", parsed.Error)
	}
	return parsed.Detail, nil
}
