// Package browservtu шлюз провайдера без API: покупка выполняется автоматизацией
// браузера в личном кабинете. Сессия браузера одна на процесс и не умеет
// обрабатывать параллельные операции, поэтому все вызовы сериализуются
// мьютексом — конкурентные покупатели стоят в очереди, а не плодят сессии.
package browservtu

import (
	"context"
	"sync"

	"github.com/fsdevblog/groph-vtu/internal/provider"
	"github.com/fsdevblog/groph-vtu/internal/service/transid"
)

const Name = "browser"

//go:generate mockgen -source=client.go -destination=mocks/mocks.go -package=mocks

// Automator абстракция над сессией автоматизированного браузера. Реализация
// (selenium/chromedriver) живёт за пределами ядра.
type Automator interface {
	Purchase(ctx context.Context, args provider.PurchaseArgs) (detail string, err error)
}

type Client struct {
	mu        sync.Mutex
	automator Automator
}

func New(automator Automator) *Client {
	return &Client{automator: automator}
}

func (c *Client) Name() string { return Name }

func (c *Client) TransIDMode() transid.Mode { return transid.ModeAlphanumeric }

// ValidateCustomer браузерный провайдер не предоставляет проверку реквизитов.
func (c *Client) ValidateCustomer(
	_ context.Context,
	_, _ string,
) (*provider.CustomerDetails, error) {
	return nil, provider.ErrValidationUnsupported
}

func (c *Client) Purchase(ctx context.Context, args provider.PurchaseArgs) provider.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	// очередь могла простоять дольше таймаута запроса; сценарий ещё не
	// запускался, покупки не было и возврат безопасен
	if ctxErr := ctx.Err(); ctxErr != nil {
		return provider.Failure("browser session queue: "+ctxErr.Error(), "")
	}

	detail, err := c.automator.Purchase(ctx, args)
	if err != nil {
		if ctx.Err() != nil {
			// операция оборвана посреди сценария — исход неизвестен
			return provider.Ambiguous(err.Error())
		}
		return provider.Failure(err.Error(), "")
	}
	return provider.Success(detail, args.TransID, "")
}

// QueryStatus у браузерного провайдера нет эндпоинта статуса: неоднозначные
// исходы уходят на ручную сверку после исчерпания попыток.
func (c *Client) QueryStatus(_ context.Context, _ string) provider.Outcome {
	return provider.Ambiguous("browser provider does not support status queries")
}
