// Package provider определяет единый интерфейс шлюза внешних VTU-провайдеров.
// Оркестратор саги работает только с этим интерфейсом, не зная деталей
// конкретного провайдера.
package provider

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-vtu/internal/service/transid"
)

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks

type OutcomeStatus string

const (
	// OutcomeSuccess провайдер подтвердил выполнение услуги.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeFailure провайдер явно отказал (нет средств у оператора, неверный
	// счёт и т.п.). Безопасно компенсировать.
	OutcomeFailure OutcomeStatus = "failure"
	// OutcomeAmbiguous исход неизвестен: таймаут, 5xx, нечитаемый ответ.
	// Компенсировать нельзя без повторного опроса статуса — провайдер мог
	// выполнить операцию.
	OutcomeAmbiguous OutcomeStatus = "ambiguous"
	// OutcomePending провайдер ещё обрабатывает запрос.
	OutcomePending OutcomeStatus = "pending"
)

type Outcome struct {
	Status      OutcomeStatus
	Detail      string
	ProviderRef string
	Reason      string
	Raw         string
}

func Success(detail, providerRef, raw string) Outcome {
	return Outcome{Status: OutcomeSuccess, Detail: detail, ProviderRef: providerRef, Raw: raw}
}

func Failure(reason, raw string) Outcome {
	return Outcome{Status: OutcomeFailure, Reason: reason, Raw: raw}
}

func Ambiguous(reason string) Outcome {
	return Outcome{Status: OutcomeAmbiguous, Reason: reason}
}

func Pending(reason, raw string) Outcome {
	return Outcome{Status: OutcomePending, Reason: reason, Raw: raw}
}

type CustomerDetails struct {
	Name      string
	Address   string
	AccountID string
	Raw       string
}

type PurchaseArgs struct {
	TransID           string
	ServiceID         string
	CustomerAccountID string
	// Amount всегда cost price. Маржа оператора провайдеру не отправляется.
	Amount decimal.Decimal
	Extra  map[string]string
}

// Gateway единый набор возможностей провайдера.
//
// Purchase и QueryStatus не возвращают error: любой сбой сворачивается в
// Outcome. Транспортные ошибки и таймауты это OutcomeAmbiguous, а не
// OutcomeFailure — слепой возврат средств по таймауту рискует двойной оплатой.
type Gateway interface {
	Name() string
	TransIDMode() transid.Mode
	ValidateCustomer(ctx context.Context, serviceID, customerAccountID string) (*CustomerDetails, error)
	Purchase(ctx context.Context, args PurchaseArgs) Outcome
	QueryStatus(ctx context.Context, transID string) Outcome
}
