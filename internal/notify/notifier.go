// Package notify односторонний канал уведомлений о терминальных состояниях
// саги. Сага никогда не блокируется на уведомлениях и не падает из-за них —
// доставка best-effort.
package notify

import (
	"context"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=notifier.go -destination=mocks/mocks.go -package=mocks

type Kind string

const (
	KindPurchaseSuccess Kind = "purchase_success"
	KindPurchaseFailed  Kind = "purchase_failed"
	KindRefundIssued    Kind = "refund_issued"
	KindWalletFunded    Kind = "wallet_funded"
)

type Notification struct {
	Kind      Kind
	Email     string
	Name      string
	TransID   string
	Reference string
	Detail    string
	Amount    decimal.Decimal
}

// Notifier ошибки не возвращает: сбой уведомления не должен влиять на исход
// денежной операции.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
