package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/metrics"
	"github.com/fsdevblog/groph-vtu/internal/notify"
	"github.com/fsdevblog/groph-vtu/internal/provider"
	"github.com/fsdevblog/groph-vtu/internal/service/transid"
)

const defaultProviderTimeout = 30 * time.Second

// defaultMaxRequeryAttempts предел фоновых доразведок, после которого
// транзакция уходит на ручной разбор.
const defaultMaxRequeryAttempts = 10

// defaultInlineBackoff паузы между попытками доразведки в рамках запроса.
var defaultInlineBackoff = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} //nolint:gochecknoglobals,mnd

type PurchaseRequest struct {
	UserID            int64
	ServiceCategory   domain.ServiceCategoryType
	Provider          string
	ServiceID         string
	CustomerAccountID string
	// Amount себестоимость услуги (уходит провайдеру как есть).
	Amount decimal.Decimal
	// PriceOverride цена продажи выставленная оператором, подменяет правило
	// ценообразования.
	PriceOverride *decimal.Decimal
	Extra         map[string]string
}

type PurchaseResult struct {
	Transaction *domain.Transaction
	Refund      *domain.Transaction
	Detail      string
	// Pending исход у провайдера так и не определился: средства остаются
	// зарезервированными, транзакция передана фоновой доразведке.
	Pending bool
}

// PurchaseService оркестратор саги покупки: котировка -> резерв -> вызов
// провайдера -> расчёт либо компенсация. Неоднозначные исходы (таймаут, 5xx)
// никогда не компенсируются вслепую — только после подтверждённого отказа
// через опрос статуса.
type PurchaseService struct {
	pricing  Pricer
	ledger   Ledger
	gateways GatewayResolver
	users    UserRepository
	notifier notify.Notifier
	l        *logrus.Entry

	providerTimeout    time.Duration
	inlineBackoff      []time.Duration
	maxRequeryAttempts uint
}

func NewPurchaseService(
	pricing Pricer,
	ledger Ledger,
	gateways GatewayResolver,
	users UserRepository,
	notifier notify.Notifier,
	l *logrus.Logger,
) *PurchaseService {
	return &PurchaseService{
		pricing:  pricing,
		ledger:   ledger,
		gateways: gateways,
		users:    users,
		notifier: notifier,
		l: l.WithFields(logrus.Fields{
			"component": "services",
			"module":    "PurchaseService",
		}),
		providerTimeout:    defaultProviderTimeout,
		inlineBackoff:      defaultInlineBackoff,
		maxRequeryAttempts: defaultMaxRequeryAttempts,
	}
}

func (s *PurchaseService) SetProviderTimeout(d time.Duration) *PurchaseService {
	s.providerTimeout = d
	return s
}

func (s *PurchaseService) SetInlineBackoff(backoff []time.Duration) *PurchaseService {
	s.inlineBackoff = backoff
	return s
}

func (s *PurchaseService) SetMaxRequeryAttempts(n uint) *PurchaseService {
	s.maxRequeryAttempts = n
	return s
}

// Purchase выполняет сагу покупки целиком.
//
// Порядок шагов жёсткий: средства резервируются до обращения к провайдеру,
// при нехватке средств провайдер не вызывается вовсе. После вызова провайдера
// возможны три развилки: подтверждённый успех (расчёт), подтверждённый отказ
// (компенсация с возвратом) и неизвестность (ограниченная серия опросов
// статуса, затем передача фоновой доразведке с удержанием резерва).
func (s *PurchaseService) Purchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	user, err := s.users.FindUserByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("purchase: %w", err)
	}
	gateway, err := s.gateways.Resolve(req.Provider)
	if err != nil {
		return nil, fmt.Errorf("purchase: %w", err)
	}

	quote, err := s.pricing.Quote(ctx, ServiceIdentifier(req.ServiceCategory, req.ServiceID), req.Amount, req.PriceOverride)
	if err != nil {
		return nil, fmt.Errorf("purchase: %w", err)
	}

	tID := transid.New(gateway.TransIDMode())
	trans, err := s.ledger.Reserve(ctx, ReserveArgs{
		UserID:          req.UserID,
		Amount:          quote.SellingPrice,
		TransID:         tID,
		ServiceCategory: req.ServiceCategory,
		Provider:        gateway.Name(),
		Reference:       fmt.Sprintf("%s-%s", strings.ToUpper(string(req.ServiceCategory)), req.CustomerAccountID),
		Metadata:        fmt.Sprintf("Service: %s, Cost: %s", req.ServiceID, quote.CostPrice.StringFixed(2)),
		Profit:          quote.Margin,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	log := s.l.WithFields(logrus.Fields{"transID": tID, "provider": gateway.Name()})
	log.WithField("amount", quote.SellingPrice).Info("funds reserved, calling provider")

	pctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	outcome := gateway.Purchase(pctx, provider.PurchaseArgs{
		TransID:           tID,
		ServiceID:         req.ServiceID,
		CustomerAccountID: req.CustomerAccountID,
		Amount:            quote.CostPrice,
		Extra:             req.Extra,
	})
	cancel()
	metrics.ProviderRequestsTotal.WithLabelValues(gateway.Name(), string(outcome.Status)).Inc()

	switch outcome.Status {
	case provider.OutcomeSuccess:
		return s.finishSuccess(ctx, trans, user, outcome)
	case provider.OutcomeFailure:
		return s.finishFailure(ctx, trans, user, outcome)
	default:
		return s.resolveInline(ctx, gateway, trans, user, outcome, log)
	}
}

// resolveInline ограниченная серия опросов статуса в рамках исходного запроса.
// Если исход так и не определился, транзакция помечается для фоновой
// доразведки и клиенту возвращается processing.
func (s *PurchaseService) resolveInline(
	ctx context.Context,
	gateway provider.Gateway,
	trans *domain.Transaction,
	user *domain.User,
	last provider.Outcome,
	log *logrus.Entry,
) (*PurchaseResult, error) {
	for _, pause := range s.inlineBackoff {
		if waitErr := sleepCtx(ctx, pause); waitErr != nil {
			break
		}
		qctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		last = gateway.QueryStatus(qctx, trans.TransID)
		cancel()

		switch last.Status {
		case provider.OutcomeSuccess:
			metrics.RequeryResolutionsTotal.WithLabelValues("success").Inc()
			return s.finishSuccess(ctx, trans, user, last)
		case provider.OutcomeFailure:
			metrics.RequeryResolutionsTotal.WithLabelValues("failed").Inc()
			return s.finishFailure(ctx, trans, user, last)
		default:
			log.WithField("reason", last.Reason).Warn("status still unresolved")
		}
	}

	// Резерв удерживается. Даже если клиент отвалился, пометка обязана
	// состояться — иначе транзакция зависнет вне доразведки.
	flagCtx := context.WithoutCancel(ctx)
	if flagErr := s.ledger.FlagForRequery(flagCtx, trans.ID); flagErr != nil {
		return nil, fmt.Errorf("flag for requery %s: %w", trans.TransID, flagErr)
	}
	log.Warn("outcome unresolved, handed over to reconciliation")
	return &PurchaseResult{
		Transaction: trans,
		Detail:      "transaction is processing",
		Pending:     true,
	}, nil
}

func (s *PurchaseService) finishSuccess(
	ctx context.Context,
	trans *domain.Transaction,
	user *domain.User,
	outcome provider.Outcome,
) (*PurchaseResult, error) {
	// Исход у провайдера уже есть, расчёт не должен оборваться вместе с
	// клиентским соединением: потерянный расчёт оставил бы дебет в processing
	// вне поля зрения доразведки.
	ctx = context.WithoutCancel(ctx)
	settled, err := s.ledger.SettleSuccess(ctx, trans.ID, settleNote(outcome))
	if err != nil {
		s.deferToRequery(ctx, trans, err)
		return nil, err //nolint:wrapcheck
	}
	metrics.PurchasesTotal.WithLabelValues(
		string(settled.ServiceCategory), settled.Provider, string(domain.TransactionStatusSuccess)).Inc()

	s.notifier.Notify(ctx, notify.Notification{
		Kind:    notify.KindPurchaseSuccess,
		Email:   user.Email,
		Name:    user.FullName,
		TransID: settled.TransID,
		Detail:  outcome.Detail,
		Amount:  settled.Amount,
	})
	return &PurchaseResult{Transaction: settled, Detail: outcome.Detail}, nil
}

func (s *PurchaseService) finishFailure(
	ctx context.Context,
	trans *domain.Transaction,
	user *domain.User,
	outcome provider.Outcome,
) (*PurchaseResult, error) {
	ctx = context.WithoutCancel(ctx)
	refund, err := s.ledger.SettleFailureAndRefund(ctx, trans.ID, settleNote(outcome))
	if err != nil {
		s.deferToRequery(ctx, trans, err)
		return nil, err //nolint:wrapcheck
	}
	metrics.PurchasesTotal.WithLabelValues(
		string(trans.ServiceCategory), trans.Provider, string(domain.TransactionStatusFailed)).Inc()

	s.notifier.Notify(ctx, notify.Notification{
		Kind:    notify.KindPurchaseFailed,
		Email:   user.Email,
		Name:    user.FullName,
		TransID: trans.TransID,
		Detail:  outcome.Reason,
		Amount:  trans.Amount,
	})
	s.notifier.Notify(ctx, notify.Notification{
		Kind:      notify.KindRefundIssued,
		Email:     user.Email,
		Name:      user.FullName,
		TransID:   refund.TransID,
		Reference: refund.Reference,
		Amount:    refund.Amount,
	})

	trans.Status = domain.TransactionStatusFailed
	return &PurchaseResult{Transaction: trans, Refund: refund, Detail: outcome.Reason}, nil
}

// deferToRequery передаёт транзакцию фоновой доразведке когда исход известен,
// а расчёт по нему не прошёл. ErrTransactionSettled пометки не требует:
// транзакция уже в терминальном статусе.
func (s *PurchaseService) deferToRequery(ctx context.Context, trans *domain.Transaction, cause error) {
	if errors.Is(cause, domain.ErrTransactionSettled) {
		return
	}
	log := s.l.WithField("transID", trans.TransID)
	if flagErr := s.ledger.FlagForRequery(ctx, trans.ID); flagErr != nil {
		log.WithError(flagErr).Error("flag for requery after settlement error")
		return
	}
	log.WithError(cause).Warn("settlement failed, handed over to reconciliation")
}

// ApplyRequeryOutcome применяет результат фоновой доразведки к транзакции.
// Неразрешённый исход увеличивает счётчик попыток; по исчерпании лимита
// транзакция уходит на ручной разбор с удержанием резерва.
func (s *PurchaseService) ApplyRequeryOutcome(
	ctx context.Context,
	trans domain.Transaction,
	outcome provider.Outcome,
) error {
	log := s.l.WithFields(logrus.Fields{"transID": trans.TransID, "outcome": outcome.Status})

	user, err := s.users.FindUserByID(ctx, trans.UserID)
	if err != nil {
		return fmt.Errorf("requery outcome %s: %w", trans.TransID, err)
	}

	switch outcome.Status {
	case provider.OutcomeSuccess:
		if _, err = s.finishSuccess(ctx, &trans, user, outcome); err != nil {
			return err
		}
		metrics.RequeryResolutionsTotal.WithLabelValues("success").Inc()
		log.Info("resolved by reconciliation")
		return nil
	case provider.OutcomeFailure:
		if _, err = s.finishFailure(ctx, &trans, user, outcome); err != nil {
			return err
		}
		metrics.RequeryResolutionsTotal.WithLabelValues("failed").Inc()
		log.Info("resolved by reconciliation, funds refunded")
		return nil
	default:
		if trans.RequeryAttempts+1 >= s.maxRequeryAttempts {
			log.Warn("requery attempts exhausted, flagging for manual review")
			return s.ledger.MarkManualReview(ctx, trans.ID,
				fmt.Sprintf("unresolved after %d requeries: %s", trans.RequeryAttempts+1, outcome.Reason))
		}
		return s.ledger.IncrementRequeryAttempts(ctx, []uuid.UUID{trans.ID})
	}
}

// TransactionsForRequery выборка незавершённых транзакций для фоновой
// доразведки.
func (s *PurchaseService) TransactionsForRequery(ctx context.Context, limit uint) ([]domain.Transaction, error) {
	return s.ledger.TransactionsForRequery(ctx, limit) //nolint:wrapcheck
}

// ValidateCustomer проверяет реквизиты клиента у провайдера до покупки.
// Денежных эффектов не имеет.
func (s *PurchaseService) ValidateCustomer(
	ctx context.Context,
	providerName, serviceID, customerAccountID string,
) (*provider.CustomerDetails, error) {
	gateway, err := s.gateways.Resolve(providerName)
	if err != nil {
		return nil, fmt.Errorf("validate customer: %w", err)
	}
	vctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	return gateway.ValidateCustomer(vctx, serviceID, customerAccountID) //nolint:wrapcheck
}

// ServiceIdentifier ключ правила ценообразования, например "airtime-mtn".
func ServiceIdentifier(category domain.ServiceCategoryType, serviceID string) string {
	return fmt.Sprintf("%s-%s", category, strings.ToLower(serviceID))
}

func settleNote(o provider.Outcome) string {
	if o.ProviderRef != "" {
		return fmt.Sprintf("Provider ref: %s. %s", o.ProviderRef, o.Detail+o.Reason)
	}
	return o.Detail + o.Reason
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	case <-t.C:
		return nil
	}
}
