package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/metrics"
	"github.com/fsdevblog/groph-vtu/internal/repository/repoargs"
	"github.com/fsdevblog/groph-vtu/internal/service/transid"
	"github.com/fsdevblog/groph-vtu/pkg/uow"
)

type ReserveArgs struct {
	UserID          int64
	Amount          decimal.Decimal
	TransID         string
	ServiceCategory domain.ServiceCategoryType
	Provider        string
	Reference       string
	Metadata        string
	Profit          decimal.Decimal
}

type CreditArgs struct {
	UserID    int64
	Amount    decimal.Decimal
	Reference string
	Metadata  string
}

// LedgerService атомарные денежные операции над кошельком. Каждая операция —
// одна транзакция БД: строка кошелька берётся под FOR UPDATE, поэтому
// конкурентные операции над одним кошельком сериализуются.
type LedgerService struct {
	uow        uow.UOW
	walletRepo WalletRepository
	transRepo  TransactionRepository
	l          *logrus.Entry
}

func NewLedgerService(u uow.UOW, l *logrus.Logger) (*LedgerService, error) {
	walletRepo, err := uow.GetRepositoryAs[WalletRepository](u, uow.RepositoryName(repoargs.WalletRepoName))
	if err != nil {
		return nil, err
	}
	transRepo, err := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, err
	}
	return &LedgerService{
		uow:        u,
		walletRepo: walletRepo,
		transRepo:  transRepo,
		l: l.WithFields(logrus.Fields{
			"component": "services",
			"module":    "LedgerService",
		}),
	}, nil
}

// Reserve списывает args.Amount с кошелька и создаёт дебетовую транзакцию в
// статусе processing. При нехватке средств возвращает ErrInsufficientFunds,
// состояние не меняется.
func (s *LedgerService) Reserve(ctx context.Context, args ReserveArgs) (*domain.Transaction, error) {
	var trans *domain.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context, tx uow.TX) error {
		wallets, err := uow.GetAs[WalletRepository](tx, uow.RepositoryName(repoargs.WalletRepoName))
		if err != nil {
			return err
		}
		transactions, err := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
		if err != nil {
			return err
		}

		wallet, err := wallets.LockByUserID(ctx, args.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return domain.ErrWalletNotFound
			}
			return err
		}
		if wallet.Balance.LessThan(args.Amount) {
			return domain.ErrInsufficientFunds
		}
		if _, err = wallets.AdjustBalance(ctx, wallet.ID, args.Amount.Neg()); err != nil {
			return err
		}

		trans, err = transactions.Create(ctx, repoargs.TransactionCreate{
			WalletID:        wallet.ID,
			UserID:          args.UserID,
			TransID:         args.TransID,
			Direction:       domain.DirectionDebit,
			Amount:          args.Amount,
			Status:          domain.TransactionStatusProcessing,
			ServiceCategory: args.ServiceCategory,
			Provider:        args.Provider,
			Reference:       args.Reference,
			Metadata:        args.Metadata,
			Profit:          args.Profit,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reserve for user %d: %w", args.UserID, err)
	}
	return trans, nil
}

// SettleSuccess переводит транзакцию processing -> success. Повторный вызов
// для уже успешной транзакции — no-op, возвращается текущая запись. Перевод
// из failed запрещён (ErrTransactionSettled).
func (s *LedgerService) SettleSuccess(
	ctx context.Context,
	transactionID uuid.UUID,
	metadata string,
) (*domain.Transaction, error) {
	var trans *domain.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context, tx uow.TX) error {
		transactions, err := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
		if err != nil {
			return err
		}
		trans, err = transactions.MarkStatus(ctx, repoargs.TransactionMarkStatus{
			ID:             transactionID,
			From:           domain.TransactionStatusProcessing,
			To:             domain.TransactionStatusSuccess,
			AppendMetadata: metadata,
			ClearRequery:   true,
		})
		if errors.Is(err, domain.ErrRecordNotFound) {
			return s.resolveSettled(ctx, transactions, transactionID, domain.TransactionStatusSuccess, &trans)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("settle success %s: %w", transactionID, err)
	}
	return trans, nil
}

// SettleFailureAndRefund компенсация: транзакция переводится processing ->
// failed, средства возвращаются на кошелёк отдельной кредитовой транзакцией
// категории refund. Условный переход статуса гарантирует что повторный вызов
// не породит второй возврат.
func (s *LedgerService) SettleFailureAndRefund(
	ctx context.Context,
	transactionID uuid.UUID,
	metadata string,
) (*domain.Transaction, error) {
	var refund *domain.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context, tx uow.TX) error {
		wallets, err := uow.GetAs[WalletRepository](tx, uow.RepositoryName(repoargs.WalletRepoName))
		if err != nil {
			return err
		}
		transactions, err := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
		if err != nil {
			return err
		}

		failed, err := transactions.MarkStatus(ctx, repoargs.TransactionMarkStatus{
			ID:             transactionID,
			From:           domain.TransactionStatusProcessing,
			To:             domain.TransactionStatusFailed,
			AppendMetadata: metadata,
			ClearRequery:   true,
		})
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return domain.ErrTransactionSettled
			}
			return err
		}

		// Блокировка кошелька после условного перехода: до этой точки
		// конкурентная компенсация уже отвалилась бы на MarkStatus.
		if _, err = wallets.LockByID(ctx, failed.WalletID); err != nil {
			return err
		}
		if _, err = wallets.AdjustBalance(ctx, failed.WalletID, failed.Amount); err != nil {
			return err
		}

		refund, err = transactions.Create(ctx, repoargs.TransactionCreate{
			WalletID:        failed.WalletID,
			UserID:          failed.UserID,
			TransID:         transid.New(transid.ModeAlphanumeric),
			Direction:       domain.DirectionCredit,
			Amount:          failed.Amount,
			Status:          domain.TransactionStatusSuccess,
			ServiceCategory: domain.ServiceCategoryRefund,
			Provider:        failed.Provider,
			Reference:       fmt.Sprintf("REFUND-%s", failed.TransID),
			Metadata:        fmt.Sprintf("Refund for %s", failed.TransID),
			RefundFor:       &failed.ID,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("refund %s: %w", transactionID, err)
	}
	metrics.RefundsTotal.Inc()
	return refund, nil
}

// Credit пополняет кошелёк. Идемпотентность по Reference: повторное пополнение
// с тем же референсом возвращает уже существующую транзакцию без изменения
// баланса.
func (s *LedgerService) Credit(ctx context.Context, args CreditArgs) (*domain.Transaction, error) {
	var trans *domain.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context, tx uow.TX) error {
		wallets, err := uow.GetAs[WalletRepository](tx, uow.RepositoryName(repoargs.WalletRepoName))
		if err != nil {
			return err
		}
		transactions, err := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
		if err != nil {
			return err
		}

		wallet, err := wallets.LockByUserID(ctx, args.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				return domain.ErrWalletNotFound
			}
			return err
		}

		// Создание до изменения баланса: частичный уникальный индекс по
		// reference отсечёт дубль раньше чем деньги будут зачислены.
		trans, err = transactions.Create(ctx, repoargs.TransactionCreate{
			WalletID:        wallet.ID,
			UserID:          args.UserID,
			TransID:         transid.New(transid.ModeAlphanumeric),
			Direction:       domain.DirectionCredit,
			Amount:          args.Amount,
			Status:          domain.TransactionStatusSuccess,
			ServiceCategory: domain.ServiceCategoryFunding,
			Provider:        "paystack",
			Reference:       args.Reference,
			Metadata:        args.Metadata,
		})
		if err != nil {
			return err
		}
		_, err = wallets.AdjustBalance(ctx, wallet.ID, args.Amount)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			existing, findErr := s.transRepo.FindFundingByReference(ctx, args.Reference)
			if findErr != nil {
				return nil, fmt.Errorf("credit duplicate lookup %s: %w", args.Reference, findErr)
			}
			s.l.WithField("reference", args.Reference).Warn("duplicate funding reference, skipping")
			return existing, nil
		}
		return nil, fmt.Errorf("credit for user %d: %w", args.UserID, err)
	}
	return trans, nil
}

// FlagForRequery помечает незавершённую транзакцию для фоновой доразведки.
func (s *LedgerService) FlagForRequery(ctx context.Context, transactionID uuid.UUID) error {
	return s.transRepo.SetNeedsRequery(ctx, transactionID, true) //nolint:wrapcheck
}

func (s *LedgerService) TransactionsForRequery(ctx context.Context, limit uint) ([]domain.Transaction, error) {
	return s.transRepo.GetForRequery(ctx, limit) //nolint:wrapcheck
}

func (s *LedgerService) IncrementRequeryAttempts(ctx context.Context, ids []uuid.UUID) error {
	return s.transRepo.IncrementRequeryAttempts(ctx, ids) //nolint:wrapcheck
}

// MarkManualReview выводит транзакцию из автоматической доразведки. Деньги
// остаются зарезервированными до ручного разбора.
func (s *LedgerService) MarkManualReview(ctx context.Context, id uuid.UUID, note string) error {
	if err := s.transRepo.MarkManualReview(ctx, id, note); err != nil {
		return err //nolint:wrapcheck
	}
	metrics.ManualReviewTotal.Inc()
	return nil
}

// GetWallet возвращает кошелёк пользователя.
func (s *LedgerService) GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err //nolint:wrapcheck
	}
	return wallet, nil
}

// Transactions постраничная история движений по кошельку пользователя,
// новые записи первыми.
func (s *LedgerService) Transactions(
	ctx context.Context,
	userID int64,
	limit, offset uint,
) ([]domain.Transaction, error) {
	wallet, err := s.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.transRepo.GetByWalletID(ctx, wallet.ID, limit, offset) //nolint:wrapcheck
}

// resolveSettled обрабатывает MarkStatus-промах: если транзакция уже в целевом
// статусе — идемпотентный no-op, иначе конфликт терминальных статусов.
func (s *LedgerService) resolveSettled(
	ctx context.Context,
	transactions TransactionRepository,
	id uuid.UUID,
	want domain.TransactionStatusType,
	out **domain.Transaction,
) error {
	current, err := transactions.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == want {
		*out = current
		return nil
	}
	return domain.ErrTransactionSettled
}
