package pgrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/pkg/uow"
)

const walletColumns = `id, created_at, updated_at, user_id, balance, currency`

type WalletRepository struct {
	db uow.DBTX
}

func NewWalletRepository(db uow.DBTX) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Create(ctx context.Context, userID int64, currency string) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO wallets (user_id, currency) VALUES ($1, $2) RETURNING `+walletColumns,
		userID, currency)
	wallet, err := scanWallet(row)
	if err != nil {
		return nil, convertErr(err, "creating wallet for user %d", userID)
	}
	return wallet, nil
}

func (r *WalletRepository) FindByUserID(ctx context.Context, userID int64) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	wallet, err := scanWallet(row)
	if err != nil {
		return nil, convertErr(err, "finding wallet by user %d", userID)
	}
	return wallet, nil
}

func (r *WalletRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
	wallet, err := scanWallet(row)
	if err != nil {
		return nil, convertErr(err, "finding wallet %s", id)
	}
	return wallet, nil
}

// LockByUserID возвращает кошелек захватывая блокировку строки (FOR UPDATE).
// Блокировка удерживается до конца транзакции uow.Do, сериализуя все
// изменения баланса одного кошелька. Вызов вне транзакции бессмыслен.
func (r *WalletRepository) LockByUserID(ctx context.Context, userID int64) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	wallet, err := scanWallet(row)
	if err != nil {
		return nil, convertErr(err, "locking wallet by user %d", userID)
	}
	return wallet, nil
}

// LockByID аналогичен LockByUserID, но по id кошелька.
func (r *WalletRepository) LockByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, id)
	wallet, err := scanWallet(row)
	if err != nil {
		return nil, convertErr(err, "locking wallet %s", id)
	}
	return wallet, nil
}

// AdjustBalance изменяет баланс на delta (отрицательная — списание).
// Check-констрейнт balance >= 0 не даст уйти в минус даже при ошибке в
// вызывающем коде.
func (r *WalletRepository) AdjustBalance(
	ctx context.Context,
	id uuid.UUID,
	delta decimal.Decimal,
) (*domain.Wallet, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE wallets SET balance = balance + $2, updated_at = now() WHERE id = $1 RETURNING `+walletColumns,
		id, delta)
	wallet, err := scanWallet(row)
	if err != nil {
		return nil, convertErr(err, "adjusting balance of wallet %s", id)
	}
	return wallet, nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	err := row.Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt, &w.UserID, &w.Balance, &w.Currency)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
