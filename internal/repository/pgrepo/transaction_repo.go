package pgrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/repository/repoargs"
	"github.com/fsdevblog/groph-vtu/pkg/uow"
)

const transactionColumns = `id, created_at, updated_at, wallet_id, user_id, trans_id, direction, amount,
	status, service_category, provider, reference, metadata, profit, requery_attempts, needs_requery,
	manual_review, refund_for`

type TransactionRepository struct {
	db uow.DBTX
}

func NewTransactionRepository(db uow.DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(
	ctx context.Context,
	args repoargs.TransactionCreate,
) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO transactions
			(wallet_id, user_id, trans_id, direction, amount, status, service_category,
			 provider, reference, metadata, profit, refund_for)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+transactionColumns,
		args.WalletID, args.UserID, args.TransID, args.Direction, args.Amount, args.Status,
		args.ServiceCategory, args.Provider, args.Reference, args.Metadata, args.Profit, args.RefundFor)
	trans, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "creating transaction %s", args.TransID)
	}
	return trans, nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	trans, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "finding transaction %s", id)
	}
	return trans, nil
}

func (r *TransactionRepository) FindByTransID(ctx context.Context, transID string) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE trans_id = $1`, transID)
	trans, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "finding transaction by trans_id %s", transID)
	}
	return trans, nil
}

// FindFundingByReference ищет транзакцию пополнения по внешнему референсу
// платёжного провайдера. Используется для идемпотентности пополнений.
func (r *TransactionRepository) FindFundingByReference(
	ctx context.Context,
	reference string,
) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE service_category = 'funding' AND reference = $1`, reference)
	trans, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "finding funding transaction by reference %s", reference)
	}
	return trans, nil
}

// MarkStatus переводит транзакцию из статуса From в статус To, дописывая
// метаданные. Если запись не в статусе From, вернется domain.ErrRecordNotFound —
// на этом построена идемпотентность компенсации.
func (r *TransactionRepository) MarkStatus(
	ctx context.Context,
	args repoargs.TransactionMarkStatus,
) (*domain.Transaction, error) {
	query := `
		UPDATE transactions
		SET status = $3,
		    metadata = CASE WHEN $4 = '' THEN metadata ELSE metadata || $4 END,
		    needs_requery = CASE WHEN $5 THEN FALSE ELSE needs_requery END,
		    updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING ` + transactionColumns
	row := r.db.QueryRow(ctx, query, args.ID, args.From, args.To, args.AppendMetadata, args.ClearRequery)
	trans, err := scanTransaction(row)
	if err != nil {
		return nil, convertErr(err, "marking transaction %s %s->%s", args.ID, args.From, args.To)
	}
	return trans, nil
}

func (r *TransactionRepository) AppendMetadata(ctx context.Context, id uuid.UUID, note string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE transactions SET metadata = metadata || $2, updated_at = now() WHERE id = $1`, id, note)
	return convertErr(err, "appending metadata to transaction %s", id)
}

func (r *TransactionRepository) SetNeedsRequery(ctx context.Context, id uuid.UUID, needs bool) error {
	_, err := r.db.Exec(ctx,
		`UPDATE transactions SET needs_requery = $2, updated_at = now() WHERE id = $1`, id, needs)
	return convertErr(err, "setting needs_requery on transaction %s", id)
}

func (r *TransactionRepository) GetByWalletID(
	ctx context.Context,
	walletID uuid.UUID,
	limit, offset uint,
) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		walletID, int64(limit), int64(offset))
	if err != nil {
		return nil, convertErr(err, "transactions of wallet %s", walletID)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// GetForRequery возвращает зависшие транзакции, подлежащие повторному опросу
// статуса у провайдера.
func (r *TransactionRepository) GetForRequery(ctx context.Context, limit uint) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE status = 'processing' AND needs_requery = TRUE AND manual_review = FALSE
		 ORDER BY created_at LIMIT $1`, int64(limit))
	if err != nil {
		return nil, convertErr(err, "transactions for requery")
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (r *TransactionRepository) IncrementRequeryAttempts(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx,
		`UPDATE transactions SET requery_attempts = requery_attempts + 1, updated_at = now()
		 WHERE id = ANY($1)`, ids)
	return convertErr(err, "incrementing requery attempts")
}

// MarkManualReview снимает транзакцию с автоматического опроса и помечает для
// ручной сверки оператором. Статус остаётся processing, возврат не делается.
func (r *TransactionRepository) MarkManualReview(ctx context.Context, id uuid.UUID, note string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE transactions
		 SET manual_review = TRUE, needs_requery = FALSE, metadata = metadata || $2, updated_at = now()
		 WHERE id = $1`, id, note)
	return convertErr(err, "marking transaction %s for manual review", id)
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.ID, &t.CreatedAt, &t.UpdatedAt, &t.WalletID, &t.UserID, &t.TransID, &t.Direction,
		&t.Amount, &t.Status, &t.ServiceCategory, &t.Provider, &t.Reference, &t.Metadata,
		&t.Profit, &t.RequeryAttempts, &t.NeedsRequery, &t.ManualReview, &t.RefundFor,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	for rows.Next() {
		trans, err := scanTransaction(rows)
		if err != nil {
			return nil, convertErr(err, "scanning transaction")
		}
		transactions = append(transactions, *trans)
	}
	if err := rows.Err(); err != nil {
		return nil, convertErr(err, "iterating transactions")
	}
	return transactions, nil
}
