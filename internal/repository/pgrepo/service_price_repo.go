package pgrepo

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/fsdevblog/groph-vtu/internal/domain"
	"github.com/fsdevblog/groph-vtu/internal/repository/repoargs"
	"github.com/fsdevblog/groph-vtu/pkg/uow"
)

const servicePriceColumns = `id, created_at, updated_at, service_identifier, margin_type, margin_value`

type ServicePriceRepository struct {
	db uow.DBTX
}

func NewServicePriceRepository(db uow.DBTX) *ServicePriceRepository {
	return &ServicePriceRepository{db: db}
}

// Upsert создает или обновляет правило цены по service_identifier.
func (r *ServicePriceRepository) Upsert(
	ctx context.Context,
	args repoargs.ServicePriceUpsert,
) (*domain.ServicePrice, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO service_prices (service_identifier, margin_type, margin_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (service_identifier)
		DO UPDATE SET margin_type = EXCLUDED.margin_type,
		              margin_value = EXCLUDED.margin_value,
		              updated_at = now()
		RETURNING `+servicePriceColumns,
		args.ServiceIdentifier, args.MarginType, args.MarginValue)
	price, err := scanServicePrice(row)
	if err != nil {
		return nil, convertErr(err, "upserting service price %s", args.ServiceIdentifier)
	}
	return price, nil
}

func (r *ServicePriceRepository) FindByIdentifier(
	ctx context.Context,
	identifier string,
) (*domain.ServicePrice, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+servicePriceColumns+` FROM service_prices WHERE service_identifier = $1`, identifier)
	price, err := scanServicePrice(row)
	if err != nil {
		return nil, convertErr(err, "finding service price %s", identifier)
	}
	return price, nil
}

func (r *ServicePriceRepository) GetAll(ctx context.Context) ([]domain.ServicePrice, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+servicePriceColumns+` FROM service_prices ORDER BY service_identifier`)
	if err != nil {
		return nil, convertErr(err, "listing service prices")
	}
	defer rows.Close()

	var prices []domain.ServicePrice
	for rows.Next() {
		price, scanErr := scanServicePrice(rows)
		if scanErr != nil {
			return nil, convertErr(scanErr, "scanning service price")
		}
		prices = append(prices, *price)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "iterating service prices")
	}
	return prices, nil
}

func scanServicePrice(row pgx.Row) (*domain.ServicePrice, error) {
	var p domain.ServicePrice
	err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt, &p.ServiceIdentifier, &p.MarginType, &p.MarginValue)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
