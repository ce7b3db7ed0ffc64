package docnum

import (
	"context"
	"errors"
	"fmt"

	pgconnv1 "github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint breaches.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation. The database constraint is the real uniqueness guarantee; the
// registry probe only keeps retry counts low. Callers that hit 23505 on
// insert redraw the code instead of failing the operation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var legacy *pgconnv1.PgError
	if errors.As(err, &legacy) {
		return legacy.Code == uniqueViolation
	}
	return false
}

// PgRegistry probes the tables that own each document namespace.
type PgRegistry struct {
	pool *pgxpool.Pool
}

// NewPgRegistry constructs a registry over the shared pool.
func NewPgRegistry(pool *pgxpool.Pool) *PgRegistry {
	return &PgRegistry{pool: pool}
}

// Exists implements Registry.
func (r *PgRegistry) Exists(ctx context.Context, kind Kind, code string) (bool, error) {
	var query string
	switch kind {
	case KindEntry:
		query = `SELECT EXISTS (SELECT 1 FROM balance_entries WHERE code = $1)`
	case KindQuotation:
		query = `SELECT EXISTS (SELECT 1 FROM quotations WHERE quotation_number = $1)`
	case KindInvoice:
		query = `SELECT EXISTS (SELECT 1 FROM purchase_orders_in WHERE invoice_number = $1)`
	case KindShipment:
		query = `SELECT EXISTS (SELECT 1 FROM internal_letters WHERE shipment_number = $1)`
	default:
		return false, fmt.Errorf("docnum: unknown kind %q", kind)
	}

	var taken bool
	if err := r.pool.QueryRow(ctx, query, code).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}
