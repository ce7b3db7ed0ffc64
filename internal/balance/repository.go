package balance

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salesops-erp/salesops-erp/internal/platform/db"
	"github.com/salesops-erp/salesops-erp/internal/shared"
)

// Repository defines persistence for worksheets, entries and items.
type Repository interface {
	GetWorksheet(ctx context.Context, id int64) (*Worksheet, error)
	GetWorksheetByRequest(ctx context.Context, requestID int64) (*Worksheet, error)
	CreateWorksheet(ctx context.Context, requestID, ownerID int64) (int64, error)

	ListEntries(ctx context.Context, worksheetID int64) ([]Entry, error)
	GetEntry(ctx context.Context, worksheetID int64, entryID int) (*Entry, error)
	ListItems(ctx context.Context, worksheetID int64, entryID int) ([]Item, error)
	CountItems(ctx context.Context, worksheetID int64, entryID int) (int, error)
	GetLockInfo(ctx context.Context, worksheetID int64, entryID int) (LockInfo, error)

	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional write operations. Entry id assignment
// reads max+1 inside the same repeatable-read transaction as the insert, so
// two concurrent appends cannot both commit the same id.
type TxRepository interface {
	NextEntryID(ctx context.Context, worksheetID int64) (int, error)
	InsertEntry(ctx context.Context, e Entry) error
	DeleteEntry(ctx context.Context, worksheetID int64, entryID int) (int64, error)
	NextPosition(ctx context.Context, worksheetID int64, entryID int) (int, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	UpdateItem(ctx context.Context, item Item) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *repository) GetWorksheet(ctx context.Context, id int64) (*Worksheet, error) {
	const query = `
		SELECT id, request_id, owner_id, created_at, updated_at
		FROM balance_worksheets
		WHERE id = $1
	`
	var ws Worksheet
	err := r.pool.QueryRow(ctx, query, id).Scan(&ws.ID, &ws.RequestID, &ws.OwnerID, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ws, nil
}

func (r *repository) GetWorksheetByRequest(ctx context.Context, requestID int64) (*Worksheet, error) {
	const query = `
		SELECT id, request_id, owner_id, created_at, updated_at
		FROM balance_worksheets
		WHERE request_id = $1
	`
	var ws Worksheet
	err := r.pool.QueryRow(ctx, query, requestID).Scan(&ws.ID, &ws.RequestID, &ws.OwnerID, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &ws, nil
}

func (r *repository) CreateWorksheet(ctx context.Context, requestID, ownerID int64) (int64, error) {
	const query = `
		INSERT INTO balance_worksheets (request_id, owner_id, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query, requestID, ownerID).Scan(&id)
	return id, err
}

func (r *repository) ListEntries(ctx context.Context, worksheetID int64) ([]Entry, error) {
	const query = `
		SELECT worksheet_id, entry_id, code, created_at
		FROM balance_entries
		WHERE worksheet_id = $1
		ORDER BY entry_id
	`
	rows, err := r.pool.Query(ctx, query, worksheetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.WorksheetID, &e.EntryID, &e.Code, &e.Date); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) GetEntry(ctx context.Context, worksheetID int64, entryID int) (*Entry, error) {
	const query = `
		SELECT worksheet_id, entry_id, code, created_at
		FROM balance_entries
		WHERE worksheet_id = $1 AND entry_id = $2
	`
	var e Entry
	err := r.pool.QueryRow(ctx, query, worksheetID, entryID).Scan(&e.WorksheetID, &e.EntryID, &e.Code, &e.Date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *repository) ListItems(ctx context.Context, worksheetID int64, entryID int) ([]Item, error) {
	const query = `
		SELECT id, worksheet_id, entry_id, description, purchase_price, qty, unit, weight,
		       shipping_vendor_group, shipping_customer_group, delivery_time, difficulty,
		       payment_time, margin_pct, unit_selling_price, total_selling_price, position,
		       created_at, updated_at
		FROM balance_items
		WHERE worksheet_id = $1 AND entry_id = $2
		ORDER BY position
	`
	rows, err := r.pool.Query(ctx, query, worksheetID, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ID, &it.WorksheetID, &it.EntryID, &it.Description, &it.PurchasePrice,
			&it.Qty, &it.Unit, &it.Weight, &it.VendorGroup, &it.CustomerGroup,
			&it.DeliveryTime, &it.Difficulty, &it.PaymentTime, &it.MarginPct,
			&it.UnitSellingPrice, &it.TotalSellingPrice, &it.Position,
			&it.CreatedAt, &it.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *repository) CountItems(ctx context.Context, worksheetID int64, entryID int) (int, error) {
	const query = `SELECT COUNT(*) FROM balance_items WHERE worksheet_id = $1 AND entry_id = $2`
	var n int
	err := r.pool.QueryRow(ctx, query, worksheetID, entryID).Scan(&n)
	return n, err
}

// GetLockInfo derives the entry's link and lock state from quotation links
// and their purchase orders in one round trip.
func (r *repository) GetLockInfo(ctx context.Context, worksheetID int64, entryID int) (LockInfo, error) {
	const query = `
		SELECT COUNT(ql.quotation_id) AS links,
		       COUNT(po.id) AS purchase_orders,
		       COALESCE(BOOL_OR(q.is_closed), FALSE) AS any_closed
		FROM quotation_links ql
		JOIN quotations q ON q.id = ql.quotation_id
		LEFT JOIN purchase_orders_in po ON po.quotation_id = q.id
		WHERE ql.worksheet_id = $1 AND ql.entry_id = $2
	`
	var links, pos int
	var closed bool
	if err := r.pool.QueryRow(ctx, query, worksheetID, entryID).Scan(&links, &pos, &closed); err != nil {
		return LockInfo{}, err
	}
	return LockInfo{Linked: links > 0, HasPurchaseOrder: pos > 0, QuotationClosed: closed}, nil
}

// NextEntryID reads max existing id + 1 under the transaction's snapshot.
// The (worksheet_id, entry_id) primary key still backstops the assignment:
// a concurrent committer forces this transaction to fail rather than
// silently duplicate.
func (t *txRepository) NextEntryID(ctx context.Context, worksheetID int64) (int, error) {
	const query = `SELECT COALESCE(MAX(entry_id), 0) + 1 FROM balance_entries WHERE worksheet_id = $1`
	var next int
	err := t.tx.QueryRow(ctx, query, worksheetID).Scan(&next)
	return next, err
}

func (t *txRepository) InsertEntry(ctx context.Context, e Entry) error {
	const query = `
		INSERT INTO balance_entries (worksheet_id, entry_id, code, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	_, err := t.tx.Exec(ctx, query, e.WorksheetID, e.EntryID, e.Code)
	return err
}

// DeleteEntry removes the entry and all its items, returning the number of
// items removed.
func (t *txRepository) DeleteEntry(ctx context.Context, worksheetID int64, entryID int) (int64, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM balance_items WHERE worksheet_id = $1 AND entry_id = $2`, worksheetID, entryID)
	if err != nil {
		return 0, err
	}
	removed := tag.RowsAffected()
	res, err := t.tx.Exec(ctx, `DELETE FROM balance_entries WHERE worksheet_id = $1 AND entry_id = $2`, worksheetID, entryID)
	if err != nil {
		return removed, err
	}
	if res.RowsAffected() == 0 {
		return removed, shared.ErrNotFound
	}
	return removed, nil
}

// NextPosition returns max position + 1. Positions are monotonic per entry
// and never reused after deletes.
func (t *txRepository) NextPosition(ctx context.Context, worksheetID int64, entryID int) (int, error) {
	const query = `SELECT COALESCE(MAX(position), 0) + 1 FROM balance_items WHERE worksheet_id = $1 AND entry_id = $2`
	var next int
	err := t.tx.QueryRow(ctx, query, worksheetID, entryID).Scan(&next)
	return next, err
}

func (t *txRepository) InsertItem(ctx context.Context, item Item) (int64, error) {
	const query = `
		INSERT INTO balance_items (
			worksheet_id, entry_id, description, purchase_price, qty, unit, weight,
			shipping_vendor_group, shipping_customer_group, delivery_time, difficulty,
			payment_time, margin_pct, unit_selling_price, total_selling_price, position,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
		RETURNING id
	`
	var id int64
	err := t.tx.QueryRow(ctx, query,
		item.WorksheetID, item.EntryID, item.Description, item.PurchasePrice, item.Qty,
		item.Unit, item.Weight, item.VendorGroup, item.CustomerGroup, item.DeliveryTime,
		item.Difficulty, item.PaymentTime, item.MarginPct, item.UnitSellingPrice,
		item.TotalSellingPrice, item.Position,
	).Scan(&id)
	return id, err
}

// UpdateItem scopes the write to the item's worksheet and entry. The lock
// check ran against that path, so an item id living under a different entry
// must not match here.
func (t *txRepository) UpdateItem(ctx context.Context, item Item) error {
	const query = `
		UPDATE balance_items SET
			description = $4, purchase_price = $5, qty = $6, unit = $7, weight = $8,
			shipping_vendor_group = $9, shipping_customer_group = $10, delivery_time = $11,
			difficulty = $12, payment_time = $13, margin_pct = $14,
			unit_selling_price = $15, total_selling_price = $16, updated_at = NOW()
		WHERE id = $1 AND worksheet_id = $2 AND entry_id = $3
	`
	tag, err := t.tx.Exec(ctx, query,
		item.ID, item.WorksheetID, item.EntryID,
		item.Description, item.PurchasePrice, item.Qty, item.Unit, item.Weight,
		item.VendorGroup, item.CustomerGroup, item.DeliveryTime, item.Difficulty,
		item.PaymentTime, item.MarginPct, item.UnitSellingPrice, item.TotalSellingPrice,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
