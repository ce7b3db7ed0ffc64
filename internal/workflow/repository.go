package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salesops-erp/salesops-erp/internal/shared"
)

// Repository defines persistence for quotations, links, purchase orders and
// shipment tracking. Quotation creation and link insertion are deliberately
// separate calls: the multi-record write is not atomic and partial
// completion is a first-class, reported outcome.
type Repository interface {
	GetQuotation(ctx context.Context, id int64) (*Quotation, error)
	ListQuotationsByRequest(ctx context.Context, requestID int64) ([]Quotation, error)
	ListOpenQuotations(ctx context.Context) ([]Quotation, error)
	CreateQuotation(ctx context.Context, q Quotation) (int64, error)
	InsertLink(ctx context.Context, link QuotationLink) error
	ListLinks(ctx context.Context, quotationID int64) ([]QuotationLink, error)
	SetClosed(ctx context.Context, quotationID int64, closed bool) error
	SetFollowUp(ctx context.Context, quotationID int64, at time.Time) error

	CreatePurchaseOrder(ctx context.Context, po PurchaseOrderIn) (int64, error)
	GetPurchaseOrder(ctx context.Context, id int64) (*PurchaseOrderIn, error)
	ListPurchaseOrders(ctx context.Context, quotationID int64) ([]PurchaseOrderIn, error)
	SetApproval(ctx context.Context, id int64, status ApprovalStatus) error
	SetInvoice(ctx context.Context, id int64, number string, date time.Time) error
	SetComplete(ctx context.Context, id int64) (bool, error)

	// DeleteUnlinkedEntries prunes every balance entry under the request's
	// worksheets that has zero quotation links, items included. Returns the
	// number of entries removed.
	DeleteUnlinkedEntries(ctx context.Context, requestID int64) (int64, error)
	// ListCompletedRequests returns request ids that have at least one
	// completed purchase order. The orphan sweep re-runs cleanup for them.
	ListCompletedRequests(ctx context.Context) ([]int64, error)

	CreateLetter(ctx context.Context, letter InternalLetter) (int64, error)
	GetLetter(ctx context.Context, id int64) (*InternalLetter, error)
	ListLetters(ctx context.Context, purchaseOrderID int64) ([]InternalLetter, error)
	AppendActivity(ctx context.Context, act TrackingActivity) (int64, error)
	ListActivities(ctx context.Context, letterID int64) ([]TrackingActivity, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const quotationColumns = `id, request_id, quotation_number, is_closed, last_follow_up_at, created_by, created_at, updated_at`

func scanQuotation(row pgx.Row) (*Quotation, error) {
	var q Quotation
	err := row.Scan(&q.ID, &q.RequestID, &q.Number, &q.IsClosed, &q.LastFollowUpAt, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *repository) GetQuotation(ctx context.Context, id int64) (*Quotation, error) {
	return scanQuotation(r.pool.QueryRow(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id = $1`, id))
}

func (r *repository) ListQuotationsByRequest(ctx context.Context, requestID int64) ([]Quotation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE request_id = $1 ORDER BY id`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuotations(rows)
}

// ListOpenQuotations returns every quotation that is still open, oldest
// first. Used by the follow-up backlog scan.
func (r *repository) ListOpenQuotations(ctx context.Context) ([]Quotation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE NOT is_closed ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectQuotations(rows)
}

func collectQuotations(rows pgx.Rows) ([]Quotation, error) {
	var out []Quotation
	for rows.Next() {
		var q Quotation
		if err := rows.Scan(&q.ID, &q.RequestID, &q.Number, &q.IsClosed, &q.LastFollowUpAt, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *repository) CreateQuotation(ctx context.Context, q Quotation) (int64, error) {
	const query = `
		INSERT INTO quotations (request_id, quotation_number, is_closed, created_by, created_at, updated_at)
		VALUES ($1, $2, FALSE, $3, NOW(), NOW())
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query, q.RequestID, q.Number, q.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) InsertLink(ctx context.Context, link QuotationLink) error {
	const query = `
		INSERT INTO quotation_links (quotation_id, worksheet_id, entry_id, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	_, err := r.pool.Exec(ctx, query, link.QuotationID, link.WorksheetID, link.EntryID)
	return err
}

func (r *repository) ListLinks(ctx context.Context, quotationID int64) ([]QuotationLink, error) {
	const query = `
		SELECT quotation_id, worksheet_id, entry_id, created_at
		FROM quotation_links
		WHERE quotation_id = $1
		ORDER BY worksheet_id, entry_id
	`
	rows, err := r.pool.Query(ctx, query, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QuotationLink
	for rows.Next() {
		var l QuotationLink
		if err := rows.Scan(&l.QuotationID, &l.WorksheetID, &l.EntryID, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) SetClosed(ctx context.Context, quotationID int64, closed bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE quotations SET is_closed = $2, updated_at = NOW() WHERE id = $1`, quotationID, closed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SetFollowUp(ctx context.Context, quotationID int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE quotations SET last_follow_up_at = $2, updated_at = NOW() WHERE id = $1`, quotationID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) CreatePurchaseOrder(ctx context.Context, po PurchaseOrderIn) (int64, error) {
	const query = `
		INSERT INTO purchase_orders_in (quotation_id, approval_status, is_complete, created_by, created_at, updated_at)
		VALUES ($1, $2, FALSE, $3, NOW(), NOW())
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query, po.QuotationID, po.ApprovalStatus, po.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) GetPurchaseOrder(ctx context.Context, id int64) (*PurchaseOrderIn, error) {
	const query = `
		SELECT id, quotation_id, approval_status, invoice_number, invoice_date, is_complete, created_by, created_at, updated_at
		FROM purchase_orders_in
		WHERE id = $1
	`
	var po PurchaseOrderIn
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&po.ID, &po.QuotationID, &po.ApprovalStatus, &po.InvoiceNumber, &po.InvoiceDate,
		&po.IsComplete, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &po, nil
}

func (r *repository) ListPurchaseOrders(ctx context.Context, quotationID int64) ([]PurchaseOrderIn, error) {
	const query = `
		SELECT id, quotation_id, approval_status, invoice_number, invoice_date, is_complete, created_by, created_at, updated_at
		FROM purchase_orders_in
		WHERE quotation_id = $1
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PurchaseOrderIn
	for rows.Next() {
		var po PurchaseOrderIn
		if err := rows.Scan(
			&po.ID, &po.QuotationID, &po.ApprovalStatus, &po.InvoiceNumber, &po.InvoiceDate,
			&po.IsComplete, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, rows.Err()
}

func (r *repository) SetApproval(ctx context.Context, id int64, status ApprovalStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE purchase_orders_in SET approval_status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SetInvoice(ctx context.Context, id int64, number string, date time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE purchase_orders_in SET invoice_number = $2, invoice_date = $3, updated_at = NOW() WHERE id = $1`, id, number, date)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetComplete flips the completion flag and reports whether this call
// changed anything. Re-applying completion is a no-op.
func (r *repository) SetComplete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE purchase_orders_in SET is_complete = TRUE, updated_at = NOW() WHERE id = $1 AND NOT is_complete`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repository) DeleteUnlinkedEntries(ctx context.Context, requestID int64) (int64, error) {
	const itemsQuery = `
		DELETE FROM balance_items bi
		USING balance_worksheets ws
		WHERE ws.id = bi.worksheet_id AND ws.request_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM quotation_links ql
			WHERE ql.worksheet_id = bi.worksheet_id AND ql.entry_id = bi.entry_id
		  )
	`
	if _, err := r.pool.Exec(ctx, itemsQuery, requestID); err != nil {
		return 0, err
	}

	const entriesQuery = `
		DELETE FROM balance_entries be
		USING balance_worksheets ws
		WHERE ws.id = be.worksheet_id AND ws.request_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM quotation_links ql
			WHERE ql.worksheet_id = be.worksheet_id AND ql.entry_id = be.entry_id
		  )
	`
	tag, err := r.pool.Exec(ctx, entriesQuery, requestID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repository) ListCompletedRequests(ctx context.Context) ([]int64, error) {
	const query = `
		SELECT DISTINCT q.request_id
		FROM quotations q
		JOIN purchase_orders_in po ON po.quotation_id = q.id
		WHERE po.is_complete
		ORDER BY q.request_id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *repository) CreateLetter(ctx context.Context, letter InternalLetter) (int64, error) {
	const query = `
		INSERT INTO internal_letters (purchase_order_id, shipment_number, created_by, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query, letter.PurchaseOrderID, letter.ShipmentNumber, letter.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) GetLetter(ctx context.Context, id int64) (*InternalLetter, error) {
	const query = `
		SELECT id, purchase_order_id, shipment_number, created_by, created_at
		FROM internal_letters
		WHERE id = $1
	`
	var l InternalLetter
	err := r.pool.QueryRow(ctx, query, id).Scan(&l.ID, &l.PurchaseOrderID, &l.ShipmentNumber, &l.CreatedBy, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *repository) ListLetters(ctx context.Context, purchaseOrderID int64) ([]InternalLetter, error) {
	const query = `
		SELECT id, purchase_order_id, shipment_number, created_by, created_at
		FROM internal_letters
		WHERE purchase_order_id = $1
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query, purchaseOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InternalLetter
	for rows.Next() {
		var l InternalLetter
		if err := rows.Scan(&l.ID, &l.PurchaseOrderID, &l.ShipmentNumber, &l.CreatedBy, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) AppendActivity(ctx context.Context, act TrackingActivity) (int64, error) {
	const query = `
		INSERT INTO tracking_activities (letter_id, status, location, note, file_paths, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query, act.LetterID, act.Status, act.Location, act.Note, act.FilePaths, act.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) ListActivities(ctx context.Context, letterID int64) ([]TrackingActivity, error) {
	const query = `
		SELECT id, letter_id, status, location, note, file_paths, created_by, created_at
		FROM tracking_activities
		WHERE letter_id = $1
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query, letterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TrackingActivity
	for rows.Next() {
		var a TrackingActivity
		if err := rows.Scan(&a.ID, &a.LetterID, &a.Status, &a.Location, &a.Note, &a.FilePaths, &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
