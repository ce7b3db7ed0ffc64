package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/salesops-erp/salesops-erp/internal/access"
	"github.com/salesops-erp/salesops-erp/internal/balance"
	"github.com/salesops-erp/salesops-erp/internal/docnum"
	"github.com/salesops-erp/salesops-erp/internal/shared"
)

// EntrySource is the slice of the balance ledger the linker needs: entry
// existence, item counts and ownership.
type EntrySource interface {
	GetWorksheet(ctx context.Context, id int64) (*balance.Worksheet, error)
	GetEntry(ctx context.Context, worksheetID int64, entryID int) (*balance.Entry, error)
	CountItems(ctx context.Context, worksheetID int64, entryID int) (int, error)
}

// Notifier delivers follow-up notifications to the outside world. The
// notification fires even when the follow-up timestamp update is
// suppressed.
type Notifier interface {
	NotifyFollowUp(ctx context.Context, quotation Quotation) error
}

// FollowUpResult reports what a follow-up call actually did.
type FollowUpResult struct {
	Quotation  Quotation `json:"quotation"`
	Suppressed bool      `json:"suppressed"`
	Backlog    int       `json:"backlog_weeks"`
}

// Service links balance entries into quotations and drives the downstream
// chain: quotation, purchase order, internal letter, tracking, invoice.
// Lock and completion state propagate through here.
type Service struct {
	repo           Repository
	entries        EntrySource
	docnums        *docnum.Generator
	audit          *shared.AuditLogger
	notifier       Notifier
	logger         *slog.Logger
	followUpWindow time.Duration
	now            func() time.Time
}

// NewService constructs a Service. Audit and notifier may be nil.
func NewService(repo Repository, entries EntrySource, docnums *docnum.Generator, audit *shared.AuditLogger, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		entries:        entries,
		docnums:        docnums,
		audit:          audit,
		notifier:       notifier,
		logger:         logger,
		followUpWindow: DefaultFollowUpWindow,
		now:            time.Now,
	}
}

// SetFollowUpWindow overrides the suppression window. Values <= 0 keep the
// default.
func (s *Service) SetFollowUpWindow(d time.Duration) {
	if d > 0 {
		s.followUpWindow = d
	}
}

// CreateQuotation validates every selected entry, creates one quotation for
// the whole call and one link row per selection. An entry without items is
// a hard precondition failure: nothing is created. Link failures after the
// quotation row exists surface as a PartialLinkError; the orphaned
// quotation is left for manual reconciliation, never silently dropped.
func (s *Service) CreateQuotation(ctx context.Context, actor shared.Actor, requestID int64, selections []EntrySelection) (*Quotation, error) {
	if len(selections) == 0 {
		return nil, fmt.Errorf("at least one entry selection required: %w", shared.ErrValidation)
	}

	role := access.Role(actor.Role)
	for _, sel := range selections {
		ws, err := s.entries.GetWorksheet(ctx, sel.WorksheetID)
		if err != nil {
			return nil, fmt.Errorf("worksheet %d: %w", sel.WorksheetID, err)
		}
		if _, err := s.entries.GetEntry(ctx, sel.WorksheetID, sel.EntryID); err != nil {
			return nil, fmt.Errorf("entry %d/%d: %w", sel.WorksheetID, sel.EntryID, err)
		}

		state := access.EntryState{IsOwner: ws.OwnerID == actor.UserID}
		if !access.CanSelectForQuotation(role, state) {
			return nil, shared.ErrForbidden
		}

		count, err := s.entries.CountItems(ctx, sel.WorksheetID, sel.EntryID)
		if err != nil {
			return nil, fmt.Errorf("count items %d/%d: %w", sel.WorksheetID, sel.EntryID, err)
		}
		if count == 0 {
			return nil, fmt.Errorf("entry %d/%d: %w", sel.WorksheetID, sel.EntryID, shared.ErrEmptyEntry)
		}
	}

	number, err := s.docnums.Generate(ctx, docnum.KindQuotation)
	if err != nil {
		return nil, fmt.Errorf("generate quotation number: %w", err)
	}

	id, err := s.repo.CreateQuotation(ctx, Quotation{
		RequestID: requestID,
		Number:    number,
		CreatedBy: actor.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("create quotation: %w", err)
	}

	var failed []string
	var cause error
	for _, sel := range selections {
		err := s.repo.InsertLink(ctx, QuotationLink{
			QuotationID: id,
			WorksheetID: sel.WorksheetID,
			EntryID:     sel.EntryID,
		})
		if err != nil {
			failed = append(failed, fmt.Sprintf("%d/%d", sel.WorksheetID, sel.EntryID))
			cause = err
		}
	}
	if len(failed) > 0 {
		return nil, &shared.PartialLinkError{
			QuotationID:     id,
			QuotationNumber: number,
			Failed:          failed,
			Cause:           cause,
		}
	}

	s.recordAudit(ctx, actor, "create", shared.AuditEntityQuotation, id, map[string]any{
		"quotation_number": number,
		"links":            len(selections),
	})
	return s.repo.GetQuotation(ctx, id)
}

// ToggleClosed sets the closed flag. Closing stops new purchase order
// creation but retracts nothing: existing links and data stay, read-only.
func (s *Service) ToggleClosed(ctx context.Context, actor shared.Actor, quotationID int64, closed bool) (*Quotation, error) {
	if _, err := s.repo.GetQuotation(ctx, quotationID); err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if err := s.repo.SetClosed(ctx, quotationID, closed); err != nil {
		return nil, fmt.Errorf("set closed: %w", err)
	}
	s.recordAudit(ctx, actor, "toggle_closed", shared.AuditEntityQuotation, quotationID, map[string]any{"closed": closed})
	return s.repo.GetQuotation(ctx, quotationID)
}

// CreatePurchaseOrder registers a customer purchase order against an open
// quotation. The first purchase order freezes the quotation's linked
// entries.
func (s *Service) CreatePurchaseOrder(ctx context.Context, actor shared.Actor, quotationID int64) (*PurchaseOrderIn, error) {
	q, err := s.repo.GetQuotation(ctx, quotationID)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if q.IsClosed {
		return nil, shared.ErrQuotationClosed
	}

	id, err := s.repo.CreatePurchaseOrder(ctx, PurchaseOrderIn{
		QuotationID:    quotationID,
		ApprovalStatus: ApprovalPending,
		CreatedBy:      actor.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("create purchase order: %w", err)
	}
	s.recordAudit(ctx, actor, "create", shared.AuditEntityPurchaseOrder, id, map[string]any{"quotation_id": quotationID})
	return s.repo.GetPurchaseOrder(ctx, id)
}

// Approve sets the purchase order approval status.
func (s *Service) Approve(ctx context.Context, actor shared.Actor, purchaseOrderID int64, status ApprovalStatus) (*PurchaseOrderIn, error) {
	switch status {
	case ApprovalApproved, ApprovalRejected, ApprovalPending:
	default:
		return nil, fmt.Errorf("unknown approval status %q: %w", status, shared.ErrValidation)
	}
	if _, err := s.repo.GetPurchaseOrder(ctx, purchaseOrderID); err != nil {
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	if err := s.repo.SetApproval(ctx, purchaseOrderID, status); err != nil {
		return nil, fmt.Errorf("set approval: %w", err)
	}
	s.recordAudit(ctx, actor, "approval", shared.AuditEntityPurchaseOrder, purchaseOrderID, map[string]any{"status": status})
	return s.repo.GetPurchaseOrder(ctx, purchaseOrderID)
}

// RecordInvoice stamps the purchase order with a freshly generated invoice
// number and date.
func (s *Service) RecordInvoice(ctx context.Context, actor shared.Actor, purchaseOrderID int64, date time.Time) (*PurchaseOrderIn, error) {
	po, err := s.repo.GetPurchaseOrder(ctx, purchaseOrderID)
	if err != nil {
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	if po.InvoiceNumber != nil {
		return nil, fmt.Errorf("purchase order already invoiced: %w", shared.ErrValidation)
	}

	number, err := s.docnums.Generate(ctx, docnum.KindInvoice)
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}
	if err := s.repo.SetInvoice(ctx, purchaseOrderID, number, date); err != nil {
		return nil, fmt.Errorf("set invoice: %w", err)
	}
	s.recordAudit(ctx, actor, "invoice", shared.AuditEntityPurchaseOrder, purchaseOrderID, map[string]any{"invoice_number": number})
	return s.repo.GetPurchaseOrder(ctx, purchaseOrderID)
}

// MarkComplete sets the terminal completion flag. Re-applying has no
// additional effect. Pruning of never-linked sibling entries is a separate
// step: callers invoke CleanupOrphanEntries after this succeeds so the
// cascade stays auditable and can be disabled independently.
func (s *Service) MarkComplete(ctx context.Context, actor shared.Actor, purchaseOrderID int64) (requestID int64, changed bool, err error) {
	po, err := s.repo.GetPurchaseOrder(ctx, purchaseOrderID)
	if err != nil {
		return 0, false, fmt.Errorf("get purchase order: %w", err)
	}
	q, err := s.repo.GetQuotation(ctx, po.QuotationID)
	if err != nil {
		return 0, false, fmt.Errorf("get quotation: %w", err)
	}

	changed, err = s.repo.SetComplete(ctx, purchaseOrderID)
	if err != nil {
		return 0, false, fmt.Errorf("set complete: %w", err)
	}
	if changed {
		s.recordAudit(ctx, actor, "complete", shared.AuditEntityPurchaseOrder, purchaseOrderID, nil)
	}
	return q.RequestID, changed, nil
}

// CleanupOrphanEntries deletes every balance entry under the request that
// was never linked into any quotation. Invoked after MarkComplete; safe to
// re-run.
func (s *Service) CleanupOrphanEntries(ctx context.Context, actor shared.Actor, requestID int64) (int64, error) {
	pruned, err := s.repo.DeleteUnlinkedEntries(ctx, requestID)
	if err != nil {
		return 0, fmt.Errorf("delete unlinked entries: %w", err)
	}
	if pruned > 0 {
		s.recordAudit(ctx, actor, "prune_orphans", shared.AuditEntityBalanceEntry, requestID, map[string]any{"pruned": pruned})
	}
	return pruned, nil
}

// RecordFollowUp updates the last-follow-up timestamp unless the previous
// follow-up was less than the window ago. The notification still goes out
// either way.
func (s *Service) RecordFollowUp(ctx context.Context, actor shared.Actor, quotationID int64) (*FollowUpResult, error) {
	q, err := s.repo.GetQuotation(ctx, quotationID)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}

	now := s.now()
	suppressed := FollowUpSuppressed(q.LastFollowUpAt, now, s.followUpWindow)
	if !suppressed {
		if err := s.repo.SetFollowUp(ctx, quotationID, now); err != nil {
			return nil, fmt.Errorf("set follow up: %w", err)
		}
		q, err = s.repo.GetQuotation(ctx, quotationID)
		if err != nil {
			return nil, fmt.Errorf("get quotation: %w", err)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyFollowUp(ctx, *q); err != nil && s.logger != nil {
			s.logger.Warn("follow-up notification failed", slog.Int64("quotation", quotationID), slog.Any("error", err))
		}
	}

	return &FollowUpResult{
		Quotation:  *q,
		Suppressed: suppressed,
		Backlog:    BacklogWeeks(q.CreatedAt, q.LastFollowUpAt, now),
	}, nil
}

// ShipGoods raises an internal delivery letter for the purchase order with
// a fresh shipment number and an initial PREPARING activity.
func (s *Service) ShipGoods(ctx context.Context, actor shared.Actor, purchaseOrderID int64) (*InternalLetter, error) {
	if _, err := s.repo.GetPurchaseOrder(ctx, purchaseOrderID); err != nil {
		return nil, fmt.Errorf("get purchase order: %w", err)
	}

	number, err := s.docnums.Generate(ctx, docnum.KindShipment)
	if err != nil {
		return nil, fmt.Errorf("generate shipment number: %w", err)
	}

	id, err := s.repo.CreateLetter(ctx, InternalLetter{
		PurchaseOrderID: purchaseOrderID,
		ShipmentNumber:  number,
		CreatedBy:       actor.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("create internal letter: %w", err)
	}

	if _, err := s.repo.AppendActivity(ctx, TrackingActivity{
		LetterID:  id,
		Status:    TrackingPreparing,
		CreatedBy: actor.UserID,
	}); err != nil {
		return nil, fmt.Errorf("append initial activity: %w", err)
	}
	return s.repo.GetLetter(ctx, id)
}

// AppendTracking appends one status record to the letter's history. The
// history is append-only; nothing here updates or deletes prior records.
func (s *Service) AppendTracking(ctx context.Context, actor shared.Actor, letterID int64, status TrackingStatus, location, note string, filePaths []string) (*TrackingActivity, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown tracking status %q: %w", status, shared.ErrValidation)
	}
	if _, err := s.repo.GetLetter(ctx, letterID); err != nil {
		return nil, fmt.Errorf("get internal letter: %w", err)
	}

	act := TrackingActivity{
		LetterID:  letterID,
		Status:    status,
		Location:  location,
		Note:      note,
		FilePaths: filePaths,
		CreatedBy: actor.UserID,
	}
	id, err := s.repo.AppendActivity(ctx, act)
	if err != nil {
		return nil, fmt.Errorf("append activity: %w", err)
	}
	act.ID = id
	return &act, nil
}

// Quotation returns a quotation with its links.
func (s *Service) Quotation(ctx context.Context, quotationID int64) (*Quotation, []QuotationLink, error) {
	q, err := s.repo.GetQuotation(ctx, quotationID)
	if err != nil {
		return nil, nil, err
	}
	links, err := s.repo.ListLinks(ctx, quotationID)
	if err != nil {
		return nil, nil, err
	}
	return q, links, nil
}

// QuotationsByRequest lists every quotation raised for the request.
func (s *Service) QuotationsByRequest(ctx context.Context, requestID int64) ([]Quotation, error) {
	return s.repo.ListQuotationsByRequest(ctx, requestID)
}

// Tracking returns the letter's activity history, oldest first.
func (s *Service) Tracking(ctx context.Context, letterID int64) ([]TrackingActivity, error) {
	return s.repo.ListActivities(ctx, letterID)
}

// Backlog reports the quotation's follow-up backlog in whole weeks.
func (s *Service) Backlog(q *Quotation) int {
	return BacklogWeeks(q.CreatedAt, q.LastFollowUpAt, s.now())
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   entity,
		EntityID: shared.RecordID(id),
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.Any("error", err))
	}
}
