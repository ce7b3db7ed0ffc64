package balance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/salesops-erp/salesops-erp/internal/access"
	"github.com/salesops-erp/salesops-erp/internal/docnum"
	"github.com/salesops-erp/salesops-erp/internal/pricing"
	"github.com/salesops-erp/salesops-erp/internal/shared"
)

// insertAttempts bounds redraws when the code's unique constraint fires
// between probe and insert.
const insertAttempts = 3

// Service is the entry ledger: it owns the ordered entry list per worksheet
// and the items inside each entry, and enforces entry-level locking even
// when the UI is bypassed.
type Service struct {
	repo     Repository
	resolver *pricing.Resolver
	docnums  *docnum.Generator
	audit    *shared.AuditLogger
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, resolver *pricing.Resolver, docnums *docnum.Generator, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, docnums: docnums, audit: audit, logger: logger}
}

// CreateWorksheet opens a worksheet for the request, owned by the actor.
// A request has at most one worksheet; a second call returns the existing
// one.
func (s *Service) CreateWorksheet(ctx context.Context, actor shared.Actor, requestID int64) (*Worksheet, error) {
	existing, err := s.repo.GetWorksheetByRequest(ctx, requestID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("get worksheet by request: %w", err)
	}

	id, err := s.repo.CreateWorksheet(ctx, requestID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("create worksheet: %w", err)
	}
	return s.repo.GetWorksheet(ctx, id)
}

// WorksheetByRequest resolves the worksheet attached to a request.
func (s *Service) WorksheetByRequest(ctx context.Context, requestID int64) (*Worksheet, error) {
	return s.repo.GetWorksheetByRequest(ctx, requestID)
}

// AddEntry appends a new entry with the next sequential id and a freshly
// generated unique code, returning the updated entry list.
func (s *Service) AddEntry(ctx context.Context, actor shared.Actor, worksheetID int64) ([]Entry, error) {
	ws, err := s.repo.GetWorksheet(ctx, worksheetID)
	if err != nil {
		return nil, fmt.Errorf("get worksheet: %w", err)
	}

	state := access.EntryState{IsOwner: ws.OwnerID == actor.UserID}
	if !access.CanEditItems(access.Role(actor.Role), state) {
		return nil, shared.ErrForbidden
	}

	var lastErr error
	for attempt := 0; attempt < insertAttempts; attempt++ {
		code, err := s.docnums.Generate(ctx, docnum.KindEntry)
		if err != nil {
			return nil, fmt.Errorf("generate entry code: %w", err)
		}

		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			next, err := tx.NextEntryID(ctx, worksheetID)
			if err != nil {
				return fmt.Errorf("next entry id: %w", err)
			}
			return tx.InsertEntry(ctx, Entry{WorksheetID: worksheetID, EntryID: next, Code: code})
		})
		if err == nil {
			return s.repo.ListEntries(ctx, worksheetID)
		}
		if !docnum.IsUniqueViolation(err) {
			return nil, fmt.Errorf("insert entry: %w", err)
		}
		// Lost the race on the code or the entry id, redraw and retry.
		lastErr = err
	}
	return nil, fmt.Errorf("insert entry after %d attempts: %w", insertAttempts, lastErr)
}

// DeleteEntry removes an unlinked entry and all its items. A linked entry
// always fails with ErrEntryLocked.
func (s *Service) DeleteEntry(ctx context.Context, actor shared.Actor, worksheetID int64, entryID int) error {
	ws, err := s.repo.GetWorksheet(ctx, worksheetID)
	if err != nil {
		return fmt.Errorf("get worksheet: %w", err)
	}
	if _, err := s.repo.GetEntry(ctx, worksheetID, entryID); err != nil {
		return fmt.Errorf("get entry: %w", err)
	}

	lock, err := s.repo.GetLockInfo(ctx, worksheetID, entryID)
	if err != nil {
		return fmt.Errorf("get lock info: %w", err)
	}
	if lock.Linked {
		return shared.ErrEntryLocked
	}

	state := access.EntryState{IsOwner: ws.OwnerID == actor.UserID}
	if !access.CanDeleteEntry(access.Role(actor.Role), state) {
		return shared.ErrForbidden
	}

	var removed int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		removed, err = tx.DeleteEntry(ctx, worksheetID, entryID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	s.recordAudit(ctx, actor, "delete", worksheetID, entryID, map[string]any{"items_removed": removed})
	return nil
}

// AddItem prices the item through the cost engine and appends it with the
// next monotonic position.
func (s *Service) AddItem(ctx context.Context, actor shared.Actor, worksheetID int64, entryID int, fields ItemFields) (*Item, error) {
	item, err := s.prepareItem(ctx, actor, worksheetID, entryID, fields)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pos, err := tx.NextPosition(ctx, worksheetID, entryID)
		if err != nil {
			return fmt.Errorf("next position: %w", err)
		}
		item.Position = pos
		id, err := tx.InsertItem(ctx, *item)
		if err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
		item.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// EditItem recomputes and overwrites the snapshot price fields. The position
// is kept; positions are never reassigned.
func (s *Service) EditItem(ctx context.Context, actor shared.Actor, worksheetID int64, entryID int, itemID int64, fields ItemFields) (*Item, error) {
	item, err := s.prepareItem(ctx, actor, worksheetID, entryID, fields)
	if err != nil {
		return nil, err
	}
	item.ID = itemID

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateItem(ctx, *item)
	})
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return item, nil
}

// ListEntries returns the entries of a worksheet visible to the actor, each
// decorated with its lock state and selection-control presentation.
func (s *Service) ListEntries(ctx context.Context, actor shared.Actor, worksheetID int64) ([]EntryDetail, error) {
	ws, err := s.repo.GetWorksheet(ctx, worksheetID)
	if err != nil {
		return nil, fmt.Errorf("get worksheet: %w", err)
	}

	entries, err := s.repo.ListEntries(ctx, worksheetID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	role := access.Role(actor.Role)
	isOwner := ws.OwnerID == actor.UserID

	var out []EntryDetail
	for _, e := range entries {
		lock, err := s.repo.GetLockInfo(ctx, worksheetID, e.EntryID)
		if err != nil {
			return nil, fmt.Errorf("get lock info: %w", err)
		}
		state := access.EntryState{
			IsOwner:  isOwner,
			IsLinked: lock.Linked,
			IsLocked: lock.Locked(),
			IsClosed: lock.QuotationClosed,
		}
		if !access.CanView(role, state) {
			continue
		}
		items, err := s.repo.ListItems(ctx, worksheetID, e.EntryID)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		out = append(out, EntryDetail{
			Entry:            e,
			Items:            items,
			Linked:           lock.Linked,
			Locked:           lock.Locked(),
			CanEdit:          access.CanEditItems(role, state),
			CanDelete:        access.CanDeleteEntry(role, state),
			SelectionControl: access.SelectionControl(role, state),
		})
	}
	return out, nil
}

// prepareItem runs the shared gates for item writes and produces the priced
// item. The ledger rejects writes on locked entries regardless of what the
// caller's UI showed.
func (s *Service) prepareItem(ctx context.Context, actor shared.Actor, worksheetID int64, entryID int, fields ItemFields) (*Item, error) {
	ws, err := s.repo.GetWorksheet(ctx, worksheetID)
	if err != nil {
		return nil, fmt.Errorf("get worksheet: %w", err)
	}
	if _, err := s.repo.GetEntry(ctx, worksheetID, entryID); err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}

	lock, err := s.repo.GetLockInfo(ctx, worksheetID, entryID)
	if err != nil {
		return nil, fmt.Errorf("get lock info: %w", err)
	}
	if lock.Locked() {
		return nil, shared.ErrEntryLocked
	}

	state := access.EntryState{
		IsOwner:  ws.OwnerID == actor.UserID,
		IsLinked: lock.Linked,
		IsClosed: lock.QuotationClosed,
	}
	if !access.CanEditItems(access.Role(actor.Role), state) {
		return nil, shared.ErrForbidden
	}

	if fields.Unit == "" {
		return nil, fmt.Errorf("unit is required: %w", shared.ErrValidation)
	}
	if fields.PurchasePrice < 0 || fields.Qty < 0 {
		return nil, fmt.Errorf("purchase price and qty must not be negative: %w", shared.ErrValidation)
	}

	in, err := s.resolver.Resolve(ctx, pricing.ItemRefs{
		WorksheetID:       worksheetID,
		EntryID:           entryID,
		PurchasePrice:     fields.PurchasePrice,
		Quantity:          fields.Qty,
		VendorGroupName:   fields.VendorGroup,
		CustomerGroupName: fields.CustomerGroup,
		DeliveryTimeName:  fields.DeliveryTime,
		DifficultyName:    fields.Difficulty,
		PaymentTimeName:   fields.PaymentTime,
		MarginPct:         fields.MarginPct,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve cost input: %w", err)
	}
	result := pricing.Compute(in)

	return &Item{
		WorksheetID:       worksheetID,
		EntryID:           entryID,
		Description:       fields.Description,
		PurchasePrice:     fields.PurchasePrice,
		Qty:               fields.Qty,
		Unit:              fields.Unit,
		Weight:            fields.Weight,
		VendorGroup:       fields.VendorGroup,
		CustomerGroup:     fields.CustomerGroup,
		DeliveryTime:      fields.DeliveryTime,
		Difficulty:        fields.Difficulty,
		PaymentTime:       fields.PaymentTime,
		MarginPct:         fields.MarginPct,
		UnitSellingPrice:  result.UnitSellingPrice,
		TotalSellingPrice: result.TotalSellingPrice,
	}, nil
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, worksheetID int64, entryID int, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["worksheet_id"] = worksheetID
	log := shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   shared.AuditEntityBalanceEntry,
		EntityID: fmt.Sprintf("%d/%d", worksheetID, entryID),
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.Any("error", err))
	}
}
