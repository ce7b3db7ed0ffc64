package balance

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesops-erp/salesops-erp/internal/access"
	"github.com/salesops-erp/salesops-erp/internal/docnum"
	"github.com/salesops-erp/salesops-erp/internal/pricing"
	"github.com/salesops-erp/salesops-erp/internal/shared"
)

type entryKey struct {
	worksheetID int64
	entryID     int
}

type memRepo struct {
	worksheets map[int64]*Worksheet
	entries    map[entryKey]*Entry
	items      map[entryKey][]Item
	locks      map[entryKey]LockInfo
	nextItemID int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		worksheets: map[int64]*Worksheet{},
		entries:    map[entryKey]*Entry{},
		items:      map[entryKey][]Item{},
		locks:      map[entryKey]LockInfo{},
	}
}

func (m *memRepo) GetWorksheet(_ context.Context, id int64) (*Worksheet, error) {
	ws, ok := m.worksheets[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return ws, nil
}

func (m *memRepo) GetWorksheetByRequest(_ context.Context, requestID int64) (*Worksheet, error) {
	for _, ws := range m.worksheets {
		if ws.RequestID == requestID {
			return ws, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memRepo) CreateWorksheet(_ context.Context, requestID, ownerID int64) (int64, error) {
	id := int64(len(m.worksheets) + 1)
	m.worksheets[id] = &Worksheet{ID: id, RequestID: requestID, OwnerID: ownerID}
	return id, nil
}

func (m *memRepo) ListEntries(_ context.Context, worksheetID int64) ([]Entry, error) {
	var out []Entry
	for n := 1; ; n++ {
		e, ok := m.entries[entryKey{worksheetID, n}]
		if !ok {
			break
		}
		out = append(out, *e)
	}
	return out, nil
}

func (m *memRepo) GetEntry(_ context.Context, worksheetID int64, entryID int) (*Entry, error) {
	e, ok := m.entries[entryKey{worksheetID, entryID}]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return e, nil
}

func (m *memRepo) ListItems(_ context.Context, worksheetID int64, entryID int) ([]Item, error) {
	return m.items[entryKey{worksheetID, entryID}], nil
}

func (m *memRepo) CountItems(_ context.Context, worksheetID int64, entryID int) (int, error) {
	return len(m.items[entryKey{worksheetID, entryID}]), nil
}

func (m *memRepo) GetLockInfo(_ context.Context, worksheetID int64, entryID int) (LockInfo, error) {
	return m.locks[entryKey{worksheetID, entryID}], nil
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, (*memTx)(m))
}

type memTx memRepo

func (m *memTx) NextEntryID(_ context.Context, worksheetID int64) (int, error) {
	max := 0
	for k := range m.entries {
		if k.worksheetID == worksheetID && k.entryID > max {
			max = k.entryID
		}
	}
	return max + 1, nil
}

func (m *memTx) InsertEntry(_ context.Context, e Entry) error {
	for _, existing := range m.entries {
		if existing.Code == e.Code {
			return &duplicateErr{}
		}
	}
	m.entries[entryKey{e.WorksheetID, e.EntryID}] = &e
	return nil
}

func (m *memTx) DeleteEntry(_ context.Context, worksheetID int64, entryID int) (int64, error) {
	k := entryKey{worksheetID, entryID}
	removed := int64(len(m.items[k]))
	delete(m.entries, k)
	delete(m.items, k)
	return removed, nil
}

func (m *memTx) NextPosition(_ context.Context, worksheetID int64, entryID int) (int, error) {
	return len(m.items[entryKey{worksheetID, entryID}]) + 1, nil
}

func (m *memTx) InsertItem(_ context.Context, item Item) (int64, error) {
	m.nextItemID++
	item.ID = m.nextItemID
	k := entryKey{item.WorksheetID, item.EntryID}
	m.items[k] = append(m.items[k], item)
	return item.ID, nil
}

// UpdateItem matches by id across every entry, like the table does, and
// only applies the write when the item actually lives under the given
// worksheet and entry.
func (m *memTx) UpdateItem(_ context.Context, item Item) error {
	for k, list := range m.items {
		for i := range list {
			if list[i].ID != item.ID {
				continue
			}
			if k.worksheetID != item.WorksheetID || k.entryID != item.EntryID {
				return shared.ErrNotFound
			}
			m.items[k][i] = item
			return nil
		}
	}
	return shared.ErrNotFound
}

type duplicateErr struct{}

func (*duplicateErr) Error() string { return "duplicate key value violates unique constraint" }

type memPricing struct {
	percentages map[string]float64
	groups      map[string]float64
}

func (m *memPricing) GetPercentage(_ context.Context, kind pricing.CategoryKind, name string) (float64, bool, error) {
	pct, ok := m.percentages[string(kind)+"/"+name]
	return pct, ok, nil
}

func (m *memPricing) ListPercentages(context.Context, pricing.CategoryKind) ([]pricing.CategoryPercentage, error) {
	return nil, nil
}

func (m *memPricing) UpsertPercentage(context.Context, pricing.CategoryPercentage) (int64, error) {
	return 0, nil
}

func (m *memPricing) GetShippingGroup(_ context.Context, _ int64, _ int, side pricing.GroupSide, name string) (*pricing.ShippingGroup, error) {
	total, ok := m.groups[string(side)+"/"+name]
	if !ok {
		return nil, nil
	}
	return &pricing.ShippingGroup{Side: side, Name: name, TotalCost: total}, nil
}

func (m *memPricing) ListShippingGroups(context.Context, int64, int) ([]pricing.ShippingGroup, error) {
	return nil, nil
}

func (m *memPricing) SaveShippingGroup(context.Context, pricing.ShippingGroup) (int64, error) {
	return 0, nil
}

type freeRegistry struct{}

func (freeRegistry) Exists(context.Context, docnum.Kind, string) (bool, error) {
	return false, nil
}

var (
	ownerActor = shared.Actor{UserID: 7, Role: "staff"}
	bossActor  = shared.Actor{UserID: 8, Role: "pimpinan"}
	adminActor = shared.Actor{UserID: 9, Role: "super_admin"}
)

func newTestService(repo *memRepo) *Service {
	resolver := pricing.NewResolver(&memPricing{
		percentages: map[string]float64{
			string(pricing.CategoryDifficulty) + "/berat":    5,
			string(pricing.CategoryDeliveryTime) + "/2minggu": 3,
		},
		groups: map[string]float64{},
	}, nil, 0)
	gen := docnum.NewGenerator(freeRegistry{}, "GMP")
	return NewService(repo, resolver, gen, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func seedWorksheet(repo *memRepo) int64 {
	repo.worksheets[1] = &Worksheet{ID: 1, RequestID: 100, OwnerID: ownerActor.UserID}
	return 1
}

func validFields() ItemFields {
	return ItemFields{
		Description:   "plat besi",
		PurchasePrice: 100000,
		Qty:           10,
		Unit:          "lembar",
		Difficulty:    "berat",
		DeliveryTime:  "2minggu",
		MarginPct:     20,
	}
}

func TestAddEntryAssignsSequentialIDsAndUniqueCodes(t *testing.T) {
	repo := newMemRepo()
	wsID := seedWorksheet(repo)
	svc := newTestService(repo)

	entries, err := svc.AddEntry(context.Background(), ownerActor, wsID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].EntryID)
	assert.Regexp(t, `^N-\d{6}$`, entries[0].Code)

	entries, err = svc.AddEntry(context.Background(), ownerActor, wsID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries[1].EntryID)
	assert.NotEqual(t, entries[0].Code, entries[1].Code)
}

func TestAddEntryForbiddenForNonOwner(t *testing.T) {
	repo := newMemRepo()
	wsID := seedWorksheet(repo)
	svc := newTestService(repo)

	_, err := svc.AddEntry(context.Background(), shared.Actor{UserID: 42, Role: "staff"}, wsID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	// pimpinan is view-oriented, never an editor of someone else's sheet
	_, err = svc.AddEntry(context.Background(), bossActor, wsID)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	// super admin can always write
	_, err = svc.AddEntry(context.Background(), adminActor, wsID)
	assert.NoError(t, err)
}

func TestDeleteEntryBlockedWhenLinked(t *testing.T) {
	repo := newMemRepo()
	wsID := seedWorksheet(repo)
	svc := newTestService(repo)

	_, err := svc.AddEntry(context.Background(), ownerActor, wsID)
	require.NoError(t, err)

	repo.locks[entryKey{wsID, 1}] = LockInfo{Linked: true}
	err = svc.DeleteEntry(context.Background(), ownerActor, wsID, 1)
	assert.ErrorIs(t, err, shared.ErrEntryLocked)

	// unlinking makes it deletable again
	repo.locks[entryKey{wsID, 1}] = LockInfo{}
	err = svc.DeleteEntry(context.Background(), ownerActor, wsID, 1)
	require.NoError(t, err)
	_, err = repo.GetEntry(context.Background(), wsID, 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteEntryRemovesItems(t *testing.T) {
	repo := newMemRepo()
	wsID := seedWorksheet(repo)
	svc := newTestService(repo)

	_, err := svc.AddEntry(context.Background(), ownerActor, wsID)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), ownerActor, wsID, 1, validFields())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEntry(context.Background(), ownerActor, wsID, 1))
	count, err := repo.CountItems(context.Background(), wsID, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAddItemSnapshotsPrices(t *testing.T) {
	repo := newMemRepo()
	wsID := seedWorksheet(repo)
	svc := newTestService(repo)

	_, err := svc.AddEntry(context.Background(), ownerActor, wsID)
	require.NoError(t, err)

	item, err := svc.AddItem(context.Background(), ownerActor, wsID, 1, validFields())
	require.NoError(t, err)
	assert.Equal(t, 1, item.Position)

	// B=100000, difficulty 5% => 5000, delivery 3% => 3000, no shipping,
	// modal 108000, margin 20% => 129600
	assert.Equal(t, float64(129600), item.UnitSellingPrice)
	assert.Equal(t, float64(1296000), item.TotalSellingPrice)
}

func TestItemWritesBlockedWhenLocked(t *testing.T) {
	repo := newMemRepo()
	wsID := seedWorksheet(repo)
	svc := newTestService(repo)

	_, err := svc.AddEntry(context.Background(), ownerActor, wsID)
	require.NoError(t, err)
	item, err := svc.AddItem(context.Background(), ownerActor, wsID, 1, validFields())
	require.NoError(t, err)

	repo.locks[entryKey{wsID, 1}] = LockInfo{Linked: true, HasPurchaseOrder: true}

	_, err = svc.AddItem(context.Background(), ownerActor, wsID, 1, validFields())
	assert.ErrorIs(t, err, shared.ErrEntryLocked)
	_, err = svc.EditItem(context.Background(), ownerActor, wsID, 1, item.ID, validFields())
	assert.ErrorIs(t, err, shared.ErrEntryLocked)

	// linked but no purchase order and quotation still open: editable
	repo.locks[entryKey{wsID, 1}] = LockInfo{Linked: true}
	_, err = svc.AddItem(context.Background(), ownerActor, wsID, 1, validFields())
	assert.NoError(t, err)

	// closed quotation locks too
	repo.locks[entryKey{wsID, 1}] = LockInfo{Linked: true, QuotationClosed: true}
	_, err = svc.AddItem(context.Background(), ownerActor, wsID, 1, validFields())
	assert.ErrorIs(t, err, shared.ErrEntryLocked)
}

func TestEditItemRejectsItemFromAnotherEntry(t *testing.T) {
	repo := newMemRepo()
	wsID := seedWorksheet(repo)
	svc := newTestService(repo)

	_, err := svc.AddEntry(context.Background(), ownerActor, wsID)
	require.NoError(t, err)
	locked, err := svc.AddItem(context.Background(), ownerActor, wsID, 1, validFields())
	require.NoError(t, err)
	repo.locks[entryKey{wsID, 1}] = LockInfo{Linked: true, HasPurchaseOrder: true}

	_, err = svc.AddEntry(context.Background(), ownerActor, wsID)
	require.NoError(t, err)

	// addressing the locked item through the open entry's path must not
	// reach it
	fields := validFields()
	fields.PurchasePrice = 1
	_, err = svc.EditItem(context.Background(), ownerActor, wsID, 2, locked.ID, fields)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	items, err := repo.ListItems(context.Background(), wsID, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, float64(100000), items[0].PurchasePrice)
}

func TestEditItemKeepsPosition(t *testing.T) {
	repo := newMemRepo()
	wsID := seedWorksheet(repo)
	svc := newTestService(repo)

	_, err := svc.AddEntry(context.Background(), ownerActor, wsID)
	require.NoError(t, err)
	first, err := svc.AddItem(context.Background(), ownerActor, wsID, 1, validFields())
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), ownerActor, wsID, 1, validFields())
	require.NoError(t, err)

	fields := validFields()
	fields.PurchasePrice = 200000
	_, err = svc.EditItem(context.Background(), ownerActor, wsID, 1, first.ID, fields)
	require.NoError(t, err)

	items, err := repo.ListItems(context.Background(), wsID, 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, float64(200000), items[0].PurchasePrice)
}

func TestListEntriesVisibilityAndControls(t *testing.T) {
	repo := newMemRepo()
	wsID := seedWorksheet(repo)
	svc := newTestService(repo)

	_, err := svc.AddEntry(context.Background(), ownerActor, wsID)
	require.NoError(t, err)
	_, err = svc.AddEntry(context.Background(), ownerActor, wsID)
	require.NoError(t, err)
	repo.locks[entryKey{wsID, 2}] = LockInfo{Linked: true}

	// owner sees both, can select both
	details, err := svc.ListEntries(context.Background(), ownerActor, wsID)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, access.ControlEnabled, details[0].SelectionControl)

	// pimpinan sees only the linked one, selection disabled
	details, err = svc.ListEntries(context.Background(), bossActor, wsID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.True(t, details[0].Linked)
	assert.Equal(t, access.ControlDisabled, details[0].SelectionControl)
	assert.False(t, details[0].CanEdit)

	// unrelated staff sees nothing
	details, err = svc.ListEntries(context.Background(), shared.Actor{UserID: 42, Role: "staff"}, wsID)
	require.NoError(t, err)
	assert.Empty(t, details)
}

func TestAddItemValidation(t *testing.T) {
	repo := newMemRepo()
	wsID := seedWorksheet(repo)
	svc := newTestService(repo)

	_, err := svc.AddEntry(context.Background(), ownerActor, wsID)
	require.NoError(t, err)

	fields := validFields()
	fields.Unit = ""
	_, err = svc.AddItem(context.Background(), ownerActor, wsID, 1, fields)
	assert.ErrorIs(t, err, shared.ErrValidation)

	fields = validFields()
	fields.PurchasePrice = -1
	_, err = svc.AddItem(context.Background(), ownerActor, wsID, 1, fields)
	assert.ErrorIs(t, err, shared.ErrValidation)
}
