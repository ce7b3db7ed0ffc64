package balance

import "time"

// Worksheet owns the ordered list of balance entries for one customer
// request.
type Worksheet struct {
	ID        int64     `json:"id" db:"id"`
	RequestID int64     `json:"request_id" db:"request_id"`
	OwnerID   int64     `json:"owner_id" db:"owner_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Entry is one balance entry. EntryID is unique within its worksheet and
// assigned monotonically (max existing + 1); Code is globally unique across
// all worksheets.
type Entry struct {
	WorksheetID int64     `json:"worksheet_id" db:"worksheet_id"`
	EntryID     int       `json:"id" db:"entry_id"`
	Code        string    `json:"code" db:"code"`
	Date        time.Time `json:"date" db:"created_at"`
}

// Item belongs to exactly one (worksheet, entry) pair. Unit and total
// selling prices are snapshots taken when the item is written; downstream
// consumers never recompute them.
type Item struct {
	ID                int64     `json:"id" db:"id"`
	WorksheetID       int64     `json:"worksheet_id" db:"worksheet_id"`
	EntryID           int       `json:"entry_id" db:"entry_id"`
	Description       string    `json:"description" db:"description"`
	PurchasePrice     float64   `json:"purchase_price" db:"purchase_price"`
	Qty               float64   `json:"qty" db:"qty"`
	Unit              string    `json:"unit" db:"unit"`
	Weight            float64   `json:"weight" db:"weight"`
	VendorGroup       string    `json:"shipping_vendor_group" db:"shipping_vendor_group"`
	CustomerGroup     string    `json:"shipping_customer_group" db:"shipping_customer_group"`
	DeliveryTime      string    `json:"delivery_time" db:"delivery_time"`
	Difficulty        string    `json:"difficulty" db:"difficulty"`
	PaymentTime       string    `json:"payment_time" db:"payment_time"`
	MarginPct         float64   `json:"margin_pct" db:"margin_pct"`
	UnitSellingPrice  float64   `json:"unit_selling_price" db:"unit_selling_price"`
	TotalSellingPrice float64   `json:"total_selling_price" db:"total_selling_price"`
	Position          int       `json:"position" db:"position"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// LockInfo is the link/lock state of one entry, derived from quotation
// links and their downstream purchase orders.
type LockInfo struct {
	Linked           bool
	HasPurchaseOrder bool
	QuotationClosed  bool
}

// Locked reports whether the entry's item list is frozen. Linking alone
// blocks deletion; item mutation stops once a linked quotation has a
// purchase order or has been closed.
func (l LockInfo) Locked() bool {
	return l.Linked && (l.HasPurchaseOrder || l.QuotationClosed)
}
