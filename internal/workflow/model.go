package workflow

import "time"

// Quotation is the priced offer built from one or more balance entries.
// Once any purchase order references it, the quotation and every entry it
// links become immutable except for status fields.
type Quotation struct {
	ID             int64      `json:"id" db:"id"`
	RequestID      int64      `json:"request_id" db:"request_id"`
	Number         string     `json:"quotation_number" db:"quotation_number"`
	IsClosed       bool       `json:"is_closed" db:"is_closed"`
	LastFollowUpAt *time.Time `json:"last_follow_up_at,omitempty" db:"last_follow_up_at"`
	CreatedBy      int64      `json:"created_by" db:"created_by"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// QuotationLink joins a quotation to one (worksheet, entry) pair.
type QuotationLink struct {
	QuotationID int64     `json:"quotation_id" db:"quotation_id"`
	WorksheetID int64     `json:"worksheet_id" db:"worksheet_id"`
	EntryID     int       `json:"entry_id" db:"entry_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ApprovalStatus is the purchase order approval state.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// PurchaseOrderIn is the customer's purchase order against a quotation.
// Completion is terminal and triggers pruning of never-linked sibling
// entries on the same request.
type PurchaseOrderIn struct {
	ID             int64          `json:"id" db:"id"`
	QuotationID    int64          `json:"quotation_id" db:"quotation_id"`
	ApprovalStatus ApprovalStatus `json:"approval_status" db:"approval_status"`
	InvoiceNumber  *string        `json:"invoice_number,omitempty" db:"invoice_number"`
	InvoiceDate    *time.Time     `json:"invoice_date,omitempty" db:"invoice_date"`
	IsComplete     bool           `json:"is_complete" db:"is_complete"`
	CreatedBy      int64          `json:"created_by" db:"created_by"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// InternalLetter is the internal delivery letter raised when goods ship,
// one or more per purchase order, each with its own shipment number.
type InternalLetter struct {
	ID              int64     `json:"id" db:"id"`
	PurchaseOrderID int64     `json:"purchase_order_id" db:"purchase_order_id"`
	ShipmentNumber  string    `json:"shipment_number" db:"shipment_number"`
	CreatedBy       int64     `json:"created_by" db:"created_by"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// TrackingStatus enumerates the fixed shipment states.
type TrackingStatus string

const (
	TrackingPreparing TrackingStatus = "PREPARING"
	TrackingShipped   TrackingStatus = "SHIPPED"
	TrackingInTransit TrackingStatus = "IN_TRANSIT"
	TrackingArrived   TrackingStatus = "ARRIVED"
	TrackingDelivered TrackingStatus = "DELIVERED"
)

// Valid reports whether the status is one of the fixed states.
func (s TrackingStatus) Valid() bool {
	switch s {
	case TrackingPreparing, TrackingShipped, TrackingInTransit, TrackingArrived, TrackingDelivered:
		return true
	}
	return false
}

// TrackingActivity is one append-only status record on an internal letter.
// File references are opaque path strings; storage lives outside the core.
type TrackingActivity struct {
	ID        int64          `json:"id" db:"id"`
	LetterID  int64          `json:"letter_id" db:"letter_id"`
	Status    TrackingStatus `json:"status" db:"status"`
	Location  string         `json:"location" db:"location"`
	Note      string         `json:"note" db:"note"`
	FilePaths []string       `json:"file_paths" db:"file_paths"`
	CreatedBy int64          `json:"created_by" db:"created_by"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// EntrySelection identifies one (worksheet, entry) pair selected into a
// quotation.
type EntrySelection struct {
	WorksheetID int64 `json:"worksheet_id" validate:"required,gt=0"`
	EntryID     int   `json:"entry_id" validate:"required,gt=0"`
}
