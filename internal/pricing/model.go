package pricing

import "time"

// GroupSide distinguishes the two shipping buckets an item can reference.
type GroupSide string

const (
	GroupSideVendor   GroupSide = "VENDOR"
	GroupSideCustomer GroupSide = "CUSTOMER"
)

// ShippingGroup is a named flat cost bucket shared by items within one
// balance entry. The cost is divided per unit quantity of the item that
// references it, each item treated as the sole occupant of its group.
type ShippingGroup struct {
	ID          int64     `json:"id" db:"id"`
	WorksheetID int64     `json:"worksheet_id" db:"worksheet_id"`
	EntryID     int       `json:"entry_id" db:"entry_id"`
	Side        GroupSide `json:"side" db:"side"`
	Name        string    `json:"name" db:"name"`
	TotalCost   float64   `json:"total_cost" db:"total_cost"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CategoryKind selects one of the fixed-shape percentage tables.
type CategoryKind string

const (
	CategoryDifficulty   CategoryKind = "DIFFICULTY"
	CategoryDeliveryTime CategoryKind = "DELIVERY_TIME"
	CategoryPaymentTime  CategoryKind = "PAYMENT_TIME"
)

// CategoryPercentage maps a named category to a percentage-of-cost-basis
// multiplier.
type CategoryPercentage struct {
	ID         int64        `json:"id" db:"id"`
	Kind       CategoryKind `json:"kind" db:"kind"`
	Name       string       `json:"name" db:"name"`
	Percentage float64      `json:"percentage" db:"percentage"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}
