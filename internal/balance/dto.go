package balance

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/salesops-erp/salesops-erp/internal/access"
)

// ItemFields carries the mutable fields of a balance item.
type ItemFields struct {
	Description   string  `json:"description" validate:"required,max=300"`
	PurchasePrice float64 `json:"purchase_price" validate:"gte=0"`
	Qty           float64 `json:"qty" validate:"gte=0"`
	Unit          string  `json:"unit" validate:"required,max=30"`
	Weight        float64 `json:"weight" validate:"gte=0"`
	VendorGroup   string  `json:"shipping_vendor_group" validate:"max=100"`
	CustomerGroup string  `json:"shipping_customer_group" validate:"max=100"`
	DeliveryTime  string  `json:"delivery_time" validate:"max=100"`
	Difficulty    string  `json:"difficulty" validate:"max=100"`
	PaymentTime   string  `json:"payment_time" validate:"max=100"`
	MarginPct     float64 `json:"margin_pct" validate:"gte=0,lte=100"`
}

// EntryDetail is the read model for one entry: the entry itself, its items,
// and the link/lock state plus the selection-control presentation for the
// requesting actor.
type EntryDetail struct {
	Entry            Entry               `json:"entry"`
	Items            []Item              `json:"items"`
	Linked           bool                `json:"linked"`
	Locked           bool                `json:"locked"`
	CanEdit          bool                `json:"can_edit"`
	CanDelete        bool                `json:"can_delete"`
	SelectionControl access.ControlState `json:"selection_control"`
}

// ItemView decorates an item with a display-formatted total.
type ItemView struct {
	Item
	TotalDisplay string `json:"total_display"`
}

var idrPrinter = message.NewPrinter(language.Indonesian)

// FormatIDR renders a rupiah amount with Indonesian digit grouping.
func FormatIDR(amount float64) string {
	return idrPrinter.Sprintf("Rp%.0f", amount)
}
