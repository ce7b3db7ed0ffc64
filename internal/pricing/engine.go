// Package pricing computes selling prices for balance items from a cost
// basis and percentage tables. The engine is pure: results depend only on
// the input, and callers persist them as snapshots on the item so later
// changes to percentage tables never move an already written price.
package pricing

import "math"

// CostInput carries every figure the engine needs. Percentages are expressed
// as whole numbers (10 means 10%).
type CostInput struct {
	PurchasePrice float64
	Quantity      float64
	// Flat totals of the shipping group each side references. A missing
	// group reference resolves to 0 before the engine is called.
	VendorShippingTotal   float64
	CustomerShippingTotal float64
	DifficultyPct         float64
	DeliveryPct           float64
	PaymentPct            float64
	MarginPct             float64
}

// CostResult is the full breakdown of one computation.
type CostResult struct {
	VendorPerUnit     float64
	CustomerPerUnit   float64
	DifficultyCost    float64
	DeliveryCost      float64
	PaymentCost       float64
	CostPerUnit       float64
	UnitSellingPrice  float64
	TotalSellingPrice float64
}

// Compute runs the fixed five-step calculation. The step order is part of
// the contract and must not be rearranged.
func Compute(in CostInput) CostResult {
	qty := in.Quantity
	if qty <= 0 {
		// Zero or absent quantity allocates as a single unit.
		qty = 1
	}

	var out CostResult
	out.VendorPerUnit = in.VendorShippingTotal / qty
	out.CustomerPerUnit = in.CustomerShippingTotal / qty

	out.DifficultyCost = in.DifficultyPct / 100 * in.PurchasePrice
	out.DeliveryCost = in.DeliveryPct / 100 * in.PurchasePrice
	out.PaymentCost = in.PaymentPct / 100 * in.PurchasePrice

	out.CostPerUnit = in.PurchasePrice +
		out.VendorPerUnit +
		out.CustomerPerUnit +
		out.DifficultyCost +
		out.DeliveryCost +
		out.PaymentCost

	out.UnitSellingPrice = roundHalfUp(out.CostPerUnit * (1 + in.MarginPct/100))
	out.TotalSellingPrice = roundHalfUp(out.UnitSellingPrice * qty)
	return out
}

// roundHalfUp rounds to the nearest whole currency unit, halves away from
// zero toward the next unit.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
