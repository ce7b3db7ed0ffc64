package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeFullBreakdown(t *testing.T) {
	in := CostInput{
		PurchasePrice:         100000,
		Quantity:              10,
		VendorShippingTotal:   50000,
		CustomerShippingTotal: 30000,
		DifficultyPct:         10,
		DeliveryPct:           5,
		PaymentPct:            2,
		MarginPct:             20,
	}

	out := Compute(in)

	assert.Equal(t, float64(5000), out.VendorPerUnit)
	assert.Equal(t, float64(3000), out.CustomerPerUnit)
	assert.Equal(t, float64(10000), out.DifficultyCost)
	assert.Equal(t, float64(5000), out.DeliveryCost)
	assert.Equal(t, float64(2000), out.PaymentCost)
	assert.Equal(t, float64(125000), out.CostPerUnit)
	assert.Equal(t, float64(150000), out.UnitSellingPrice)
	assert.Equal(t, float64(1500000), out.TotalSellingPrice)
}

func TestComputeZeroQuantityBehavesAsOne(t *testing.T) {
	base := CostInput{
		PurchasePrice:         75000,
		VendorShippingTotal:   12000,
		CustomerShippingTotal: 8000,
		DifficultyPct:         5,
		MarginPct:             15,
	}

	zero := base
	zero.Quantity = 0
	one := base
	one.Quantity = 1

	assert.Equal(t, Compute(one), Compute(zero))
}

func TestComputeDeterministic(t *testing.T) {
	in := CostInput{
		PurchasePrice:       33333,
		Quantity:            7,
		VendorShippingTotal: 1000,
		DifficultyPct:       3,
		DeliveryPct:         1,
		PaymentPct:          2,
		MarginPct:           12.5,
	}
	first := Compute(in)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Compute(in))
	}
}

func TestComputeMissingReferencesDefaultToZero(t *testing.T) {
	// No shipping groups, no category percentages: cost basis passes
	// straight through to margin.
	out := Compute(CostInput{PurchasePrice: 10000, Quantity: 2, MarginPct: 10})
	assert.Equal(t, float64(10000), out.CostPerUnit)
	assert.Equal(t, float64(11000), out.UnitSellingPrice)
	assert.Equal(t, float64(22000), out.TotalSellingPrice)
}

func TestComputeRoundsHalfUp(t *testing.T) {
	cases := []struct {
		name     string
		in       CostInput
		wantUnit float64
	}{
		{
			name:     "exact half rounds up",
			in:       CostInput{PurchasePrice: 1001, Quantity: 1, MarginPct: 50},
			wantUnit: 1502, // 1001 * 1.5 = 1501.5
		},
		{
			name:     "below half rounds down",
			in:       CostInput{PurchasePrice: 1003, Quantity: 1, MarginPct: 10},
			wantUnit: 1103, // 1103.3
		},
		{
			name:     "above half rounds up",
			in:       CostInput{PurchasePrice: 1007, Quantity: 1, MarginPct: 10},
			wantUnit: 1108, // 1107.7
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantUnit, Compute(tc.in).UnitSellingPrice)
		})
	}
}
