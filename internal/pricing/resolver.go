package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ItemRefs are the string keys a balance item carries into the percentage
// tables and shipping groups.
type ItemRefs struct {
	WorksheetID       int64
	EntryID           int
	PurchasePrice     float64
	Quantity          float64
	VendorGroupName   string
	CustomerGroupName string
	DeliveryTimeName  string
	DifficultyName    string
	PaymentTimeName   string
	MarginPct         float64
}

// Resolver turns item references into a concrete CostInput. Unresolvable
// category names contribute 0% and missing shipping groups 0 cost, so a
// half-filled item still prices deterministically.
type Resolver struct {
	repo  Repository
	cache *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

// NewResolver constructs a Resolver. The cache client may be nil, in which
// case every lookup hits the repository.
func NewResolver(repo Repository, cache *redis.Client, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Resolver{repo: repo, cache: cache, ttl: ttl}
}

// Resolve builds the CostInput for one item.
func (r *Resolver) Resolve(ctx context.Context, refs ItemRefs) (CostInput, error) {
	in := CostInput{
		PurchasePrice: refs.PurchasePrice,
		Quantity:      refs.Quantity,
		MarginPct:     refs.MarginPct,
	}

	var err error
	if in.DifficultyPct, err = r.percentage(ctx, CategoryDifficulty, refs.DifficultyName); err != nil {
		return CostInput{}, fmt.Errorf("resolve difficulty: %w", err)
	}
	if in.DeliveryPct, err = r.percentage(ctx, CategoryDeliveryTime, refs.DeliveryTimeName); err != nil {
		return CostInput{}, fmt.Errorf("resolve delivery time: %w", err)
	}
	if in.PaymentPct, err = r.percentage(ctx, CategoryPaymentTime, refs.PaymentTimeName); err != nil {
		return CostInput{}, fmt.Errorf("resolve payment time: %w", err)
	}

	if in.VendorShippingTotal, err = r.groupTotal(ctx, refs, GroupSideVendor, refs.VendorGroupName); err != nil {
		return CostInput{}, fmt.Errorf("resolve vendor shipping group: %w", err)
	}
	if in.CustomerShippingTotal, err = r.groupTotal(ctx, refs, GroupSideCustomer, refs.CustomerGroupName); err != nil {
		return CostInput{}, fmt.Errorf("resolve customer shipping group: %w", err)
	}

	return in, nil
}

func (r *Resolver) percentage(ctx context.Context, kind CategoryKind, name string) (float64, error) {
	if name == "" {
		return 0, nil
	}

	key := fmt.Sprintf("pricing:pct:%s:%s", kind, name)
	if r.cache != nil {
		raw, err := r.cache.Get(ctx, key).Bytes()
		if err == nil {
			var pct float64
			if err := json.Unmarshal(raw, &pct); err == nil {
				return pct, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			return 0, err
		}
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		pct, found, err := r.repo.GetPercentage(ctx, kind, name)
		if err != nil {
			return 0.0, err
		}
		if !found {
			pct = 0
		}
		if r.cache != nil {
			if raw, err := json.Marshal(pct); err == nil {
				_ = r.cache.Set(ctx, key, raw, r.ttl).Err()
			}
		}
		return pct, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func (r *Resolver) groupTotal(ctx context.Context, refs ItemRefs, side GroupSide, name string) (float64, error) {
	if name == "" {
		return 0, nil
	}
	g, err := r.repo.GetShippingGroup(ctx, refs.WorksheetID, refs.EntryID, side, name)
	if err != nil {
		return 0, err
	}
	if g == nil {
		return 0, nil
	}
	return g.TotalCost, nil
}
