// Package docnum produces collision-checked human-readable document numbers
// for balance entries, quotations, invoices and shipments. Codes are drawn
// at random in a fixed per-kind template and probed against a uniqueness
// registry; the draw-probe loop is bounded so load can never trap a request
// in an endless redraw cycle.
package docnum

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/salesops-erp/salesops-erp/internal/shared"
)

// Kind selects a document namespace. Each kind owns its template and its
// uniqueness scope.
type Kind string

const (
	KindEntry     Kind = "entry"
	KindQuotation Kind = "quotation"
	KindInvoice   Kind = "invoice"
	KindShipment  Kind = "shipment"
)

// Registry answers whether a code is already taken within a kind's
// namespace. Backed by the persistence layer in production, by a stub in
// tests.
type Registry interface {
	Exists(ctx context.Context, kind Kind, code string) (bool, error)
}

// DefaultMaxAttempts bounds the draw-probe loop when no cap is configured.
const DefaultMaxAttempts = 10

const alnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generator draws codes and probes the registry until it finds a free one.
type Generator struct {
	reg         Registry
	abbrev      string
	maxAttempts int
	now         func() time.Time
	intN        func(n int) int
}

// Option customises a Generator.
type Option func(*Generator)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRand overrides the random source, used by tests.
func WithRand(intN func(n int) int) Option {
	return func(g *Generator) { g.intN = intN }
}

// WithMaxAttempts overrides the retry cap.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// NewGenerator constructs a Generator. The abbreviation is the company short
// name embedded in quotation, invoice and shipment numbers.
func NewGenerator(reg Registry, abbrev string, opts ...Option) *Generator {
	g := &Generator{
		reg:         reg,
		abbrev:      abbrev,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		intN:        rand.IntN,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a code unique within the kind's namespace, or
// shared.ErrGenerationExhausted once the attempt cap is hit. Exhaustion is
// terminal for the whole operation: callers retry the operation later, they
// do not keep re-probing.
func (g *Generator) Generate(ctx context.Context, kind Kind) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code := g.draw(kind)
		taken, err := g.reg.Exists(ctx, kind, code)
		if err != nil {
			return "", fmt.Errorf("docnum: probe %s: %w", kind, err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("docnum: %s after %d attempts: %w", kind, g.maxAttempts, shared.ErrGenerationExhausted)
}

func (g *Generator) draw(kind Kind) string {
	switch kind {
	case KindEntry:
		return fmt.Sprintf("N-%06d", g.intN(1000000))
	case KindQuotation:
		return g.stamped("Q")
	case KindInvoice:
		return g.stamped("Inv")
	case KindShipment:
		return g.stamped("Shp")
	}
	return g.stamped(string(kind))
}

// stamped builds `{prefix}/{6 alnum}/{abbrev}/{MM.YYYY}`.
func (g *Generator) stamped(prefix string) string {
	buf := make([]byte, 6)
	for i := range buf {
		buf[i] = alnum[g.intN(len(alnum))]
	}
	now := g.now()
	return fmt.Sprintf("%s/%s/%s/%02d.%d", prefix, buf, g.abbrev, int(now.Month()), now.Year())
}
