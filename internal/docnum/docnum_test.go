package docnum

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	pgconnv1 "github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesops-erp/salesops-erp/internal/shared"
)

// stubRegistry is an in-memory uniqueness registry.
type stubRegistry struct {
	taken map[string]struct{}
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{taken: make(map[string]struct{})}
}

func (s *stubRegistry) Exists(_ context.Context, _ Kind, code string) (bool, error) {
	_, ok := s.taken[code]
	return ok, nil
}

func (s *stubRegistry) add(code string) {
	s.taken[code] = struct{}{}
}

func fixedClock() func() time.Time {
	at := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestGenerateFormats(t *testing.T) {
	gen := NewGenerator(newStubRegistry(), "GMP", WithClock(fixedClock()))
	ctx := context.Background()

	entry, err := gen.Generate(ctx, KindEntry)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^N-\d{6}$`), entry)

	quote, err := gen.Generate(ctx, KindQuotation)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^Q/[A-Z0-9]{6}/GMP/03\.2025$`), quote)

	invoice, err := gen.Generate(ctx, KindInvoice)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^Inv/[A-Z0-9]{6}/GMP/03\.2025$`), invoice)

	shipment, err := gen.Generate(ctx, KindShipment)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^Shp/[A-Z0-9]{6}/GMP/03\.2025$`), shipment)
}

func TestGenerateRetriesUntilFree(t *testing.T) {
	// Shrink the entry code space to 10,000 codes and pre-seed all but one.
	// The generator has to keep redrawing until it lands on the single free
	// code.
	reg := newStubRegistry()
	free := "N-004217"
	for i := 0; i < 10000; i++ {
		code := fmt.Sprintf("N-%06d", i)
		if code != free {
			reg.add(code)
		}
	}

	src := rand.New(rand.NewPCG(7, 11))
	gen := NewGenerator(reg, "GMP",
		WithRand(func(n int) int { return src.IntN(n) % 10000 }),
		WithMaxAttempts(1_000_000),
	)

	code, err := gen.Generate(context.Background(), KindEntry)
	require.NoError(t, err)
	assert.Equal(t, free, code)
}

func TestGenerateNoDuplicatesAcrossDraws(t *testing.T) {
	// Draw the full 10,000-code space, registering each result, and assert
	// every code comes out exactly once. Late draws collide almost every
	// time, so this exercises the redraw loop heavily.
	reg := newStubRegistry()
	src := rand.New(rand.NewPCG(3, 5))
	gen := NewGenerator(reg, "GMP",
		WithRand(func(n int) int { return src.IntN(n) % 10000 }),
		WithMaxAttempts(1_000_000),
	)

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		code, err := gen.Generate(context.Background(), KindEntry)
		require.NoError(t, err)
		_, dup := seen[code]
		require.False(t, dup, "duplicate code %s at draw %d", code, i)
		seen[code] = struct{}{}
		reg.add(code)
	}
	assert.Len(t, seen, 10000)
}

func TestGenerateExhaustion(t *testing.T) {
	reg := newStubRegistry()
	// Every probe reports taken.
	for i := 0; i < 1000000; i++ {
		reg.add(fmt.Sprintf("N-%06d", i))
	}
	gen := NewGenerator(reg, "GMP", WithMaxAttempts(5))

	_, err := gen.Generate(context.Background(), KindEntry)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrGenerationExhausted)
}

func TestGenerateHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := NewGenerator(newStubRegistry(), "GMP")
	_, err := gen.Generate(ctx, KindQuotation)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, IsUniqueViolation(&pgconnv1.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("plain error")))
}
