package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesops-erp/salesops-erp/internal/access"
	"github.com/salesops-erp/salesops-erp/internal/shared"
)

func newWorkflowRouter(svc *Service, actor shared.Actor) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc, access.Middleware{Logger: logger})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess := &shared.Session{}
			sess.SetIdentity(actor.UserID, actor.Role)
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	r.Route("/sales", func(r chi.Router) {
		h.MountRoutes(r)
	})
	return r
}

func TestMarkCompleteReportsPendingCleanup(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, defaultEntries())

	q, err := svc.CreateQuotation(context.Background(), staffActor, 100, []EntrySelection{{WorksheetID: 1, EntryID: 1}})
	require.NoError(t, err)
	po, err := svc.CreatePurchaseOrder(context.Background(), staffActor, q.ID)
	require.NoError(t, err)

	repo.pruneErr = errors.New("connection reset by peer")
	router := newWorkflowRouter(svc, staffActor)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/sales/purchase-orders/%d/complete", po.ID), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// completion landed even though the entry cleanup did not
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Changed        bool  `json:"changed"`
		PrunedEntries  int64 `json:"pruned_entries"`
		CleanupPending bool  `json:"cleanup_pending"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Changed)
	assert.True(t, body.CleanupPending)
	assert.Zero(t, body.PrunedEntries)

	got, err := repo.GetPurchaseOrder(context.Background(), po.ID)
	require.NoError(t, err)
	assert.True(t, got.IsComplete)
}

func TestMarkCompleteCleanSecondCallReportsNoChange(t *testing.T) {
	repo := newMemRepo()
	repo.pruneReturn = 1
	svc := newTestService(repo, defaultEntries())

	q, err := svc.CreateQuotation(context.Background(), staffActor, 100, []EntrySelection{{WorksheetID: 1, EntryID: 1}})
	require.NoError(t, err)
	po, err := svc.CreatePurchaseOrder(context.Background(), staffActor, q.ID)
	require.NoError(t, err)

	router := newWorkflowRouter(svc, staffActor)

	do := func() (int, map[string]any) {
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/sales/purchase-orders/%d/complete", po.ID), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return rec.Code, body
	}

	code, body := do()
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, float64(1), body["pruned_entries"])
	assert.Equal(t, false, body["cleanup_pending"])

	code, body = do()
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["changed"])
	assert.Equal(t, float64(0), body["pruned_entries"])
	assert.Equal(t, false, body["cleanup_pending"])
}
