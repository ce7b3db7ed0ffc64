package workflow

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/salesops-erp/salesops-erp/internal/access"
	"github.com/salesops-erp/salesops-erp/internal/platform/httpx"
	"github.com/salesops-erp/salesops-erp/internal/shared"
)

// Handler manages quotation, purchase order and shipment tracking endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	policy    access.Middleware
	validator *validator.Validate
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service, policy access.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		policy:    policy,
		validator: validator.New(),
	}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.policy.RequireAuth)

	r.Post("/quotations", h.createQuotation)
	r.Get("/quotations", h.listQuotations)
	r.Get("/quotations/{quotationID}", h.getQuotation)
	r.Post("/quotations/{quotationID}/closed", h.toggleClosed)
	r.Post("/quotations/{quotationID}/follow-up", h.recordFollowUp)
	r.Post("/quotations/{quotationID}/purchase-orders", h.createPurchaseOrder)

	r.Group(func(r chi.Router) {
		r.Use(h.policy.RequireRole(access.RolePimpinan, access.RoleSuperAdmin))
		r.Post("/purchase-orders/{purchaseOrderID}/approval", h.setApproval)
	})
	r.Post("/purchase-orders/{purchaseOrderID}/invoice", h.recordInvoice)
	r.Post("/purchase-orders/{purchaseOrderID}/complete", h.markComplete)
	r.Post("/purchase-orders/{purchaseOrderID}/letters", h.shipGoods)

	r.Post("/letters/{letterID}/tracking", h.appendTracking)
	r.Get("/letters/{letterID}/tracking", h.listTracking)
}

func (h *Handler) createQuotation(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())

	var req createQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}

	selections := make([]EntrySelection, 0, len(req.Selections))
	for _, sel := range req.Selections {
		selections = append(selections, EntrySelection{WorksheetID: sel.WorksheetID, EntryID: sel.EntryID})
	}

	q, err := h.service.CreateQuotation(r.Context(), actor, req.RequestID, selections)
	if err != nil {
		h.logger.Error("create quotation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *Handler) listQuotations(w http.ResponseWriter, r *http.Request) {
	requestID, err := strconv.ParseInt(r.URL.Query().Get("request_id"), 10, 64)
	if err != nil || requestID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "request_id query parameter required")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	quotations, err := h.service.QuotationsByRequest(r.Context(), requestID)
	if err != nil {
		h.logger.Error("list quotations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	pg := shared.NewPagination(page, perPage, len(quotations))
	start := (pg.Page - 1) * pg.PerPage
	if start > len(quotations) {
		start = len(quotations)
	}
	end := start + pg.PerPage
	if end > len(quotations) {
		end = len(quotations)
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"quotations": quotations[start:end],
		"pagination": pg,
	})
}

func (h *Handler) getQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "quotationID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quotation id")
		return
	}

	q, links, err := h.service.Quotation(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, QuotationDetail{
		Quotation: *q,
		Links:     links,
		Backlog:   h.service.Backlog(q),
	})
}

func (h *Handler) toggleClosed(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, ok := pathID(r, "quotationID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quotation id")
		return
	}

	var req toggleClosedRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}

	q, err := h.service.ToggleClosed(r.Context(), actor, id, req.Closed)
	if err != nil {
		h.logger.Error("toggle closed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) recordFollowUp(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, ok := pathID(r, "quotationID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quotation id")
		return
	}

	result, err := h.service.RecordFollowUp(r.Context(), actor, id)
	if err != nil {
		h.logger.Error("record follow up", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) createPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, ok := pathID(r, "quotationID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quotation id")
		return
	}

	po, err := h.service.CreatePurchaseOrder(r.Context(), actor, id)
	if err != nil {
		h.logger.Error("create purchase order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) setApproval(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, ok := pathID(r, "purchaseOrderID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid purchase order id")
		return
	}

	var req approvalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}

	po, err := h.service.Approve(r.Context(), actor, id, req.Status)
	if err != nil {
		h.logger.Error("set approval", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) recordInvoice(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, ok := pathID(r, "purchaseOrderID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid purchase order id")
		return
	}

	var req invoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}

	po, err := h.service.RecordInvoice(r.Context(), actor, id, req.Date)
	if err != nil {
		h.logger.Error("record invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) markComplete(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, ok := pathID(r, "purchaseOrderID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid purchase order id")
		return
	}

	requestID, changed, err := h.service.MarkComplete(r.Context(), actor, id)
	if err != nil {
		h.logger.Error("mark complete", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	var pruned int64
	cleanupPending := false
	if changed {
		pruned, err = h.service.CleanupOrphanEntries(r.Context(), actor, requestID)
		if err != nil {
			// Completion already landed and is never rolled back. Tell the
			// client so; the orphan sweep picks the cleanup up later.
			h.logger.Error("cleanup orphan entries", slog.Int64("request", requestID), slog.Any("error", err))
			cleanupPending = true
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"changed":         changed,
		"pruned_entries":  pruned,
		"cleanup_pending": cleanupPending,
	})
}

func (h *Handler) shipGoods(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, ok := pathID(r, "purchaseOrderID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid purchase order id")
		return
	}

	letter, err := h.service.ShipGoods(r.Context(), actor, id)
	if err != nil {
		h.logger.Error("ship goods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, letter)
}

func (h *Handler) appendTracking(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, ok := pathID(r, "letterID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid letter id")
		return
	}

	var req trackingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}

	act, err := h.service.AppendTracking(r.Context(), actor, id, req.Status, req.Location, req.Note, req.FilePaths)
	if err != nil {
		h.logger.Error("append tracking", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, act)
}

func (h *Handler) listTracking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "letterID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid letter id")
		return
	}

	acts, err := h.service.Tracking(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acts)
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}
