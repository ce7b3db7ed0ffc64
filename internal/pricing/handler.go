package pricing

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/salesops-erp/salesops-erp/internal/access"
	"github.com/salesops-erp/salesops-erp/internal/platform/httpx"
)

// Handler manages the percentage tables and shipping groups over HTTP.
type Handler struct {
	logger    *slog.Logger
	repo      Repository
	policy    access.Middleware
	validator *validator.Validate
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, repo Repository, policy access.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		repo:      repo,
		policy:    policy,
		validator: validator.New(),
	}
}

// MountRoutes registers routes on the router. Percentage writes are limited
// to super admins; the tables steer every price in the system.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.policy.RequireAuth)

	r.Get("/percentages/{kind}", h.listPercentages)
	r.Group(func(r chi.Router) {
		r.Use(h.policy.RequireRole(access.RoleSuperAdmin))
		r.Put("/percentages/{kind}", h.upsertPercentage)
	})

	r.Get("/worksheets/{worksheetID}/entries/{entryID}/shipping-groups", h.listShippingGroups)
	r.Post("/worksheets/{worksheetID}/entries/{entryID}/shipping-groups", h.saveShippingGroup)
}

type percentagePayload struct {
	Name       string  `json:"name" validate:"required,max=100"`
	Percentage float64 `json:"percentage" validate:"gte=0,lte=100"`
}

type shippingGroupPayload struct {
	Side      GroupSide `json:"side" validate:"required,oneof=VENDOR CUSTOMER"`
	Name      string    `json:"name" validate:"required,max=100"`
	TotalCost float64   `json:"total_cost" validate:"gte=0"`
}

func parseKind(r *http.Request) (CategoryKind, bool) {
	switch CategoryKind(strings.ToUpper(chi.URLParam(r, "kind"))) {
	case CategoryDifficulty:
		return CategoryDifficulty, true
	case CategoryDeliveryTime:
		return CategoryDeliveryTime, true
	case CategoryPaymentTime:
		return CategoryPaymentTime, true
	}
	return "", false
}

func (h *Handler) listPercentages(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown percentage kind")
		return
	}

	out, err := h.repo.ListPercentages(r.Context(), kind)
	if err != nil {
		h.logger.Error("list percentages", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) upsertPercentage(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown percentage kind")
		return
	}

	var payload percentagePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}

	id, err := h.repo.UpsertPercentage(r.Context(), CategoryPercentage{
		Kind:       kind,
		Name:       payload.Name,
		Percentage: payload.Percentage,
	})
	if err != nil {
		h.logger.Error("upsert percentage", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id})
}

func (h *Handler) listShippingGroups(w http.ResponseWriter, r *http.Request) {
	worksheetID, entryID, ok := entryPath(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid path")
		return
	}

	out, err := h.repo.ListShippingGroups(r.Context(), worksheetID, entryID)
	if err != nil {
		h.logger.Error("list shipping groups", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) saveShippingGroup(w http.ResponseWriter, r *http.Request) {
	worksheetID, entryID, ok := entryPath(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid path")
		return
	}

	var payload shippingGroupPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}

	id, err := h.repo.SaveShippingGroup(r.Context(), ShippingGroup{
		WorksheetID: worksheetID,
		EntryID:     entryID,
		Side:        payload.Side,
		Name:        payload.Name,
		TotalCost:   payload.TotalCost,
	})
	if err != nil {
		h.logger.Error("save shipping group", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": id})
}

func entryPath(r *http.Request) (int64, int, bool) {
	worksheetID, err := strconv.ParseInt(chi.URLParam(r, "worksheetID"), 10, 64)
	if err != nil || worksheetID <= 0 {
		return 0, 0, false
	}
	entryID, err := strconv.Atoi(chi.URLParam(r, "entryID"))
	if err != nil || entryID <= 0 {
		return 0, 0, false
	}
	return worksheetID, entryID, true
}
