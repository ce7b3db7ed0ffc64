package balance

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

// Handler manages balance worksheet HTTP endpoints.
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

	r.Post("/", h.createWorksheet)
	r.Get("/by-request/{requestID}", h.worksheetByRequest)
	r.Get("/{worksheetID}/entries", h.listEntries)
	r.Post("/{worksheetID}/entries", h.addEntry)
	r.Delete("/{worksheetID}/entries/{entryID}", h.deleteEntry)
	r.Post("/{worksheetID}/entries/{entryID}/items", h.addItem)
	r.Put("/{worksheetID}/entries/{entryID}/items/{itemID}", h.editItem)
}

type createWorksheetRequest struct {
	RequestID int64 `json:"request_id" validate:"required,gt=0"`
}

func (h *Handler) createWorksheet(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())

	var req createWorksheetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}

	ws, err := h.service.CreateWorksheet(r.Context(), actor, req.RequestID)
	if err != nil {
		h.logger.Error("create worksheet", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ws)
}

func (h *Handler) worksheetByRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(r, "requestID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request id")
		return
	}

	ws, err := h.service.WorksheetByRequest(r.Context(), requestID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ws)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	worksheetID, ok := pathID(r, "worksheetID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid worksheet id")
		return
	}

	details, err := h.service.ListEntries(r.Context(), actor, worksheetID)
	if err != nil {
		h.logger.Error("list entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, details)
}

func (h *Handler) addEntry(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	worksheetID, ok := pathID(r, "worksheetID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid worksheet id")
		return
	}

	entries, err := h.service.AddEntry(r.Context(), actor, worksheetID)
	if err != nil {
		h.logger.Error("add entry", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entries)
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	worksheetID, entryID, ok := entryPath(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid path")
		return
	}

	if err := h.service.DeleteEntry(r.Context(), actor, worksheetID, entryID); err != nil {
		h.logger.Warn("delete entry", slog.Int64("worksheet", worksheetID), slog.Int("entry", entryID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	worksheetID, entryID, ok := entryPath(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid path")
		return
	}

	var fields ItemFields
	if err := httpx.DecodeJSON(r, &fields); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(fields); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}

	item, err := h.service.AddItem(r.Context(), actor, worksheetID, entryID, fields)
	if err != nil {
		h.logger.Error("add item", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ItemView{Item: *item, TotalDisplay: FormatIDR(item.TotalSellingPrice)})
}

func (h *Handler) editItem(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	worksheetID, entryID, ok := entryPath(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid path")
		return
	}
	itemID, ok := pathID(r, "itemID")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item id")
		return
	}

	var fields ItemFields
	if err := httpx.DecodeJSON(r, &fields); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(fields); err != nil {
		httpx.ValidationProblem(w, err)
		return
	}

	item, err := h.service.EditItem(r.Context(), actor, worksheetID, entryID, itemID, fields)
	if err != nil {
		h.logger.Error("edit item", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ItemView{Item: *item, TotalDisplay: FormatIDR(item.TotalSellingPrice)})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func entryPath(r *http.Request) (int64, int, bool) {
	worksheetID, ok := pathID(r, "worksheetID")
	if !ok {
		return 0, 0, false
	}
	entryID, err := strconv.Atoi(chi.URLParam(r, "entryID"))
	if err != nil || entryID <= 0 {
		return 0, 0, false
	}
	return worksheetID, entryID, true
}
