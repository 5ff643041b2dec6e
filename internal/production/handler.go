package production

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/harvest-erp/harvest-erp/internal/platform/httpx"
	"github.com/harvest-erp/harvest-erp/internal/shared"
)

// Handler wires production HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs production handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers production routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.ListProducts)
	r.Get("/components", h.ListComponents)
	r.Get("/products/{id}/producible", h.Producible)
	r.Get("/recipes/{id}", h.ShowRecipe)
	r.Put("/recipes/{id}", h.UpsertRecipe)

	r.Get("/orders", h.ListOrders)
	r.Post("/orders", h.CreateOrder)
	r.Post("/orders/validate", h.ValidateOrder)
	r.Get("/orders/{id}", h.ShowOrder)
	r.Put("/orders/{id}", h.UpdateOrder)
	r.Delete("/orders/{id}", h.DeleteOrder)
	r.Post("/orders/{id}/submit", h.SubmitOrder)
	r.Post("/orders/{id}/approve", h.ApproveOrder)
	r.Post("/orders/{id}/reject", h.RejectOrder)
	r.Get("/orders/{id}/approvals", h.OrderApprovals)
}

// ListProducts handles GET /production/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListProcessedProducts(r.Context())
	if err != nil {
		h.respondServiceError(w, "list processed products failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": views})
}

// ListComponents handles GET /production/components.
func (h *Handler) ListComponents(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListComponents(r.Context())
	if err != nil {
		h.respondServiceError(w, "list components failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"components": views})
}

// Producible handles GET /production/products/{id}/producible.
func (h *Handler) Producible(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	qty, err := h.service.ProducibleQtyFor(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "producible qty failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"product_id": id, "producible_qty": qty})
}

// ShowRecipe handles GET /production/recipes/{id}.
func (h *Handler) ShowRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	detail, err := h.service.GetRecipeDetail(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "get recipe failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

// UpsertRecipe handles PUT /production/recipes/{id}.
func (h *Handler) UpsertRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	var form RecipeForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.UpsertRecipe(r.Context(), id, form.includes(), form.removes(), actorID); err != nil {
		h.respondServiceError(w, "upsert recipe failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"saved": true})
}

// ListOrders handles GET /production/orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	status := OrderStatus(r.URL.Query().Get("status"))
	switch status {
	case "", StatusOpen, StatusPending, StatusApproved, StatusRejected:
	default:
		httpx.Problem(w, http.StatusBadRequest, "Invalid Status", "unknown order status filter")
		return
	}
	orders, err := h.service.ListOrders(r.Context(), status)
	if err != nil {
		h.respondServiceError(w, "list orders failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// CreateOrder handles POST /production/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	var form OrderForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	order, err := h.service.CreateOrder(r.Context(), CreateOrderInput{
		Title: form.Title, Note: form.Note, Items: form.items(), ActorID: actorID,
	})
	if err != nil {
		h.respondServiceError(w, "create order failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

// ValidateOrder handles POST /production/orders/validate. Advisory only.
func (h *Handler) ValidateOrder(w http.ResponseWriter, r *http.Request) {
	var form ValidateForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	shortfalls, err := h.service.ValidateItems(r.Context(), form.lines())
	if err != nil {
		h.respondServiceError(w, "validate order failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"ok":         len(shortfalls) == 0,
		"shortfalls": shortfalls,
	})
}

// ShowOrder handles GET /production/orders/{id}.
func (h *Handler) ShowOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	order, items, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "get order failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order": order, "items": items})
}

// UpdateOrder handles PUT /production/orders/{id}.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	var form OrderForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	err := h.service.UpdateOrder(r.Context(), id, UpdateOrderInput{
		Title: form.Title, Note: form.Note, Items: form.items(), ActorID: actorID,
	})
	if err != nil {
		h.respondServiceError(w, "update order failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

// DeleteOrder handles DELETE /production/orders/{id}.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteOrder(r.Context(), id, actorID); err != nil {
		h.respondServiceError(w, "delete order failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// SubmitOrder handles POST /production/orders/{id}/submit.
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.service.SubmitOrder(r.Context(), id, actorID); err != nil {
		h.respondServiceError(w, "submit order failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": StatusPending})
}

// ApproveOrder handles POST /production/orders/{id}/approve.
func (h *Handler) ApproveOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.service.ApproveOrder(r.Context(), id, actorID); err != nil {
		var insufficientErr *InsufficientStockError
		if errors.As(err, &insufficientErr) {
			httpx.ProblemWithErrors(w, http.StatusUnprocessableEntity, "Insufficient Stock",
				insufficientErr.Error(), insufficientErr.Shortfalls)
			return
		}
		h.respondServiceError(w, "approve order failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": StatusApproved})
}

// RejectOrder handles POST /production/orders/{id}/reject.
func (h *Handler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	actorID, ok := h.actor(w, r)
	if !ok {
		return
	}
	var form RejectForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.RejectOrder(r.Context(), id, actorID, form.Reason); err != nil {
		h.respondServiceError(w, "reject order failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": StatusRejected})
}

// OrderApprovals handles GET /production/orders/{id}/approvals.
func (h *Handler) OrderApprovals(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	logs, err := h.service.ApprovalHistory(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "approval history failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"approvals": logs})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be numeric")
		return 0, false
	}
	return id, true
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (int64, bool) {
	actorID := shared.ActorFromContext(r.Context())
	if actorID == 0 {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "acting user required")
		return 0, false
	}
	return actorID, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "error", err)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "State Conflict", err.Error())
	case errors.Is(err, ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
