package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/egannguyen/storefront-core/internal/entity"
	"github.com/egannguyen/storefront-core/internal/query"
	"github.com/egannguyen/storefront-core/internal/repository"
	"github.com/egannguyen/storefront-core/internal/service"
)

// Handler handles HTTP requests for the storefront transaction core.
type Handler struct {
	productRepo repository.ProductRepository
	cartSvc     *service.CartService
	orderSvc    *service.OrderService
}

func NewHandler(productRepo repository.ProductRepository, cartSvc *service.CartService, orderSvc *service.OrderService) *Handler {
	return &Handler{
		productRepo: productRepo,
		cartSvc:     cartSvc,
		orderSvc:    orderSvc,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.handleGetProducts)

	mux.HandleFunc("GET /api/carts/{cartID}", h.handleGetCart)
	mux.HandleFunc("POST /api/carts/{cartID}/items", h.handleAddItem)
	mux.HandleFunc("PATCH /api/carts/{cartID}/items/{itemID}", h.handleUpdateQuantity)
	mux.HandleFunc("DELETE /api/carts/{cartID}/items/{itemID}", h.handleRemoveItem)
	mux.HandleFunc("POST /api/carts/{cartID}/promo", h.handleApplyPromo)
	mux.HandleFunc("DELETE /api/carts/{cartID}/promo", h.handleRemovePromo)
	mux.HandleFunc("DELETE /api/carts/{cartID}", h.handleClearCart)
	mux.HandleFunc("POST /api/carts/{cartID}/checkout", h.handleCheckout)

	mux.HandleFunc("GET /api/orders", h.handleListOrders)
	mux.HandleFunc("GET /api/orders/summary", h.handleOrderSummary)
	mux.HandleFunc("GET /api/orders/{orderID}", h.handleGetOrder)
	mux.HandleFunc("POST /api/orders/{orderID}/cancel", h.handleCancelOrder)
	mux.HandleFunc("POST /api/orders/{orderID}/reorder", h.handleReorder)
	mux.HandleFunc("PUT /api/admin/orders/{orderID}/status", h.handleUpdateStatus)
}

func (h *Handler) handleGetProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []entity.Product
		err      error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		products, err = h.productRepo.FindByCategory(r.Context(), category)
	} else {
		products, err = h.productRepo.FindAll(r.Context())
	}
	if err != nil {
		slog.Error("Failed to get products", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.cartSvc.GetCart(r.Context(), r.PathValue("cartID"))
	if err != nil {
		slog.Error("Failed to get cart", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProductID == "" {
		http.Error(w, "product_id is required", http.StatusBadRequest)
		return
	}

	snap, err := h.cartSvc.AddItem(r.Context(), r.PathValue("cartID"), req.ProductID, req.Quantity, req.Size, req.Color)
	if err != nil {
		slog.Error("Failed to add item to cart", "err", err)
		http.Error(w, "failed to add item", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := h.cartSvc.UpdateQuantity(r.Context(), r.PathValue("cartID"), r.PathValue("itemID"), req.Quantity)
	if err != nil {
		slog.Error("Failed to update quantity", "err", err)
		http.Error(w, "failed to update quantity", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	snap, err := h.cartSvc.RemoveItem(r.Context(), r.PathValue("cartID"), r.PathValue("itemID"))
	if err != nil {
		slog.Error("Failed to remove item", "err", err)
		http.Error(w, "failed to remove item", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type applyPromoRequest struct {
	Code string `json:"code"`
}

func (h *Handler) handleApplyPromo(w http.ResponseWriter, r *http.Request) {
	var req applyPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := h.cartSvc.ApplyPromo(r.Context(), r.PathValue("cartID"), req.Code)
	if errors.Is(err, entity.ErrInvalidPromoCode) {
		// Inline validation message; cart totals are unchanged.
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "invalid promo code"})
		return
	}
	if err != nil {
		slog.Error("Failed to apply promo", "err", err)
		http.Error(w, "failed to apply promo", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleRemovePromo(w http.ResponseWriter, r *http.Request) {
	snap, err := h.cartSvc.RemovePromo(r.Context(), r.PathValue("cartID"))
	if err != nil {
		slog.Error("Failed to remove promo", "err", err)
		http.Error(w, "failed to remove promo", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.cartSvc.Clear(r.Context(), r.PathValue("cartID"))
	if err != nil {
		slog.Error("Failed to clear cart", "err", err)
		http.Error(w, "failed to clear cart", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	orderID, err := h.orderSvc.Checkout(r.Context(), r.PathValue("cartID"), req)
	if errors.Is(err, service.ErrEmptyCart) {
		http.Error(w, "cart is empty", http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		slog.Error("Failed to checkout", "err", err)
		http.Error(w, "failed to checkout", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"order_id": orderID,
		"status":   string(entity.StatusProcessing),
	})
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	params := query.Params{
		Status: q.Get("status"),
		Search: q.Get("search"),
		Sort:   query.SortKey(q.Get("sort")),
		Dir:    query.SortDir(q.Get("dir")),
		Limit:  limit,
	}

	result, err := h.orderSvc.ListOrders(r.Context(), params)
	if err != nil {
		slog.Error("Failed to list orders", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orders":        decorate(result.Orders),
		"total_matched": result.TotalMatched,
		"displayed":     result.Displayed,
	})
}

func (h *Handler) handleOrderSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.orderSvc.Summary(r.Context())
	if err != nil {
		slog.Error("Failed to build order summary", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderSvc.GetOrder(r.Context(), r.PathValue("orderID"))
	if errors.Is(err, repository.ErrOrderNotFound) {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to get order", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, decorateOne(*order))
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	err := h.orderSvc.CancelOrder(r.Context(), r.PathValue("orderID"))
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		http.Error(w, "order not found", http.StatusNotFound)
	case errors.Is(err, entity.ErrCancelNotAllowed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order can no longer be cancelled"})
	case err != nil:
		slog.Error("Failed to cancel order", "err", err)
		http.Error(w, "failed to cancel order", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

type reorderRequest struct {
	CartID string `json:"cart_id"`
}

func (h *Handler) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CartID == "" {
		http.Error(w, "cart_id is required", http.StatusBadRequest)
		return
	}

	snap, err := h.orderSvc.Reorder(r.Context(), r.PathValue("orderID"), req.CartID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to reorder", "err", err)
		http.Error(w, "failed to reorder", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	status, err := entity.ParseOrderStatus(req.Status)
	if err != nil {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	err = h.orderSvc.UpdateStatus(r.Context(), r.PathValue("orderID"), status, req.Note)
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		http.Error(w, "order not found", http.StatusNotFound)
	case errors.Is(err, entity.ErrOrderTerminal), errors.Is(err, entity.ErrSameStatus):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		slog.Error("Failed to update order status", "err", err)
		http.Error(w, "failed to update status", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// EnableCORS is a middleware to allow the storefront frontend to connect.
func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
