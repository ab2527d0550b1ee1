/*
handlers.go - HTTP API handlers for the promotion engine demo host

PURPOSE:
  Exposes a demo host cart plus the promotion configuration over REST.
  Handles HTTP request/response and JSON serialization; all promotion
  behavior lives in the engine, which runs automatically off the cart's
  lifecycle notifications.

ENDPOINTS:
  Carts:
    POST   /api/carts                       Create a demo cart
    GET    /api/carts/{id}                  Cart lines + notices
    POST   /api/carts/{id}/lines            Add a paid line
    PUT    /api/carts/{id}/lines/{lineID}   Change a paid line's quantity
    DELETE /api/carts/{id}/lines/{lineID}   Remove a paid line
    POST   /api/carts/{id}/recalculate      Full resync; returns the report

  Configuration:
    GET    /api/config                      Stored configuration
    PUT    /api/config                      Replace from a JSON document
    PUT    /api/config/products/{id}        Upsert one product rule
    DELETE /api/config/products/{id}        Drop one product rule

ERROR HANDLING:
  - 400: invalid input
  - 404: unknown cart or line
  - 500: storage failures
  Reconciliation outcomes are never HTTP errors; they ride in the report.

NOTICES:
  The "free item added" message is rendered here, from the pass report.
  The engine only classifies and reports; user-facing copy is a host
  concern.

SEE ALSO:
  - dto.go: request/response structures
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/promo-engine/cart"
	"github.com/warp/promo-engine/promo"
	"github.com/warp/promo-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Engine *promo.Engine

	mu    sync.Mutex
	carts map[promo.CartID]*session
}

// session is one demo cart with its subscribed adapter and the notices
// its reports produced.
type session struct {
	cart  *cart.Memory
	group promo.GroupID

	mu      sync.Mutex
	notices []string
	last    promo.Report
}

// NewHandler creates a handler over the config store; the engine reads
// eligibility and caps from the same store on every pass.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:  store,
		Engine: promo.NewEngine(store, store),
		carts:  make(map[promo.CartID]*session),
	}
}

func (h *Handler) session(id string) *session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.carts[promo.CartID(id)]
}

// =============================================================================
// CART HANDLERS
// =============================================================================

// CreateCart opens a demo cart and subscribes the engine to it.
// POST /api/carts
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	var req CreateCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s := &session{cart: cart.NewMemory(), group: promo.GroupID(req.CustomerGroup)}
	adapter := promo.NewAdapter(h.Engine, s.group)
	adapter.OnReport = s.record
	s.cart.Subscribe(adapter)

	h.mu.Lock()
	h.carts[s.cart.ID()] = s
	h.mu.Unlock()

	writeJSON(w, http.StatusCreated, h.cartDTO(r, s))
}

// GetCart returns the cart's lines and accumulated notices.
// GET /api/carts/{id}
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	s := h.session(chi.URLParam(r, "id"))
	if s == nil {
		writeError(w, http.StatusNotFound, "Cart not found", promo.ErrUnknownCart)
		return
	}
	writeJSON(w, http.StatusOK, h.cartDTO(r, s))
}

// AddLine adds a paid line. The cart notification triggers reconciliation
// before this handler returns, so the response already shows the free line.
// POST /api/carts/{id}/lines
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	s := h.session(chi.URLParam(r, "id"))
	if s == nil {
		writeError(w, http.StatusNotFound, "Cart not found", promo.ErrUnknownCart)
		return
	}

	var req AddLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required", nil)
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive", nil)
		return
	}

	_, err := s.cart.AddLine(r.Context(), promo.CartLine{
		ProductID: promo.ProductID(req.ProductID),
		Quantity:  promo.NewQty(req.Quantity),
		UnitPrice: promo.NewQty(req.UnitPrice),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Cart rejected the line", err)
		return
	}

	writeJSON(w, http.StatusCreated, h.cartDTO(r, s))
}

// SetLineQty changes a paid line's quantity.
// PUT /api/carts/{id}/lines/{lineID}
func (h *Handler) SetLineQty(w http.ResponseWriter, r *http.Request) {
	s := h.session(chi.URLParam(r, "id"))
	if s == nil {
		writeError(w, http.StatusNotFound, "Cart not found", promo.ErrUnknownCart)
		return
	}

	lineID, err := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid line ID", err)
		return
	}

	var req SetQtyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive", nil)
		return
	}

	if err := s.cart.SetLineQty(r.Context(), promo.LineID(lineID), promo.NewQty(req.Quantity)); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, promo.ErrUnknownLine) {
			status = http.StatusNotFound
		}
		writeError(w, status, "Failed to update line", err)
		return
	}

	writeJSON(w, http.StatusOK, h.cartDTO(r, s))
}

// RemoveLine removes a line from the cart.
// DELETE /api/carts/{id}/lines/{lineID}
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	s := h.session(chi.URLParam(r, "id"))
	if s == nil {
		writeError(w, http.StatusNotFound, "Cart not found", promo.ErrUnknownCart)
		return
	}

	lineID, err := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid line ID", err)
		return
	}

	if err := s.cart.RemoveLine(r.Context(), promo.LineID(lineID)); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, promo.ErrUnknownLine) {
			status = http.StatusNotFound
		}
		writeError(w, status, "Failed to remove line", err)
		return
	}

	writeJSON(w, http.StatusOK, h.cartDTO(r, s))
}

// Recalculate triggers a full resync and returns the resulting report.
// POST /api/carts/{id}/recalculate
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	s := h.session(chi.URLParam(r, "id"))
	if s == nil {
		writeError(w, http.StatusNotFound, "Cart not found", promo.ErrUnknownCart)
		return
	}

	report := h.Engine.Reconcile(r.Context(), s.cart, s.group)
	s.record(report)
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// =============================================================================
// CONFIGURATION HANDLERS
// =============================================================================

// GetConfig returns the stored promotion configuration.
// GET /api/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	global, err := h.Store.GlobalRule(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load global config", err)
		return
	}
	products, err := h.Store.ListProductRules(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load product rules", err)
		return
	}

	dto := ConfigDTO{Products: []ProductRuleDTO{}}
	if global != nil {
		dto.Global = GlobalRuleDTO{
			Enabled: global.Enabled,
			MaxFree: global.MaxFree,
			Divisor: global.Divisor,
		}
		for _, g := range global.CustomerGroups {
			dto.Global.CustomerGroups = append(dto.Global.CustomerGroups, string(g))
		}
		if global.ActiveFrom != nil {
			dto.Global.ActiveFrom = global.ActiveFrom.Format(time.RFC3339)
		}
		if global.ActiveTo != nil {
			dto.Global.ActiveTo = global.ActiveTo.Format(time.RFC3339)
		}
	}
	for _, p := range products {
		dto.Products = append(dto.Products, ProductRuleDTO{
			ProductID: string(p.ProductID),
			Enabled:   p.Enabled,
			MaxFree:   p.MaxFree,
		})
	}

	writeJSON(w, http.StatusOK, dto)
}

// PutConfig replaces the stored configuration from a JSON document in the
// factory schema.
// PUT /api/config
func (h *Handler) PutConfig(w http.ResponseWriter, r *http.Request) {
	var req GlobalRuleDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Divisor == 0 {
		req.Divisor = 1
	}
	if req.Divisor < 1 {
		writeError(w, http.StatusBadRequest, "divisor must be >= 1", nil)
		return
	}

	rule := sqlite.GlobalRule{
		Enabled: req.Enabled,
		MaxFree: req.MaxFree,
		Divisor: req.Divisor,
	}
	for _, g := range req.CustomerGroups {
		rule.CustomerGroups = append(rule.CustomerGroups, promo.GroupID(g))
	}

	var err error
	if rule.ActiveFrom, err = parseOptionalTime(req.ActiveFrom); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid active_from", err)
		return
	}
	if rule.ActiveTo, err = parseOptionalTime(req.ActiveTo); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid active_to", err)
		return
	}

	if err := h.Store.SaveGlobalRule(r.Context(), rule); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save config", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// PutProductRule upserts one product's promotion settings.
// PUT /api/config/products/{id}
func (h *Handler) PutProductRule(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	var req SetProductRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule := sqlite.ProductRule{
		ProductID: promo.ProductID(productID),
		Enabled:   req.Enabled,
		MaxFree:   req.MaxFree,
	}
	if err := h.Store.SaveProductRule(r.Context(), rule); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save product rule", err)
		return
	}
	writeJSON(w, http.StatusOK, ProductRuleDTO{
		ProductID: productID,
		Enabled:   req.Enabled,
		MaxFree:   req.MaxFree,
	})
}

// DeleteProductRule drops one product's promotion settings.
// DELETE /api/config/products/{id}
func (h *Handler) DeleteProductRule(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteProductRule(r.Context(), promo.ProductID(chi.URLParam(r, "id"))); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete product rule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SESSION PLUMBING
// =============================================================================

// record keeps the latest report and renders notices for created lines.
func (s *session) record(report promo.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = report
	for _, c := range report.Created {
		s.notices = append(s.notices,
			fmt.Sprintf("Promotion applied: free %s (x%s) added to your cart!", c.ProductID, c.Quantity))
	}
}

func (h *Handler) cartDTO(r *http.Request, s *session) CartDTO {
	lines, _ := s.cart.Lines(r.Context())

	dto := CartDTO{
		ID:            string(s.cart.ID()),
		CustomerGroup: string(s.group),
		Lines:         make([]LineDTO, 0, len(lines)),
	}
	for _, line := range lines {
		dto.Lines = append(dto.Lines, LineDTO{
			LineID:               int64(line.LineID),
			ProductID:            string(line.ProductID),
			Quantity:             line.Quantity.String(),
			UnitPrice:            line.UnitPrice.String(),
			IsFree:               line.IsFree,
			ExcludedFromDiscount: line.ExcludedFromDiscount,
		})
	}

	s.mu.Lock()
	dto.Notices = append(dto.Notices, s.notices...)
	s.mu.Unlock()
	return dto
}

func toReportDTO(report promo.Report) ReportDTO {
	dto := ReportDTO{
		CartID:  string(report.CartID),
		Created: toChangeDTOs(report.Created),
		Updated: toChangeDTOs(report.Updated),
		Removed: toChangeDTOs(report.Removed),
		Blocked: report.Blocked,
	}
	for _, e := range report.Errors {
		dto.Errors = append(dto.Errors, ProductErrorDTO{
			ProductID: string(e.ProductID),
			Op:        e.Op,
			Error:     e.Err.Error(),
		})
	}
	return dto
}

func toChangeDTOs(changes []promo.LineChange) []LineChangeDTO {
	dtos := make([]LineChangeDTO, 0, len(changes))
	for _, c := range changes {
		dtos = append(dtos, LineChangeDTO{
			Kind:      string(c.Kind),
			LineID:    int64(c.LineID),
			ProductID: string(c.ProductID),
			Quantity:  c.Quantity.String(),
		})
	}
	return dtos
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized time %q", s)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
