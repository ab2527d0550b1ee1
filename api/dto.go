/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

// =============================================================================
// CART TYPES
// =============================================================================

// CreateCartRequest opens a demo cart for a customer group.
type CreateCartRequest struct {
	CustomerGroup string `json:"customer_group"`
}

// LineDTO represents one cart line in API responses.
type LineDTO struct {
	LineID               int64  `json:"line_id"`
	ProductID            string `json:"product_id"`
	Quantity             string `json:"quantity"`
	UnitPrice            string `json:"unit_price"`
	IsFree               bool   `json:"is_free"`
	ExcludedFromDiscount bool   `json:"excluded_from_discount"`
}

// CartDTO represents the cart plus the notices accumulated by the host
// layer (the engine itself never renders messages).
type CartDTO struct {
	ID            string    `json:"id"`
	CustomerGroup string    `json:"customer_group"`
	Lines         []LineDTO `json:"lines"`
	Notices       []string  `json:"notices,omitempty"`
}

// AddLineRequest adds a paid line to a cart.
type AddLineRequest struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// SetQtyRequest resizes a paid line.
type SetQtyRequest struct {
	Quantity float64 `json:"quantity"`
}

// =============================================================================
// RECONCILIATION REPORT TYPES
// =============================================================================

// LineChangeDTO is one free-line mutation from a pass.
type LineChangeDTO struct {
	Kind      string `json:"kind"`
	LineID    int64  `json:"line_id"`
	ProductID string `json:"product_id"`
	Quantity  string `json:"quantity"`
}

// ProductErrorDTO is one per-product recoverable failure from a pass.
type ProductErrorDTO struct {
	ProductID string `json:"product_id"`
	Op        string `json:"op"`
	Error     string `json:"error"`
}

// ReportDTO is the outcome of a reconciliation pass.
type ReportDTO struct {
	CartID  string            `json:"cart_id"`
	Created []LineChangeDTO   `json:"created"`
	Updated []LineChangeDTO   `json:"updated"`
	Removed []LineChangeDTO   `json:"removed"`
	Errors  []ProductErrorDTO `json:"errors,omitempty"`
	Blocked bool              `json:"blocked,omitempty"`
}

// =============================================================================
// CONFIGURATION TYPES
// =============================================================================

// GlobalRuleDTO mirrors the stored store-wide settings.
type GlobalRuleDTO struct {
	Enabled        bool     `json:"enabled"`
	MaxFree        float64  `json:"max_free"`
	Divisor        int      `json:"divisor"`
	CustomerGroups []string `json:"customer_groups,omitempty"`
	ActiveFrom     string   `json:"active_from,omitempty"`
	ActiveTo       string   `json:"active_to,omitempty"`
}

// ProductRuleDTO mirrors one stored per-product setting.
type ProductRuleDTO struct {
	ProductID string  `json:"product_id"`
	Enabled   bool    `json:"enabled"`
	MaxFree   float64 `json:"max_free"`
}

// ConfigDTO is the full stored configuration.
type ConfigDTO struct {
	Global   GlobalRuleDTO    `json:"global"`
	Products []ProductRuleDTO `json:"products"`
}

// SetProductRuleRequest updates one product's promotion settings.
type SetProductRuleRequest struct {
	Enabled bool    `json:"enabled"`
	MaxFree float64 `json:"max_free"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
