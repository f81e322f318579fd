package market

import "strings"

// AddToCartRequest payload for adding an item to the cart.
// swagger:model AddToCartRequest
type AddToCartRequest struct {
	ItemID string `json:"item_id"  example:"4e7d4e5c-5cb9-4a3f-9f21-7e1a4f9f2b2a"`
	// Quantity defaults to 1 when omitted.
	Quantity *int `json:"quantity" example:"1"`
}

// CartActionRequest payload of the cart/checkout page partial updates.
// swagger:model CartActionRequest
type CartActionRequest struct {
	Action   string `json:"action"   example:"update_quantity"`
	OrderID  string `json:"order_id" example:"b2f5ff47-2b1e-4f22-8a96-5f3c1f2f2e7b"`
	Quantity *int   `json:"quantity" example:"2"`
}

// CartActionResponse is the success or error payload of a cart action.
// swagger:model CartActionResponse
type CartActionResponse struct {
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	Subtotal    string `json:"subtotal,omitempty"`
	TotalAmount string `json:"total_amount,omitempty"`
}

// CheckoutRequest payload for placing the pending cart.
// swagger:model CheckoutRequest
type CheckoutRequest struct {
	Address       string `json:"address"        example:"221B Baker Street"`
	PaymentMethod string `json:"payment_method" example:"upi"`
}

// CheckoutResponse lists the settled line ids.
// swagger:model CheckoutResponse
type CheckoutResponse struct {
	OrderIDs    []string `json:"order_ids"`
	TotalAmount string   `json:"total_amount"`
	Replayed    bool     `json:"replayed,omitempty"`
}

// CartResponse is the pending cart view.
// swagger:model CartResponse
type CartResponse struct {
	Items       []Line `json:"items"`
	TotalAmount string `json:"total_amount"`
}

// UpdateStatusRequest payload for shipping progress.
// swagger:model UpdateStatusRequest
type UpdateStatusRequest struct {
	Status string `json:"status" example:"Shipped"`
}

// CreateRequestRequest payload for a request to a shop.
// swagger:model CreateRequestRequest
type CreateRequestRequest struct {
	ItemID     string `json:"item_id"`
	CustomName string `json:"custom_name" example:"Handmade basket"`
	Quantity   int    `json:"quantity"    example:"1"`
	Message    string `json:"message"`
}

// ReplyRequestRequest payload for the shopkeeper reply.
// swagger:model ReplyRequestRequest
type ReplyRequestRequest struct {
	Status       string `json:"status"        example:"Approved"`
	ReplyMessage string `json:"reply_message" example:"Available next week"`
}

// RequestActionRequest payload for approve/reject.
// swagger:model RequestActionRequest
type RequestActionRequest struct {
	Action string `json:"action" example:"approve"`
	Reply  string `json:"reply"`
}

// ItemRequestBody payload for creating or editing an item. Omitted fields
// are left unchanged on edit.
// swagger:model ItemRequestBody
type ItemRequestBody struct {
	Name        *string `json:"name"        example:"Mechanical Keyboard"`
	Description *string `json:"description" example:"RGB 60%"`
	Price       *string `json:"price"       example:"199.90"`
	Quantity    *int    `json:"quantity"    example:"10"`
}

// HTTPError represents a standard error in JSON.
// swagger:model
type HTTPError struct {
	// Error message
	// example: not found
	Error string `json:"error"`
}

var paymentMethods = map[string]bool{"cod": true, "upi": true, "card": true, "netbanking": true}

// NormalizePaymentMethod lower-cases the label and applies the cash on
// delivery default.
func NormalizePaymentMethod(m string) (string, error) {
	m = strings.ToLower(strings.TrimSpace(m))
	if m == "" {
		return "cod", nil
	}
	if !paymentMethods[m] {
		return "", ErrInvalidPaymentMethod
	}
	return m, nil
}

// ProfileFieldRequest edits one profile field.
// swagger:model ProfileFieldRequest
type ProfileFieldRequest struct {
	Field string `json:"field" example:"mobile"`
	Value string `json:"value" example:"555-0101"`
}

// ProfileFieldResponse echoes the stored value, or carries the error.
// swagger:model ProfileFieldResponse
type ProfileFieldResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Field   string `json:"field,omitempty"`
	Value   string `json:"value,omitempty"`
}
