package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/MikeMC777/marketplace/internal/market"
	"github.com/MikeMC777/marketplace/internal/order"
)

// Kind selects what a Command does.
type Kind int

const (
	CmdUpdateQuantity Kind = iota + 1
	CmdRemoveLine
	CmdCheckout
)

var actionNames = map[string]Kind{
	"update_quantity": CmdUpdateQuantity,
	"remove_order":    CmdRemoveLine,
	"checkout":        CmdCheckout,
}

func (k Kind) String() string {
	for name, v := range actionNames {
		if v == k {
			return name
		}
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps the action discriminator used by the cart page.
func ParseKind(action string) (Kind, error) {
	k, ok := actionNames[action]
	if !ok {
		return 0, fmt.Errorf("action %q: %w", action, market.ErrInvalidInput)
	}
	return k, nil
}

type Command struct {
	Kind   Kind
	UserID string
	LineID string
	// Quantity is used by CmdUpdateQuantity.
	Quantity int
	// Checkout carries the CmdCheckout inputs; its UserID is overwritten.
	Checkout Request
}

// Outcome is the tagged result of a Command: Line is set for line
// commands, Settled for checkout, Err on failure.
type Outcome struct {
	Kind    Kind
	Line    *order.LineChange
	Settled *Result
	Err     error
}

type Dispatcher struct {
	lines    *order.Service
	checkout *Orchestrator
}

func NewDispatcher(lines *order.Service, co *Orchestrator) *Dispatcher {
	return &Dispatcher{lines: lines, checkout: co}
}

func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) Outcome {
	out := Outcome{Kind: cmd.Kind}
	switch cmd.Kind {
	case CmdUpdateQuantity:
		out.Line, out.Err = d.lines.UpdateQuantity(ctx, cmd.UserID, cmd.LineID, cmd.Quantity)
	case CmdRemoveLine:
		out.Line, out.Err = d.lines.Remove(ctx, cmd.UserID, cmd.LineID)
	case CmdCheckout:
		req := cmd.Checkout
		req.UserID = cmd.UserID
		out.Settled, out.Err = d.checkout.Checkout(ctx, req)
	default:
		out.Err = fmt.Errorf("command %v: %w", cmd.Kind, market.ErrInvalidInput)
	}
	if out.Err != nil && !market.IsValidation(out.Err) {
		log.Printf("[dispatch] %v user=%s line=%s: %v", cmd.Kind, cmd.UserID, cmd.LineID, out.Err)
	}
	return out
}

// Response renders the outcome in the cart page's JSON contract.
func (o Outcome) Response() market.CartActionResponse {
	if o.Err != nil {
		return market.CartActionResponse{Success: false, Error: Message(o.Err)}
	}
	switch {
	case o.Line != nil:
		resp := market.CartActionResponse{
			Success:     true,
			OrderID:     o.Line.Line.ID,
			TotalAmount: o.Line.CartTotal.StringFixed(2),
		}
		if o.Kind == CmdUpdateQuantity {
			resp.Quantity = o.Line.Line.Quantity
			resp.Subtotal = o.Line.Line.TotalPrice.StringFixed(2)
		}
		return resp
	case o.Settled != nil:
		return market.CartActionResponse{Success: true, TotalAmount: o.Settled.Total.StringFixed(2)}
	}
	return market.CartActionResponse{Success: true}
}

// Message is the user-facing text for err.
func Message(err error) string {
	switch {
	case errors.Is(err, market.ErrInvalidQuantity):
		return "Quantity must be at least 1."
	case errors.Is(err, market.ErrInsufficientStock):
		return "Not enough stock available."
	case errors.Is(err, market.ErrEmptyCart):
		return "No items in your cart to place order."
	case errors.Is(err, market.ErrInvalidPaymentMethod):
		return "Invalid payment method."
	case errors.Is(err, market.ErrUnauthorized):
		return "You are not allowed to change this order."
	case errors.Is(err, market.ErrNotFound):
		return "Order not found."
	case errors.Is(err, market.ErrInvalidInput):
		return "Invalid action."
	default:
		return "Something went wrong, please try again."
	}
}
