// Package order keeps a user's order lines. Pending lines are the cart;
// checkout turns them into paid orders.
package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/marketplace/internal/inventory"
	"github.com/MikeMC777/marketplace/internal/market"
	"github.com/MikeMC777/marketplace/internal/store"
)

type Service struct {
	store store.Store
	inv   *inventory.Ledger
}

func NewService(st store.Store, inv *inventory.Ledger) *Service {
	return &Service{store: st, inv: inv}
}

// LineChange is the outcome of a cart mutation.
type LineChange struct {
	Line      market.Line
	CartTotal decimal.Decimal
	Stock     int
}

// AddOrMerge puts quantity units of an item in the user's cart, merging
// into the existing pending line for the same item. Stock is checked but
// not drawn.
func (s *Service) AddOrMerge(ctx context.Context, userID, itemID string, quantity int) (*market.Line, error) {
	if quantity <= 0 {
		return nil, market.ErrInvalidQuantity
	}
	var out market.Line
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		avail, err := s.inv.Available(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if quantity > avail {
			return fmt.Errorf("only %d available: %w", avail, market.ErrInsufficientStock)
		}
		it, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}

		line, err := tx.LockPendingLine(ctx, userID, itemID)
		switch {
		case errors.Is(err, market.ErrNotFound):
			line = &market.Line{
				ID:       uuid.NewString(),
				UserID:   userID,
				ItemID:   itemID,
				Quantity: quantity,
				Status:   market.StatusPending,
			}
			line.Reprice(it.Price)
			if err := tx.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
		case err != nil:
			return err
		default:
			line.Quantity += quantity
			line.Reprice(it.Price)
			if err := tx.UpdateLine(ctx, line); err != nil {
				return fmt.Errorf("update line: %w", err)
			}
		}
		out = *line
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// pendingLine loads the line and checks it is the user's and still in the
// cart. The item is locked before the line so every path takes locks in
// the same order.
func (s *Service) pendingLine(ctx context.Context, tx store.Tx, userID, lineID string) (*market.Line, int, error) {
	peek, err := tx.GetLine(ctx, lineID)
	if err != nil {
		return nil, 0, fmt.Errorf("line %s: %w", lineID, err)
	}
	if peek.UserID != userID {
		return nil, 0, market.ErrUnauthorized
	}
	avail, err := s.inv.Available(ctx, tx, peek.ItemID)
	if err != nil {
		return nil, 0, err
	}
	line, err := tx.LockLine(ctx, lineID)
	if err != nil {
		return nil, 0, fmt.Errorf("line %s: %w", lineID, err)
	}
	if line.Status != market.StatusPending {
		return nil, 0, fmt.Errorf("pending line %s: %w", lineID, market.ErrNotFound)
	}
	return line, avail, nil
}

func cartTotal(ctx context.Context, tx store.Tx, userID string) (decimal.Decimal, error) {
	lines, err := tx.ListLines(ctx, store.LineFilter{UserID: userID, Status: market.StatusPending})
	if err != nil {
		return decimal.Zero, err
	}
	return market.Total(lines), nil
}

// UpdateQuantity sets a pending line's quantity. The new quantity may use
// the available stock plus what the line already has.
func (s *Service) UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*LineChange, error) {
	if quantity <= 0 {
		return nil, market.ErrInvalidQuantity
	}
	var out LineChange
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		line, avail, err := s.pendingLine(ctx, tx, userID, lineID)
		if err != nil {
			return err
		}
		if quantity > avail+line.Quantity {
			return market.ErrInsufficientStock
		}

		stock := avail
		switch d := quantity - line.Quantity; {
		case d > 0:
			if stock, err = s.inv.Adjust(ctx, tx, line.ItemID, -d); err != nil {
				return err
			}
			line.Held += d
		case d < 0:
			if back := min(line.Held, -d); back > 0 {
				if stock, err = s.inv.Adjust(ctx, tx, line.ItemID, back); err != nil {
					return err
				}
				line.Held -= back
			}
		}

		it, err := tx.GetItem(ctx, line.ItemID)
		if err != nil {
			return err
		}
		line.Quantity = quantity
		line.Reprice(it.Price)
		if err := tx.UpdateLine(ctx, line); err != nil {
			return fmt.Errorf("update line: %w", err)
		}

		total, err := cartTotal(ctx, tx, userID)
		if err != nil {
			return err
		}
		out = LineChange{Line: *line, CartTotal: total, Stock: stock}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Remove deletes a pending line and returns what it held to stock.
func (s *Service) Remove(ctx context.Context, userID, lineID string) (*LineChange, error) {
	var out LineChange
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		line, avail, err := s.pendingLine(ctx, tx, userID, lineID)
		if err != nil {
			return err
		}
		stock := avail
		if line.Held > 0 {
			if stock, err = s.inv.Adjust(ctx, tx, line.ItemID, line.Held); err != nil {
				return err
			}
		}
		if err := tx.DeleteLine(ctx, line.ID); err != nil {
			return err
		}
		total, err := cartTotal(ctx, tx, userID)
		if err != nil {
			return err
		}
		out = LineChange{Line: *line, CartTotal: total, Stock: stock}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Cart returns the pending lines and their total.
func (s *Service) Cart(ctx context.Context, userID string) ([]market.Line, decimal.Decimal, error) {
	var lines []market.Line
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		lines, err = tx.ListLines(ctx, store.LineFilter{UserID: userID, Status: market.StatusPending})
		return err
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return lines, market.Total(lines), nil
}

// Orders lists the user's lines with the given status, or every settled
// line when status is empty.
func (s *Service) Orders(ctx context.Context, userID string, status market.LineStatus) ([]market.Line, error) {
	if status != "" && !status.Valid() {
		return nil, market.ErrInvalidStatus
	}
	var lines []market.Line
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		lines, err = tx.ListLines(ctx, store.LineFilter{UserID: userID, Status: status})
		return err
	})
	if err != nil {
		return nil, err
	}
	if status != "" {
		return lines, nil
	}
	settled := lines[:0]
	for _, l := range lines {
		if l.Status != market.StatusPending {
			settled = append(settled, l)
		}
	}
	return settled, nil
}

// Confirmation returns the user's settled lines among ids, the data behind
// the confirmation page and invoices.
func (s *Service) Confirmation(ctx context.Context, userID string, ids []string) ([]market.Line, decimal.Decimal, error) {
	var lines []market.Line
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		all, err := tx.ListLines(ctx, store.LineFilter{UserID: userID, IDs: ids})
		if err != nil {
			return err
		}
		for _, l := range all {
			if l.Status != market.StatusPending {
				lines = append(lines, l)
			}
		}
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	if len(lines) == 0 {
		return nil, decimal.Zero, market.ErrNotFound
	}
	return lines, market.Total(lines), nil
}

var progression = map[market.LineStatus]int{
	market.StatusPaid:      1,
	market.StatusShipped:   2,
	market.StatusDelivered: 3,
}

// Advance moves a settled line forward (Paid -> Shipped -> Delivered).
// Only the shopkeeper owning the item's shop may do it, and a line never
// goes back to Pending.
func (s *Service) Advance(ctx context.Context, actorID, lineID string, status market.LineStatus) (*market.Line, error) {
	next, ok := progression[status]
	if !ok || status == market.StatusPaid {
		return nil, market.ErrInvalidStatus
	}
	var out market.Line
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		line, err := tx.LockLine(ctx, lineID)
		if err != nil {
			return fmt.Errorf("line %s: %w", lineID, err)
		}
		it, err := tx.GetItem(ctx, line.ItemID)
		if err != nil {
			return fmt.Errorf("item %s: %w", line.ItemID, err)
		}
		shop, err := tx.GetShop(ctx, it.ShopID)
		if err != nil {
			return err
		}
		if shop.OwnerID != actorID {
			return market.ErrUnauthorized
		}
		cur, settled := progression[line.Status]
		if !settled || next <= cur {
			return fmt.Errorf("%s -> %s: %w", line.Status, status, market.ErrInvalidStatus)
		}
		line.Status = status
		if err := tx.UpdateLine(ctx, line); err != nil {
			return err
		}
		out = *line
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
