// Package inventory is the only place item stock is written. Every cart,
// checkout and catalog path adjusts stock through Ledger.Adjust so the
// "stock >= 0" rule is enforced once.
package inventory

import (
	"context"
	"fmt"
	"log"

	"github.com/MikeMC777/marketplace/internal/market"
)

// Tx is the slice of a store unit of work the ledger needs.
type Tx interface {
	LockItem(ctx context.Context, id string) (*market.Item, error)
	SetItemQuantity(ctx context.Context, id string, quantity int) error
}

// UnderflowError means a caller tried to take more than the stock on hand
// after its own validation passed. That is a concurrency-control bug.
type UnderflowError struct {
	ItemID string
	Stock  int
	Delta  int
}

func (e *UnderflowError) Error() string {
	return fmt.Sprintf("stock underflow on item %s: stock=%d delta=%d", e.ItemID, e.Stock, e.Delta)
}

func (e *UnderflowError) Unwrap() error { return market.ErrStockUnderflow }

type Ledger struct {
	alarm func(itemID string)
}

type Option func(*Ledger)

// WithAlarm registers a hook called on every underflow, after logging.
func WithAlarm(fn func(itemID string)) Option {
	return func(l *Ledger) { l.alarm = fn }
}

func New(opts ...Option) *Ledger {
	l := &Ledger{}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Available returns the stock on hand and keeps the item locked for the
// rest of the unit of work.
func (l *Ledger) Available(ctx context.Context, tx Tx, itemID string) (int, error) {
	it, err := tx.LockItem(ctx, itemID)
	if err != nil {
		return 0, fmt.Errorf("item %s: %w", itemID, err)
	}
	return it.Quantity, nil
}

// Adjust applies delta to the item stock and returns the new value. A
// result below zero is rejected with *UnderflowError; the caller's unit of
// work must then roll back.
func (l *Ledger) Adjust(ctx context.Context, tx Tx, itemID string, delta int) (int, error) {
	it, err := tx.LockItem(ctx, itemID)
	if err != nil {
		return 0, fmt.Errorf("item %s: %w", itemID, err)
	}
	if delta == 0 {
		return it.Quantity, nil
	}
	next := it.Quantity + delta
	if next < 0 {
		uerr := &UnderflowError{ItemID: itemID, Stock: it.Quantity, Delta: delta}
		log.Printf("[alarm] consistency: %v", uerr)
		if l.alarm != nil {
			l.alarm(itemID)
		}
		return it.Quantity, uerr
	}
	if err := tx.SetItemQuantity(ctx, itemID, next); err != nil {
		return 0, err
	}
	return next, nil
}
