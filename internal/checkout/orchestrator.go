// Package checkout settles a user's cart: every pending line is paid, its
// stock drawn and its transaction recorded, all in one unit of work.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/marketplace/internal/inventory"
	"github.com/MikeMC777/marketplace/internal/ledger"
	"github.com/MikeMC777/marketplace/internal/market"
	"github.com/MikeMC777/marketplace/internal/store"
)

// Observer receives checkout outcomes ("settled", "empty", "insufficient",
// "replayed", "error") with the number of lines involved.
type Observer interface {
	ObserveCheckout(outcome string, lines int)
}

type Request struct {
	UserID string
	// Address, when set, is saved to the user's profile before settlement.
	// A failure there is logged and does not stop the checkout.
	Address        string
	PaymentMethod  string
	IdempotencyKey string
}

type Result struct {
	LineIDs      []string
	Total        decimal.Decimal
	Transactions []market.Transaction
	Replayed     bool
}

type Orchestrator struct {
	store    store.Store
	inv      *inventory.Ledger
	ledger   *ledger.Ledger
	observer Observer
	now      func() time.Time
}

type Option func(*Orchestrator)

func WithObserver(obs Observer) Option { return func(o *Orchestrator) { o.observer = obs } }

func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

func New(st store.Store, inv *inventory.Ledger, l *ledger.Ledger, opts ...Option) *Orchestrator {
	o := &Orchestrator{store: st, inv: inv, ledger: l, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) observe(outcome string, lines int) {
	if o.observer != nil {
		o.observer.ObserveCheckout(outcome, lines)
	}
}

// Checkout settles every pending line of req.UserID. Either all lines are
// paid or nothing changes.
func (o *Orchestrator) Checkout(ctx context.Context, req Request) (*Result, error) {
	method, err := market.NormalizePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(req.IdempotencyKey)

	if key != "" {
		if res, err := o.replay(ctx, req.UserID, key); err == nil {
			o.observe("replayed", len(res.LineIDs))
			return res, nil
		} else if !errors.Is(err, market.ErrNotFound) {
			return nil, err
		}
	}

	pending, err := o.pendingCount(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if pending == 0 {
		if key != "" {
			if res, err := o.replay(ctx, req.UserID, key); err == nil {
				o.observe("replayed", len(res.LineIDs))
				return res, nil
			}
		}
		o.observe("empty", 0)
		return nil, market.ErrEmptyCart
	}

	if addr := strings.TrimSpace(req.Address); addr != "" {
		err := o.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.SetAddress(ctx, req.UserID, addr)
		})
		if err != nil {
			log.Printf("[checkout] user=%s address update failed: %v", req.UserID, err)
		}
	}

	var res *Result
	err = o.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		if key != "" {
			if _, err := tx.GetCheckoutKey(ctx, req.UserID, key); err == nil {
				return store.ErrDuplicate
			}
		}
		var err error
		res, err = o.settle(ctx, tx, req.UserID, method)
		if err != nil {
			return err
		}
		if key != "" {
			return tx.PutCheckoutKey(ctx, req.UserID, key, res.LineIDs)
		}
		return nil
	})

	switch {
	case err == nil:
	case key != "" && (errors.Is(err, store.ErrDuplicate) || errors.Is(err, market.ErrEmptyCart)):
		// a concurrent submit with the same key won the race
		if res, rerr := o.replay(ctx, req.UserID, key); rerr == nil {
			o.observe("replayed", len(res.LineIDs))
			return res, nil
		}
		o.observe(outcome(err), 0)
		return nil, err
	default:
		o.observe(outcome(err), 0)
		return nil, err
	}

	o.observe("settled", len(res.LineIDs))
	log.Printf("[checkout] user=%s lines=%d total=%s method=%s", req.UserID, len(res.LineIDs), res.Total.StringFixed(2), method)
	return res, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, market.ErrEmptyCart):
		return "empty"
	case errors.Is(err, market.ErrInsufficientStock):
		return "insufficient"
	default:
		return "error"
	}
}

func (o *Orchestrator) pendingCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := o.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		lines, err := tx.ListLines(ctx, store.LineFilter{UserID: userID, Status: market.StatusPending})
		n = len(lines)
		return err
	})
	return n, err
}

func (o *Orchestrator) replay(ctx context.Context, userID, key string) (*Result, error) {
	var res *Result
	err := o.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		ids, err := tx.GetCheckoutKey(ctx, userID, key)
		if err != nil {
			return err
		}
		lines, err := tx.ListLines(ctx, store.LineFilter{UserID: userID, IDs: ids})
		if err != nil {
			return err
		}
		res = &Result{LineIDs: ids, Total: market.Total(lines), Replayed: true}
		return nil
	})
	return res, err
}

// settle runs inside the unit of work. Items are locked in id order before
// the user's lines, then every draw is validated before any stock moves.
func (o *Orchestrator) settle(ctx context.Context, tx store.Tx, userID, method string) (*Result, error) {
	peek, err := tx.ListLines(ctx, store.LineFilter{UserID: userID, Status: market.StatusPending})
	if err != nil {
		return nil, err
	}
	avail := map[string]int{}
	lockItems := func(lines []market.Line) error {
		ids := make([]string, 0, len(lines))
		for _, l := range lines {
			if _, ok := avail[l.ItemID]; !ok {
				ids = append(ids, l.ItemID)
			}
		}
		sort.Strings(ids)
		for _, id := range ids {
			if _, ok := avail[id]; ok {
				continue
			}
			n, err := o.inv.Available(ctx, tx, id)
			if err != nil {
				return err
			}
			avail[id] = n
		}
		return nil
	}
	if err := lockItems(peek); err != nil {
		return nil, err
	}

	lines, err := tx.LockPendingLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, market.ErrEmptyCart
	}
	if err := lockItems(lines); err != nil {
		return nil, err
	}

	need := map[string]int{}
	for _, l := range lines {
		need[l.ItemID] += l.Quantity - l.Held
	}
	for itemID, n := range need {
		if n > avail[itemID] {
			return nil, fmt.Errorf("item %s: need %d, have %d: %w", itemID, n, avail[itemID], market.ErrInsufficientStock)
		}
	}

	now := o.now()
	res := &Result{Total: decimal.Zero}
	for i := range lines {
		l := &lines[i]
		it, err := tx.GetItem(ctx, l.ItemID)
		if err != nil {
			return nil, err
		}
		seller, err := ledger.SellerOf(ctx, tx, it)
		if err != nil {
			return nil, err
		}
		if draw := l.Quantity - l.Held; draw > 0 {
			if _, err := o.inv.Adjust(ctx, tx, l.ItemID, -draw); err != nil {
				return nil, err
			}
		}
		l.Held = l.Quantity
		l.Reprice(it.Price)
		l.Status = market.StatusPaid
		l.PaymentMethod = method
		paid := now
		l.PaidAt = &paid
		if err := tx.UpdateLine(ctx, l); err != nil {
			return nil, fmt.Errorf("settle line %s: %w", l.ID, err)
		}

		t, err := o.ledger.Record(ctx, tx, ledger.Entry{
			LineID:     l.ID,
			BuyerID:    userID,
			SellerID:   seller,
			ItemID:     l.ItemID,
			Quantity:   l.Quantity,
			TotalPrice: l.TotalPrice,
		})
		if err != nil {
			return nil, err
		}
		res.LineIDs = append(res.LineIDs, l.ID)
		res.Transactions = append(res.Transactions, *t)
		res.Total = res.Total.Add(l.TotalPrice)
	}
	return res, nil
}
