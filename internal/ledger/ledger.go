// Package ledger is the append-only record of settled sales. There is no
// update or delete path.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/marketplace/internal/market"
	"github.com/MikeMC777/marketplace/internal/store"
)

const DefaultTopic = "market.transactions"

type Tx interface {
	GetShop(ctx context.Context, id string) (*market.Shop, error)
	InsertTransaction(ctx context.Context, t *market.Transaction) error
	EnqueueEvent(ctx context.Context, e *market.Event) error
}

type Entry struct {
	LineID     string
	BuyerID    string
	SellerID   string
	ItemID     string
	Quantity   int
	TotalPrice decimal.Decimal
}

type Ledger struct {
	store store.Store
	topic string
}

func New(st store.Store, topic string) *Ledger {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Ledger{store: st, topic: topic}
}

// SellerOf resolves the account that owns the item's shop right now. The
// result is frozen into the transaction, so later shop changes do not
// rewrite history.
func SellerOf(ctx context.Context, tx Tx, it *market.Item) (string, error) {
	shop, err := tx.GetShop(ctx, it.ShopID)
	if err != nil {
		return "", fmt.Errorf("shop of item %s: %w", it.ID, err)
	}
	return shop.OwnerID, nil
}

// TransactionEvent is the outbox payload of a recorded sale.
type TransactionEvent struct {
	Type        string             `json:"type"`
	Transaction market.Transaction `json:"transaction"`
}

// Record appends one transaction and enqueues its event in the same unit
// of work.
func (l *Ledger) Record(ctx context.Context, tx Tx, e Entry) (*market.Transaction, error) {
	if e.BuyerID == "" || e.SellerID == "" || e.ItemID == "" {
		return nil, fmt.Errorf("ledger entry: %w", market.ErrInvalidInput)
	}
	if e.Quantity <= 0 {
		return nil, fmt.Errorf("ledger entry: %w", market.ErrInvalidQuantity)
	}
	t := &market.Transaction{
		ID:         uuid.NewString(),
		LineID:     e.LineID,
		BuyerID:    e.BuyerID,
		SellerID:   e.SellerID,
		ItemID:     e.ItemID,
		Quantity:   e.Quantity,
		TotalPrice: e.TotalPrice,
	}
	if err := tx.InsertTransaction(ctx, t); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	payload, err := json.Marshal(TransactionEvent{Type: "transaction.recorded", Transaction: *t})
	if err != nil {
		return nil, err
	}
	ev := &market.Event{EventID: uuid.NewString(), Topic: l.topic, Key: t.SellerID, Payload: payload}
	if err := tx.EnqueueEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("enqueue transaction event: %w", err)
	}
	return t, nil
}

// Sales lists what a shopkeeper sold, newest first.
func (l *Ledger) Sales(ctx context.Context, sellerID string) ([]market.Transaction, error) {
	var out []market.Transaction
	err := l.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListTransactions(ctx, store.TransactionFilter{SellerID: sellerID})
		return err
	})
	return out, err
}

// Purchases lists what a buyer paid for, newest first.
func (l *Ledger) Purchases(ctx context.Context, buyerID string) ([]market.Transaction, error) {
	var out []market.Transaction
	err := l.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListTransactions(ctx, store.TransactionFilter{BuyerID: buyerID})
		return err
	})
	return out, err
}
