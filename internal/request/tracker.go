// Package request tracks ad hoc item requests users send to shops and the
// shopkeeper's answers. Status moves freely among Pending, Approved and
// Rejected.
package request

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeMC777/marketplace/internal/market"
	"github.com/MikeMC777/marketplace/internal/store"
)

const defaultItemName = "Custom Item"

type Tracker struct {
	store store.Store
}

func NewTracker(st store.Store) *Tracker {
	return &Tracker{store: st}
}

type CreateInput struct {
	ShopID string
	// ItemID links an existing item of the shop; CustomName is used
	// otherwise.
	ItemID     string
	CustomName string
	Quantity   int
	Message    string
}

// Create files a request from userID to a shop. The user's message is kept
// in the reply thread until the shopkeeper answers.
func (t *Tracker) Create(ctx context.Context, userID string, in CreateInput) (*market.ItemRequest, error) {
	if in.Quantity <= 0 {
		return nil, market.ErrInvalidQuantity
	}
	r := &market.ItemRequest{
		ID:           uuid.NewString(),
		UserID:       userID,
		ShopID:       in.ShopID,
		Quantity:     in.Quantity,
		Status:       market.RequestPending,
		ReplyMessage: strings.TrimSpace(in.Message),
	}
	err := t.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetShop(ctx, in.ShopID); err != nil {
			return fmt.Errorf("shop %s: %w", in.ShopID, err)
		}
		if in.ItemID != "" {
			it, err := tx.GetItem(ctx, in.ItemID)
			if err != nil {
				return fmt.Errorf("item %s: %w", in.ItemID, err)
			}
			if it.ShopID != in.ShopID {
				return fmt.Errorf("item %s in shop %s: %w", in.ItemID, in.ShopID, market.ErrNotFound)
			}
			r.ItemID = it.ID
			r.ItemName = it.Name
		} else {
			r.ItemName = strings.TrimSpace(in.CustomName)
			if r.ItemName == "" {
				r.ItemName = defaultItemName
			}
		}
		return tx.InsertRequest(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// owned loads a request and checks actorID owns the shop it was sent to.
func owned(ctx context.Context, tx store.Tx, actorID, requestID string) (*market.ItemRequest, error) {
	r, err := tx.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", requestID, err)
	}
	shop, err := tx.GetShop(ctx, r.ShopID)
	if err != nil {
		return nil, err
	}
	if shop.OwnerID != actorID {
		return nil, market.ErrUnauthorized
	}
	return r, nil
}

// Reply sets the status and, when non-empty, the reply message.
func (t *Tracker) Reply(ctx context.Context, actorID, requestID string, status market.RequestStatus, reply string) (*market.ItemRequest, error) {
	if !status.Valid() {
		return nil, market.ErrInvalidStatus
	}
	return t.update(ctx, actorID, requestID, func(r *market.ItemRequest) {
		r.Status = status
		if reply = strings.TrimSpace(reply); reply != "" {
			r.ReplyMessage = reply
		}
	})
}

// Decide approves or rejects the request. The reply always replaces the
// previous message, even when empty.
func (t *Tracker) Decide(ctx context.Context, actorID, requestID, action, reply string) (*market.ItemRequest, error) {
	var status market.RequestStatus
	switch action {
	case "approve":
		status = market.RequestApproved
	case "reject":
		status = market.RequestRejected
	default:
		return nil, fmt.Errorf("action %q: %w", action, market.ErrInvalidInput)
	}
	return t.update(ctx, actorID, requestID, func(r *market.ItemRequest) {
		r.Status = status
		r.ReplyMessage = strings.TrimSpace(reply)
	})
}

func (t *Tracker) update(ctx context.Context, actorID, requestID string, apply func(*market.ItemRequest)) (*market.ItemRequest, error) {
	var out market.ItemRequest
	err := t.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		r, err := owned(ctx, tx, actorID, requestID)
		if err != nil {
			return err
		}
		apply(r)
		if err := tx.UpdateRequest(ctx, r); err != nil {
			return err
		}
		out = *r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ForShop lists the requests sent to a shop, newest first. Only the owner
// may read them.
func (t *Tracker) ForShop(ctx context.Context, actorID, shopID string) ([]market.ItemRequest, error) {
	var out []market.ItemRequest
	err := t.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		shop, err := tx.GetShop(ctx, shopID)
		if err != nil {
			return fmt.Errorf("shop %s: %w", shopID, err)
		}
		if shop.OwnerID != actorID {
			return market.ErrUnauthorized
		}
		out, err = tx.ListRequests(ctx, store.RequestFilter{ShopID: shopID})
		return err
	})
	return out, err
}

// ForUser lists what userID asked for, newest first.
func (t *Tracker) ForUser(ctx context.Context, userID string) ([]market.ItemRequest, error) {
	var out []market.ItemRequest
	err := t.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListRequests(ctx, store.RequestFilter{UserID: userID})
		return err
	})
	return out, err
}
