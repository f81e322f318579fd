// Package catalog is the shopkeeper side of items and the account
// lifecycle. Deletes cascade explicitly: pending lines go with their item,
// paid lines and transactions stay.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

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

// ItemInput carries item fields. Nil fields are left unchanged on update
// and required on create, except Description.
type ItemInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Quantity    *int
}

func (in ItemInput) validate() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return fmt.Errorf("item name: %w", market.ErrInvalidInput)
	}
	if in.Price != nil && in.Price.IsNegative() {
		return fmt.Errorf("item price: %w", market.ErrInvalidInput)
	}
	if in.Quantity != nil && *in.Quantity < 0 {
		return fmt.Errorf("item stock: %w", market.ErrInvalidQuantity)
	}
	return nil
}

func ownShop(ctx context.Context, tx store.Tx, actorID, shopID string) (*market.Shop, error) {
	shop, err := tx.GetShop(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("shop %s: %w", shopID, err)
	}
	if shop.OwnerID != actorID {
		return nil, market.ErrUnauthorized
	}
	return shop, nil
}

func (s *Service) CreateItem(ctx context.Context, actorID, shopID string, in ItemInput) (*market.Item, error) {
	if in.Name == nil || in.Price == nil || in.Quantity == nil {
		return nil, fmt.Errorf("name, price and quantity are required: %w", market.ErrInvalidInput)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	it := &market.Item{
		ID:       uuid.NewString(),
		ShopID:   shopID,
		Name:     strings.TrimSpace(*in.Name),
		Price:    *in.Price,
		Quantity: *in.Quantity,
	}
	if in.Description != nil {
		it.Description = strings.TrimSpace(*in.Description)
	}
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := ownShop(ctx, tx, actorID, shopID); err != nil {
			return err
		}
		return tx.InsertItem(ctx, it)
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

// UpdateItem edits an item. A new stock level goes through the inventory
// ledger; a new price re-prices every pending line of the item.
func (s *Service) UpdateItem(ctx context.Context, actorID, itemID string, in ItemInput) (*market.Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var out market.Item
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		it, err := tx.LockItem(ctx, itemID)
		if err != nil {
			return fmt.Errorf("item %s: %w", itemID, err)
		}
		if _, err := ownShop(ctx, tx, actorID, it.ShopID); err != nil {
			return err
		}
		if in.Quantity != nil {
			if it.Quantity, err = s.inv.Adjust(ctx, tx, itemID, *in.Quantity-it.Quantity); err != nil {
				return err
			}
		}
		if in.Name != nil {
			it.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			it.Description = strings.TrimSpace(*in.Description)
		}
		repriced := in.Price != nil && !in.Price.Equal(it.Price)
		if in.Price != nil {
			it.Price = *in.Price
		}
		if err := tx.UpdateItem(ctx, it); err != nil {
			return err
		}
		if repriced {
			lines, err := tx.ListLines(ctx, store.LineFilter{ItemID: itemID, Status: market.StatusPending})
			if err != nil {
				return err
			}
			for i := range lines {
				lines[i].Reprice(it.Price)
				if err := tx.UpdateLine(ctx, &lines[i]); err != nil {
					return err
				}
			}
		}
		out = *it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) DeleteItem(ctx context.Context, actorID, itemID string) error {
	return s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		it, err := tx.LockItem(ctx, itemID)
		if err != nil {
			return fmt.Errorf("item %s: %w", itemID, err)
		}
		if _, err := ownShop(ctx, tx, actorID, it.ShopID); err != nil {
			return err
		}
		return tx.DeleteItem(ctx, itemID)
	})
}

func (s *Service) DeleteShop(ctx context.Context, actorID, shopID string) error {
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := ownShop(ctx, tx, actorID, shopID); err != nil {
			return err
		}
		return tx.DeleteShop(ctx, shopID)
	})
	if err == nil {
		log.Printf("[catalog] shop=%s deleted by user=%s", shopID, actorID)
	}
	return err
}

// CloseAccount removes a user: units their cart lines drew go back to
// stock, their shop (if any) is deleted with its items, then the profile,
// pending lines and requests. Purchase and sales history remain.
func (s *Service) CloseAccount(ctx context.Context, userID string) error {
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return fmt.Errorf("user %s: %w", userID, err)
		}
		shop, err := tx.ShopByOwner(ctx, userID)
		switch {
		case errors.Is(err, market.ErrNotFound):
			shop = nil
		case err != nil:
			return err
		}

		lines, err := tx.ListLines(ctx, store.LineFilter{UserID: userID, Status: market.StatusPending})
		if err != nil {
			return err
		}
		held := map[string]int{}
		for _, l := range lines {
			if l.Held > 0 {
				held[l.ItemID] += l.Held
			}
		}
		ids := make([]string, 0, len(held))
		for id := range held {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if _, err := s.inv.Adjust(ctx, tx, id, held[id]); err != nil {
				return err
			}
		}

		if shop != nil {
			if err := tx.DeleteShop(ctx, shop.ID); err != nil {
				return err
			}
		}
		return tx.DeleteUser(ctx, userID)
	})
	if err == nil {
		log.Printf("[catalog] account closed user=%s", userID)
	}
	return err
}
