// Package product is the read side of the catalog: paginated listing,
// search and shop pages. Writes go through the catalog package.
package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/MikeMC777/marketplace/internal/market"
	"github.com/MikeMC777/marketplace/internal/store"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	minSearch    = 2
)

type Browser struct {
	store store.Store
}

func NewBrowser(st store.Store) *Browser {
	return &Browser{store: st}
}

func normalize(q Query) Query {
	if q.Limit <= 0 || q.Limit > maxLimit {
		q.Limit = defaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.Q = strings.TrimSpace(q.Q)
	return q
}

func (b *Browser) list(ctx context.Context, q Query) (*ListResponse, error) {
	var items []market.Item
	err := b.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		items, err = tx.ListItems(ctx, store.ItemFilter{ShopID: q.ShopID, Q: q.Q, Limit: q.Limit, Offset: q.Offset})
		return err
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []market.Item{}
	}
	return &ListResponse{Q: q.Q, Limit: q.Limit, Offset: q.Offset, Items: items}, nil
}

// List pages through items, newest first. Any search text is ignored.
func (b *Browser) List(ctx context.Context, q Query) (*ListResponse, error) {
	q = normalize(q)
	q.Q = ""
	return b.list(ctx, q)
}

// Search matches q.Q against item names and descriptions; it needs at
// least two characters.
func (b *Browser) Search(ctx context.Context, q Query) (*ListResponse, error) {
	q = normalize(q)
	if len([]rune(q.Q)) < minSearch {
		return nil, fmt.Errorf("search needs at least %d characters: %w", minSearch, market.ErrInvalidInput)
	}
	return b.list(ctx, q)
}

func (b *Browser) Get(ctx context.Context, id string) (*market.Item, error) {
	var it *market.Item
	err := b.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		it, err = tx.GetItem(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", id, err)
	}
	return it, nil
}

// Shops lists every shop with all of its items.
func (b *Browser) Shops(ctx context.Context) ([]ShopView, error) {
	var out []ShopView
	err := b.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		shops, err := tx.ListShops(ctx)
		if err != nil {
			return err
		}
		out = make([]ShopView, 0, len(shops))
		for _, s := range shops {
			items, err := tx.ListItems(ctx, store.ItemFilter{ShopID: s.ID})
			if err != nil {
				return err
			}
			if items == nil {
				items = []market.Item{}
			}
			out = append(out, ShopView{Shop: s, Items: items})
		}
		return nil
	})
	return out, err
}
