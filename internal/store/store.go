// Package store provides the unit-of-work persistence used by every
// pipeline stage. A Tx is only valid inside the Atomic callback that
// received it; everything done through it commits or rolls back together.
package store

import (
	"context"
	"errors"

	"github.com/MikeMC777/marketplace/internal/market"
)

var ErrDuplicate = errors.New("duplicate key")

type Store interface {
	// Atomic runs fn in one transaction. A non-nil error from fn rolls back
	// every write made through tx.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
	Outbox
}

// Outbox is read by the relay outside of any unit of work.
type Outbox interface {
	FetchPending(ctx context.Context, limit int) ([]market.Event, error)
	MarkSent(ctx context.Context, id int64) error
}

type LineFilter struct {
	UserID string
	ItemID string
	Status market.LineStatus
	IDs    []string
}

type TransactionFilter struct {
	BuyerID  string
	SellerID string
}

// ItemFilter selects items for browsing. Q matches name or description,
// case-insensitively. Limit <= 0 means no limit.
type ItemFilter struct {
	ShopID string
	Q      string
	Limit  int
	Offset int
}

type RequestFilter struct {
	UserID string
	ShopID string
}

type Tx interface {
	Users
	Shops
	Items
	Lines
	Transactions
	Requests

	// GetCheckoutKey returns the line ids settled under an idempotency key.
	GetCheckoutKey(ctx context.Context, userID, key string) ([]string, error)
	// PutCheckoutKey fails with ErrDuplicate when the key is already taken.
	PutCheckoutKey(ctx context.Context, userID, key string, lineIDs []string) error

	EnqueueEvent(ctx context.Context, e *market.Event) error
}

type Users interface {
	GetUser(ctx context.Context, id string) (*market.User, error)
	InsertUser(ctx context.Context, u *market.User) error
	SetAddress(ctx context.Context, userID, address string) error
	// UpdateUser writes every profile field. A taken username is
	// ErrDuplicate.
	UpdateUser(ctx context.Context, u *market.User) error
	// DeleteUser removes the user, the user's pending lines and requests.
	// Paid lines and transactions are kept.
	DeleteUser(ctx context.Context, id string) error
}

type Shops interface {
	GetShop(ctx context.Context, id string) (*market.Shop, error)
	ShopByOwner(ctx context.Context, ownerID string) (*market.Shop, error)
	InsertShop(ctx context.Context, s *market.Shop) error
	ListShops(ctx context.Context) ([]market.Shop, error)
	// DeleteShop deletes every item of the shop (see DeleteItem), the
	// requests addressed to it, and the shop.
	DeleteShop(ctx context.Context, id string) error
}

type Items interface {
	GetItem(ctx context.Context, id string) (*market.Item, error)
	// LockItem reads the item and holds it until the unit of work ends.
	LockItem(ctx context.Context, id string) (*market.Item, error)
	InsertItem(ctx context.Context, it *market.Item) error
	// ListItems returns items newest first.
	ListItems(ctx context.Context, f ItemFilter) ([]market.Item, error)
	// UpdateItem writes name, description and price. Stock only changes
	// through SetItemQuantity.
	UpdateItem(ctx context.Context, it *market.Item) error
	SetItemQuantity(ctx context.Context, id string, quantity int) error
	// DeleteItem deletes the item and its pending lines, and detaches
	// requests that referenced it.
	DeleteItem(ctx context.Context, id string) error
}

type Lines interface {
	GetLine(ctx context.Context, id string) (*market.Line, error)
	LockLine(ctx context.Context, id string) (*market.Line, error)
	// LockPendingLine returns market.ErrNotFound when the pair has no
	// pending line.
	LockPendingLine(ctx context.Context, userID, itemID string) (*market.Line, error)
	LockPendingLines(ctx context.Context, userID string) ([]market.Line, error)
	ListLines(ctx context.Context, f LineFilter) ([]market.Line, error)
	InsertLine(ctx context.Context, l *market.Line) error
	UpdateLine(ctx context.Context, l *market.Line) error
	DeleteLine(ctx context.Context, id string) error
}

// Transactions is append-only.
type Transactions interface {
	InsertTransaction(ctx context.Context, t *market.Transaction) error
	ListTransactions(ctx context.Context, f TransactionFilter) ([]market.Transaction, error)
}

type Requests interface {
	GetRequest(ctx context.Context, id string) (*market.ItemRequest, error)
	InsertRequest(ctx context.Context, r *market.ItemRequest) error
	UpdateRequest(ctx context.Context, r *market.ItemRequest) error
	ListRequests(ctx context.Context, f RequestFilter) ([]market.ItemRequest, error)
}
