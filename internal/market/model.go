// Package market holds the entities shared by the cart, checkout, inventory
// and request pipelines.
package market

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	// PasswordHash is a bcrypt hash; empty until the user sets a password.
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Shop is owned by exactly one user account (the shopkeeper).
type Shop struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Item struct {
	ID          string          `json:"id"`
	ShopID      string          `json:"shop_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	// Quantity is the stock on hand; never negative once committed.
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineStatus is the lifecycle of an order line. Pending lines form the cart.
type LineStatus string

const (
	StatusPending   LineStatus = "Pending"
	StatusPaid      LineStatus = "Paid"
	StatusShipped   LineStatus = "Shipped"
	StatusDelivered LineStatus = "Delivered"
)

func (s LineStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

// Line is a single user+item record: a cart entry while Pending, an order
// once Paid.
type Line struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	ItemID string `json:"item_id"`
	// Quantity is always >= 1.
	Quantity int `json:"quantity"`
	// Held counts the units this line already drew from item stock while
	// still pending (quantity raised through an update). Checkout draws the
	// remaining Quantity-Held; removal gives Held back.
	Held          int             `json:"held"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Status        LineStatus      `json:"status"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
}

// Reprice sets TotalPrice to Quantity x price.
func (l *Line) Reprice(price decimal.Decimal) {
	l.TotalPrice = price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Transaction is the immutable settlement record of one paid line.
type Transaction struct {
	ID         string          `json:"id"`
	LineID     string          `json:"order_id"`
	BuyerID    string          `json:"buyer_id"`
	SellerID   string          `json:"seller_id"`
	ItemID     string          `json:"item_id"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

type RequestStatus string

const (
	RequestPending  RequestStatus = "Pending"
	RequestApproved RequestStatus = "Approved"
	RequestRejected RequestStatus = "Rejected"
)

func (s RequestStatus) Valid() bool {
	return s == RequestPending || s == RequestApproved || s == RequestRejected
}

// ItemRequest is an ad hoc product request sent by a user to a shop.
type ItemRequest struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	ShopID string `json:"shop_id"`
	// ItemID is empty for custom requests or once the item was deleted.
	ItemID       string        `json:"item_id,omitempty"`
	ItemName     string        `json:"item_name"`
	Quantity     int           `json:"quantity"`
	Status       RequestStatus `json:"status"`
	ReplyMessage string        `json:"reply_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Event is a pending outbox record.
type Event struct {
	ID        int64     `json:"id"`
	EventID   string    `json:"event_id"`
	Topic     string    `json:"topic"`
	Key       string    `json:"key"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Total sums TotalPrice over lines.
func Total(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.TotalPrice)
	}
	return sum
}
