package product

import "github.com/MikeMC777/marketplace/internal/market"

type Query struct {
	Q      string
	ShopID string
	Limit  int
	Offset int
}

// ListResponse represents the paginated response of items.
// swagger:model
type ListResponse struct {
	// search query applied
	Q string `json:"q,omitempty"`
	// limit applied
	Limit int `json:"limit"`
	// offset applied
	Offset int `json:"offset"`
	// items found
	Items []market.Item `json:"items"`
}

// ShopView is a shop with its items, as listed on the dashboard.
// swagger:model
type ShopView struct {
	market.Shop
	Items []market.Item `json:"items"`
}
