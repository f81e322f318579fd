package main

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/marketplace/internal/catalog"
	"github.com/MikeMC777/marketplace/internal/checkout"
	"github.com/MikeMC777/marketplace/internal/httpx"
	"github.com/MikeMC777/marketplace/internal/ledger"
	"github.com/MikeMC777/marketplace/internal/market"
	"github.com/MikeMC777/marketplace/internal/order"
	"github.com/MikeMC777/marketplace/internal/product"
	"github.com/MikeMC777/marketplace/internal/request"
	"github.com/MikeMC777/marketplace/internal/user"
)

// idParam reads a path id. Malformed ids can never match a row, so they
// are reported as not found.
func idParam(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if !httpx.ValidID(id) {
		c.AbortWithStatusJSON(http.StatusNotFound, market.HTTPError{Error: "not found"})
		return "", false
	}
	return id, true
}

func badJSON(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, market.HTTPError{Error: "invalid json"})
}

// @Summary     Add an item to the cart
// @Tags        cart
// @Accept      json
// @Produce     json
// @Param       body body market.AddToCartRequest true "item and quantity"
// @Success     201 {object} market.Line
// @Failure     400 {object} market.HTTPError
// @Failure     404 {object} market.HTTPError
// @Failure     409 {object} market.HTTPError
// @Router      /cart/items [post]
func addToCartHandler(lines *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req market.AddToCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badJSON(c)
			return
		}
		if !httpx.ValidID(req.ItemID) {
			c.AbortWithStatusJSON(http.StatusNotFound, market.HTTPError{Error: "item not found"})
			return
		}
		qty := 1
		if req.Quantity != nil {
			qty = *req.Quantity
		}
		line, err := lines.AddOrMerge(c.Request.Context(), httpx.UserID(c), req.ItemID, qty)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, line)
	}
}

// @Summary     Pending cart
// @Tags        cart
// @Produce     json
// @Success     200 {object} market.CartResponse
// @Router      /cart [get]
func cartHandler(lines *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, total, err := lines.Cart(c.Request.Context(), httpx.UserID(c))
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		if items == nil {
			items = []market.Line{}
		}
		c.JSON(http.StatusOK, market.CartResponse{Items: items, TotalAmount: total.StringFixed(2)})
	}
}

// cartActionHandler serves the cart page's partial updates. Every failure
// keeps the {success:false, error} body; validation failures answer 200
// like the page expects.
//
// @Summary     Update or remove a cart line
// @Tags        cart
// @Accept      json
// @Produce     json
// @Param       body body market.CartActionRequest true "action"
// @Success     200 {object} market.CartActionResponse
// @Router      /cart/actions [post]
func cartActionHandler(d *checkout.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req market.CartActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, market.CartActionResponse{Error: "Invalid request."})
			return
		}
		kind, err := checkout.ParseKind(req.Action)
		if err != nil || kind == checkout.CmdCheckout {
			c.JSON(http.StatusOK, market.CartActionResponse{Error: "Invalid action."})
			return
		}
		if !httpx.ValidID(req.OrderID) {
			c.JSON(http.StatusNotFound, market.CartActionResponse{Error: "Order not found."})
			return
		}
		cmd := checkout.Command{Kind: kind, UserID: httpx.UserID(c), LineID: req.OrderID}
		if kind == checkout.CmdUpdateQuantity {
			if req.Quantity == nil {
				c.JSON(http.StatusOK, market.CartActionResponse{Error: "Invalid quantity."})
				return
			}
			cmd.Quantity = *req.Quantity
		}

		out := d.Dispatch(c.Request.Context(), cmd)
		code := http.StatusOK
		if out.Err != nil && !market.IsValidation(out.Err) {
			code = httpx.Status(out.Err)
		}
		c.JSON(code, out.Response())
	}
}

// @Summary     Place every pending line
// @Tags        checkout
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key header string false "replays the first result for the same key"
// @Param       body body market.CheckoutRequest true "address and payment method"
// @Success     200 {object} market.CheckoutResponse
// @Failure     400 {object} market.HTTPError
// @Failure     409 {object} market.HTTPError
// @Failure     422 {object} market.HTTPError
// @Router      /checkout [post]
func checkoutHandler(d *checkout.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req market.CheckoutRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badJSON(c)
				return
			}
		}
		out := d.Dispatch(c.Request.Context(), checkout.Command{
			Kind:   checkout.CmdCheckout,
			UserID: httpx.UserID(c),
			Checkout: checkout.Request{
				Address:        req.Address,
				PaymentMethod:  req.PaymentMethod,
				IdempotencyKey: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
			},
		})
		if out.Err != nil {
			httpx.Abort(c, out.Err)
			return
		}
		c.JSON(http.StatusOK, market.CheckoutResponse{
			OrderIDs:    out.Settled.LineIDs,
			TotalAmount: out.Settled.Total.StringFixed(2),
			Replayed:    out.Settled.Replayed,
		})
	}
}

// @Summary     Settled lines of the user
// @Tags        orders
// @Produce     json
// @Param       status query string false "line status" Enums(Pending, Paid, Shipped, Delivered)
// @Success     200 {array} market.Line
// @Failure     400 {object} market.HTTPError
// @Router      /orders [get]
func listOrdersHandler(lines *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := lines.Orders(c.Request.Context(), httpx.UserID(c), market.LineStatus(c.Query("status")))
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		if out == nil {
			out = []market.Line{}
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary     Confirmation of settled lines
// @Tags        orders
// @Produce     json
// @Param       ids path string true "comma separated line ids"
// @Success     200 {object} market.CartResponse
// @Failure     404 {object} market.HTTPError
// @Router      /orders/confirmation/{ids} [get]
func confirmationHandler(lines *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ids []string
		for _, id := range strings.Split(c.Param("ids"), ",") {
			if id = strings.TrimSpace(id); httpx.ValidID(id) {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			c.AbortWithStatusJSON(http.StatusNotFound, market.HTTPError{Error: "not found"})
			return
		}
		out, total, err := lines.Confirmation(c.Request.Context(), httpx.UserID(c), ids)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, market.CartResponse{Items: out, TotalAmount: total.StringFixed(2)})
	}
}

// @Summary     Advance shipping status
// @Tags        orders
// @Accept      json
// @Produce     json
// @Param       id   path string                     true "line id"
// @Param       body body market.UpdateStatusRequest true "new status"
// @Success     200 {object} market.Line
// @Failure     400 {object} market.HTTPError
// @Failure     403 {object} market.HTTPError
// @Failure     404 {object} market.HTTPError
// @Router      /orders/{id}/status [put]
func updateStatusHandler(lines *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req market.UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badJSON(c)
			return
		}
		line, err := lines.Advance(c.Request.Context(), httpx.UserID(c), id, market.LineStatus(req.Status))
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, line)
	}
}

// @Summary     Purchases of the user
// @Tags        transactions
// @Produce     json
// @Success     200 {array} market.Transaction
// @Router      /transactions/purchases [get]
func purchasesHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := l.Purchases(c.Request.Context(), httpx.UserID(c))
		writeTransactions(c, out, err)
	}
}

// @Summary     Sales of the user's shop
// @Tags        transactions
// @Produce     json
// @Success     200 {array} market.Transaction
// @Router      /transactions/sales [get]
func salesHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := l.Sales(c.Request.Context(), httpx.UserID(c))
		writeTransactions(c, out, err)
	}
}

func writeTransactions(c *gin.Context, out []market.Transaction, err error) {
	if err != nil {
		httpx.Abort(c, err)
		return
	}
	if out == nil {
		out = []market.Transaction{}
	}
	c.JSON(http.StatusOK, out)
}

// @Summary     Send a request to a shop
// @Tags        requests
// @Accept      json
// @Produce     json
// @Param       shop_id path string                      true "shop id"
// @Param       body    body market.CreateRequestRequest true "request"
// @Success     201 {object} market.ItemRequest
// @Failure     400 {object} market.HTTPError
// @Failure     404 {object} market.HTTPError
// @Router      /shops/{shop_id}/requests [post]
func createRequestHandler(t *request.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopID, ok := idParam(c, "shop_id")
		if !ok {
			return
		}
		var req market.CreateRequestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badJSON(c)
			return
		}
		if req.ItemID != "" && !httpx.ValidID(req.ItemID) {
			c.AbortWithStatusJSON(http.StatusNotFound, market.HTTPError{Error: "item not found"})
			return
		}
		r, err := t.Create(c.Request.Context(), httpx.UserID(c), request.CreateInput{
			ShopID:     shopID,
			ItemID:     req.ItemID,
			CustomName: req.CustomName,
			Quantity:   req.Quantity,
			Message:    req.Message,
		})
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, r)
	}
}

// @Summary     Requests received by a shop
// @Tags        requests
// @Produce     json
// @Param       shop_id path string true "shop id"
// @Success     200 {array} market.ItemRequest
// @Failure     403 {object} market.HTTPError
// @Router      /shops/{shop_id}/requests [get]
func shopRequestsHandler(t *request.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopID, ok := idParam(c, "shop_id")
		if !ok {
			return
		}
		out, err := t.ForShop(c.Request.Context(), httpx.UserID(c), shopID)
		writeRequests(c, out, err)
	}
}

// @Summary     Requests sent by the user
// @Tags        requests
// @Produce     json
// @Success     200 {array} market.ItemRequest
// @Router      /requests [get]
func myRequestsHandler(t *request.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := t.ForUser(c.Request.Context(), httpx.UserID(c))
		writeRequests(c, out, err)
	}
}

func writeRequests(c *gin.Context, out []market.ItemRequest, err error) {
	if err != nil {
		httpx.Abort(c, err)
		return
	}
	if out == nil {
		out = []market.ItemRequest{}
	}
	c.JSON(http.StatusOK, out)
}

// @Summary     Reply to a request
// @Tags        requests
// @Accept      json
// @Produce     json
// @Param       id   path string                     true "request id"
// @Param       body body market.ReplyRequestRequest true "status and message"
// @Success     200 {object} market.ItemRequest
// @Failure     400 {object} market.HTTPError
// @Failure     403 {object} market.HTTPError
// @Router      /requests/{id}/reply [post]
func replyRequestHandler(t *request.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req market.ReplyRequestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badJSON(c)
			return
		}
		r, err := t.Reply(c.Request.Context(), httpx.UserID(c), id, market.RequestStatus(req.Status), req.ReplyMessage)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

// @Summary     Approve or reject a request
// @Tags        requests
// @Accept      json
// @Produce     json
// @Param       id   path string                      true "request id"
// @Param       body body market.RequestActionRequest true "action"
// @Success     200 {object} market.ItemRequest
// @Failure     400 {object} market.HTTPError
// @Failure     403 {object} market.HTTPError
// @Router      /requests/{id}/action [post]
func requestActionHandler(t *request.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req market.RequestActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badJSON(c)
			return
		}
		r, err := t.Decide(c.Request.Context(), httpx.UserID(c), id, req.Action, req.Reply)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, r)
	}
}

// itemInput converts the body; an unparsable price is a bad request.
func itemInput(body market.ItemRequestBody) (catalog.ItemInput, error) {
	in := catalog.ItemInput{Name: body.Name, Description: body.Description, Quantity: body.Quantity}
	if body.Price != nil {
		p, err := decimal.NewFromString(strings.TrimSpace(*body.Price))
		if err != nil {
			return in, market.ErrInvalidInput
		}
		in.Price = &p
	}
	return in, nil
}

// @Summary     Create an item
// @Tags        catalog
// @Accept      json
// @Produce     json
// @Param       shop_id path string                 true "shop id"
// @Param       body    body market.ItemRequestBody true "item"
// @Success     201 {object} market.Item
// @Failure     400 {object} market.HTTPError
// @Failure     403 {object} market.HTTPError
// @Router      /shops/{shop_id}/items [post]
func createItemHandler(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopID, ok := idParam(c, "shop_id")
		if !ok {
			return
		}
		var body market.ItemRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badJSON(c)
			return
		}
		in, err := itemInput(body)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		it, err := cat.CreateItem(c.Request.Context(), httpx.UserID(c), shopID, in)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, it)
	}
}

// @Summary     Edit an item
// @Tags        catalog
// @Accept      json
// @Produce     json
// @Param       id   path string                 true "item id"
// @Param       body body market.ItemRequestBody true "fields to change"
// @Success     200 {object} market.Item
// @Failure     400 {object} market.HTTPError
// @Failure     403 {object} market.HTTPError
// @Failure     404 {object} market.HTTPError
// @Router      /items/{id} [put]
func updateItemHandler(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var body market.ItemRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badJSON(c)
			return
		}
		in, err := itemInput(body)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		it, err := cat.UpdateItem(c.Request.Context(), httpx.UserID(c), id, in)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, it)
	}
}

// @Summary     Delete an item
// @Tags        catalog
// @Param       id path string true "item id"
// @Success     204
// @Failure     403 {object} market.HTTPError
// @Failure     404 {object} market.HTTPError
// @Router      /items/{id} [delete]
func deleteItemHandler(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := cat.DeleteItem(c.Request.Context(), httpx.UserID(c), id); err != nil {
			httpx.Abort(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary     Delete a shop
// @Tags        catalog
// @Param       shop_id path string true "shop id"
// @Success     204
// @Failure     403 {object} market.HTTPError
// @Failure     404 {object} market.HTTPError
// @Router      /shops/{shop_id} [delete]
func deleteShopHandler(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "shop_id")
		if !ok {
			return
		}
		if err := cat.DeleteShop(c.Request.Context(), httpx.UserID(c), id); err != nil {
			httpx.Abort(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary     Close the user's account
// @Tags        catalog
// @Success     204
// @Router      /account [delete]
func closeAccountHandler(cat *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := cat.CloseAccount(c.Request.Context(), httpx.UserID(c)); err != nil {
			httpx.Abort(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

// @Summary     List items (pagination only)
// @Tags        browse
// @Produce     json
// @Param       shop_id query string false "only items of this shop"
// @Param       limit   query int    false "page size (default 20, max 100)"
// @Param       offset  query int    false "offset"
// @Success     200 {object} product.ListResponse
// @Router      /items [get]
func listItemsHandler(b *product.Browser) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := product.Query{Limit: queryInt(c, "limit"), Offset: queryInt(c, "offset")}
		if shop := c.Query("shop_id"); shop != "" {
			if !httpx.ValidID(shop) {
				c.JSON(http.StatusOK, product.ListResponse{Limit: q.Limit, Offset: q.Offset, Items: []market.Item{}})
				return
			}
			q.ShopID = shop
		}
		out, err := b.List(c.Request.Context(), q)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary     Search items by name or description
// @Tags        browse
// @Produce     json
// @Param       q      query string true  "at least 2 characters"
// @Param       limit  query int    false "page size (default 20, max 100)"
// @Param       offset query int    false "offset"
// @Success     200 {object} product.ListResponse
// @Failure     400 {object} market.HTTPError
// @Router      /items/search [get]
func searchItemsHandler(b *product.Browser) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := b.Search(c.Request.Context(), product.Query{
			Q:      c.Query("q"),
			Limit:  queryInt(c, "limit"),
			Offset: queryInt(c, "offset"),
		})
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary     Get an item
// @Tags        browse
// @Produce     json
// @Param       id path string true "item id"
// @Success     200 {object} market.Item
// @Failure     404 {object} market.HTTPError
// @Router      /items/{id} [get]
func getItemHandler(b *product.Browser) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		it, err := b.Get(c.Request.Context(), id)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, it)
	}
}

// @Summary     Shops with their items
// @Tags        browse
// @Produce     json
// @Success     200 {array} product.ShopView
// @Router      /shops [get]
func listShopsHandler(b *product.Browser) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := b.Shops(c.Request.Context())
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary     Current user's profile
// @Tags        profile
// @Produce     json
// @Success     200 {object} user.Profile
// @Router      /profile [get]
func profileHandler(users *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := users.Profile(c.Request.Context(), httpx.UserID(c))
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// updateProfileHandler keeps the inline editor's {success, field, value}
// contract; validation failures answer 200 with success=false.
//
// @Summary     Edit one profile field
// @Tags        profile
// @Accept      json
// @Produce     json
// @Param       body body market.ProfileFieldRequest true "field and value"
// @Success     200 {object} market.ProfileFieldResponse
// @Router      /profile [post]
func updateProfileHandler(users *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req market.ProfileFieldRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, market.ProfileFieldResponse{Error: "Invalid request"})
			return
		}
		v, err := users.UpdateField(c.Request.Context(), httpx.UserID(c), req.Field, req.Value)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, market.ProfileFieldResponse{Success: true, Field: req.Field, Value: v})
		case errors.Is(err, user.ErrInvalidField):
			c.JSON(http.StatusOK, market.ProfileFieldResponse{Error: "Invalid field"})
		case errors.Is(err, user.ErrUsernameTaken):
			c.JSON(http.StatusOK, market.ProfileFieldResponse{Error: "Username already taken."})
		case market.IsValidation(err):
			c.JSON(http.StatusOK, market.ProfileFieldResponse{Error: "Invalid " + req.Field + "."})
		default:
			code := httpx.Status(err)
			if code == http.StatusInternalServerError {
				log.Printf("[http] profile update user=%s: %v", httpx.UserID(c), err)
			}
			c.JSON(code, market.ProfileFieldResponse{Error: checkout.Message(err)})
		}
	}
}
