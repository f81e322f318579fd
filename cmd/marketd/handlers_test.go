package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/marketplace/internal/market"
	"github.com/MikeMC777/marketplace/internal/metrics"
	"github.com/MikeMC777/marketplace/internal/product"
	"github.com/MikeMC777/marketplace/internal/store"
	"github.com/MikeMC777/marketplace/internal/user"
)

func init() {
	gin.SetMode(gin.TestMode)
	gin.DefaultWriter = io.Discard
	log.SetOutput(io.Discard)
}

//
// ---------- FIXTURE ----------
//

type fixture struct {
	router *gin.Engine
	st     *store.Memory
	buyer  string
	keeper string
	shop   string
	lamp   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		st:     store.NewMemory(),
		buyer:  uuid.NewString(),
		keeper: uuid.NewString(),
		shop:   uuid.NewString(),
		lamp:   uuid.NewString(),
	}
	err := f.st.Atomic(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertUser(ctx, &market.User{ID: f.buyer, Username: "alice", Address: "1 Elm St"}); err != nil {
			return err
		}
		if err := tx.InsertUser(ctx, &market.User{ID: f.keeper, Username: "keeper"}); err != nil {
			return err
		}
		if err := tx.InsertShop(ctx, &market.Shop{ID: f.shop, OwnerID: f.keeper, Name: "Corner"}); err != nil {
			return err
		}
		return tx.InsertItem(ctx, &market.Item{
			ID:       f.lamp,
			ShopID:   f.shop,
			Name:     "Lamp",
			Price:    decimal.RequireFromString("20.00"),
			Quantity: 5,
		})
	})
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	f.router = newRouter(newApp(f.st, metrics.New("test"), "market.transactions"), 5*time.Second)
	return f
}

func (f *fixture) do(t *testing.T, method, path, user, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) stock(t *testing.T, itemID string) int {
	t.Helper()
	var q int
	err := f.st.Atomic(context.Background(), func(ctx context.Context, tx store.Tx) error {
		it, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		q = it.Quantity
		return nil
	})
	if err != nil {
		t.Fatalf("stock: %v", err)
	}
	return q
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("json inválido: %v body=%s", err, w.Body.String())
	}
	return v
}

//
// ---------- TESTS ----------
//

func TestRequiresKnownUser(t *testing.T) {
	f := newFixture(t)

	if w := f.do(t, http.MethodGet, "/cart", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("sin usuario: status=%d, esperado 401", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/cart", uuid.NewString(), ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("usuario desconocido: status=%d, esperado 401", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/healthz", "", ""); w.Code != http.StatusOK {
		t.Fatalf("healthz: status=%d", w.Code)
	}
}

func TestAddToCart_DefaultQuantityAndMerge(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/cart/items", f.buyer, `{"item_id":"`+f.lamp+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if line := decode[market.Line](t, w); line.Quantity != 1 || line.Status != market.StatusPending {
		t.Fatalf("línea inesperada: %+v", line)
	}

	w = f.do(t, http.MethodPost, "/cart/items", f.buyer, `{"item_id":"`+f.lamp+`","quantity":2}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	cart := decode[market.CartResponse](t, f.do(t, http.MethodGet, "/cart", f.buyer, ""))
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 3 {
		t.Fatalf("se esperaba una sola línea con 3 unidades: %+v", cart.Items)
	}
	if cart.TotalAmount != "60.00" {
		t.Fatalf("total=%s, esperado 60.00", cart.TotalAmount)
	}
	if got := f.stock(t, f.lamp); got != 5 {
		t.Fatalf("agregar al carrito no descuenta stock; stock=%d", got)
	}
}

func TestAddToCart_Errors(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"sin stock", `{"item_id":"` + f.lamp + `","quantity":6}`, http.StatusConflict},
		{"cantidad cero", `{"item_id":"` + f.lamp + `","quantity":0}`, http.StatusBadRequest},
		{"id inválido", `{"item_id":"lamp","quantity":1}`, http.StatusNotFound},
		{"item inexistente", `{"item_id":"` + uuid.NewString() + `","quantity":1}`, http.StatusNotFound},
		{"json roto", `{"item_id":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if w := f.do(t, http.MethodPost, "/cart/items", f.buyer, tc.body); w.Code != tc.want {
			t.Fatalf("%s: status=%d, esperado %d body=%s", tc.name, w.Code, tc.want, w.Body.String())
		}
	}
}

func TestCartActions(t *testing.T) {
	f := newFixture(t)
	line := decode[market.Line](t, f.do(t, http.MethodPost, "/cart/items", f.buyer, `{"item_id":"`+f.lamp+`"}`))

	w := f.do(t, http.MethodPost, "/cart/actions", f.buyer,
		`{"action":"update_quantity","order_id":"`+line.ID+`","quantity":4}`)
	got := decode[market.CartActionResponse](t, w)
	if w.Code != http.StatusOK || !got.Success || got.Quantity != 4 || got.Subtotal != "80.00" || got.TotalAmount != "80.00" {
		t.Fatalf("update: status=%d resp=%+v", w.Code, got)
	}

	fails := []struct {
		body string
		code int
		msg  string
	}{
		{`{"action":"update_quantity","order_id":"` + line.ID + `","quantity":0}`, http.StatusOK, "Quantity must be at least 1."},
		{`{"action":"update_quantity","order_id":"` + line.ID + `"}`, http.StatusOK, "Invalid quantity."},
		{`{"action":"update_quantity","order_id":"` + line.ID + `","quantity":9}`, http.StatusOK, "Not enough stock available."},
		{`{"action":"explode","order_id":"` + line.ID + `"}`, http.StatusOK, "Invalid action."},
		{`{"action":"remove_order","order_id":"` + uuid.NewString() + `"}`, http.StatusNotFound, "Order not found."},
	}
	for _, tc := range fails {
		w := f.do(t, http.MethodPost, "/cart/actions", f.buyer, tc.body)
		resp := decode[market.CartActionResponse](t, w)
		if w.Code != tc.code || resp.Success || resp.Error != tc.msg {
			t.Fatalf("%s: status=%d resp=%+v, esperado %d %q", tc.body, w.Code, resp, tc.code, tc.msg)
		}
	}

	w = f.do(t, http.MethodPost, "/cart/actions", f.keeper, `{"action":"remove_order","order_id":"`+line.ID+`"}`)
	if resp := decode[market.CartActionResponse](t, w); w.Code != http.StatusForbidden || resp.Error != "You are not allowed to change this order." {
		t.Fatalf("otro usuario: status=%d resp=%+v", w.Code, resp)
	}

	w = f.do(t, http.MethodPost, "/cart/actions", f.buyer, `{"action":"remove_order","order_id":"`+line.ID+`"}`)
	got = decode[market.CartActionResponse](t, w)
	if !got.Success || got.TotalAmount != "0.00" || got.Quantity != 0 {
		t.Fatalf("remove: %+v", got)
	}
	if s := f.stock(t, f.lamp); s != 5 {
		t.Fatalf("remove debe devolver lo retenido; stock=%d", s)
	}
}

func TestCheckout_FullFlow(t *testing.T) {
	f := newFixture(t)
	line := decode[market.Line](t, f.do(t, http.MethodPost, "/cart/items", f.buyer, `{"item_id":"`+f.lamp+`"}`))
	f.do(t, http.MethodPost, "/cart/actions", f.buyer, `{"action":"update_quantity","order_id":"`+line.ID+`","quantity":4}`)

	body := `{"address":"221B Baker Street","payment_method":"UPI"}`
	w := f.do(t, http.MethodPost, "/checkout", f.buyer, body, "Idempotency-Key", "k-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	first := decode[market.CheckoutResponse](t, w)
	if len(first.OrderIDs) != 1 || first.OrderIDs[0] != line.ID || first.TotalAmount != "80.00" || first.Replayed {
		t.Fatalf("checkout inesperado: %+v", first)
	}
	if s := f.stock(t, f.lamp); s != 1 {
		t.Fatalf("stock=%d, esperado 1", s)
	}

	again := decode[market.CheckoutResponse](t, f.do(t, http.MethodPost, "/checkout", f.buyer, body, "Idempotency-Key", "k-1"))
	if !again.Replayed || again.TotalAmount != "80.00" || len(again.OrderIDs) != 1 {
		t.Fatalf("replay inesperado: %+v", again)
	}
	if s := f.stock(t, f.lamp); s != 1 {
		t.Fatalf("el replay no debe tocar stock; stock=%d", s)
	}

	orders := decode[[]market.Line](t, f.do(t, http.MethodGet, "/orders", f.buyer, ""))
	if len(orders) != 1 || orders[0].Status != market.StatusPaid || orders[0].PaymentMethod != "upi" {
		t.Fatalf("órdenes: %+v", orders)
	}

	w = f.do(t, http.MethodGet, "/orders/confirmation/"+line.ID+",not-an-id", f.buyer, "")
	if conf := decode[market.CartResponse](t, w); w.Code != http.StatusOK || conf.TotalAmount != "80.00" {
		t.Fatalf("confirmación: status=%d body=%s", w.Code, w.Body.String())
	}
	if w := f.do(t, http.MethodGet, "/orders/confirmation/"+line.ID, f.keeper, ""); w.Code != http.StatusNotFound {
		t.Fatalf("confirmación ajena: status=%d", w.Code)
	}

	if tx := decode[[]market.Transaction](t, f.do(t, http.MethodGet, "/transactions/purchases", f.buyer, "")); len(tx) != 1 || tx[0].SellerID != f.keeper {
		t.Fatalf("compras: %+v", tx)
	}
	if tx := decode[[]market.Transaction](t, f.do(t, http.MethodGet, "/transactions/sales", f.keeper, "")); len(tx) != 1 || tx[0].BuyerID != f.buyer {
		t.Fatalf("ventas: %+v", tx)
	}

	status := func(user, s string) int {
		return f.do(t, http.MethodPut, "/orders/"+line.ID+"/status", user, `{"status":"`+s+`"}`).Code
	}
	if code := status(f.buyer, "Shipped"); code != http.StatusForbidden {
		t.Fatalf("comprador no puede despachar: %d", code)
	}
	if code := status(f.keeper, "Shipped"); code != http.StatusOK {
		t.Fatalf("despacho: %d", code)
	}
	if code := status(f.keeper, "Pending"); code != http.StatusBadRequest {
		t.Fatalf("no se vuelve a Pending: %d", code)
	}

	m := f.do(t, http.MethodGet, "/metrics", "", "")
	if !strings.Contains(m.Body.String(), `market_checkout_total{outcome="settled"} 1`) {
		t.Fatalf("métrica de checkout ausente")
	}
}

func TestCheckout_Errors(t *testing.T) {
	f := newFixture(t)

	if w := f.do(t, http.MethodPost, "/checkout", f.buyer, `{}`); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("carrito vacío: status=%d", w.Code)
	}
	f.do(t, http.MethodPost, "/cart/items", f.buyer, `{"item_id":"`+f.lamp+`"}`)
	if w := f.do(t, http.MethodPost, "/checkout", f.buyer, `{"payment_method":"bitcoin"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("método inválido: status=%d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/checkout", f.buyer, ""); w.Code != http.StatusOK {
		t.Fatalf("sin cuerpo usa cod: status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestItemRequests(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/shops/"+f.shop+"/requests", f.buyer,
		`{"custom_name":"Handmade basket","quantity":2,"message":"before friday"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	req := decode[market.ItemRequest](t, w)
	if req.ItemName != "Handmade basket" || req.Status != market.RequestPending {
		t.Fatalf("request: %+v", req)
	}

	if w := f.do(t, http.MethodGet, "/shops/"+f.shop+"/requests", f.buyer, ""); w.Code != http.StatusForbidden {
		t.Fatalf("solo el dueño lista: %d", w.Code)
	}
	if got := decode[[]market.ItemRequest](t, f.do(t, http.MethodGet, "/shops/"+f.shop+"/requests", f.keeper, "")); len(got) != 1 {
		t.Fatalf("requests de la tienda: %+v", got)
	}

	w = f.do(t, http.MethodPost, "/requests/"+req.ID+"/action", f.keeper, `{"action":"approve","reply":"next week"}`)
	if got := decode[market.ItemRequest](t, w); w.Code != http.StatusOK || got.Status != market.RequestApproved || got.ReplyMessage != "next week" {
		t.Fatalf("approve: status=%d %+v", w.Code, got)
	}
	if w := f.do(t, http.MethodPost, "/requests/"+req.ID+"/reply", f.keeper, `{"status":"Maybe"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("estado inválido: %d", w.Code)
	}

	mine := decode[[]market.ItemRequest](t, f.do(t, http.MethodGet, "/requests", f.buyer, ""))
	if len(mine) != 1 || mine[0].Status != market.RequestApproved {
		t.Fatalf("mis requests: %+v", mine)
	}
}

func TestCatalog(t *testing.T) {
	f := newFixture(t)
	path := "/shops/" + f.shop + "/items"

	if w := f.do(t, http.MethodPost, path, f.keeper, `{"name":"Mug","price":"cheap","quantity":3}`); w.Code != http.StatusBadRequest {
		t.Fatalf("precio inválido: %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, path, f.buyer, `{"name":"Mug","price":"5.50","quantity":3}`); w.Code != http.StatusForbidden {
		t.Fatalf("tienda ajena: %d", w.Code)
	}
	w := f.do(t, http.MethodPost, path, f.keeper, `{"name":"Mug","price":"5.50","quantity":3}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	mug := decode[market.Item](t, w)

	w = f.do(t, http.MethodPut, "/items/"+mug.ID, f.keeper, `{"price":"6.00","quantity":7}`)
	it := decode[market.Item](t, w)
	if w.Code != http.StatusOK || !it.Price.Equal(decimal.RequireFromString("6.00")) || it.Quantity != 7 || it.Name != "Mug" {
		t.Fatalf("update: status=%d %+v", w.Code, it)
	}

	if w := f.do(t, http.MethodDelete, "/items/"+mug.ID, f.buyer, ""); w.Code != http.StatusForbidden {
		t.Fatalf("borrado ajeno: %d", w.Code)
	}
	if w := f.do(t, http.MethodDelete, "/items/"+mug.ID, f.keeper, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := f.do(t, http.MethodDelete, "/items/"+mug.ID, f.keeper, ""); w.Code != http.StatusNotFound {
		t.Fatalf("segundo delete: %d", w.Code)
	}
}

func TestCloseAccount_ReturnsHeldStock(t *testing.T) {
	f := newFixture(t)
	line := decode[market.Line](t, f.do(t, http.MethodPost, "/cart/items", f.buyer, `{"item_id":"`+f.lamp+`"}`))
	f.do(t, http.MethodPost, "/cart/actions", f.buyer, `{"action":"update_quantity","order_id":"`+line.ID+`","quantity":3}`)
	if s := f.stock(t, f.lamp); s != 3 {
		t.Fatalf("stock tras update=%d, esperado 3", s)
	}

	if w := f.do(t, http.MethodDelete, "/account", f.buyer, ""); w.Code != http.StatusNoContent {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if s := f.stock(t, f.lamp); s != 5 {
		t.Fatalf("stock=%d, esperado 5", s)
	}
	if w := f.do(t, http.MethodGet, "/cart", f.buyer, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("cuenta cerrada sigue activa: %d", w.Code)
	}

	if w := f.do(t, http.MethodDelete, "/shops/"+f.shop, f.keeper, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete shop: %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, "/shops/"+f.shop+"/requests", f.keeper, `{"quantity":1}`); w.Code != http.StatusNotFound {
		t.Fatalf("tienda borrada: %d", w.Code)
	}
}

func TestBrowseItems(t *testing.T) {
	f := newFixture(t)
	mug := decode[market.Item](t, f.do(t, http.MethodPost, "/shops/"+f.shop+"/items", f.keeper,
		`{"name":"Mug","description":"lamp-shaped","price":"4.50","quantity":9}`))

	// sin q: solo paginación
	w := f.do(t, http.MethodGet, "/items?limit=1&offset=1&q=zzz", f.buyer, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	page := decode[product.ListResponse](t, w)
	if page.Limit != 1 || page.Offset != 1 || len(page.Items) != 1 || page.Q != "" {
		t.Fatalf("página inesperada: %+v", page)
	}

	if page = decode[product.ListResponse](t, f.do(t, http.MethodGet, "/items?shop_id="+f.shop, f.buyer, "")); len(page.Items) != 2 {
		t.Fatalf("items de la tienda=%d", len(page.Items))
	}
	if page = decode[product.ListResponse](t, f.do(t, http.MethodGet, "/items?shop_id=basura", f.buyer, "")); len(page.Items) != 0 {
		t.Fatalf("shop_id inválido debería dar lista vacía")
	}

	if w := f.do(t, http.MethodGet, "/items/search?q=l", f.buyer, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("q corta: %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/items/search", f.buyer, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("sin q: %d", w.Code)
	}
	found := decode[product.ListResponse](t, f.do(t, http.MethodGet, "/items/search?q=LAMP", f.buyer, ""))
	if len(found.Items) != 2 || found.Q != "LAMP" {
		t.Fatalf("búsqueda: %+v", found)
	}

	w = f.do(t, http.MethodGet, "/items/"+mug.ID, f.buyer, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: %d", w.Code)
	}
	if got := decode[market.Item](t, w); got.Name != "Mug" || !got.Price.Equal(decimal.RequireFromString("4.50")) {
		t.Fatalf("item: %+v", got)
	}
	if w := f.do(t, http.MethodGet, "/items/"+uuid.NewString(), f.buyer, ""); w.Code != http.StatusNotFound {
		t.Fatalf("item inexistente: %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/items/abc", f.buyer, ""); w.Code != http.StatusNotFound {
		t.Fatalf("id malformado: %d", w.Code)
	}

	shops := decode[[]product.ShopView](t, f.do(t, http.MethodGet, "/shops", f.buyer, ""))
	if len(shops) != 1 || shops[0].ID != f.shop || len(shops[0].Items) != 2 {
		t.Fatalf("tiendas: %+v", shops)
	}
}

func TestProfile(t *testing.T) {
	f := newFixture(t)

	p := decode[user.Profile](t, f.do(t, http.MethodGet, "/profile", f.keeper, ""))
	if p.Username != "keeper" || p.Shop == nil || p.Shop.ID != f.shop {
		t.Fatalf("perfil: %+v", p)
	}

	edit := func(field, value string) market.ProfileFieldResponse {
		t.Helper()
		w := f.do(t, http.MethodPost, "/profile", f.buyer, `{"field":"`+field+`","value":"`+value+`"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status=%d body=%s", field, w.Code, w.Body.String())
		}
		return decode[market.ProfileFieldResponse](t, w)
	}

	if r := edit("mobile", " 555-0199 "); !r.Success || r.Value != "555-0199" {
		t.Fatalf("mobile: %+v", r)
	}
	if r := edit("username", "keeper"); r.Success || r.Error != "Username already taken." {
		t.Fatalf("username duplicado: %+v", r)
	}
	if r := edit("shoe_size", "42"); r.Success || r.Error != "Invalid field" {
		t.Fatalf("campo inválido: %+v", r)
	}
	if r := edit("email", "nope"); r.Success || !strings.HasPrefix(r.Error, "Invalid") {
		t.Fatalf("email inválido: %+v", r)
	}
	if r := edit("password", "hunter22"); !r.Success || r.Value != "" {
		t.Fatalf("password: %+v", r)
	}

	w := f.do(t, http.MethodGet, "/profile", f.buyer, "")
	if strings.Contains(w.Body.String(), "hunter22") || strings.Contains(w.Body.String(), "password") {
		t.Fatalf("el perfil expone la contraseña: %s", w.Body.String())
	}
	if p := decode[user.Profile](t, w); p.Phone != "555-0199" || p.Shop != nil {
		t.Fatalf("perfil tras editar: %+v", p)
	}

	if w := f.do(t, http.MethodPost, "/profile", f.buyer, `{`); w.Code != http.StatusBadRequest {
		t.Fatalf("json roto: %d", w.Code)
	}
}
