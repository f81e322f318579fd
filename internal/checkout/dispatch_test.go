package checkout

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/marketplace/internal/inventory"
	"github.com/MikeMC777/marketplace/internal/ledger"
	"github.com/MikeMC777/marketplace/internal/market"
	"github.com/MikeMC777/marketplace/internal/order"
	"github.com/MikeMC777/marketplace/internal/seed"
	"github.com/MikeMC777/marketplace/internal/store"
)

func newDispatcher(t *testing.T) (*Dispatcher, *order.Service) {
	t.Helper()
	st := store.NewMemory()
	f, err := seed.Parse([]byte(fixture))
	require.NoError(t, err)
	require.NoError(t, seed.Apply(context.Background(), st, f))
	inv := inventory.New()
	lines := order.NewService(st, inv)
	return NewDispatcher(lines, New(st, inv, ledger.New(st, ""))), lines
}

func TestParseKind(t *testing.T) {
	for action, want := range map[string]Kind{
		"update_quantity": CmdUpdateQuantity,
		"remove_order":    CmdRemoveLine,
		"checkout":        CmdCheckout,
	} {
		got, err := ParseKind(action)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, action, got.String())
	}

	_, err := ParseKind("delete_everything")
	assert.ErrorIs(t, err, market.ErrInvalidInput)
}

func TestDispatchUpdateQuantity(t *testing.T) {
	d, lines := newDispatcher(t)
	ctx := context.Background()
	l, err := lines.AddOrMerge(ctx, "alice", "lamp", 1)
	require.NoError(t, err)

	out := d.Dispatch(ctx, Command{Kind: CmdUpdateQuantity, UserID: "alice", LineID: l.ID, Quantity: 3})
	require.NoError(t, out.Err)
	resp := out.Response()
	assert.True(t, resp.Success)
	assert.Equal(t, l.ID, resp.OrderID)
	assert.Equal(t, 3, resp.Quantity)
	assert.Equal(t, "60.00", resp.Subtotal)
	assert.Equal(t, "60.00", resp.TotalAmount)
}

func TestDispatchRemoveLine(t *testing.T) {
	d, lines := newDispatcher(t)
	ctx := context.Background()
	l, err := lines.AddOrMerge(ctx, "alice", "lamp", 1)
	require.NoError(t, err)
	_, err = lines.AddOrMerge(ctx, "alice", "mug", 2)
	require.NoError(t, err)

	resp := d.Dispatch(ctx, Command{Kind: CmdRemoveLine, UserID: "alice", LineID: l.ID}).Response()
	assert.True(t, resp.Success)
	assert.Equal(t, l.ID, resp.OrderID)
	assert.Equal(t, "15.00", resp.TotalAmount)
	assert.Zero(t, resp.Quantity)
}

func TestDispatchCheckout(t *testing.T) {
	d, lines := newDispatcher(t)
	ctx := context.Background()
	_, err := lines.AddOrMerge(ctx, "bob", "mug", 2)
	require.NoError(t, err)

	out := d.Dispatch(ctx, Command{Kind: CmdCheckout, UserID: "bob", Checkout: Request{UserID: "spoofed", PaymentMethod: "card"}})
	require.NoError(t, out.Err)
	require.NotNil(t, out.Settled)
	assert.Len(t, out.Settled.LineIDs, 1)
	assert.Equal(t, "bob", out.Settled.Transactions[0].BuyerID)
	assert.Equal(t, "15.00", out.Response().TotalAmount)
}

func TestDispatchErrorsUseTheErrorPayload(t *testing.T) {
	d, lines := newDispatcher(t)
	ctx := context.Background()
	l, err := lines.AddOrMerge(ctx, "alice", "lamp", 1)
	require.NoError(t, err)

	cases := []struct {
		cmd  Command
		want string
	}{
		{Command{Kind: CmdUpdateQuantity, UserID: "alice", LineID: l.ID, Quantity: 0}, "Quantity must be at least 1."},
		{Command{Kind: CmdUpdateQuantity, UserID: "alice", LineID: l.ID, Quantity: 50}, "Not enough stock available."},
		{Command{Kind: CmdRemoveLine, UserID: "bob", LineID: l.ID}, "You are not allowed to change this order."},
		{Command{Kind: CmdRemoveLine, UserID: "alice", LineID: "gone"}, "Order not found."},
		{Command{Kind: CmdCheckout, UserID: "bob"}, "No items in your cart to place order."},
		{Command{Kind: Kind(42), UserID: "alice"}, "Invalid action."},
	}
	for i, tc := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			resp := d.Dispatch(ctx, tc.cmd).Response()
			assert.False(t, resp.Success)
			assert.Equal(t, tc.want, resp.Error)
			assert.Empty(t, resp.OrderID)
		})
	}
}
