package request

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/marketplace/internal/market"
	"github.com/MikeMC777/marketplace/internal/seed"
	"github.com/MikeMC777/marketplace/internal/store"
)

const fixture = `
users:
  - {id: ana, username: ana}
  - {id: keeper, username: keeper}
  - {id: rival, username: rival}
shops:
  - {id: bakery, owner: keeper, name: Bakery}
  - {id: deli, owner: rival, name: Deli}
items:
  - {id: rye, shop: bakery, name: Rye Loaf, price: "3.20", quantity: 4}
  - {id: ham, shop: deli, name: Ham, price: "9.00", quantity: 2}
`

func newTracker(t *testing.T) *Tracker {
	t.Helper()
	st := store.NewMemory()
	f, err := seed.Parse([]byte(fixture))
	require.NoError(t, err)
	require.NoError(t, seed.Apply(context.Background(), st, f))
	return NewTracker(st)
}

func TestCreateForExistingItem(t *testing.T) {
	tr := newTracker(t)
	r, err := tr.Create(context.Background(), "ana", CreateInput{ShopID: "bakery", ItemID: "rye", Quantity: 6, Message: "for saturday"})
	require.NoError(t, err)
	assert.Equal(t, "Rye Loaf", r.ItemName)
	assert.Equal(t, "rye", r.ItemID)
	assert.Equal(t, market.RequestPending, r.Status)
	assert.Equal(t, "for saturday", r.ReplyMessage)
}

func TestCreateCustomItem(t *testing.T) {
	tr := newTracker(t)
	ctx := context.Background()

	r, err := tr.Create(ctx, "ana", CreateInput{ShopID: "bakery", CustomName: " Sourdough ", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "Sourdough", r.ItemName)
	assert.Empty(t, r.ItemID)

	r, err = tr.Create(ctx, "ana", CreateInput{ShopID: "bakery", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, "Custom Item", r.ItemName)
}

func TestCreateValidation(t *testing.T) {
	tr := newTracker(t)
	ctx := context.Background()

	_, err := tr.Create(ctx, "ana", CreateInput{ShopID: "bakery", ItemID: "rye", Quantity: 0})
	assert.ErrorIs(t, err, market.ErrInvalidQuantity)

	_, err = tr.Create(ctx, "ana", CreateInput{ShopID: "bakery", ItemID: "ham", Quantity: 1})
	assert.ErrorIs(t, err, market.ErrNotFound, "item of another shop")

	_, err = tr.Create(ctx, "ana", CreateInput{ShopID: "nowhere", Quantity: 1})
	assert.ErrorIs(t, err, market.ErrNotFound)
}

func TestReplyAndDecide(t *testing.T) {
	tr := newTracker(t)
	ctx := context.Background()
	r, err := tr.Create(ctx, "ana", CreateInput{ShopID: "bakery", ItemID: "rye", Quantity: 2, Message: "please"})
	require.NoError(t, err)

	got, err := tr.Reply(ctx, "keeper", r.ID, market.RequestApproved, "")
	require.NoError(t, err)
	assert.Equal(t, market.RequestApproved, got.Status)
	assert.Equal(t, "please", got.ReplyMessage, "empty reply keeps the message")

	got, err = tr.Reply(ctx, "keeper", r.ID, market.RequestPending, "checking stock")
	require.NoError(t, err)
	assert.Equal(t, market.RequestPending, got.Status)
	assert.Equal(t, "checking stock", got.ReplyMessage)

	_, err = tr.Reply(ctx, "keeper", r.ID, "Maybe", "")
	assert.ErrorIs(t, err, market.ErrInvalidStatus)

	got, err = tr.Decide(ctx, "keeper", r.ID, "reject", "")
	require.NoError(t, err)
	assert.Equal(t, market.RequestRejected, got.Status)
	assert.Empty(t, got.ReplyMessage)

	// decisions may be revisited
	got, err = tr.Decide(ctx, "keeper", r.ID, "approve", "ready monday")
	require.NoError(t, err)
	assert.Equal(t, market.RequestApproved, got.Status)

	_, err = tr.Decide(ctx, "keeper", r.ID, "shrug", "")
	assert.ErrorIs(t, err, market.ErrInvalidInput)
}

func TestOnlyTheShopOwnerAnswers(t *testing.T) {
	tr := newTracker(t)
	ctx := context.Background()
	r, err := tr.Create(ctx, "ana", CreateInput{ShopID: "bakery", Quantity: 1})
	require.NoError(t, err)

	_, err = tr.Decide(ctx, "rival", r.ID, "approve", "")
	assert.ErrorIs(t, err, market.ErrUnauthorized)
	_, err = tr.Reply(ctx, "ana", r.ID, market.RequestApproved, "")
	assert.ErrorIs(t, err, market.ErrUnauthorized)
	_, err = tr.ForShop(ctx, "rival", "bakery")
	assert.ErrorIs(t, err, market.ErrUnauthorized)
	_, err = tr.Decide(ctx, "keeper", "missing", "approve", "")
	assert.ErrorIs(t, err, market.ErrNotFound)
}

func TestListings(t *testing.T) {
	tr := newTracker(t)
	ctx := context.Background()
	_, err := tr.Create(ctx, "ana", CreateInput{ShopID: "bakery", Quantity: 1})
	require.NoError(t, err)
	_, err = tr.Create(ctx, "ana", CreateInput{ShopID: "deli", ItemID: "ham", Quantity: 1})
	require.NoError(t, err)
	_, err = tr.Create(ctx, "rival", CreateInput{ShopID: "bakery", Quantity: 3})
	require.NoError(t, err)

	mine, err := tr.ForUser(ctx, "ana")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	bakery, err := tr.ForShop(ctx, "keeper", "bakery")
	require.NoError(t, err)
	require.Len(t, bakery, 2)
	assert.ElementsMatch(t, []string{"ana", "rival"}, []string{bakery[0].UserID, bakery[1].UserID})
	assert.False(t, bakery[0].CreatedAt.Before(bakery[1].CreatedAt), "newest first")
}
