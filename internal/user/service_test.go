package user

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/MikeMC777/marketplace/internal/market"
	"github.com/MikeMC777/marketplace/internal/store"
)

func setup(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	err := st.Atomic(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertUser(ctx, &market.User{ID: "ana", Username: "ana", Email: "ana@example.com"}); err != nil {
			return err
		}
		if err := tx.InsertUser(ctx, &market.User{ID: "keeper", Username: "keeper"}); err != nil {
			return err
		}
		return tx.InsertShop(ctx, &market.Shop{ID: "bakery", OwnerID: "keeper", Name: "Bakery"})
	})
	require.NoError(t, err)
	return NewService(st), st
}

func TestProfile(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	p, err := svc.Profile(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.Nil(t, p.Shop)

	p, err = svc.Profile(ctx, "keeper")
	require.NoError(t, err)
	require.NotNil(t, p.Shop)
	assert.Equal(t, "bakery", p.Shop.ID)

	_, err = svc.Profile(ctx, "ghost")
	assert.ErrorIs(t, err, market.ErrNotFound)
}

func TestUpdateField(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	v, err := svc.UpdateField(ctx, "ana", FieldMobile, " 555-0101 ")
	require.NoError(t, err)
	assert.Equal(t, "555-0101", v)

	_, err = svc.UpdateField(ctx, "ana", FieldAddress, "2 Oak Ave")
	require.NoError(t, err)
	_, err = svc.UpdateField(ctx, "ana", FieldUsername, "anita")
	require.NoError(t, err)

	p, err := svc.Profile(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "555-0101", p.Phone)
	assert.Equal(t, "2 Oak Ave", p.Address)
	assert.Equal(t, "anita", p.Username)
}

func TestUpdateFieldRejects(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	cases := []struct {
		field, value string
		want         error
	}{
		{"shoe_size", "42", ErrInvalidField},
		{FieldUsername, "  ", market.ErrInvalidInput},
		{FieldUsername, "keeper", ErrUsernameTaken},
		{FieldEmail, "not-an-email", market.ErrInvalidInput},
		{FieldPassword, "", market.ErrInvalidInput},
	}
	for _, tc := range cases {
		_, err := svc.UpdateField(ctx, "ana", tc.field, tc.value)
		assert.ErrorIs(t, err, tc.want, "%s=%q", tc.field, tc.value)
	}

	_, err := svc.UpdateField(ctx, "ghost", FieldAddress, "x")
	assert.ErrorIs(t, err, market.ErrNotFound)
}

func TestPasswordIsHashedAndHidden(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()

	v, err := svc.UpdateField(ctx, "ana", FieldPassword, "s3cret-pass")
	require.NoError(t, err)
	assert.Empty(t, v)

	var hash string
	require.NoError(t, st.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		u, err := tx.GetUser(ctx, "ana")
		if err != nil {
			return err
		}
		hash = u.PasswordHash
		return nil
	}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret-pass")))

	p, err := svc.Profile(ctx, "ana")
	require.NoError(t, err)
	body, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(body), hash)
}
