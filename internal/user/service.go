// Package user edits a signed-in user's own profile, one field at a time.
package user

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/MikeMC777/marketplace/internal/market"
	"github.com/MikeMC777/marketplace/internal/store"
)

var (
	ErrInvalidField  = fmt.Errorf("invalid field: %w", market.ErrInvalidInput)
	ErrUsernameTaken = fmt.Errorf("username already taken: %w", market.ErrInvalidInput)
)

// Editable profile fields. "mobile" is stored as the phone number.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldMobile   = "mobile"
	FieldAddress  = "address"
	FieldPassword = "password"
)

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Profile is the user with the shop they own, if any.
type Profile struct {
	market.User
	Shop *market.Shop `json:"shop,omitempty"`
}

func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	var out Profile
	err := s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("user %s: %w", userID, err)
		}
		out.User = *u
		shop, err := tx.ShopByOwner(ctx, userID)
		switch {
		case err == nil:
			out.Shop = shop
		case !errors.Is(err, market.ErrNotFound):
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateField sets one profile field and returns the stored value. The
// password is hashed and never echoed back.
func (s *Service) UpdateField(ctx context.Context, userID, field, value string) (string, error) {
	apply, stored, err := fieldSetter(field, value)
	if err != nil {
		return "", err
	}
	err = s.store.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("user %s: %w", userID, err)
		}
		apply(u)
		if err := tx.UpdateUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrUsernameTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	log.Printf("[user] profile updated user=%s field=%s", userID, field)
	return stored, nil
}

func fieldSetter(field, value string) (func(*market.User), string, error) {
	v := strings.TrimSpace(value)
	switch field {
	case FieldUsername:
		if v == "" {
			return nil, "", fmt.Errorf("username is required: %w", market.ErrInvalidInput)
		}
		return func(u *market.User) { u.Username = v }, v, nil
	case FieldEmail:
		if v != "" {
			if _, err := mail.ParseAddress(v); err != nil {
				return nil, "", fmt.Errorf("email %q: %w", v, market.ErrInvalidInput)
			}
		}
		return func(u *market.User) { u.Email = v }, v, nil
	case FieldMobile:
		return func(u *market.User) { u.Phone = v }, v, nil
	case FieldAddress:
		return func(u *market.User) { u.Address = v }, v, nil
	case FieldPassword:
		hash, err := HashPassword(value)
		if err != nil {
			return nil, "", err
		}
		return func(u *market.User) { u.PasswordHash = hash }, "", nil
	}
	return nil, "", ErrInvalidField
}

// HashPassword bcrypt-hashes a non-empty password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is required: %w", market.ErrInvalidInput)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("password too long: %w", market.ErrInvalidInput)
	}
	if err != nil {
		return "", err
	}
	return string(h), nil
}
