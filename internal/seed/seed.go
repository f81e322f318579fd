// Package seed loads users, shops and items from a YAML fixture file into a
// store. It backs local runs (SEED_FILE) and the package tests.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/MikeMC777/marketplace/internal/market"
	"github.com/MikeMC777/marketplace/internal/store"
)

type Fixture struct {
	Users []User `yaml:"users"`
	Shops []Shop `yaml:"shops"`
	Items []Item `yaml:"items"`
}

type User struct {
	ID       string `yaml:"id"`
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Address  string `yaml:"address"`
}

type Shop struct {
	ID      string `yaml:"id"`
	Owner   string `yaml:"owner"`
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

type Item struct {
	ID          string `yaml:"id"`
	Shop        string `yaml:"shop"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Quantity    int    `yaml:"quantity"`
}

// LoadFile reads and parses a fixture file.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes fixture YAML and checks references between its sections.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed YAML: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	users := map[string]bool{}
	for _, u := range f.Users {
		if u.ID == "" {
			return fmt.Errorf("seed user %q without id: %w", u.Username, market.ErrInvalidInput)
		}
		users[u.ID] = true
	}
	shops := map[string]bool{}
	for _, s := range f.Shops {
		if !users[s.Owner] {
			return fmt.Errorf("seed shop %s: unknown owner %q: %w", s.ID, s.Owner, market.ErrInvalidInput)
		}
		shops[s.ID] = true
	}
	for _, it := range f.Items {
		if !shops[it.Shop] {
			return fmt.Errorf("seed item %s: unknown shop %q: %w", it.ID, it.Shop, market.ErrInvalidInput)
		}
		if it.Quantity < 0 {
			return fmt.Errorf("seed item %s: negative quantity: %w", it.ID, market.ErrInvalidInput)
		}
		if _, err := decimal.NewFromString(it.Price); err != nil {
			return fmt.Errorf("seed item %s: price %q: %w", it.ID, it.Price, market.ErrInvalidInput)
		}
	}
	return nil
}

// Apply inserts the fixture in one unit of work. Rows that already exist
// are left as they are, so applying the same file twice is harmless.
func Apply(ctx context.Context, st store.Store, f *Fixture) error {
	var created int
	err := st.Atomic(ctx, func(ctx context.Context, tx store.Tx) error {
		created = 0
		for _, u := range f.Users {
			err := tx.InsertUser(ctx, &market.User{ID: u.ID, Username: u.Username, Email: u.Email, Address: u.Address})
			if err = skipDuplicate(err, &created); err != nil {
				return fmt.Errorf("seed user %s: %w", u.ID, err)
			}
		}
		for _, s := range f.Shops {
			err := tx.InsertShop(ctx, &market.Shop{ID: s.ID, OwnerID: s.Owner, Name: s.Name, Address: s.Address})
			if err = skipDuplicate(err, &created); err != nil {
				return fmt.Errorf("seed shop %s: %w", s.ID, err)
			}
		}
		for _, it := range f.Items {
			price, _ := decimal.NewFromString(it.Price)
			err := tx.InsertItem(ctx, &market.Item{
				ID:          it.ID,
				ShopID:      it.Shop,
				Name:        it.Name,
				Description: it.Description,
				Price:       price,
				Quantity:    it.Quantity,
			})
			if err = skipDuplicate(err, &created); err != nil {
				return fmt.Errorf("seed item %s: %w", it.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("[seed] applied users=%d shops=%d items=%d created=%d", len(f.Users), len(f.Shops), len(f.Items), created)
	return nil
}

func skipDuplicate(err error, created *int) error {
	switch {
	case err == nil:
		*created++
		return nil
	case errors.Is(err, store.ErrDuplicate):
		return nil
	default:
		return err
	}
}
