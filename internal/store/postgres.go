package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/marketplace/internal/market"
)

//go:embed schema.sql
var schema string

const maxAttempts = 3

type Postgres struct{ db *pgxpool.Pool }

func NewPostgres(db *pgxpool.Pool) *Postgres { return &Postgres{db: db} }

// Connect opens a pool and checks it is reachable.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Migrate applies the embedded schema; every statement is idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.Exec(ctx, schema)
	return err
}

func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return p.db.Ping(ctx)
}

// Atomic retries the whole callback when Postgres aborts the transaction
// for a serialization failure or a deadlock.
func (p *Postgres) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = p.atomicOnce(ctx, fn)
		if !retryable(err) {
			return err
		}
		log.Printf("[store] retrying unit of work attempt=%d err=%v", attempt, err)
	}
	return err
}

func (p *Postgres) atomicOnce(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return market.ErrNotFound
	}
	return err
}

func (p *Postgres) FetchPending(ctx context.Context, limit int) ([]market.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.Query(ctx, `
		SELECT id, event_id, topic, key, payload, created_at
		FROM outbox WHERE sent_at IS NULL
		ORDER BY id LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []market.Event
	for rows.Next() {
		var e market.Event
		if err := rows.Scan(&e.ID, &e.EventID, &e.Topic, &e.Key, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkSent(ctx context.Context, id int64) error {
	_, err := p.db.Exec(ctx, `UPDATE outbox SET sent_at = NOW() WHERE id = $1`, id)
	return err
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) GetUser(ctx context.Context, id string) (*market.User, error) {
	var u market.User
	err := t.tx.QueryRow(ctx, `
		SELECT id, username, email, phone, address, password_hash, created_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.Address, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (t *pgTx) InsertUser(ctx context.Context, u *market.User) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO users (id, username, email, phone, address, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW()) RETURNING created_at
	`, u.ID, u.Username, u.Email, u.Phone, u.Address, u.PasswordHash).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (t *pgTx) SetAddress(ctx context.Context, userID, address string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE users SET address = $2 WHERE id = $1`, userID, address)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return market.ErrNotFound
	}
	return nil
}

func (t *pgTx) UpdateUser(ctx context.Context, u *market.User) error {
	err := t.tx.QueryRow(ctx, `
		UPDATE users
		SET username = $2, email = $3, phone = $4, address = $5, password_hash = $6
		WHERE id = $1
		RETURNING created_at
	`, u.ID, u.Username, u.Email, u.Phone, u.Address, u.PasswordHash).Scan(&u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return notFound(err)
}

func (t *pgTx) DeleteUser(ctx context.Context, id string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM order_lines WHERE user_id = $1 AND status = 'Pending'`, id); err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM item_requests WHERE user_id = $1`, id); err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM checkout_keys WHERE user_id = $1`, id); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return market.ErrNotFound
	}
	return nil
}

const shopColumns = `id, owner_id, name, address, created_at`

func scanShop(row pgx.Row) (*market.Shop, error) {
	var s market.Shop
	if err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Address, &s.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (t *pgTx) GetShop(ctx context.Context, id string) (*market.Shop, error) {
	return scanShop(t.tx.QueryRow(ctx, `SELECT `+shopColumns+` FROM shops WHERE id = $1`, id))
}

func (t *pgTx) ShopByOwner(ctx context.Context, ownerID string) (*market.Shop, error) {
	return scanShop(t.tx.QueryRow(ctx, `SELECT `+shopColumns+` FROM shops WHERE owner_id = $1`, ownerID))
}

func (t *pgTx) InsertShop(ctx context.Context, s *market.Shop) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO shops (id, owner_id, name, address, created_at)
		VALUES ($1,$2,$3,$4,NOW()) RETURNING created_at
	`, s.ID, s.OwnerID, s.Name, s.Address).Scan(&s.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (t *pgTx) ListShops(ctx context.Context) ([]market.Shop, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+shopColumns+` FROM shops ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []market.Shop
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (t *pgTx) DeleteShop(ctx context.Context, id string) error {
	rows, err := t.tx.Query(ctx, `SELECT id FROM items WHERE shop_id = $1 ORDER BY id FOR UPDATE`, id)
	if err != nil {
		return err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return err
	}
	for _, itemID := range ids {
		if err := t.DeleteItem(ctx, itemID); err != nil {
			return err
		}
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM item_requests WHERE shop_id = $1`, id); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM shops WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return market.ErrNotFound
	}
	return nil
}

const itemColumns = `id, shop_id, name, description, price::text, quantity, created_at, updated_at`

func scanItem(row pgx.Row) (*market.Item, error) {
	var (
		it    market.Item
		price string
	)
	if err := row.Scan(&it.ID, &it.ShopID, &it.Name, &it.Description, &price, &it.Quantity, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("item %s price: %w", it.ID, err)
	}
	it.Price = p
	return &it, nil
}

func (t *pgTx) GetItem(ctx context.Context, id string) (*market.Item, error) {
	return scanItem(t.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
}

func (t *pgTx) LockItem(ctx context.Context, id string) (*market.Item, error) {
	return scanItem(t.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) InsertItem(ctx context.Context, it *market.Item) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO items (id, shop_id, name, description, price, quantity, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW()) RETURNING created_at, updated_at
	`, it.ID, it.ShopID, it.Name, it.Description, it.Price.String(), it.Quantity).Scan(&it.CreatedAt, &it.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// containsPattern turns q into an ILIKE substring pattern that matches the
// text literally.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (t *pgTx) ListItems(ctx context.Context, f ItemFilter) ([]market.Item, error) {
	q := strings.TrimSpace(f.Q)
	rows, err := t.tx.Query(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE ($1 = '' OR shop_id::text = $1)
		  AND ($2 = '' OR name ILIKE $5 ESCAPE '\' OR description ILIKE $5 ESCAPE '\')
		ORDER BY created_at DESC, id
		LIMIT NULLIF($3, 0) OFFSET $4
	`, f.ShopID, q, max(f.Limit, 0), max(f.Offset, 0), containsPattern(q))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []market.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

func (t *pgTx) UpdateItem(ctx context.Context, it *market.Item) error {
	err := t.tx.QueryRow(ctx, `
		UPDATE items
		SET name = $2, description = $3, price = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING shop_id, quantity, created_at, updated_at
	`, it.ID, it.Name, it.Description, it.Price.String()).Scan(&it.ShopID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt)
	return notFound(err)
}

func (t *pgTx) SetItemQuantity(ctx context.Context, id string, quantity int) error {
	tag, err := t.tx.Exec(ctx, `UPDATE items SET quantity = $2, updated_at = NOW() WHERE id = $1`, id, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return market.ErrNotFound
	}
	return nil
}

func (t *pgTx) DeleteItem(ctx context.Context, id string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM order_lines WHERE item_id = $1 AND status = 'Pending'`, id); err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `UPDATE item_requests SET item_id = NULL WHERE item_id = $1`, id); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return market.ErrNotFound
	}
	return nil
}

const lineColumns = `id, user_id, item_id, quantity, held, total_price::text, status, payment_method, created_at, paid_at`

func scanLine(row pgx.Row) (*market.Line, error) {
	var (
		l     market.Line
		total string
	)
	if err := row.Scan(&l.ID, &l.UserID, &l.ItemID, &l.Quantity, &l.Held, &total, &l.Status, &l.PaymentMethod, &l.CreatedAt, &l.PaidAt); err != nil {
		return nil, notFound(err)
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("line %s total: %w", l.ID, err)
	}
	l.TotalPrice = d
	return &l, nil
}

func collectLines(rows pgx.Rows) ([]market.Line, error) {
	defer rows.Close()
	out := []market.Line{}
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (t *pgTx) GetLine(ctx context.Context, id string) (*market.Line, error) {
	return scanLine(t.tx.QueryRow(ctx, `SELECT `+lineColumns+` FROM order_lines WHERE id = $1`, id))
}

func (t *pgTx) LockLine(ctx context.Context, id string) (*market.Line, error) {
	return scanLine(t.tx.QueryRow(ctx, `SELECT `+lineColumns+` FROM order_lines WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) LockPendingLine(ctx context.Context, userID, itemID string) (*market.Line, error) {
	return scanLine(t.tx.QueryRow(ctx, `
		SELECT `+lineColumns+` FROM order_lines
		WHERE user_id = $1 AND item_id = $2 AND status = 'Pending'
		FOR UPDATE
	`, userID, itemID))
}

func (t *pgTx) LockPendingLines(ctx context.Context, userID string) ([]market.Line, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+lineColumns+` FROM order_lines
		WHERE user_id = $1 AND status = 'Pending'
		ORDER BY created_at, id
		FOR UPDATE
	`, userID)
	if err != nil {
		return nil, err
	}
	return collectLines(rows)
}

func (t *pgTx) ListLines(ctx context.Context, f LineFilter) ([]market.Line, error) {
	var ids []string
	if f.IDs != nil {
		ids = f.IDs
	}
	rows, err := t.tx.Query(ctx, `
		SELECT `+lineColumns+` FROM order_lines
		WHERE ($1 = '' OR user_id::text = $1)
		  AND ($2 = '' OR item_id::text = $2)
		  AND ($3 = '' OR status = $3)
		  AND ($4::text[] IS NULL OR id::text = ANY($4::text[]))
		ORDER BY created_at, id
	`, f.UserID, f.ItemID, string(f.Status), ids)
	if err != nil {
		return nil, err
	}
	return collectLines(rows)
}

func (t *pgTx) InsertLine(ctx context.Context, l *market.Line) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO order_lines (id, user_id, item_id, quantity, held, total_price, status, payment_method, created_at, paid_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),$9) RETURNING created_at
	`, l.ID, l.UserID, l.ItemID, l.Quantity, l.Held, l.TotalPrice.String(), string(l.Status), l.PaymentMethod, l.PaidAt).Scan(&l.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (t *pgTx) UpdateLine(ctx context.Context, l *market.Line) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE order_lines
		SET quantity = $2, held = $3, total_price = $4, status = $5, payment_method = $6, paid_at = $7
		WHERE id = $1
	`, l.ID, l.Quantity, l.Held, l.TotalPrice.String(), string(l.Status), l.PaymentMethod, l.PaidAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return market.ErrNotFound
	}
	return nil
}

func (t *pgTx) DeleteLine(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM order_lines WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return market.ErrNotFound
	}
	return nil
}

func (t *pgTx) InsertTransaction(ctx context.Context, tr *market.Transaction) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO transactions (id, line_id, buyer_id, seller_id, item_id, quantity, total_price, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW()) RETURNING created_at
	`, tr.ID, tr.LineID, tr.BuyerID, tr.SellerID, tr.ItemID, tr.Quantity, tr.TotalPrice.String()).Scan(&tr.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (t *pgTx) ListTransactions(ctx context.Context, f TransactionFilter) ([]market.Transaction, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, line_id, buyer_id, seller_id, item_id, quantity, total_price::text, created_at
		FROM transactions
		WHERE ($1 = '' OR buyer_id::text = $1)
		  AND ($2 = '' OR seller_id::text = $2)
		ORDER BY created_at DESC, id DESC
	`, f.BuyerID, f.SellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []market.Transaction{}
	for rows.Next() {
		var (
			tr    market.Transaction
			total string
		)
		if err := rows.Scan(&tr.ID, &tr.LineID, &tr.BuyerID, &tr.SellerID, &tr.ItemID, &tr.Quantity, &total, &tr.CreatedAt); err != nil {
			return nil, err
		}
		if tr.TotalPrice, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

const requestColumns = `id, user_id, shop_id, COALESCE(item_id::text, ''), item_name, quantity, status, reply_message, created_at`

func scanRequest(row pgx.Row) (*market.ItemRequest, error) {
	var r market.ItemRequest
	if err := row.Scan(&r.ID, &r.UserID, &r.ShopID, &r.ItemID, &r.ItemName, &r.Quantity, &r.Status, &r.ReplyMessage, &r.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (t *pgTx) GetRequest(ctx context.Context, id string) (*market.ItemRequest, error) {
	return scanRequest(t.tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM item_requests WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) InsertRequest(ctx context.Context, r *market.ItemRequest) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO item_requests (id, user_id, shop_id, item_id, item_name, quantity, status, reply_message, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW()) RETURNING created_at
	`, r.ID, r.UserID, r.ShopID, nullable(r.ItemID), r.ItemName, r.Quantity, string(r.Status), r.ReplyMessage).Scan(&r.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (t *pgTx) UpdateRequest(ctx context.Context, r *market.ItemRequest) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE item_requests SET status = $2, reply_message = $3 WHERE id = $1
	`, r.ID, string(r.Status), r.ReplyMessage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return market.ErrNotFound
	}
	return nil
}

func (t *pgTx) ListRequests(ctx context.Context, f RequestFilter) ([]market.ItemRequest, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+requestColumns+` FROM item_requests
		WHERE ($1 = '' OR user_id::text = $1)
		  AND ($2 = '' OR shop_id::text = $2)
		ORDER BY created_at DESC, id DESC
	`, f.UserID, f.ShopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []market.ItemRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (t *pgTx) GetCheckoutKey(ctx context.Context, userID, key string) ([]string, error) {
	var ids []string
	err := t.tx.QueryRow(ctx, `
		SELECT line_ids FROM checkout_keys WHERE user_id = $1 AND key = $2
	`, userID, key).Scan(&ids)
	if err != nil {
		return nil, notFound(err)
	}
	return ids, nil
}

func (t *pgTx) PutCheckoutKey(ctx context.Context, userID, key string, lineIDs []string) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO checkout_keys (user_id, key, line_ids) VALUES ($1,$2,$3)
	`, userID, key, lineIDs)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (t *pgTx) EnqueueEvent(ctx context.Context, e *market.Event) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO outbox (event_id, topic, key, payload) VALUES ($1,$2,$3,$4)
		RETURNING id, created_at
	`, e.EventID, e.Topic, e.Key, e.Payload).Scan(&e.ID, &e.CreatedAt)
}
