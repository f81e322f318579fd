package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MikeMC777/marketplace/internal/market"
)

// Memory is an in-process Store. One mutex serialises every unit of work,
// and each unit works on a copy of the state that replaces the live state
// only when the callback succeeds.
type Memory struct {
	mu    sync.Mutex
	state *memState
}

func NewMemory() *Memory {
	return &Memory{state: newMemState()}
}

type memState struct {
	users    map[string]market.User
	shops    map[string]market.Shop
	items    map[string]market.Item
	lines    map[string]market.Line
	txns     []market.Transaction
	requests map[string]market.ItemRequest
	keys     map[string][]string
	events   []market.Event
	sent     map[int64]bool
	eventSeq int64
}

func newMemState() *memState {
	return &memState{
		users:    map[string]market.User{},
		shops:    map[string]market.Shop{},
		items:    map[string]market.Item{},
		lines:    map[string]market.Line{},
		requests: map[string]market.ItemRequest{},
		keys:     map[string][]string{},
		sent:     map[int64]bool{},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		users:    make(map[string]market.User, len(s.users)),
		shops:    make(map[string]market.Shop, len(s.shops)),
		items:    make(map[string]market.Item, len(s.items)),
		lines:    make(map[string]market.Line, len(s.lines)),
		txns:     slices.Clone(s.txns),
		requests: make(map[string]market.ItemRequest, len(s.requests)),
		keys:     make(map[string][]string, len(s.keys)),
		events:   slices.Clone(s.events),
		sent:     make(map[int64]bool, len(s.sent)),
		eventSeq: s.eventSeq,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.shops {
		c.shops[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.keys {
		c.keys[k] = v
	}
	for k, v := range s.sent {
		c.sent[k] = v
	}
	return c
}

func (m *Memory) Atomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(ctx, &memTx{st: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) FetchPending(ctx context.Context, limit int) ([]market.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []market.Event
	for _, e := range m.state.events {
		if m.state.sent[e.ID] {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkSent(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.sent[id] = true
	return nil
}

type memTx struct{ st *memState }

func (t *memTx) GetUser(ctx context.Context, id string) (*market.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, market.ErrNotFound
	}
	return &u, nil
}

func (t *memTx) usernameTaken(username, except string) bool {
	for id, u := range t.st.users {
		if id != except && u.Username == username {
			return true
		}
	}
	return false
}

func (t *memTx) InsertUser(ctx context.Context, u *market.User) error {
	if _, ok := t.st.users[u.ID]; ok || t.usernameTaken(u.Username, "") {
		return ErrDuplicate
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	t.st.users[u.ID] = *u
	return nil
}

func (t *memTx) SetAddress(ctx context.Context, userID, address string) error {
	u, ok := t.st.users[userID]
	if !ok {
		return market.ErrNotFound
	}
	u.Address = address
	t.st.users[userID] = u
	return nil
}

func (t *memTx) UpdateUser(ctx context.Context, u *market.User) error {
	cur, ok := t.st.users[u.ID]
	if !ok {
		return market.ErrNotFound
	}
	if t.usernameTaken(u.Username, u.ID) {
		return ErrDuplicate
	}
	u.CreatedAt = cur.CreatedAt
	t.st.users[u.ID] = *u
	return nil
}

func (t *memTx) DeleteUser(ctx context.Context, id string) error {
	if _, ok := t.st.users[id]; !ok {
		return market.ErrNotFound
	}
	for lid, l := range t.st.lines {
		if l.UserID == id && l.Status == market.StatusPending {
			delete(t.st.lines, lid)
		}
	}
	for rid, r := range t.st.requests {
		if r.UserID == id {
			delete(t.st.requests, rid)
		}
	}
	for k := range t.st.keys {
		if strings.HasPrefix(k, checkoutKey(id, "")) {
			delete(t.st.keys, k)
		}
	}
	delete(t.st.users, id)
	return nil
}

func (t *memTx) GetShop(ctx context.Context, id string) (*market.Shop, error) {
	s, ok := t.st.shops[id]
	if !ok {
		return nil, market.ErrNotFound
	}
	return &s, nil
}

func (t *memTx) ShopByOwner(ctx context.Context, ownerID string) (*market.Shop, error) {
	for _, s := range t.st.shops {
		if s.OwnerID == ownerID {
			return &s, nil
		}
	}
	return nil, market.ErrNotFound
}

func (t *memTx) InsertShop(ctx context.Context, s *market.Shop) error {
	if _, ok := t.st.shops[s.ID]; ok {
		return ErrDuplicate
	}
	if _, ok := t.st.users[s.OwnerID]; !ok {
		return market.ErrNotFound
	}
	if _, err := t.ShopByOwner(ctx, s.OwnerID); err == nil {
		return ErrDuplicate
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	t.st.shops[s.ID] = *s
	return nil
}

func (t *memTx) ListShops(ctx context.Context) ([]market.Shop, error) {
	out := make([]market.Shop, 0, len(t.st.shops))
	for _, s := range t.st.shops {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memTx) DeleteShop(ctx context.Context, id string) error {
	if _, ok := t.st.shops[id]; !ok {
		return market.ErrNotFound
	}
	for iid, it := range t.st.items {
		if it.ShopID == id {
			_ = t.DeleteItem(ctx, iid)
		}
	}
	for rid, r := range t.st.requests {
		if r.ShopID == id {
			delete(t.st.requests, rid)
		}
	}
	delete(t.st.shops, id)
	return nil
}

func (t *memTx) GetItem(ctx context.Context, id string) (*market.Item, error) {
	it, ok := t.st.items[id]
	if !ok {
		return nil, market.ErrNotFound
	}
	return &it, nil
}

func (t *memTx) LockItem(ctx context.Context, id string) (*market.Item, error) {
	return t.GetItem(ctx, id)
}

func (t *memTx) InsertItem(ctx context.Context, it *market.Item) error {
	if _, ok := t.st.items[it.ID]; ok {
		return ErrDuplicate
	}
	if _, ok := t.st.shops[it.ShopID]; !ok {
		return market.ErrNotFound
	}
	now := time.Now().UTC()
	it.CreatedAt, it.UpdatedAt = now, now
	t.st.items[it.ID] = *it
	return nil
}

func (t *memTx) ListItems(ctx context.Context, f ItemFilter) ([]market.Item, error) {
	q := strings.ToLower(strings.TrimSpace(f.Q))
	var out []market.Item
	for _, it := range t.st.items {
		if f.ShopID != "" && it.ShopID != f.ShopID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(it.Name), q) && !strings.Contains(strings.ToLower(it.Description), q) {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Offset > 0 {
		out = out[min(f.Offset, len(out)):]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *memTx) UpdateItem(ctx context.Context, it *market.Item) error {
	cur, ok := t.st.items[it.ID]
	if !ok {
		return market.ErrNotFound
	}
	it.ShopID = cur.ShopID
	it.Quantity = cur.Quantity
	it.CreatedAt = cur.CreatedAt
	it.UpdatedAt = time.Now().UTC()
	t.st.items[it.ID] = *it
	return nil
}

func (t *memTx) SetItemQuantity(ctx context.Context, id string, quantity int) error {
	it, ok := t.st.items[id]
	if !ok {
		return market.ErrNotFound
	}
	it.Quantity = quantity
	it.UpdatedAt = time.Now().UTC()
	t.st.items[id] = it
	return nil
}

func (t *memTx) DeleteItem(ctx context.Context, id string) error {
	if _, ok := t.st.items[id]; !ok {
		return market.ErrNotFound
	}
	for lid, l := range t.st.lines {
		if l.ItemID == id && l.Status == market.StatusPending {
			delete(t.st.lines, lid)
		}
	}
	for rid, r := range t.st.requests {
		if r.ItemID == id {
			r.ItemID = ""
			t.st.requests[rid] = r
		}
	}
	delete(t.st.items, id)
	return nil
}

func (t *memTx) GetLine(ctx context.Context, id string) (*market.Line, error) {
	l, ok := t.st.lines[id]
	if !ok {
		return nil, market.ErrNotFound
	}
	return &l, nil
}

func (t *memTx) LockLine(ctx context.Context, id string) (*market.Line, error) {
	return t.GetLine(ctx, id)
}

func (t *memTx) LockPendingLine(ctx context.Context, userID, itemID string) (*market.Line, error) {
	for _, l := range t.st.lines {
		if l.UserID == userID && l.ItemID == itemID && l.Status == market.StatusPending {
			return &l, nil
		}
	}
	return nil, market.ErrNotFound
}

func (t *memTx) LockPendingLines(ctx context.Context, userID string) ([]market.Line, error) {
	return t.ListLines(ctx, LineFilter{UserID: userID, Status: market.StatusPending})
}

func (t *memTx) ListLines(ctx context.Context, f LineFilter) ([]market.Line, error) {
	out := []market.Line{}
	for _, l := range t.st.lines {
		if f.UserID != "" && l.UserID != f.UserID {
			continue
		}
		if f.ItemID != "" && l.ItemID != f.ItemID {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.IDs != nil && !slices.Contains(f.IDs, l.ID) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *memTx) InsertLine(ctx context.Context, l *market.Line) error {
	if _, ok := t.st.lines[l.ID]; ok {
		return ErrDuplicate
	}
	if l.Status == market.StatusPending {
		if _, err := t.LockPendingLine(ctx, l.UserID, l.ItemID); err == nil {
			return ErrDuplicate
		}
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	t.st.lines[l.ID] = *l
	return nil
}

func (t *memTx) UpdateLine(ctx context.Context, l *market.Line) error {
	if _, ok := t.st.lines[l.ID]; !ok {
		return market.ErrNotFound
	}
	t.st.lines[l.ID] = *l
	return nil
}

func (t *memTx) DeleteLine(ctx context.Context, id string) error {
	if _, ok := t.st.lines[id]; !ok {
		return market.ErrNotFound
	}
	delete(t.st.lines, id)
	return nil
}

func (t *memTx) InsertTransaction(ctx context.Context, tr *market.Transaction) error {
	for _, existing := range t.st.txns {
		if existing.LineID == tr.LineID {
			return ErrDuplicate
		}
	}
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = time.Now().UTC()
	}
	t.st.txns = append(t.st.txns, *tr)
	return nil
}

func (t *memTx) ListTransactions(ctx context.Context, f TransactionFilter) ([]market.Transaction, error) {
	out := []market.Transaction{}
	for i := len(t.st.txns) - 1; i >= 0; i-- {
		tr := t.st.txns[i]
		if f.BuyerID != "" && tr.BuyerID != f.BuyerID {
			continue
		}
		if f.SellerID != "" && tr.SellerID != f.SellerID {
			continue
		}
		out = append(out, tr)
	}
	return out, nil
}

func (t *memTx) GetRequest(ctx context.Context, id string) (*market.ItemRequest, error) {
	r, ok := t.st.requests[id]
	if !ok {
		return nil, market.ErrNotFound
	}
	return &r, nil
}

func (t *memTx) InsertRequest(ctx context.Context, r *market.ItemRequest) error {
	if _, ok := t.st.requests[r.ID]; ok {
		return ErrDuplicate
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	t.st.requests[r.ID] = *r
	return nil
}

func (t *memTx) UpdateRequest(ctx context.Context, r *market.ItemRequest) error {
	if _, ok := t.st.requests[r.ID]; !ok {
		return market.ErrNotFound
	}
	t.st.requests[r.ID] = *r
	return nil
}

func (t *memTx) ListRequests(ctx context.Context, f RequestFilter) ([]market.ItemRequest, error) {
	out := []market.ItemRequest{}
	for _, r := range t.st.requests {
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.ShopID != "" && r.ShopID != f.ShopID {
			continue
		}
		out = append(out, r)
	}
	// newest first
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func checkoutKey(userID, key string) string { return userID + "\x00" + key }

func (t *memTx) GetCheckoutKey(ctx context.Context, userID, key string) ([]string, error) {
	ids, ok := t.st.keys[checkoutKey(userID, key)]
	if !ok {
		return nil, market.ErrNotFound
	}
	return slices.Clone(ids), nil
}

func (t *memTx) PutCheckoutKey(ctx context.Context, userID, key string, lineIDs []string) error {
	k := checkoutKey(userID, key)
	if _, ok := t.st.keys[k]; ok {
		return ErrDuplicate
	}
	t.st.keys[k] = slices.Clone(lineIDs)
	return nil
}

func (t *memTx) EnqueueEvent(ctx context.Context, e *market.Event) error {
	t.st.eventSeq++
	e.ID = t.st.eventSeq
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	t.st.events = append(t.st.events, *e)
	return nil
}
