package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/marketplace/internal/market"
	"github.com/MikeMC777/marketplace/internal/store"
)

type fakePublisher struct {
	mu   sync.Mutex
	got  []market.Event
	fail error
}

func (f *fakePublisher) Publish(ctx context.Context, events []market.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.got = append(f.got, events...)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func enqueue(t *testing.T, st store.Store, keys ...string) {
	t.Helper()
	require.NoError(t, st.Atomic(context.Background(), func(ctx context.Context, tx store.Tx) error {
		for _, k := range keys {
			if err := tx.EnqueueEvent(ctx, &market.Event{EventID: "ev-" + k, Topic: "market.transactions", Key: k, Payload: []byte(`{}`)}); err != nil {
				return err
			}
		}
		return nil
	}))
}

func TestFlushPublishesAndMarksSent(t *testing.T) {
	st := store.NewMemory()
	enqueue(t, st, "a", "b", "c")
	pub := &fakePublisher{}
	counts := map[string]int{}
	r := NewRelay(st, pub, WithBatch(2), WithObserver(func(res string, n int) { counts[res] += n }))

	n, err := r.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = r.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = r.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	require.Len(t, pub.got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{pub.got[0].Key, pub.got[1].Key, pub.got[2].Key})
	assert.Equal(t, 3, counts["sent"])
}

func TestFlushKeepsEventsWhenPublishFails(t *testing.T) {
	st := store.NewMemory()
	enqueue(t, st, "a")
	pub := &fakePublisher{fail: errors.New("broker down")}
	r := NewRelay(st, pub)

	_, err := r.Flush(context.Background())
	require.Error(t, err)

	pending, err := st.FetchPending(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	pub.fail = nil
	n, err := r.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunDrainsUntilCancelled(t *testing.T) {
	st := store.NewMemory()
	enqueue(t, st, "a", "b", "c", "d", "e")
	pub := &fakePublisher{}
	r := NewRelay(st, pub, WithBatch(2), WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return pub.count() == 5 }, time.Second, 5*time.Millisecond)
	enqueue(t, st, "f")
	require.Eventually(t, func() bool { return pub.count() == 6 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestLogPublisher(t *testing.T) {
	assert.NoError(t, LogPublisher{}.Publish(context.Background(), []market.Event{{Topic: "t", Key: "k", Payload: []byte(`{}`)}}))
}
