package actorsystem

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestMailbox_DeliversInOrder(t *testing.T) {
	mb := NewMailbox[int]("test", 8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []int
	go mb.Run(ctx, func(n int) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	})

	for i := 0; i < 5; i++ {
		require.True(t, mb.Send(i))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 5
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestMailbox_FullMailboxDropsWithoutBlocking(t *testing.T) {
	mb := NewMailbox[int]("test", 1, nil)
	require.True(t, mb.Send(1))
	assert.False(t, mb.Send(2))
}

func TestSupervisor_RestartsOnError(t *testing.T) {
	var calls int32
	task := func(ctx context.Context) error {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			return errors.New("boom")
		}
		<-ctx.Done()
		return ctx.Err()
	}

	sup := NewSupervisor("t", task, rate.Limit(1000), 10, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	sup.Run(ctx)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
}

func TestSupervisor_RestartsAfterPanic(t *testing.T) {
	var calls int32
	task := func(ctx context.Context) error {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			panic("boom")
		}
		<-ctx.Done()
		return ctx.Err()
	}

	sup := NewSupervisor("t", task, rate.Limit(1000), 10, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	sup.Run(ctx)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestSupervisor_StopsOnContextCancel(t *testing.T) {
	task := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	sup := NewSupervisor("t", task, rate.Limit(1000), 10, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop after cancel")
	}
}
