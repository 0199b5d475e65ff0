package queue

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/hexkernel/internal/core/errs"
)

func TestUnbounded(t *testing.T) {
	t.Run("FIFO", func(t *testing.T) {
		q := New[int]()
		for i := 0; i < 1000; i++ {
			require.NoError(t, q.Send(i))
		}
		require.Equal(t, 1000, q.Len())

		for i := 0; i < 1000; i++ {
			v, ok := q.TryRecv()
			require.True(t, ok)
			require.Equal(t, i, v)
		}
		_, ok := q.TryRecv()
		require.False(t, ok)
	})

	t.Run("Drain", func(t *testing.T) {
		q := New[string]()
		_ = q.Send("a")
		_ = q.Send("b")
		require.Equal(t, []string{"a", "b"}, q.Drain())
		require.Zero(t, q.Len())
	})

	t.Run("Recv Blocks Until Send", func(t *testing.T) {
		q := New[int]()
		got := make(chan int, 1)
		go func() {
			v, err := q.Recv(context.Background())
			if err == nil {
				got <- v
			}
		}()

		time.Sleep(10 * time.Millisecond)
		require.NoError(t, q.Send(42))

		select {
		case v := <-got:
			require.Equal(t, 42, v)
		case <-time.After(time.Second):
			t.Fatal("receiver not woken")
		}
	})

	t.Run("Recv Honours Context", func(t *testing.T) {
		q := New[int]()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := q.Recv(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Close", func(t *testing.T) {
		q := New[int]()
		require.NoError(t, q.Send(1))
		q.Close()
		q.Close()

		require.ErrorIs(t, q.Send(2), errs.ErrChannelClosed)

		v, err := q.Recv(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, v)

		_, err = q.Recv(context.Background())
		require.ErrorIs(t, err, errs.ErrChannelClosed)
		require.True(t, q.Closed())
	})

	t.Run("Many Producers Shared Receivers", func(t *testing.T) {
		q := New[int]()
		const producers, perProducer = 8, 500

		var wg sync.WaitGroup
		for p := 0; p < producers; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perProducer; i++ {
					_ = q.Send(i)
				}
			}()
		}

		var mx sync.Mutex
		received := 0
		var consumers sync.WaitGroup
		for c := 0; c < 4; c++ {
			consumers.Add(1)
			go func() {
				defer consumers.Done()
				for {
					if _, err := q.Recv(context.Background()); err != nil {
						return
					}
					mx.Lock()
					received++
					mx.Unlock()
				}
			}()
		}

		wg.Wait()
		q.Close()
		consumers.Wait()
		require.Equal(t, producers*perProducer, received)
	})
}

func TestServe(t *testing.T) {
	in, out := New[int](), New[string]()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, in, out, func(_ context.Context, v int) string {
			return strings.Repeat("x", v)
		})
	}()

	require.NoError(t, in.Send(3))
	v, err := out.Recv(context.Background())
	require.NoError(t, err)
	require.Equal(t, "xxx", v)

	cancel()
	require.NoError(t, <-done)

	t.Run("Closed Input", func(t *testing.T) {
		in.Close()
		err := Serve(context.Background(), in, out, func(context.Context, int) string { return "" })
		require.ErrorIs(t, err, errs.ErrChannelClosed)
	})

	t.Run("Closed Output", func(t *testing.T) {
		in, out := New[int](), New[int]()
		out.Close()
		require.NoError(t, in.Send(1))
		err := Serve(context.Background(), in, out, func(_ context.Context, v int) int { return v })
		require.ErrorIs(t, err, errs.ErrChannelClosed)
	})
}
