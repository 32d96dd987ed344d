package fifoqueue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestBasic(t *testing.T) {
	t.Run("1", func(t *testing.T) {
		q := New[string]()
		require.EqualValues(t, 0, q.Len())
		require.True(t, q.Write("one"))
		require.EqualValues(t, 1, q.Len())
		require.True(t, q.Write("two"))
		require.EqualValues(t, 2, q.Len())
		e, ok := q.read()
		require.True(t, ok)
		require.EqualValues(t, "one", e)
		require.EqualValues(t, 1, q.Len())
		e, ok = q.read()
		require.True(t, ok)
		require.EqualValues(t, "two", e)
		require.EqualValues(t, 0, q.Len())
	})
	t.Run("close now", func(t *testing.T) {
		q := New[string]()
		q.Write("one")
		q.CloseNow()
		_, ok := q.read()
		require.False(t, ok)
		require.EqualValues(t, 1, q.Len())
		require.False(t, q.Write("two"))
	})
	t.Run("close drains", func(t *testing.T) {
		q := New[string]()
		q.Write("one")
		q.Close()
		require.False(t, q.Write("two"))
		e, ok := q.read()
		require.True(t, ok)
		require.EqualValues(t, "one", e)
		_, ok = q.read()
		require.False(t, ok)
	})
	t.Run("many", func(t *testing.T) {
		q := New[int]()
		for i := 0; i < 10000; i++ {
			q.Write(i)
			require.EqualValues(t, i+1, q.Len())
		}
		for i := 0; i < 10000; i++ {
			ib, ok := q.read()
			require.True(t, ok)
			require.EqualValues(t, i, ib)
		}
		require.EqualValues(t, 0, q.Len())
	})
}

func TestMultiThread1(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		for i := 0; i < 100; i++ {
			q.Write(i)
		}
		q.Close()
	}()
	count := 0
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			ib, ok := q.read()
			if !ok {
				break
			}
			if ib != i {
				t.Errorf("expected %d, got %d", i, ib)
			}
			count++
			time.Sleep(100 * time.Microsecond)
		}
	}()
	wg.Wait()
	require.EqualValues(t, 100, count)
	require.EqualValues(t, 0, q.Len())
}

func TestMultiThread2(t *testing.T) {
	q := New[int]()
	var wg sync.WaitGroup
	go func() {
		for i := 0; i < 100; i++ {
			q.Write(i)
		}
		q.Close()
	}()
	var count atomic.Int32
	const numConsumers = 5
	wg.Add(numConsumers)
	for i := 0; i < numConsumers; i++ {
		go func() {
			q.Consume(func(e int) {
				count.Inc()
				time.Sleep(100 * time.Microsecond)
			})
			wg.Done()
		}()
	}
	wg.Wait()
	require.EqualValues(t, 100, count.Load())
	require.EqualValues(t, 0, q.Len())
}

func TestBlockedReaderIsReleased(t *testing.T) {
	q := New[int]()
	done := make(chan struct{})
	go func() {
		_, ok := q.read()
		require.False(t, ok)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reader was not released")
	}
}

func BenchmarkRW(b *testing.B) {
	q := New[int]()
	for i := 0; i < b.N; i++ {
		q.Write(i)
	}
	for i := 0; i < b.N; i++ {
		_, _ = q.read()
	}
}
