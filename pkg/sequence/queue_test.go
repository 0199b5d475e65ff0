package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityQueue(t *testing.T) {
	t.Run("Min First", func(t *testing.T) {
		pq := NewPriorityQueue[string]()
		pq.Enqueue("c", 3)
		pq.Enqueue("a", 1)
		pq.Enqueue("b", 2)

		var got []string
		for !pq.IsEmpty() {
			v, _ := pq.Dequeue()
			got = append(got, v)
		}
		assert.Equal(t, []string{"a", "b", "c"}, got)
	})

	t.Run("Stable Ties", func(t *testing.T) {
		pq := NewPriorityQueue[int]()
		for i := 0; i < 50; i++ {
			pq.Enqueue(i, i%2)
		}
		prev := map[int]int{0: -1, 1: -1}
		for !pq.IsEmpty() {
			v, ok := pq.Dequeue()
			require.True(t, ok)
			assert.Greater(t, v, prev[v%2])
			prev[v%2] = v
		}
	})

	t.Run("Update And Peek", func(t *testing.T) {
		pq := NewPriorityQueue[string]()
		pq.Enqueue("x", 5)
		item := pq.Enqueue("y", 9)
		pq.Update(item, "y", 1)

		v, ok := pq.Peek()
		require.True(t, ok)
		assert.Equal(t, "y", v)
		assert.Equal(t, 2, pq.Len())

		_, _ = pq.Dequeue()
		pq.Update(item, "gone", 0)
		v, _ = pq.Dequeue()
		assert.Equal(t, "x", v)
	})

	t.Run("Reset", func(t *testing.T) {
		pq := NewPriorityQueue[int]()
		pq.Enqueue(1, 1)
		pq.Reset()
		assert.True(t, pq.IsEmpty())
		_, ok := pq.Dequeue()
		assert.False(t, ok)
	})
}
