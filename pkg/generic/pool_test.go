package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool(t *testing.T) {
	p := NewHotPool(func() []int { return make([]int, 0, 8) }, nil, 2)
	s := p.Get()
	assert.Equal(t, 8, cap(s))

	resets := 0
	m := NewPool(func() map[int]bool { return map[int]bool{} }, func(v map[int]bool) {
		resets++
		clear(v)
	})
	v := m.Get()
	v[1] = true
	m.Put(v)
	assert.Equal(t, 1, resets)
	assert.Empty(t, v)
}
