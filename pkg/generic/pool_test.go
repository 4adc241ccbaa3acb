package generic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolResetsOnPut(t *testing.T) {
	p := NewPool(func() map[string]int { return make(map[string]int) }, func(m map[string]int) { clear(m) })

	m := p.Get()
	m["a"] = 1
	p.Put(m)

	for i := 0; i < 4; i++ {
		assert.Empty(t, p.Get())
	}
}

func TestPoolWithoutReset(t *testing.T) {
	p := NewPool(func() *[]int { s := make([]int, 0, 4); return &s }, nil)
	s := p.Get()
	*s = append(*s, 1)
	p.Put(s)
	assert.NotNil(t, p.Get())
}
