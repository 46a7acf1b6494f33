package attr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapOperations(t *testing.T) {
	t.Run("set overwrites in place", func(t *testing.T) {
		var m Map
		m.Set("a", Int(1))
		m.Set("b", Int(2))
		m.Set("a", Int(3))

		assert.Equal(t, []string{"a", "b"}, m.Keys())
		v, ok := m.Get("a")
		assert.True(t, ok)
		assert.Equal(t, Int(3), v)
	})

	t.Run("delete removes key and order entry", func(t *testing.T) {
		var m Map
		m.Set("a", Int(1))
		m.Set("b", Int(2))

		assert.True(t, m.Delete("a"))
		assert.False(t, m.Delete("a"))
		assert.Equal(t, []string{"b"}, m.Keys())
	})

	t.Run("merge appends new keys and overwrites existing ones", func(t *testing.T) {
		var m Map
		m.Set("desc", String("old"))
		m.Set("lit", Bool(true))

		var update Map
		update.Set("desc", String("new"))
		update.Set("smell", String("musty"))
		m.Merge(update)

		assert.Equal(t, []string{"desc", "lit", "smell"}, m.Keys())
		desc, _ := m.Get("desc")
		assert.Equal(t, String("new"), desc)
	})

	t.Run("clone is deep", func(t *testing.T) {
		inner := NewMapping()
		inner.Set("hp", Int(1))
		var m Map
		m.Set("stats", inner)

		c := m.Clone()
		inner.Set("hp", Int(99))

		v, _ := c.Get("stats")
		hp, _ := v.(*Mapping).Get("hp")
		assert.Equal(t, Int(1), hp)
	})
}

func TestEqual(t *testing.T) {
	a := NewMapping()
	a.Set("x", Int(1))
	a.Set("y", Int(2))
	b := NewMapping()
	b.Set("y", Int(2))
	b.Set("x", Int(1))

	assert.True(t, Equal(a, a.Clone()))
	assert.False(t, Equal(a, b), "mapping equality is order-sensitive")
	assert.False(t, Equal(Int(1), Float(1)))
	assert.True(t, Equal(Sequence{String("a")}, Sequence{String("a")}))
	assert.False(t, Equal(Sequence{String("a")}, Sequence{}))
}
