package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore(t *testing.T) {
	t.Run("Set and Get", func(t *testing.T) {
		s := New(1)
		assert.Equal(t, 1, s.Get())
		s.Set(5)
		assert.Equal(t, 5, s.Get())
	})

	t.Run("Update returns new value", func(t *testing.T) {
		s := New(10)
		got := s.Update(func(v int) int { return v + 1 })
		assert.Equal(t, 11, got)
		assert.Equal(t, 11, s.Get())
	})

	t.Run("Subscribers are notified until closed", func(t *testing.T) {
		s := New("")
		var seen []string
		sub := s.Subscribe(func(v string) { seen = append(seen, v) })

		s.Set("a")
		s.Update(func(string) string { return "b" })
		sub.Close()
		sub.Close()
		s.Set("c")

		assert.Equal(t, []string{"a", "b"}, seen)
	})

	t.Run("Subscriber may read the store", func(t *testing.T) {
		s := New(0)
		var read int
		s.Subscribe(func(int) { read = s.Get() })
		s.Set(3)
		assert.Equal(t, 3, read)
	})

	t.Run("Concurrent updates are serialized", func(t *testing.T) {
		s := New(0)
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Update(func(v int) int { return v + 1 })
			}()
		}
		wg.Wait()
		assert.Equal(t, 100, s.Get())
	})
}

func TestNilSubscriptionClose(t *testing.T) {
	var sub *Subscription
	assert.NotPanics(t, sub.Close)
}
