package ec2dns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryCreateReturnsSameCounter(t *testing.T) {
	r := NewRegistry()
	a := r.Create("x")
	b := r.Create("x")
	a.Increment()
	require.Equal(t, uint64(1), b.Value())
}

func TestRegistryGetAllIsSortedSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Create("b_counter").IncrementBy(2)
	r.Create("a_counter").Increment()

	all := r.GetAll()
	require.Len(t, all, 2)
	require.Equal(t, "a_counter", all[0].Name)
	require.Equal(t, uint64(1), all[0].Value)
	require.Equal(t, "b_counter", all[1].Name)
	require.Equal(t, uint64(2), all[1].Value)
}

func TestCounterIncrementIsAtomic(t *testing.T) {
	c := &Counter{}
	done := make(chan struct{})
	for i := 0; i < 100; i++ {
		go func() {
			c.Increment()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 100; i++ {
		<-done
	}
	require.Equal(t, uint64(100), c.Value())
}
