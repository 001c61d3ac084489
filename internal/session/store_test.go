package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStoreGetOrCreateIsStable(t *testing.T) {
	store := NewStore(time.Hour, time.Hour)
	a := store.GetOrCreate("s1")
	b := store.GetOrCreate("s1")
	assert.Same(t, a, b)
	assert.Equal(t, StatusNone, a.Snapshot().Status)
}

func TestStoreEvictsAfterTTL(t *testing.T) {
	store := NewStore(30*time.Millisecond, 10*time.Millisecond)
	a := store.GetOrCreate("s1")
	a.accept("doc.pdf")

	time.Sleep(100 * time.Millisecond)

	// evicted: the identifier comes back as a fresh session in state none
	b := store.GetOrCreate("s1")
	assert.NotSame(t, a, b)
	assert.Equal(t, StatusNone, b.Snapshot().Status)
}

func TestStoreAccessRefreshesTTL(t *testing.T) {
	store := NewStore(60*time.Millisecond, 10*time.Millisecond)
	a := store.GetOrCreate("s1")
	for i := 0; i < 4; i++ {
		time.Sleep(30 * time.Millisecond)
		assert.Same(t, a, store.GetOrCreate("s1"))
	}
}
