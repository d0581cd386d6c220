package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderIDFormat(t *testing.T) {
	g := &IDGenerator{now: func() time.Time {
		return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	}}
	id := g.Next(42)

	require.Len(t, id, 14+9+3)
	assert.Equal(t, "20250314150926", id[:14])
	assert.Equal(t, "000000042", id[14:23])
}

func TestOrderIDUniqueWithinSecond(t *testing.T) {
	fixed := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	g := &IDGenerator{now: func() time.Time { return fixed }}

	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		id := g.Next(7)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestOrderIDChronologicalSort(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	g := &IDGenerator{now: func() time.Time { return now }}

	early := g.Next(5)
	now = now.Add(time.Second)
	late := g.Next(5)

	assert.Less(t, early, late)
}
