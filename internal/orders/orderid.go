package orders

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Order ids sort chronologically: a second-resolution timestamp, the owning
// user's zero-padded id, and a per-process sequence. The sequence exists because
// timestamp+user alone collides when one user commits twice within a second.
type IDGenerator struct {
	seq atomic.Uint64
	now func() time.Time
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

func (g *IDGenerator) Next(userID int64) string {
	now := g.now
	if now == nil {
		now = time.Now
	}
	seq := g.seq.Add(1) % 1000
	return fmt.Sprintf("%s%09d%03d", now().UTC().Format("20060102150405"), userID, seq)
}
