package protocol

import (
	"fmt"
	"sync"
	"time"
)

// OrderID is a generated order identifier. The string form is
// PREFIX + YYMMDD + HHMMSS + milliseconds, which sorts lexically in
// generation order for a given prefix.
type OrderID struct {
	Prefix string
	Stamp  time.Time
}

func (id OrderID) String() string {
	return id.Prefix + stampString(id.Stamp)
}

// InboxFilename returns the Inbox file name for this order,
// {PREFIX}-{YYMMDD}-{HHMMSSfff}-O.xml.
func (id OrderID) InboxFilename() string {
	return fmt.Sprintf("%s-%s-%s%03d-O.xml",
		id.Prefix,
		id.Stamp.Format("060102"),
		id.Stamp.Format("150405"),
		id.Stamp.Nanosecond()/int(time.Millisecond))
}

func stampString(t time.Time) string {
	return fmt.Sprintf("%s%s%03d",
		t.Format("060102"),
		t.Format("150405"),
		t.Nanosecond()/int(time.Millisecond))
}

// IDGenerator produces time-ordered order identifiers. When two calls land
// in the same millisecond the second one is stamped one millisecond later,
// so string ordering always equals call ordering within a process.
type IDGenerator struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewIDGenerator constructs a generator reading the given clock. A nil clock
// means wall-clock time.
func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Generate returns a fresh identifier for the prefix. It cannot fail.
func (g *IDGenerator) Generate(prefix string) OrderID {
	g.mu.Lock()
	defer g.mu.Unlock()

	stamp := g.now().Truncate(time.Millisecond)
	if !stamp.After(g.last) {
		stamp = g.last.Add(time.Millisecond)
	}
	g.last = stamp
	return OrderID{Prefix: prefix, Stamp: stamp}
}
