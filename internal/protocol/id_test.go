package protocol

import (
	"sort"
	"sync"
	"testing"
	"time"
)

func TestOrderIDString(t *testing.T) {
	stamp := time.Date(2024, 3, 5, 14, 30, 15, 123*int(time.Millisecond), time.UTC)
	id := OrderID{Prefix: "GSS", Stamp: stamp}

	if got, want := id.String(), "GSS240305143015123"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	if got, want := id.InboxFilename(), "GSS-240305-143015123-O.xml"; got != want {
		t.Fatalf("InboxFilename() = %q, want %q", got, want)
	}
}

func TestGeneratorBumpsCollidingStamps(t *testing.T) {
	frozen := time.Date(2024, 3, 5, 14, 30, 15, 123*int(time.Millisecond), time.UTC)
	gen := NewIDGenerator(func() time.Time { return frozen })

	first := gen.Generate("OR")
	second := gen.Generate("OR")
	third := gen.Generate("OR")

	if first.String() >= second.String() || second.String() >= third.String() {
		t.Fatalf("ids not strictly increasing: %s, %s, %s", first, second, third)
	}
	if got, want := second.Stamp.Sub(first.Stamp), time.Millisecond; got != want {
		t.Fatalf("collision bump = %v, want %v", got, want)
	}
}

func TestGeneratorConcurrentUniqueness(t *testing.T) {
	gen := NewIDGenerator(nil)

	const n = 64
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = gen.Generate("AMM").String()
		}(i)
	}
	wg.Wait()

	sort.Strings(ids)
	for i := 1; i < n; i++ {
		if ids[i] == ids[i-1] {
			t.Fatalf("duplicate id %q", ids[i])
		}
	}
}
