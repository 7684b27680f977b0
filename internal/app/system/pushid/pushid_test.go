package pushid

import (
	"sort"
	"testing"
	"time"
)

func TestNext_Length(t *testing.T) {
	g := New()
	id := g.Next()
	if len(id) != 20 {
		t.Fatalf("expected 20-char id, got %d (%q)", len(id), id)
	}
}

func TestNext_MonotonicWithinGenerator(t *testing.T) {
	g := New()
	prev := ""
	for i := 0; i < 10000; i++ {
		id := g.Next()
		if id <= prev {
			t.Fatalf("id %q not greater than previous %q (iteration %d)", id, prev, i)
		}
		prev = id
	}
}

func TestNext_LexicographicMatchesChronological(t *testing.T) {
	g := New()
	base := time.Now().UnixMilli()

	var ids []string
	for i := 0; i < 100; i++ {
		ids = append(ids, g.nextAt(base+int64(i*7)))
	}

	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	for i := range ids {
		if ids[i] != sorted[i] {
			t.Fatalf("generation order diverges from sort order at %d: %q vs %q", i, ids[i], sorted[i])
		}
	}
}

func TestNext_ClockBackwardsStillOrdered(t *testing.T) {
	g := New()
	base := time.Now().UnixMilli()

	a := g.nextAt(base)
	b := g.nextAt(base - 1000) // clock skew
	if b <= a {
		t.Fatalf("id after clock skew %q not greater than %q", b, a)
	}
}

func TestTime_RoundTrip(t *testing.T) {
	g := New()
	base := time.Now().UnixMilli()
	id := g.nextAt(base)

	ts, ok := Time(id)
	if !ok {
		t.Fatalf("Time rejected valid id %q", id)
	}
	if ts.UnixMilli() != base {
		t.Errorf("timestamp: got %d, want %d", ts.UnixMilli(), base)
	}
}

func TestTime_Malformed(t *testing.T) {
	for _, id := range []string{"", "short", "!!!!!!!!!!!!!!!!!!!!", "aaaaaaaaaaaaaaaaaaaaa"} {
		if _, ok := Time(id); ok {
			t.Errorf("Time accepted malformed id %q", id)
		}
	}
}
