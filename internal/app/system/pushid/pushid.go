// Package pushid generates client-side keys for append-only logs.
//
// A push-ID is a 20-character string: 8 characters encode the creation
// time in milliseconds, 12 characters are random. Lexicographic order
// of the keys therefore matches chronological order, and IDs generated
// in the same millisecond by one generator remain ordered because the
// random tail is incremented rather than regenerated.
package pushid

import (
	"crypto/rand"
	"sync"
	"time"
)

// alphabet is ordered by ASCII value so that byte-wise comparison of
// encoded strings matches numeric comparison of the underlying values.
const alphabet = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

// Generator produces push-IDs. The zero value is ready to use.
// Safe for concurrent use.
type Generator struct {
	mu       sync.Mutex
	lastMs   int64
	lastRand [12]byte // digit indexes into alphabet, not raw bytes
}

// New returns a fresh Generator.
func New() *Generator {
	return &Generator{}
}

// Next returns a new push-ID strictly greater than any earlier ID from
// this generator.
func (g *Generator) Next() string {
	return g.nextAt(time.Now().UnixMilli())
}

func (g *Generator) nextAt(ms int64) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if ms < g.lastMs {
		// Clock went backwards; reuse the last timestamp so ordering
		// within this generator still holds.
		ms = g.lastMs
	}

	if ms == g.lastMs {
		// Same millisecond: increment the random tail.
		for i := len(g.lastRand) - 1; i >= 0; i-- {
			if g.lastRand[i] < 63 {
				g.lastRand[i]++
				break
			}
			g.lastRand[i] = 0
		}
	} else {
		g.lastMs = ms
		var raw [12]byte
		_, _ = rand.Read(raw[:])
		for i, b := range raw {
			g.lastRand[i] = b & 63
		}
	}

	var buf [20]byte
	for i := 7; i >= 0; i-- {
		buf[i] = alphabet[ms&63]
		ms >>= 6
	}
	for i, d := range g.lastRand {
		buf[8+i] = alphabet[d]
	}
	return string(buf[:])
}

// Time extracts the creation time encoded in a push-ID. The second
// return value is false when id is not a well-formed push-ID.
func Time(id string) (time.Time, bool) {
	if len(id) != 20 {
		return time.Time{}, false
	}
	var ms int64
	for i := 0; i < 8; i++ {
		idx := indexOf(id[i])
		if idx < 0 {
			return time.Time{}, false
		}
		ms = ms<<6 | int64(idx)
	}
	return time.UnixMilli(ms), true
}

func indexOf(c byte) int {
	switch {
	case c == '-':
		return 0
	case c >= '0' && c <= '9':
		return int(c-'0') + 1
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 11
	case c == '_':
		return 37
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 38
	}
	return -1
}
