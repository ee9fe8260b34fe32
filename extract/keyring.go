package extract

import (
	"strings"
	"sync/atomic"
)

// KeyRing hands out credentials round-robin. It is safe for concurrent use.
type KeyRing struct {
	keys []string
	next atomic.Uint64
}

// NewKeyRing keeps the non-blank keys in order.
func NewKeyRing(keys []string) *KeyRing {
	r := &KeyRing{}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			r.keys = append(r.keys, k)
		}
	}
	return r
}

func (r *KeyRing) Len() int { return len(r.keys) }

// Next returns the next credential and its position in the ring. ok is false
// when the ring is empty.
func (r *KeyRing) Next() (key string, index int, ok bool) {
	if len(r.keys) == 0 {
		return "", 0, false
	}
	n := r.next.Add(1) - 1
	index = int(n % uint64(len(r.keys)))
	return r.keys[index], index, true
}
