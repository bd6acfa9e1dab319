package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Keyer derives cache keys for enumeration results.
type Keyer struct {
	prefix string
}

// NewKeyer creates a Keyer. The prefix namespaces keys so different
// deployments can share a backend.
func NewKeyer(prefix string) *Keyer {
	if prefix == "" {
		prefix = "subcell"
	}
	return &Keyer{prefix: prefix}
}

// EnumKey derives the cache key of an enumeration run from everything that
// determines its outcome: the site table actually used (post-reordering)
// and the composition.
func (k *Keyer) EnumKey(table [][]int, composition []int) string {
	h := sha256.New()
	buf := make([]byte, 8)
	put := func(v int) {
		binary.LittleEndian.PutUint64(buf, uint64(v))
		h.Write(buf)
	}
	put(len(table))
	for _, row := range table {
		put(len(row))
		for _, v := range row {
			put(v)
		}
	}
	put(len(composition))
	for _, v := range composition {
		put(v)
	}
	return fmt.Sprintf("%s:enum:%s", k.prefix, hex.EncodeToString(h.Sum(nil)))
}
