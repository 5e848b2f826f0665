// Package random implements the CRN randomness subsystem: keyed streams and
// the simulant index map that aligns draws across counterfactual runs, per
// spec §4.7.
package random

import (
	"fmt"
	"math"
	"strings"
)

const tenDigitModulus = 10_000_000_000

// primes are the bases used by the key-tuple polynomial hash, taken
// verbatim from the normalization this subsystem is grounded on (the last
// entry, 27, is not prime — it is kept anyway for fidelity to the
// reference algorithm, whose periodicity guarantee does not actually
// require primality).
var primes = [10]int64{2, 3, 5, 7, 11, 13, 17, 19, 23, 27}

// KeyValue is one column's contribution to a simulant's CRN key tuple.
type KeyValue struct {
	kind byte // 'i', 'f', or 't'
	i    int64
	f    float64
}

func IntKey(v int64) KeyValue   { return KeyValue{kind: 'i', i: v} }
func FloatKey(v float64) KeyValue { return KeyValue{kind: 'f', f: v} }
func TimeKey(unixSeconds int64) KeyValue { return KeyValue{kind: 't', i: unixSeconds} }

// KeyTuple identifies one simulant for CRN purposes: the values of its
// configured key columns, in declared order.
type KeyTuple []KeyValue

func (k KeyTuple) canonical() string {
	var b strings.Builder
	for _, v := range k {
		fmt.Fprintf(&b, "%c:%d:%g|", v.kind, v.i, v.f)
	}
	return b.String()
}

func (v KeyValue) normalize() int64 {
	switch v.kind {
	case 'i':
		return spreadInt(v.i)
	case 'f':
		return shiftFloat(v.f)
	case 't':
		return v.i % tenDigitModulus
	}
	return 0
}

func spreadInt(n int64) int64 {
	if n < 0 {
		n = -n
	}
	return (n * 111_111) % tenDigitModulus
}

func shiftFloat(f float64) int64 {
	frac := f - math.Floor(f)
	return int64(frac * float64(tenDigitModulus))
}

func digit(m int64, n int) int64 {
	d := int64(1)
	for i := 0; i < n; i++ {
		d *= 10
	}
	return (m / d) % 10
}

// IndexMap is a bijection from key-tuple values to positions in
// [0, size), guaranteeing two simulants with identical key tuples in two
// different runs sample the same position.
type IndexMap struct {
	size     int
	useCRN   bool
	posOf    map[string]int
	taken    map[int]bool
}

// NewIndexMap constructs an IndexMap of the given size. If useCRN is false,
// Register does nothing and Lookup always reports not found, so streams fall
// back to the row's own position (no alignment).
func NewIndexMap(size int, useCRN bool) *IndexMap {
	return &IndexMap{size: size, useCRN: useCRN, posOf: make(map[string]int), taken: make(map[int]bool)}
}

// Size returns the configured pool size.
func (m *IndexMap) Size() int { return m.size }

// Register assigns a pool position to every key not already registered,
// resolving collisions by re-hashing with an incremented salt until
// uniqueness within the registered set is achieved.
func (m *IndexMap) Register(keys []KeyTuple) error {
	if !m.useCRN {
		return nil
	}
	pending := make([]KeyTuple, 0, len(keys))
	for _, k := range keys {
		if _, ok := m.posOf[k.canonical()]; !ok {
			pending = append(pending, k)
		}
	}
	salt := 0
	for len(pending) > 0 {
		var collisions []KeyTuple
		for _, k := range pending {
			ck := k.canonical()
			if _, ok := m.posOf[ck]; ok {
				continue
			}
			pos := hashKey(k, salt, m.size)
			if m.taken[pos] {
				collisions = append(collisions, k)
				continue
			}
			m.posOf[ck] = pos
			m.taken[pos] = true
		}
		pending = collisions
		salt++
	}
	return nil
}

// Lookup returns the registered position for k. If CRN is disabled, ok is
// always false and callers should fall back to positional alignment.
func (m *IndexMap) Lookup(k KeyTuple) (int, bool) {
	if !m.useCRN {
		return 0, false
	}
	pos, ok := m.posOf[k.canonical()]
	return pos, ok
}

func hashKey(k KeyTuple, salt int, size int) int {
	saltDigit := uint64(spreadInt(int64(salt)))
	var sum uint64
	for _, col := range k {
		colDigit := col.normalize()
		var out uint64 = 1
		for idx := 0; idx < 10; idx++ {
			d := digit(colDigit, idx)
			out *= ipow(uint64(primes[idx]), uint64(d))
		}
		sum += out + saltDigit
	}
	if size <= 0 {
		size = 1
	}
	return int(sum % uint64(size))
}

func ipow(base, exp uint64) uint64 {
	result := uint64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}
