// Package headers implements the case-insensitive, insertion-ordered,
// multi-value header storage shared by the HTTP/1.1 and HTTP/2 layers
// (§3, §4.7). It generalizes the teacher's single-value, fixed-array
// http11.Header (github.com/.../http11/header.go) into a proper
// multimap: an open-addressed probe table keyed by a 16-bit FNV-1a
// hash of the lowercased name, with a per-key singly-linked overflow
// chain for repeated header names (e.g. multiple Set-Cookie values).
package headers

import "fmt"

// maxChainLen bounds the number of values a single header name may
// carry before Append panics, mirroring the spec's "len per key
// stored as a small integer (overflow → panic)" — request-side growth
// is already bounded far below this by MAX_HEADERS (see http11).
const maxChainLen = 1<<16 - 1

// fnv1a16 hashes the already-lowercased name to a 16-bit bucket hash.
// Folded from the standard 32-bit FNV-1a offset/prime per §3.
func fnv1a16(name []byte) uint16 {
	const offset32 = 2166136261
	const prime32 = 16777619
	h := uint32(offset32)
	for _, c := range name {
		h ^= uint32(c)
		h *= prime32
	}
	return uint16(h>>16) ^ uint16(h)
}

func toLowerASCII(dst, src []byte) []byte {
	for i, c := range src {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		dst[i] = c
	}
	return dst[:len(src)]
}

func equalFoldBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		c := a[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		d := b[i]
		if d >= 'A' && d <= 'Z' {
			d += 'a' - 'A'
		}
		if c != d {
			return false
		}
	}
	return true
}

// valueNode is one element of a header's value chain.
type valueNode struct {
	value []byte
	next  int32 // -1 terminates the chain
}

// keyEntry is one distinct header name in the probe table.
type keyEntry struct {
	used       bool
	tombstone  bool
	hash       uint16
	name       []byte // lowercased, owned copy
	originalNm []byte // first-seen casing, used when serializing
	head, tail int32  // indices into values, -1 when empty
	count      uint16
	generation uint32 // bumped by Insert to invalidate stale order entries
}

// orderEntry records one Append in global insertion order, used by
// Iter. A generation stamp lets Insert logically delete the prior
// values of a key (by bumping keyEntry.generation) without rewriting
// the order slice.
type orderEntry struct {
	keyIdx     int32
	valueIdx   int32
	generation uint32
}

// Map is the header multimap. The zero value is not usable; use New.
type Map struct {
	table  []int32 // open-addressed slot -> index into keys, or -1
	keys   []keyEntry
	values []valueNode
	order  []orderEntry
	size   int // live keys (used && !tombstone)
}

// New returns an empty Map sized for an expected header count.
func New(expectedHeaders int) *Map {
	cap := nextPow2(expectedHeaders*2 + 8)
	m := &Map{table: make([]int32, cap)}
	for i := range m.table {
		m.table[i] = -1
	}
	return m
}

func nextPow2(n int) int {
	p := 8
	for p < n {
		p <<= 1
	}
	return p
}

// Reset clears the map for reuse across connection requests (§5
// buffer discipline — the map itself isn't a byte buffer, but it is
// reused the same way to avoid per-request allocation).
func (m *Map) Reset() {
	for i := range m.table {
		m.table[i] = -1
	}
	m.keys = m.keys[:0]
	m.values = m.values[:0]
	m.order = m.order[:0]
	m.size = 0
}

func (m *Map) maybeGrow() {
	if m.size*2 < len(m.table) {
		return
	}
	newTable := make([]int32, len(m.table)*2)
	for i := range newTable {
		newTable[i] = -1
	}
	m.table = newTable
	for ki := range m.keys {
		k := &m.keys[ki]
		if !k.used || k.tombstone {
			continue
		}
		m.insertSlot(k.hash, k.name, int32(ki))
	}
}

func (m *Map) insertSlot(hash uint16, name []byte, keyIdx int32) {
	mask := uint32(len(m.table) - 1)
	i := uint32(hash) & mask
	for {
		slot := m.table[i]
		if slot == -1 {
			m.table[i] = keyIdx
			return
		}
		if slot >= 0 && equalFoldBytes(m.keys[slot].name, name) {
			m.table[i] = keyIdx
			return
		}
		i = (i + 1) & mask
	}
}

// findSlot returns the table slot index holding name's key, or -1.
func (m *Map) findSlot(hash uint16, name []byte) int {
	mask := uint32(len(m.table) - 1)
	i := uint32(hash) & mask
	for probes := 0; probes <= len(m.table); probes++ {
		slot := m.table[i]
		if slot == -1 {
			return -1
		}
		if slot >= 0 {
			k := &m.keys[slot]
			if !k.tombstone && equalFoldBytes(k.name, name) {
				return int(i)
			}
		}
		i = (i + 1) & mask
	}
	return -1
}

func (m *Map) lowered(name []byte) []byte {
	buf := make([]byte, len(name))
	return toLowerASCII(buf, name)
}

// Append adds a value under name, preserving any prior values (§4.7).
func (m *Map) Append(name, value []byte) {
	m.maybeGrow()
	lname := m.lowered(name)
	hash := fnv1a16(lname)
	slot := m.findSlot(hash, lname)
	var keyIdx int32
	if slot >= 0 {
		keyIdx = m.table[slot]
	} else {
		keyIdx = m.newKey(hash, lname, name)
		m.insertSlot(hash, lname, keyIdx)
	}
	m.appendValue(keyIdx, value)
}

func (m *Map) newKey(hash uint16, lname, original []byte) int32 {
	m.keys = append(m.keys, keyEntry{
		used:       true,
		hash:       hash,
		name:       lname,
		originalNm: original,
		head:       -1,
		tail:       -1,
	})
	return int32(len(m.keys) - 1)
}

func (m *Map) appendValue(keyIdx int32, value []byte) {
	k := &m.keys[keyIdx]
	if k.count == maxChainLen {
		panic(fmt.Sprintf("headers: value chain overflow for %q", k.originalNm))
	}
	vi := int32(len(m.values))
	m.values = append(m.values, valueNode{value: value, next: -1})
	if k.head == -1 {
		k.head = vi
	} else {
		m.values[k.tail].next = vi
	}
	k.tail = vi
	k.count++
	m.order = append(m.order, orderEntry{keyIdx: keyIdx, valueIdx: vi, generation: k.generation})
	if k.count == 1 {
		m.size++
	}
}

// Insert replaces all prior values of name with value, returning the
// values that were replaced (nil if name was absent).
func (m *Map) Insert(name, value []byte) [][]byte {
	prior := m.GetAll(name)
	lname := m.lowered(name)
	hash := fnv1a16(lname)
	slot := m.findSlot(hash, lname)
	var keyIdx int32
	if slot >= 0 {
		keyIdx = m.table[slot]
		k := &m.keys[keyIdx]
		k.generation++ // invalidate existing order entries
		if k.count > 0 {
			m.size-- // appendValue below counts the name again
		}
		k.head, k.tail, k.count = -1, -1, 0
	} else {
		keyIdx = m.newKey(hash, lname, name)
		m.insertSlot(hash, lname, keyIdx)
	}
	m.appendValue(keyIdx, value)
	return prior
}

// Get returns the first value stored for name, if any.
func (m *Map) Get(name []byte) ([]byte, bool) {
	lname := m.lowered(name)
	slot := m.findSlot(fnv1a16(lname), lname)
	if slot < 0 {
		return nil, false
	}
	k := &m.keys[m.table[slot]]
	if k.head == -1 {
		return nil, false
	}
	return m.values[k.head].value, true
}

// GetAll returns every value stored for name, in insertion order.
func (m *Map) GetAll(name []byte) [][]byte {
	lname := m.lowered(name)
	slot := m.findSlot(fnv1a16(lname), lname)
	if slot < 0 {
		return nil
	}
	k := &m.keys[m.table[slot]]
	out := make([][]byte, 0, k.count)
	for vi := k.head; vi != -1; vi = m.values[vi].next {
		out = append(out, m.values[vi].value)
	}
	return out
}

// Has reports whether name has at least one value.
func (m *Map) Has(name []byte) bool {
	_, ok := m.Get(name)
	return ok
}

// Remove deletes all values of name, returning the first prior value.
func (m *Map) Remove(name []byte) ([]byte, bool) {
	lname := m.lowered(name)
	slot := m.findSlot(fnv1a16(lname), lname)
	if slot < 0 {
		return nil, false
	}
	keyIdx := m.table[slot]
	k := &m.keys[keyIdx]
	if k.head == -1 {
		return nil, false
	}
	first := m.values[k.head].value
	k.tombstone = true
	k.generation++
	k.head, k.tail, k.count = -1, -1, 0
	m.size--
	return first, true
}

// Len returns the number of distinct live header names.
func (m *Map) Len() int {
	return m.size
}

// Field is one (name, value) pair as yielded by Iter, in the casing
// the name was first inserted with.
type Field struct {
	Name  []byte
	Value []byte
}

// Iter returns every (name, value) pair in global insertion order,
// skipping values superseded by a later Insert or a Remove.
func (m *Map) Iter() []Field {
	out := make([]Field, 0, len(m.order))
	for _, oe := range m.order {
		k := &m.keys[oe.keyIdx]
		if k.tombstone || k.generation != oe.generation {
			continue
		}
		out = append(out, Field{Name: k.originalNm, Value: m.values[oe.valueIdx].value})
	}
	return out
}
