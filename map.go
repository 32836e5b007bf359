// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// package linprobe is a Go implementation of a small open-addressing hash
// map using linear probing. See
// https://en.wikipedia.org/wiki/Linear_probing.
//
// # Layout
//
// A Map is a single slice of slots whose length (the capacity) is always a
// prime number. Each slot is either empty or holds one entry: a key, its
// value and the precomputed hash of the key. There are no tombstones and no
// per-slot metadata beyond a full bit.
//
// The home slot of a key is hash(key) % capacity. Probing starts at the home
// slot and advances one slot at a time, wrapping at the end of the slice,
// until it finds either an equal key or an empty slot. Every operation relies
// on the following invariant:
//
//	For every full slot i, walking forward from the home slot of the key
//	in slot i reaches i before reaching any empty slot.
//
// Equal keys are only compared when the stored hash matches the probe hash,
// so a mismatched slot costs a single integer comparison.
//
// # Growth
//
// Before an insertion, if more than floor(2*capacity/3) slots are in use, the
// map grows to the smallest prime >= 2*capacity. Every entry is re-placed by
// probing from its home slot in the new slice; the stored hash is reused, the
// key is not rehashed. The growth trigger keeps at least one slot empty at all
// times, which is what guarantees that every probe terminates. Starting from
// the default capacity of 7 the sequence is 7, 17, 37, 79, 163, ...
//
// # Deletion
//
// Clearing a slot can break the invariant for entries further along the same
// run of full slots: their probe sequences would now stop at the new hole.
// After clearing slot i, Delete walks forward from i+1 over the run of full
// slots. Each entry in the run is lifted out of its slot and placed again by
// probing from its home slot, which moves it into the hole if the hole lies on
// its probe sequence and otherwise puts it back where it was. The walk stops at
// the first empty slot: entries past it never probed through slot i.
//
// # Ownership
//
// The map owns the keys and values stored in it. In the generalized form the
// caller supplies a KeyOps and a ValueOps (see ops.go) and the map copies keys
// and values on the way in and destroys them exactly once on the way out:
// when a value is overwritten, when an entry is deleted or cleared, and when
// the map is closed.
package linprobe

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

const (
	debug = false

	// defaultCapacity is the number of slots in a new Map.
	defaultCapacity = 7
)

var (
	// ErrAllocationFailed is returned when the Map's Allocator fails to
	// provide a slots slice. The Map is left unchanged.
	ErrAllocationFailed = errors.New("linprobe: allocation failed")
	// ErrNotFound is returned by Delete when the key is not present.
	ErrNotFound = errors.New("linprobe: key not found")
)

// Slot holds a key, its value and hash(key).
type Slot[K, V any] struct {
	key   K
	value V
	hash  uint64
	full  bool
}

// Map is an unordered map from keys to values with Put, Get, Delete, and All
// operations, implemented as an open-addressing hash table with linear
// probing. Keys need not be comparable: all hashing, equality, copying and
// destruction of keys and values goes through the Map's KeyOps and ValueOps.
//
// A Map is NOT goroutine-safe.
type Map[K, V any] struct {
	keyOps   KeyOps[K]
	valueOps ValueOps[V]
	// The hash function for keys. Defaults to keyOps.Hash but can be
	// replaced with the WithHash option.
	hash func(key K) uint64
	// The allocator to use for the slots slice.
	allocator Allocator[K, V]
	// slots is capacity in length. A nil slots means the Map has been
	// closed (or was never initialized).
	slots []Slot[K, V]
	// The total number of slots. Always prime.
	capacity uintptr
	// The number of full slots (i.e. the number of elements in the map).
	used int
}

// New constructs a new Map for comparable keys. Keys are hashed with the
// same hash function Go's builtin map[K]V uses, compared with ==, and
// neither keys nor values need releasing.
//
// The only possible error is ErrAllocationFailed from a custom Allocator.
func New[K comparable, V any](options ...option[K, V]) (*Map[K, V], error) {
	return NewWithOps[K, V](MakeComparableOps[K](), PlainValueOps[V]{}, options...)
}

// NewInt constructs a new Map specialized for integer keys, which are hashed
// with Fibonacci hashing (see IntOps).
func NewInt[K constraints.Integer, V any](options ...option[K, V]) (*Map[K, V], error) {
	return NewWithOps[K, V](IntOps[K]{}, PlainValueOps[V]{}, options...)
}

// NewWithOps constructs a new Map whose key and value behavior is supplied by
// keyOps and valueOps. The Map starts with a capacity of 7 unless the
// WithInitialCapacity option is given.
func NewWithOps[K, V any](
	keyOps KeyOps[K], valueOps ValueOps[V], options ...option[K, V],
) (*Map[K, V], error) {
	m := &Map[K, V]{
		keyOps:    keyOps,
		valueOps:  valueOps,
		hash:      keyOps.Hash,
		allocator: defaultAllocator[K, V]{},
		capacity:  defaultCapacity,
	}

	for _, op := range options {
		op.apply(m)
	}

	slots, err := m.alloc(m.capacity)
	if err != nil {
		return nil, err
	}
	m.slots = slots

	m.checkInvariants()
	return m, nil
}

// Close closes the map, destroying every key and value through the Map's ops
// and releasing the slots back to its configured allocator. It is invalid to
// use a Map after it has been closed, though Close itself is idempotent. Len
// and Capacity report zero on a closed Map. Put, Get, Delete, All and Clear
// panic.
func (m *Map[K, V]) Close() {
	if m.slots == nil {
		return
	}
	m.destroyAll()
	m.allocator.Free(m.slots)

	m.slots = nil
	m.capacity = 0
	m.used = 0
	m.allocator = nil
}

// Put inserts an entry into the map, overwriting the value of an existing
// entry with an equal key. The map stores valueOps.Copy(value) and, for a new
// entry, keyOps.Copy(key). The superseded value of an existing entry is
// destroyed.
//
// Put returns an error only if the map needed to grow and its Allocator
// failed, in which case the map is unchanged.
func (m *Map[K, V]) Put(key K, value V) error {
	m.checkOpen()

	if m.used > m.maxUsed() {
		if err := m.resize(nextPrime(2 * m.capacity)); err != nil {
			if debug {
				fmt.Printf("put(%v): grow failed: %v\n", key, err)
			}
			return err
		}
	}

	h := m.hash(key)
	i, found := m.find(h, key)
	s := &m.slots[i]
	if found {
		if debug {
			fmt.Printf("put(updating): index=%d key=%v\n", i, key)
		}
		old := s.value
		s.value = m.valueOps.Copy(value)
		m.valueOps.Destroy(old)
		m.checkInvariants()
		return nil
	}

	// find stopped at the first empty slot on the probe sequence, which is
	// where the new entry belongs.
	*s = Slot[K, V]{
		key:   m.keyOps.Copy(key),
		value: m.valueOps.Copy(value),
		hash:  h,
		full:  true,
	}
	m.used++
	if debug {
		fmt.Printf("put(inserting): index=%d key=%v used=%d\n", i, key, m.used)
	}
	m.checkInvariants()
	return nil
}

// Get retrieves the value from the map for the specified key, return ok=false
// if the key is not present.
func (m *Map[K, V]) Get(key K) (value V, ok bool) {
	m.checkOpen()

	i, found := m.find(m.hash(key), key)
	if !found {
		return value, false
	}
	return m.slots[i].value, true
}

// Delete deletes the entry corresponding to the specified key from the map,
// destroying its key and value. It returns ErrNotFound, and does nothing else,
// if the key is not present.
func (m *Map[K, V]) Delete(key K) error {
	m.checkOpen()

	i, found := m.find(m.hash(key), key)
	if !found {
		if debug {
			fmt.Printf("delete(%v): not found\n", key)
		}
		return ErrNotFound
	}

	s := m.slots[i]
	m.slots[i] = Slot[K, V]{}
	m.used--
	m.keyOps.Destroy(s.key)
	m.valueOps.Destroy(s.value)
	if debug {
		fmt.Printf("delete(%v): index=%d used=%d\n", key, i, m.used)
	}

	m.rectify(i)
	m.checkInvariants()
	return nil
}

// All calls yield sequentially for each key and value present in the map. If
// yield returns false, range stops the iteration. The order is unspecified.
// The map can be mutated during iteration, though there is no guarantee that
// the mutations will be visible to the iteration. A Delete during iteration
// never causes an entry to be yielded twice, but entries moved by the deletion
// may be skipped. If entries are both added and deleted during iteration, an
// entry may be yielded more than once.
func (m *Map[K, V]) All(yield func(key K, value V) bool) {
	m.checkOpen()

	// Snapshot the slots so that iteration remains valid if the map is
	// resized during iteration.
	slots := m.slots
	n := uintptr(len(slots))

	// Start the walk just past an empty slot (there is always one) so that no
	// run of full slots straddles the start of the walk. Deleting only moves
	// entries backward within their run, so an entry that has already been
	// yielded can never move ahead of the cursor.
	start := uintptr(0)
	for slots[start].full {
		start++
	}
	for j := uintptr(1); j <= n; j++ {
		s := &slots[(start+j)%n]
		if !s.full {
			continue
		}
		if !yield(s.key, s.value) {
			return
		}
	}
}

// Clear deletes all entries from the map, destroying their keys and values.
// The capacity is retained.
func (m *Map[K, V]) Clear() {
	m.checkOpen()

	m.destroyAll()
	clear(m.slots)
	m.used = 0
	m.checkInvariants()
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	return m.used
}

// Capacity returns the number of slots in the map.
func (m *Map[K, V]) Capacity() int {
	return int(m.capacity)
}

func (m *Map[K, V]) checkOpen() {
	if m.slots == nil {
		panic("linprobe: use of closed or uninitialized Map")
	}
}

// maxUsed is the largest number of entries the map holds before the next
// insertion grows it.
func (m *Map[K, V]) maxUsed() int {
	return int(2 * m.capacity / 3)
}

// home returns the first slot on the probe sequence for hash h.
func (m *Map[K, V]) home(h uint64) uintptr {
	return uintptr(h % uint64(m.capacity))
}

// next returns the slot following i, wrapping at the end of the slots.
func (m *Map[K, V]) next(i uintptr) uintptr {
	i++
	if i == m.capacity {
		return 0
	}
	return i
}

// find probes for key from its home slot. It returns the index of the slot
// holding an equal key and true, or the index of the first empty slot on the
// probe sequence and false.
func (m *Map[K, V]) find(h uint64, key K) (uintptr, bool) {
	for i := m.home(h); ; i = m.next(i) {
		s := &m.slots[i]
		if !s.full {
			return i, false
		}
		if s.hash == h && m.keyOps.Equal(key, s.key) {
			return i, true
		}
	}
}

// findEmpty returns the first empty slot on the probe sequence for hash h.
// Used when placing an entry known not to be in the table.
func (m *Map[K, V]) findEmpty(h uint64) uintptr {
	i := m.home(h)
	for m.slots[i].full {
		i = m.next(i)
	}
	return i
}

// rectify restores the probe invariant after slot i has been emptied by
// re-placing every entry in the run of full slots that follows it.
func (m *Map[K, V]) rectify(i uintptr) {
	for j := m.next(i); m.slots[j].full; j = m.next(j) {
		s := m.slots[j]
		m.slots[j] = Slot[K, V]{}
		k := m.findEmpty(s.hash)
		m.slots[k] = s
		if debug && k != j {
			fmt.Printf("rectify: %v %d -> %d\n", s.key, j, k)
		}
	}
}

// resize allocates a slots slice of newCapacity and places each entry of the
// table into it (we know that no placement here will find an already-present
// key), then releases the old slots. On allocation failure the map is left
// untouched.
func (m *Map[K, V]) resize(newCapacity uintptr) error {
	newSlots, err := m.alloc(newCapacity)
	if err != nil {
		return err
	}

	oldSlots := m.slots
	oldCapacity := m.capacity
	m.slots = newSlots
	m.capacity = newCapacity

	if debug {
		fmt.Printf("resize: capacity=%d->%d used=%d\n", oldCapacity, newCapacity, m.used)
	}

	for i := range oldSlots {
		s := &oldSlots[i]
		if !s.full {
			continue
		}
		m.slots[m.findEmpty(s.hash)] = *s
	}

	m.allocator.Free(oldSlots)
	m.checkInvariants()
	return nil
}

// alloc obtains an empty slots slice of the given capacity from the
// allocator.
func (m *Map[K, V]) alloc(capacity uintptr) ([]Slot[K, V], error) {
	slots, err := m.allocator.Alloc(int(capacity))
	if err != nil {
		return nil, fmt.Errorf("%w: %d slots: %w", ErrAllocationFailed, capacity, err)
	}
	clear(slots)
	return slots, nil
}

// destroyAll destroys every key and value in the map without clearing the
// slots.
func (m *Map[K, V]) destroyAll() {
	for i := range m.slots {
		s := &m.slots[i]
		if !s.full {
			continue
		}
		m.keyOps.Destroy(s.key)
		m.valueOps.Destroy(s.value)
	}
}

func (m *Map[K, V]) checkInvariants() {
	if invariants {
		if uintptr(len(m.slots)) != m.capacity {
			panic(fmt.Sprintf("invariant failed: %d slots, but capacity is %d\n%s",
				len(m.slots), m.capacity, m.debugString()))
		}
		if !isPrime(m.capacity) {
			panic(fmt.Sprintf("invariant failed: capacity %d is not prime", m.capacity))
		}

		// For every full slot, verify that probing from its home slot reaches
		// it without crossing an empty slot and that find returns it. Count
		// the number of full slots.
		var used int
		for i := uintptr(0); i < m.capacity; i++ {
			s := &m.slots[i]
			if !s.full {
				continue
			}
			used++
			if h := m.hash(s.key); h != s.hash {
				panic(fmt.Sprintf("invariant failed: slot(%d): %v stored hash %016x != %016x\n%s",
					i, s.key, s.hash, h, m.debugString()))
			}
			for j := m.home(s.hash); j != i; j = m.next(j) {
				if !m.slots[j].full {
					panic(fmt.Sprintf("invariant failed: slot(%d): %v unreachable, empty slot %d [home=%d]\n%s",
						i, s.key, j, m.home(s.hash), m.debugString()))
				}
			}
			if j, ok := m.find(s.hash, s.key); !ok || j != i {
				panic(fmt.Sprintf("invariant failed: slot(%d): %v found at %d (ok=%t)\n%s",
					i, s.key, j, ok, m.debugString()))
			}
		}

		if used != m.used {
			panic(fmt.Sprintf("invariant failed: found %d used slots, but used count is %d\n%s",
				used, m.used, m.debugString()))
		}
		if m.used >= int(m.capacity) {
			panic(fmt.Sprintf("invariant failed: no empty slot: used=%d capacity=%d", m.used, m.capacity))
		}
	}
}

func (m *Map[K, V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  used=%d  max-used=%d\n", m.capacity, m.used, m.maxUsed())
	for i := uintptr(0); i < uintptr(len(m.slots)); i++ {
		s := &m.slots[i]
		if !s.full {
			fmt.Fprintf(&buf, "  %4d: empty\n", i)
			continue
		}
		fmt.Fprintf(&buf, "  %4d: %v [hash=%016x home=%d]\n", i, s.key, s.hash, m.home(s.hash))
	}
	return buf.String()
}
