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

package linprobe

// option provide an interface to do work on Map while it is being created.
type option[K, V any] interface {
	apply(m *Map[K, V])
}

type hashOption[K, V any] struct {
	hash func(key K) uint64
}

func (op hashOption[K, V]) apply(m *Map[K, V]) {
	m.hash = op.hash
}

// WithHash is an option to replace the hash function of the Map's KeyOps. The
// KeyOps' Equal, Copy and Destroy remain in effect.
func WithHash[K, V any](hash func(key K) uint64) option[K, V] {
	return hashOption[K, V]{hash}
}

type initialCapacityOption[K, V any] struct {
	capacity int
}

func (op initialCapacityOption[K, V]) apply(m *Map[K, V]) {
	if op.capacity > defaultCapacity {
		m.capacity = nextPrime(uintptr(op.capacity))
	}
}

// WithInitialCapacity is an option to start the Map with at least the
// specified number of slots. The capacity is rounded up to a prime and is
// never less than the default of 7.
func WithInitialCapacity[K, V any](capacity int) option[K, V] {
	return initialCapacityOption[K, V]{capacity}
}

// Allocator specifies an interface for allocating and releasing the slots
// used by a Map. The default allocator utilizes Go's builtin make() and allows
// the GC to reclaim memory.
//
// An allocator that manages memory manually must be paired with a call to
// Map.Close in order to ensure Free is called for the final slots.
type Allocator[K, V any] interface {
	// Alloc should return a slice equivalent to make([]Slot[K,V], n), or an
	// error if the memory cannot be obtained. The Map is left unchanged when
	// Alloc fails.
	Alloc(n int) ([]Slot[K, V], error)

	// Free can optionally release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by Alloc.
	Free(v []Slot[K, V])
}

type defaultAllocator[K, V any] struct{}

func (defaultAllocator[K, V]) Alloc(n int) ([]Slot[K, V], error) {
	return make([]Slot[K, V], n), nil
}

func (defaultAllocator[K, V]) Free(v []Slot[K, V]) {
}

type allocatorOption[K, V any] struct {
	allocator Allocator[K, V]
}

func (op allocatorOption[K, V]) apply(m *Map[K, V]) {
	m.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for a Map[K,V].
func WithAllocator[K, V any](allocator Allocator[K, V]) option[K, V] {
	return allocatorOption[K, V]{allocator}
}
