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

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
	"github.com/dolthub/maphash"
	"golang.org/x/exp/constraints"
)

// KeyOps supplies the type-specific behavior a Map needs for its keys. A Map
// never inspects a key except through its KeyOps.
//
// Equal(a, b) must imply Hash(a) == Hash(b). Copy returns a key the Map can
// own independently of the caller's; Destroy is called exactly once for every
// key returned by Copy, when its entry is removed, cleared or the Map is
// closed.
type KeyOps[K any] interface {
	Hash(key K) uint64
	Equal(a, b K) bool
	Copy(key K) K
	Destroy(key K)
}

// ValueOps supplies ownership behavior for values. Destroy is called exactly
// once for every value returned by Copy: when it is overwritten by Put, when
// its entry is deleted or cleared, or when the Map is closed.
type ValueOps[V any] interface {
	Copy(value V) V
	Destroy(value V)
}

// fibonacciMultiplier is the prime closest to 2^32 divided by the golden ratio.
const fibonacciMultiplier = 2654435761

// IntOps is the KeyOps for integer keys: multiplicative (Fibonacci) hashing,
// direct equality, identity copy and no-op destroy.
type IntOps[K constraints.Integer] struct{}

func (IntOps[K]) Hash(key K) uint64 { return uint64(key) * fibonacciMultiplier }
func (IntOps[K]) Equal(a, b K) bool { return a == b }
func (IntOps[K]) Copy(key K) K      { return key }
func (IntOps[K]) Destroy(key K)     {}

// comparableOps is the default KeyOps for comparable keys. It hashes with the
// same function Go's builtin map[K] uses for K.
type comparableOps[K comparable] struct {
	hasher maphash.Hasher[K]
}

// MakeComparableOps returns the KeyOps New uses for comparable keys: the
// builtin map's hash function with a fresh seed, ==, identity copy and no-op
// destroy. Every call returns ops with a different seed.
func MakeComparableOps[K comparable]() KeyOps[K] {
	return comparableOps[K]{hasher: maphash.NewHasher[K]()}
}

func (o comparableOps[K]) Hash(key K) uint64 { return o.hasher.Hash(key) }
func (comparableOps[K]) Equal(a, b K) bool   { return a == b }
func (comparableOps[K]) Copy(key K) K        { return key }
func (comparableOps[K]) Destroy(key K)       {}

// StringOps is a KeyOps for string keys using xxhash. Strings are immutable so
// copy is the identity.
type StringOps struct{}

func (StringOps) Hash(key string) uint64 { return xxhash.Sum64String(key) }
func (StringOps) Equal(a, b string) bool { return a == b }
func (StringOps) Copy(key string) string { return key }
func (StringOps) Destroy(key string)     {}

// BytesOps is a KeyOps for []byte keys using xxhash. Copy clones the key so
// the Map's copy is unaffected by later writes to the caller's buffer.
type BytesOps struct{}

func (BytesOps) Hash(key []byte) uint64 { return xxhash.Sum64(key) }
func (BytesOps) Equal(a, b []byte) bool { return bytes.Equal(a, b) }
func (BytesOps) Copy(key []byte) []byte { return bytes.Clone(key) }
func (BytesOps) Destroy(key []byte)     {}

// PlainValueOps is the default ValueOps: values are adopted as-is and nothing
// needs releasing.
type PlainValueOps[V any] struct{}

func (PlainValueOps[V]) Copy(value V) V  { return value }
func (PlainValueOps[V]) Destroy(value V) {}

// FuncKeyOps builds a KeyOps out of plain functions. HashFn and EqualFn are
// required. A nil CopyFn is the identity and a nil DestroyFn does nothing.
type FuncKeyOps[K any] struct {
	HashFn    func(key K) uint64
	EqualFn   func(a, b K) bool
	CopyFn    func(key K) K
	DestroyFn func(key K)
}

func (o FuncKeyOps[K]) Hash(key K) uint64 { return o.HashFn(key) }
func (o FuncKeyOps[K]) Equal(a, b K) bool { return o.EqualFn(a, b) }

func (o FuncKeyOps[K]) Copy(key K) K {
	if o.CopyFn == nil {
		return key
	}
	return o.CopyFn(key)
}

func (o FuncKeyOps[K]) Destroy(key K) {
	if o.DestroyFn != nil {
		o.DestroyFn(key)
	}
}

// FuncValueOps builds a ValueOps out of plain functions, either of which may
// be nil.
type FuncValueOps[V any] struct {
	CopyFn    func(value V) V
	DestroyFn func(value V)
}

func (o FuncValueOps[V]) Copy(value V) V {
	if o.CopyFn == nil {
		return value
	}
	return o.CopyFn(value)
}

func (o FuncValueOps[V]) Destroy(value V) {
	if o.DestroyFn != nil {
		o.DestroyFn(value)
	}
}
