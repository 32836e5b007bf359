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
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntOps(t *testing.T) {
	var ops IntOps[int]
	require.EqualValues(t, 0, ops.Hash(0))
	require.EqualValues(t, 2654435761, ops.Hash(1))
	require.EqualValues(t, uint64(3)*2654435761, ops.Hash(3))
	require.True(t, ops.Equal(5, 5))
	require.False(t, ops.Equal(5, 6))
	require.Equal(t, 5, ops.Copy(5))

	// Negative keys hash their two's complement bit pattern.
	var ops8 IntOps[int8]
	allOnes := ^uint64(0)
	require.Equal(t, allOnes*fibonacciMultiplier, ops8.Hash(-1))
}

func TestStringKeys(t *testing.T) {
	m, err := NewWithOps[string, int](StringOps{}, PlainValueOps[int]{})
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		require.NoError(t, m.Put(fmt.Sprint(i), i))
	}
	for i := 0; i < 100; i += 2 {
		require.NoError(t, m.Delete(fmt.Sprint(i)))
	}
	for i := 0; i < 100; i++ {
		v, ok := m.Get(fmt.Sprint(i))
		require.Equal(t, i%2 == 1, ok, "key %d", i)
		if ok {
			require.Equal(t, i, v)
		}
	}
}

func TestBytesKeys(t *testing.T) {
	m, err := NewWithOps[[]byte, string](BytesOps{}, PlainValueOps[string]{})
	require.NoError(t, err)

	// The map must own a copy of the key: reusing the caller's buffer for the
	// next key cannot disturb entries already in the map.
	buf := make([]byte, 8)
	for i := 0; i < 50; i++ {
		copy(buf, fmt.Sprintf("key-%04d", i))
		require.NoError(t, m.Put(buf, fmt.Sprint(i)))
	}
	require.EqualValues(t, 50, m.Len())

	for i := 0; i < 50; i++ {
		v, ok := m.Get([]byte(fmt.Sprintf("key-%04d", i)))
		require.True(t, ok, "key %d", i)
		require.Equal(t, fmt.Sprint(i), v)
	}

	require.NoError(t, m.Delete([]byte("key-0007")))
	_, ok := m.Get([]byte("key-0007"))
	require.False(t, ok)
	require.ErrorIs(t, m.Delete([]byte("key-0007")), ErrNotFound)
}

func TestComparableKeys(t *testing.T) {
	type point struct {
		x, y int
	}
	m := mustNew[point, string](t)
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			require.NoError(t, m.Put(point{x, y}, fmt.Sprintf("%d,%d", x, y)))
		}
	}
	require.EqualValues(t, 100, m.Len())
	v, ok := m.Get(point{3, 4})
	require.True(t, ok)
	require.Equal(t, "3,4", v)
	_, ok = m.Get(point{10, 10})
	require.False(t, ok)
}

func TestMakeComparableOps(t *testing.T) {
	ops := MakeComparableOps[string]()
	require.Equal(t, ops.Hash("a"), ops.Hash("a"))
	require.True(t, ops.Equal("a", "a"))
	require.False(t, ops.Equal("a", "b"))
	require.Equal(t, "a", ops.Copy("a"))
	ops.Destroy("a")

	// The ops returned by MakeComparableOps are usable with NewWithOps just
	// like the other ready-made bundles.
	m, err := NewWithOps[string, int](ops, PlainValueOps[int]{})
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		require.NoError(t, m.Put(fmt.Sprint(i), i))
	}
	require.EqualValues(t, 20, m.Len())
	v, ok := m.Get("7")
	require.True(t, ok)
	require.Equal(t, 7, v)
	require.NoError(t, m.Delete("7"))
	_, ok = m.Get("7")
	require.False(t, ok)
	require.ErrorIs(t, m.Delete("7"), ErrNotFound)
}

func TestFuncOpsDefaults(t *testing.T) {
	kops := FuncKeyOps[string]{
		HashFn:  StringOps{}.Hash,
		EqualFn: StringOps{}.Equal,
	}
	require.Equal(t, "a", kops.Copy("a"))
	kops.Destroy("a")

	var vops FuncValueOps[[]int]
	v := []int{1, 2}
	require.Equal(t, v, vops.Copy(v))
	vops.Destroy(v)

	// Owned values: the map stores a clone, so mutating the caller's slice
	// after Put does not change the stored value.
	m, err := NewWithOps[string, []int](kops, FuncValueOps[[]int]{
		CopyFn: func(v []int) []int { return append([]int(nil), v...) },
	})
	require.NoError(t, err)
	require.NoError(t, m.Put("a", v))
	v[0] = 100
	got, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, []int{1, 2}, got)
}
