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

package linprobe_test

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/linprobe"
)

func Example() {
	m, err := linprobe.NewInt[int, int]()
	if err != nil {
		panic(err)
	}
	defer m.Close()

	for i := 0; i < 100; i++ {
		if err := m.Put(i, 99-i); err != nil {
			panic(err)
		}
	}
	for i := 25; i < 75; i++ {
		if err := m.Delete(i); err != nil {
			panic(err)
		}
	}

	for _, k := range []int{0, 24, 25, 74, 75, 99} {
		if v, ok := m.Get(k); ok {
			fmt.Printf("%d:%d\n", k, v)
		} else {
			fmt.Printf("%d:absent\n", k)
		}
	}
	fmt.Println(m.Len())

	if err := m.Delete(25); errors.Is(err, linprobe.ErrNotFound) {
		fmt.Println(err)
	}
	// Output:
	// 0:99
	// 24:75
	// 25:absent
	// 74:absent
	// 75:24
	// 99:0
	// 50
	// linprobe: key not found
}

func ExampleNewWithOps() {
	// Keys are byte slices, which are not comparable, so the map is built
	// from explicit ops. BytesOps copies each key into the map.
	released := 0
	m, err := linprobe.NewWithOps[[]byte, string](linprobe.BytesOps{}, linprobe.FuncValueOps[string]{
		DestroyFn: func(string) { released++ },
	})
	if err != nil {
		panic(err)
	}

	_ = m.Put([]byte("alpha"), "a")
	_ = m.Put([]byte("beta"), "b")
	_ = m.Put([]byte("alpha"), "A")

	v, _ := m.Get([]byte("alpha"))
	fmt.Println(v, m.Len(), released)

	m.Close()
	fmt.Println(released)
	// Output:
	// A 2 1
	// 3
}
