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

// isPrime reports whether n is prime using trial division by 2, 3 and then
// the candidates of the form 6k±1 up to sqrt(n).
func isPrime(n uintptr) bool {
	switch {
	case n < 2:
		return false
	case n%2 == 0:
		return n == 2
	case n%3 == 0:
		return n == 3
	}
	// The step alternates between 2 and 4: 5, 7, 11, 13, 17, 19, ...
	for i, step := uintptr(5), uintptr(2); i*i <= n; i, step = i+step, 6-step {
		if n%i == 0 {
			return false
		}
	}
	return true
}

// nextPrime returns the smallest prime >= n.
func nextPrime(n uintptr) uintptr {
	for !isPrime(n) {
		n++
	}
	return n
}
