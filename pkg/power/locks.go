/*
Copyright 2024 Alexandre Mahdhaoui

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package power

import "sync"

// KeyedMutex serializes operations per guest name. Two concurrent power-off
// requests for the same guest must not interleave signals or race on its
// authoritative state, so callers hold the lock for the whole sequence:
// policy resolution, monitor run and the subsequent hard destroy.
//
// Operations against different guests proceed concurrently.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*guestLock
}

type guestLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*guestLock),
	}
}

// Lock acquires the mutex for the given key and returns its unlock function.
// The unlock must run on every exit path; callers defer it immediately.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &guestLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
