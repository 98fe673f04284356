package tiles

import (
	"iter"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"go-tiles/grid"
)

// Snapshot is an immutable view of the store. Readers may hold on to a
// snapshot while the store moves on; it is never mutated after publishing.
type Snapshot struct {
	m map[Key]State
}

// Get returns the state of k, None when unset
func (s Snapshot) Get(k Key) State {
	return s.m[k]
}

// Len returns the number of selected tiles
func (s Snapshot) Len() int {
	return len(s.m)
}

// All yields every selected tile in no particular order
func (s Snapshot) All() iter.Seq2[Key, State] {
	return func(yield func(Key, State) bool) {
		for k, v := range s.m {
			if !yield(k, v) {
				return
			}
		}
	}
}

// At returns the selected tiles at pos, ordered by pitch
func (s Snapshot) At(pos grid.Position) []Key {
	var keys []Key
	for k := range s.m {
		if k.Pos == pos {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b Key) int { return a.Note.MIDI() - b.Note.MIDI() })
	return keys
}

// Classes returns the set of pitch classes that have at least one tile
func (s Snapshot) Classes() map[PitchClass]bool {
	out := make(map[PitchClass]bool)
	for k := range s.m {
		out[k.Note.Class] = true
	}
	return out
}

// Sorted returns the selected keys ordered by their wire form
func (s Snapshot) Sorted() []Key {
	keys := slices.Collect(maps.Keys(s.m))
	slices.SortFunc(keys, func(a, b Key) int {
		as, bs := a.String(), b.String()
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
		return 0
	})
	return keys
}

// ChangeFunc observes a store mutation
type ChangeFunc func(old, new Snapshot)

// Store maps tile keys to states. Every mutation copies the map and
// publishes the copy, so a snapshot taken by the playback tick is never
// modified underneath it.
type Store struct {
	cur atomic.Pointer[map[Key]State]

	mu        sync.Mutex // serializes writers and guards observers
	observers map[int]ChangeFunc
	nextID    int
}

// NewStore creates an empty store
func NewStore() *Store {
	s := &Store{observers: make(map[int]ChangeFunc)}
	empty := make(map[Key]State)
	s.cur.Store(&empty)
	return s
}

// Snapshot returns the current published state
func (s *Store) Snapshot() Snapshot {
	return Snapshot{m: *s.cur.Load()}
}

// Get returns the state of k, None when unset
func (s *Store) Get(k Key) State {
	return s.Snapshot().Get(k)
}

// Set replaces the entry for k. Setting None removes the tile.
func (s *Store) Set(k Key, state State) {
	s.mutate(func(m map[Key]State) {
		put(m, k, state)
	})
}

// SetMany applies several entries with a single notification
func (s *Store) SetMany(entries map[Key]State) {
	if len(entries) == 0 {
		return
	}
	s.mutate(func(m map[Key]State) {
		for k, v := range entries {
			put(m, k, v)
		}
	})
}

// Replace swaps in a whole new tile set, e.g. from a share link
func (s *Store) Replace(entries map[Key]State) {
	s.mutate(func(m map[Key]State) {
		clear(m)
		for k, v := range entries {
			put(m, k, v)
		}
	})
}

// Clear removes every tile
func (s *Store) Clear() {
	s.mutate(func(m map[Key]State) { clear(m) })
}

// Subscribe registers fn for every mutation. The returned func removes it.
func (s *Store) Subscribe(fn ChangeFunc) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Store) mutate(apply func(map[Key]State)) {
	s.mu.Lock()
	old := *s.cur.Load()
	next := maps.Clone(old)
	if next == nil {
		next = make(map[Key]State)
	}
	apply(next)
	s.cur.Store(&next)
	observers := slices.Collect(maps.Values(s.observers))
	s.mu.Unlock()

	// observers run outside the lock so they may read or write the store
	for _, fn := range observers {
		fn(Snapshot{m: old}, Snapshot{m: next})
	}
}

func put(m map[Key]State, k Key, state State) {
	if state == None {
		delete(m, k)
		return
	}
	m[k] = state
}
