package resource

import (
	"sync"
)

// LocalBackend is an in-memory object store with reference counts and
// receiver borrow tracking.
type LocalBackend struct {
	entries  []entry
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value       any
	typeID      uint32
	refs        uint32
	shared      uint32
	exclusive   bool
	immortal    bool
	pendingFree bool
	valid       bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Create stores a value with one owning reference and returns its handle.
func (b *LocalBackend) Create(typeID uint32, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	e := entry{
		typeID: typeID,
		value:  value,
		refs:   1,
		valid:  true,
	}

	if len(b.freeList) > 0 {
		handle := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = e
		return handle, nil
	}

	b.entries = append(b.entries, e)
	return Handle(len(b.entries)), nil
}

// lookup returns the live entry for handle. Caller holds b.mu.
func (b *LocalBackend) lookup(handle Handle) *entry {
	if handle == 0 {
		return nil
	}
	idx := handle - 1
	if int(idx) >= len(b.entries) {
		return nil
	}
	e := &b.entries[idx]
	if !e.valid {
		return nil
	}
	return e
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return nil, false
	}
	return e.value, true
}

// TypeID returns the type ID for a handle.
func (b *LocalBackend) TypeID(handle Handle) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return 0, false
	}
	return e.typeID, true
}

// Pin makes the object immortal: its count still moves, but it is never freed.
func (b *LocalBackend) Pin(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return false
	}
	e.immortal = true
	return true
}

// IncRef adds one owning reference.
func (b *LocalBackend) IncRef(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return false
	}
	e.refs++
	return true
}

// RefCount returns the number of owning references.
func (b *LocalBackend) RefCount(handle Handle) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return 0, false
	}
	return e.refs, true
}

// DecRef drops one owning reference. The object is freed when the count
// reaches zero; with outstanding borrows the free is deferred to the last
// Release.
func (b *LocalBackend) DecRef(handle Handle) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil || e.refs == 0 {
		return nil, false
	}
	e.refs--
	if e.refs > 0 || e.immortal {
		return nil, false
	}
	if e.shared > 0 || e.exclusive {
		e.pendingFree = true
		return nil, false
	}
	return b.free(handle, e), true
}

// free invalidates e. Caller holds b.mu.
func (b *LocalBackend) free(handle Handle, e *entry) any {
	value := e.value
	*e = entry{}
	b.freeList = append(b.freeList, handle)
	return value
}

// Borrow takes a receiver borrow. Conflicting borrows fail without changing
// the entry.
func (b *LocalBackend) Borrow(handle Handle, mode Borrow) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return ErrInvalidHandle
	}
	if e.exclusive {
		return ErrAlreadyMutablyBorrowed
	}
	if mode == BorrowExclusive {
		if e.shared > 0 {
			return ErrAlreadyBorrowed
		}
		e.exclusive = true
		return nil
	}
	e.shared++
	return nil
}

// Release returns a borrow taken with Borrow and returns (value, true) when a
// deferred free happened.
func (b *LocalBackend) Release(handle Handle, mode Borrow) (any, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil {
		return nil, false, ErrInvalidHandle
	}
	switch mode {
	case BorrowExclusive:
		if !e.exclusive {
			return nil, false, ErrNotBorrowed
		}
		e.exclusive = false
	default:
		if e.shared == 0 {
			return nil, false, ErrNotBorrowed
		}
		e.shared--
	}
	if e.pendingFree && e.shared == 0 && !e.exclusive {
		return b.free(handle, e), true, nil
	}
	return nil, false, nil
}

// Borrowed reports the current borrow state of a handle.
func (b *LocalBackend) Borrowed(handle Handle) (shared uint32, exclusive bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil {
		return 0, false
	}
	return e.shared, e.exclusive
}

// Close releases all objects. Droppers run after the backend is emptied, so
// they may call back into it.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true

	var values []any
	for _, e := range b.entries {
		if e.valid {
			values = append(values, e.value)
		}
	}
	b.entries = nil
	b.freeList = nil
	b.mu.Unlock()

	for _, v := range values {
		if d, ok := v.(Dropper); ok {
			d.Drop()
		}
	}
	return nil
}

// Len returns the number of live objects.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Each iterates over all live objects.
func (b *LocalBackend) Each(fn func(Handle, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(Handle(i+1), e.typeID, e.value) {
				break
			}
		}
	}
}
