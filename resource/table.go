package resource

import (
	"sync"
)

// Table is the object heap used by the foreign runtime. It wraps a
// LocalBackend and publishes lifecycle events to observers.
type Table struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value with one owning reference and returns its handle.
func (t *Table) Insert(typeID uint32, value any) Handle {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0
	}
	t.closeMu.RUnlock()

	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return handle
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// TypeID returns the type ID recorded for a handle.
func (t *Table) TypeID(handle Handle) (uint32, bool) {
	return t.backend.TypeID(handle)
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *Table) GetTyped(handle Handle, typeID uint32) (any, bool) {
	actualTypeID, ok := t.backend.TypeID(handle)
	if !ok || actualTypeID != typeID {
		return nil, false
	}
	return t.backend.Get(handle)
}

// IncRef adds one owning reference.
func (t *Table) IncRef(handle Handle) bool {
	return t.backend.IncRef(handle)
}

// DecRef drops one owning reference, freeing the object at zero.
func (t *Table) DecRef(handle Handle) {
	typeID, _ := t.backend.TypeID(handle)
	value, freed := t.backend.DecRef(handle)
	if freed {
		t.freed(handle, typeID, value)
	}
}

// RefCount returns the number of owning references.
func (t *Table) RefCount(handle Handle) uint32 {
	n, _ := t.backend.RefCount(handle)
	return n
}

// Pin marks an object immortal.
func (t *Table) Pin(handle Handle) bool {
	return t.backend.Pin(handle)
}

// Borrow takes a receiver borrow of the given mode.
func (t *Table) Borrow(handle Handle, mode Borrow) error {
	if err := t.backend.Borrow(handle, mode); err != nil {
		return err
	}
	typeID, _ := t.backend.TypeID(handle)
	t.notify(Event{
		Type:   EventBorrowed,
		Handle: handle,
		TypeID: typeID,
		Borrow: mode,
	})
	return nil
}

// Release returns a borrow taken with Borrow.
func (t *Table) Release(handle Handle, mode Borrow) error {
	typeID, _ := t.backend.TypeID(handle)
	value, freed, err := t.backend.Release(handle, mode)
	if err != nil {
		return err
	}
	t.notify(Event{
		Type:   EventReleased,
		Handle: handle,
		TypeID: typeID,
		Borrow: mode,
	})
	if freed {
		t.freed(handle, typeID, value)
	}
	return nil
}

// Borrowed reports the borrow state of a handle.
func (t *Table) Borrowed(handle Handle) (shared uint32, exclusive bool) {
	return t.backend.Borrowed(handle)
}

func (t *Table) freed(handle Handle, typeID uint32, value any) {
	if d, ok := value.(Dropper); ok {
		d.Drop()
	}
	t.notify(Event{
		Type:   EventFreed,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live objects.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Each iterates over live objects.
func (t *Table) Each(fn func(Handle, uint32, any) bool) {
	t.backend.Each(fn)
}

// Close releases all objects and stops accepting inserts.
func (t *Table) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	return t.backend.Close()
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
