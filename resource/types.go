package resource

import "errors"

// Handle is an opaque reference to an object in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

var (
	ErrClosed                 = errors.New("object table closed")
	ErrInvalidHandle          = errors.New("invalid object handle")
	ErrAlreadyBorrowed        = errors.New("Already borrowed")
	ErrAlreadyMutablyBorrowed = errors.New("Already mutably borrowed")
	ErrNotBorrowed            = errors.New("object is not borrowed")
)

// Borrow is the access mode of a receiver borrow.
type Borrow uint8

const (
	// BorrowShared permits any number of concurrent shared borrows.
	BorrowShared Borrow = iota
	// BorrowExclusive permits exactly one borrow and no shared ones.
	BorrowExclusive
)

func (b Borrow) String() string {
	if b == BorrowExclusive {
		return "exclusive"
	}
	return "shared"
}

// Event types for object lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventFreed
	EventBorrowed
	EventReleased
)

// Event represents an object lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID uint32
	Type   EventType
	Borrow Borrow
}

// Observer receives notifications about object lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// Backend provides the underlying storage for reference-counted objects.
type Backend interface {
	// Create stores a value with a reference count of one and returns its handle.
	Create(typeID uint32, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// IncRef adds one owning reference.
	IncRef(handle Handle) bool

	// DecRef drops one owning reference and returns (value, true) when the
	// object was freed by this call.
	DecRef(handle Handle) (any, bool)

	// Close releases all objects held by the backend.
	Close() error
}

// Dropper is optionally implemented by values that need cleanup when freed.
type Dropper interface {
	Drop()
}
