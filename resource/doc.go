// Package resource provides the reference-counted object heap that backs the
// foreign runtime.
//
// Every foreign object lives in a Table slot addressed by a Handle. Handle 0
// is never issued and stands for the null object.
//
// # Reference Counts
//
// Insert creates an object with one owning reference:
//
//	table := resource.NewTable()
//	h := table.Insert(typeID, value)
//	table.IncRef(h)   // 2
//	table.DecRef(h)   // 1
//	table.DecRef(h)   // freed
//
// Pinned objects (singletons such as None) are never freed.
//
// # Receiver Borrows
//
// Native methods borrow their receiver for the duration of a call:
//
//	if err := table.Borrow(h, resource.BorrowExclusive); err != nil {
//	    // resource.ErrAlreadyBorrowed or resource.ErrAlreadyMutablyBorrowed
//	}
//	defer table.Release(h, resource.BorrowExclusive)
//
// Any number of shared borrows may coexist; an exclusive borrow excludes all
// others. A conflicting borrow fails without touching the object. Dropping the
// last owning reference while borrowed defers the free until the last Release.
//
// # Observers
//
// Observers receive EventCreated, EventFreed, EventBorrowed and EventReleased.
package resource
