// Package slots holds the closed catalog of protocol method names and the
// classifier that maps a native method declaration onto it.
//
// A name either owns a whole slot (SlotDef), fills part of a slot shared with
// other names (FragmentDef), or is an ordinary method. The tables are fixed
// and versioned by CatalogVersion; nothing registers into them at run time.
//
//	cls, err := slots.Classify(&slots.Method{Class: "Counter", Name: "__iadd__"})
//	// cls.Category == slots.CategorySlot
//	// cls.Slot.Return == slots.ReturnReceiver
package slots
