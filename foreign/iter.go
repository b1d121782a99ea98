package foreign

// IterNextOutput is the result of an iterator's next step. It keeps
// "yielded a value" and "exhausted" apart even when the yielded value is nil.
type IterNextOutput struct {
	Value any
	Done  bool
}

// Yield produces v from an iterator.
func Yield(v any) IterNextOutput { return IterNextOutput{Value: v} }

// Return exhausts an iterator; v becomes the StopIteration value.
func Return(v any) IterNextOutput { return IterNextOutput{Value: v, Done: true} }

// IterANextOutput is the result of an async iterator's next step.
type IterANextOutput struct {
	Value any
	Done  bool
}

// AsyncYield produces the awaitable v from an async iterator.
func AsyncYield(v any) IterANextOutput { return IterANextOutput{Value: v} }

// AsyncReturn exhausts an async iterator; v becomes the StopAsyncIteration value.
func AsyncReturn(v any) IterANextOutput { return IterANextOutput{Value: v, Done: true} }
