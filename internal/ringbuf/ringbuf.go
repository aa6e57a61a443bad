package ringbuf

// Buffer is a fixed-capacity FIFO. Pushing onto a full buffer overwrites the
// oldest element. Buffer is not safe for concurrent use.
type Buffer[T any] struct {
	items []T
	head  int
	size  int
}

// New creates a buffer holding at most capacity elements
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push appends v and reports whether an element was evicted to make room
func (b *Buffer[T]) Push(v T) (evicted bool) {
	tail := (b.head + b.size) % len(b.items)
	b.items[tail] = v
	if b.size == len(b.items) {
		b.head = (b.head + 1) % len(b.items)
		return true
	}
	b.size++
	return false
}

// Items returns a copy of the contents, oldest first
func (b *Buffer[T]) Items() []T {
	out := make([]T, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.items[(b.head+i)%len(b.items)]
	}
	return out
}

// Last returns the most recently pushed element
func (b *Buffer[T]) Last() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	return b.items[(b.head+b.size-1)%len(b.items)], true
}

func (b *Buffer[T]) Len() int { return b.size }

func (b *Buffer[T]) Cap() int { return len(b.items) }

// Reset drops every element
func (b *Buffer[T]) Reset() {
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.head = 0
	b.size = 0
}
