package client

// Ring - кольцевой буфер фиксированной ёмкости. Add в полный буфер
// затирает самый старый элемент. Не потокобезопасен: клиент работает
// в одной горутине.
type Ring[T any] struct {
	data  []T
	head  int
	count int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{data: make([]T, capacity)}
}

func (r *Ring[T]) Len() int     { return r.count }
func (r *Ring[T]) Cap() int     { return len(r.data) }
func (r *Ring[T]) IsFull() bool { return r.count == len(r.data) }

func (r *Ring[T]) Add(v T) {
	tail := (r.head + r.count) % len(r.data)
	r.data[tail] = v
	if r.count == len(r.data) {
		r.head = (r.head + 1) % len(r.data)
		return
	}
	r.count++
}

// At - i-й элемент от самого старого. Паникует вне [0, Len).
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.count {
		panic("client: ring index out of range")
	}
	return r.data[(r.head+i)%len(r.data)]
}

// Last - самый новый элемент.
func (r *Ring[T]) Last() T { return r.At(r.count - 1) }

// RemoveFromStart выбрасывает n самых старых элементов.
func (r *Ring[T]) RemoveFromStart(n int) {
	if n >= r.count {
		r.Clear()
		return
	}
	var zero T
	for i := 0; i < n; i++ {
		r.data[r.head] = zero
		r.head = (r.head + 1) % len(r.data)
	}
	r.count -= n
}

func (r *Ring[T]) Clear() {
	clear(r.data)
	r.head, r.count = 0, 0
}
