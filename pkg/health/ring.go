package health

// ring is a fixed-capacity FIFO buffer; pushing onto a full ring evicts the
// oldest entry. It is not safe for concurrent use.
type ring[T any] struct {
	buf  []T
	next int
	size int
}

func newRing[T any](capacity int) ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

func (r *ring[T]) len() int { return r.size }

// last returns up to k of the most recent entries, oldest first.
func (r *ring[T]) last(k int) []T {
	if k > r.size {
		k = r.size
	}
	out := make([]T, k)
	start := r.next - k
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < k; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

func (r *ring[T]) values() []T { return r.last(r.size) }

func (r *ring[T]) reset() {
	clear(r.buf)
	r.next = 0
	r.size = 0
}
