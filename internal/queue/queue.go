// Package queue provides the bounded priority structure used for top-K
// selection.
package queue

// Bounded keeps the best Cap items pushed into it. It is a min-heap under
// less: the root is the worst retained item, so once full a new item replaces
// the root only when it is strictly better.
type Bounded[T any] struct {
	items []T
	limit int
	less  func(a, b T) bool // less(a, b) means a ranks below b
}

// NewBounded returns an empty structure holding at most limit items.
// less must report whether a ranks strictly below b.
func NewBounded[T any](limit int, less func(a, b T) bool) *Bounded[T] {
	if limit < 0 {
		limit = 0
	}
	return &Bounded[T]{
		items: make([]T, 0, min(limit, 1024)),
		limit: limit,
		less:  less,
	}
}

// Len returns the number of retained items.
func (q *Bounded[T]) Len() int { return len(q.items) }

// Push offers item. It reports whether the item was retained. Pushing into a
// full structure never fails: the worst item is evicted if item beats it.
func (q *Bounded[T]) Push(item T) bool {
	if q.limit == 0 {
		return false
	}
	if len(q.items) < q.limit {
		q.items = append(q.items, item)
		q.siftUp(len(q.items) - 1)
		return true
	}
	if !q.less(q.items[0], item) {
		return false
	}
	q.items[0] = item
	q.siftDown(0)
	return true
}

// Pop removes and returns the worst retained item.
func (q *Bounded[T]) Pop() (T, bool) {
	var zero T
	n := len(q.items)
	if n == 0 {
		return zero, false
	}
	root := q.items[0]
	q.items[0] = q.items[n-1]
	q.items[n-1] = zero
	q.items = q.items[:n-1]
	if n > 1 {
		q.siftDown(0)
	}
	return root, true
}

// Drain empties the structure and returns its items best first.
func (q *Bounded[T]) Drain() []T {
	out := make([]T, len(q.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = q.Pop()
	}
	return out
}

// Reset empties the structure, keeping capacity.
func (q *Bounded[T]) Reset() {
	clear(q.items)
	q.items = q.items[:0]
}

func (q *Bounded[T]) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !q.less(q.items[i], q.items[p]) {
			return
		}
		q.items[i], q.items[p] = q.items[p], q.items[i]
		i = p
	}
}

func (q *Bounded[T]) siftDown(i int) {
	n := len(q.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		worst := l
		if r := l + 1; r < n && q.less(q.items[r], q.items[l]) {
			worst = r
		}
		if !q.less(q.items[worst], q.items[i]) {
			return
		}
		q.items[i], q.items[worst] = q.items[worst], q.items[i]
		i = worst
	}
}
