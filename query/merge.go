package query

import (
	"container/heap"
	"iter"
)

// cursor pulls from one document-ordered stream.
type cursor struct {
	next func() (Match, error, bool)
	stop func()
	cur  Match
}

func pull(seq iter.Seq2[Match, error]) *cursor {
	next, stop := iter.Pull2(seq)
	return &cursor{next: next, stop: stop}
}

// advance loads the next match. It reports false at the end of the stream.
func (c *cursor) advance() (bool, error) {
	m, err, ok := c.next()
	if !ok {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	c.cur = m
	return true, nil
}

type cursorHeap []*cursor

func (h cursorHeap) Len() int           { return len(h) }
func (h cursorHeap) Less(i, j int) bool { return h[i].cur.DocumentID < h[j].cur.DocumentID }
func (h cursorHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *cursorHeap) Push(x any)        { *h = append(*h, x.(*cursor)) }
func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return c
}

// union merges document-ordered streams, emitting each document once with
// the sum of its scores.
func union(seqs ...iter.Seq2[Match, error]) iter.Seq2[Match, error] {
	if len(seqs) == 1 {
		return seqs[0]
	}
	return func(yield func(Match, error) bool) {
		h := make(cursorHeap, 0, len(seqs))
		defer func() {
			for _, c := range h {
				c.stop()
			}
		}()
		for _, s := range seqs {
			c := pull(s)
			ok, err := c.advance()
			if err != nil {
				c.stop()
				yield(Match{}, err)
				return
			}
			if !ok {
				c.stop()
				continue
			}
			h = append(h, c)
		}
		heap.Init(&h)

		for len(h) > 0 {
			out := Match{DocumentID: h[0].cur.DocumentID}
			for len(h) > 0 && h[0].cur.DocumentID == out.DocumentID {
				c := h[0]
				out.Score += c.cur.Score
				ok, err := c.advance()
				if err != nil {
					yield(Match{}, err)
					return
				}
				if ok {
					heap.Fix(&h, 0)
				} else {
					c.stop()
					heap.Pop(&h)
				}
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}

// intersect emits documents present in every stream, summing their scores.
// onMatch, when set, receives the per-stream matches of a common document and
// may veto it.
func intersect(onMatch func(doc uint64, parts []Match) (bool, error), seqs ...iter.Seq2[Match, error]) iter.Seq2[Match, error] {
	return func(yield func(Match, error) bool) {
		cs := make([]*cursor, len(seqs))
		for i, s := range seqs {
			cs[i] = pull(s)
		}
		defer func() {
			for _, c := range cs {
				c.stop()
			}
		}()
		parts := make([]Match, len(cs))

		for _, c := range cs {
			ok, err := c.advance()
			if err != nil {
				yield(Match{}, err)
				return
			}
			if !ok {
				return
			}
		}

		for {
			target := cs[0].cur.DocumentID
			for _, c := range cs[1:] {
				target = max(target, c.cur.DocumentID)
			}
			aligned := true
			for _, c := range cs {
				for c.cur.DocumentID < target {
					ok, err := c.advance()
					if err != nil {
						yield(Match{}, err)
						return
					}
					if !ok {
						return
					}
				}
				if c.cur.DocumentID != target {
					aligned = false
				}
			}
			if !aligned {
				continue
			}

			out := Match{DocumentID: target}
			for i, c := range cs {
				parts[i] = c.cur
				out.Score += c.cur.Score
			}
			keep := true
			if onMatch != nil {
				var err error
				if keep, err = onMatch(target, parts); err != nil {
					yield(Match{}, err)
					return
				}
			}
			if keep && !yield(out, nil) {
				return
			}
			for _, c := range cs {
				ok, err := c.advance()
				if err != nil {
					yield(Match{}, err)
					return
				}
				if !ok {
					return
				}
			}
		}
	}
}
