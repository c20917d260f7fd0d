// Package merger implements the K-way range-merge engine: given several
// lazy streams of sorted, non-overlapping [begin,end] ranges, it produces
// a single lazy stream of maximal, non-overlapping sub-ranges, each
// carrying the set of input payloads whose range covers it.
//
// Ported from whip's merge_ranges (original_source/whip/util.py), which
// builds two edge events per input range and fans them in through
// heapq.merge + itertools.groupby. This port replaces the generator
// pipeline with an explicit pull-based iterator (Next) backed by a
// container/heap min-heap, per a lazy-streams-as-explicit-iterators
// design: memory stays bounded by the number of open inputs regardless of
// how many ranges a snapshot contains.
package merger

import (
	"container/heap"
	"fmt"

	"github.com/wbolster/whipdb/pkg/addrcodec"
	"github.com/wbolster/whipdb/pkg/model"
)

// Reader is one input stream of sorted, non-overlapping ranges. Within a
// single Reader, ranges must be strictly increasing: end_i < begin_{i+1}.
type Reader[T any] interface {
	// Next returns the next range, or ok=false at end of stream.
	Next() (begin, end addrcodec.Address, payload T, ok bool, err error)
}

const (
	eventBegin = 0
	eventEnd   = 1
)

type event[T any] struct {
	pos     addrcodec.Address
	kind    int // eventBegin or eventEnd
	inputID int
	payload T
}

// eventHeap is a container/heap of pending events, ordered by (pos, kind)
// so that a BEGIN at a given position is always popped before an END at
// the same position — this is what prevents a zero-length gap from being
// produced when one range ends exactly where another begins.
type eventHeap[T any] []event[T]

func (h eventHeap[T]) Len() int { return len(h) }
func (h eventHeap[T]) Less(i, j int) bool {
	c := h[i].pos.Compare(h[j].pos)
	if c != 0 {
		return c < 0
	}
	return h[i].kind < h[j].kind
}
func (h eventHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *eventHeap[T]) Push(x any)        { *h = append(*h, x.(event[T])) }
func (h *eventHeap[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// inputCursor drives one Reader, holding back the matching END event for
// a range it has already emitted BEGIN for, and validating the
// within-stream ordering contract.
type inputCursor[T any] struct {
	reader       Reader[T]
	exhausted    bool
	havePrevEnd  bool
	prevEnd      addrcodec.Address
	pendingEnd   bool
	pendingEndAt addrcodec.Address
}

// pull returns the next event for this input, or ok=false once the
// underlying reader and any pending END event are both exhausted.
func (c *inputCursor[T]) pull(inputID int) (ev event[T], ok bool, err error) {
	if c.pendingEnd {
		c.pendingEnd = false
		return event[T]{pos: c.pendingEndAt, kind: eventEnd, inputID: inputID}, true, nil
	}
	if c.exhausted {
		return event[T]{}, false, nil
	}

	begin, end, payload, ok, err := c.reader.Next()
	if err != nil {
		return event[T]{}, false, err
	}
	if !ok {
		c.exhausted = true
		return event[T]{}, false, nil
	}

	if begin.Compare(end) > 0 {
		return event[T]{}, false, fmt.Errorf("%w: range begin %s > end %s", model.ErrMalformedInputStream, begin, end)
	}
	if c.havePrevEnd && begin.Compare(c.prevEnd) <= 0 {
		return event[T]{}, false, fmt.Errorf("%w: range begin %s does not follow previous end %s", model.ErrMalformedInputStream, begin, c.prevEnd)
	}
	c.havePrevEnd = true
	c.prevEnd = end

	c.pendingEnd = true
	c.pendingEndAt = end.Next()

	return event[T]{pos: begin, kind: eventBegin, inputID: inputID, payload: payload}, true, nil
}

// Merger is the running K-way merge over a fixed set of input readers.
type Merger[T any] struct {
	single      bool
	singleInput Reader[T]

	cursors []*inputCursor[T]
	h       eventHeap[T]
	active  map[int]T

	havePosition bool
	position     addrcodec.Address

	started bool
	done    bool
}

// New constructs a Merger over the given input readers. With a single
// input, Next passes ranges through unchanged (the spec's documented
// shortcut); with zero inputs, Next immediately reports end of stream.
func New[T any](readers ...Reader[T]) *Merger[T] {
	if len(readers) == 1 {
		return &Merger[T]{single: true, singleInput: readers[0]}
	}

	cursors := make([]*inputCursor[T], len(readers))
	for i, r := range readers {
		cursors[i] = &inputCursor[T]{reader: r}
	}
	return &Merger[T]{
		cursors: cursors,
		active:  make(map[int]T),
	}
}

// Next produces the next maximal output sub-range, or ok=false once all
// inputs are exhausted. Output ranges are strictly ordered and
// non-overlapping; payloads is exactly the set of input payloads whose
// range contains [begin,end].
func (m *Merger[T]) Next() (begin, end addrcodec.Address, payloads []T, ok bool, err error) {
	if m.single {
		b, e, p, ok, err := m.singleInput.Next()
		if err != nil || !ok {
			return addrcodec.Address{}, addrcodec.Address{}, nil, false, err
		}
		return b, e, []T{p}, true, nil
	}

	if m.done {
		return addrcodec.Address{}, addrcodec.Address{}, nil, false, nil
	}

	if !m.started {
		m.started = true
		for id, c := range m.cursors {
			ev, ok, err := c.pull(id)
			if err != nil {
				return addrcodec.Address{}, addrcodec.Address{}, nil, false, err
			}
			if ok {
				heap.Push(&m.h, ev)
			}
		}
	}

	for m.h.Len() > 0 {
		pos := m.h[0].pos

		var emitBegin, emitEnd addrcodec.Address
		var emitPayloads []T
		shouldEmit := false
		if m.havePosition && len(m.active) > 0 {
			emitBegin = m.position
			emitEnd = pos.Prev()
			emitPayloads = make([]T, 0, len(m.active))
			for _, v := range m.active {
				emitPayloads = append(emitPayloads, v)
			}
			shouldEmit = true
		}

		for m.h.Len() > 0 && m.h[0].pos.Compare(pos) == 0 {
			ev := heap.Pop(&m.h).(event[T])
			switch ev.kind {
			case eventBegin:
				if _, exists := m.active[ev.inputID]; exists {
					return addrcodec.Address{}, addrcodec.Address{}, nil, false,
						fmt.Errorf("%w: duplicate BEGIN for input %d at %s", model.ErrMalformedInputStream, ev.inputID, pos)
				}
				m.active[ev.inputID] = ev.payload
			case eventEnd:
				if _, exists := m.active[ev.inputID]; !exists {
					return addrcodec.Address{}, addrcodec.Address{}, nil, false,
						fmt.Errorf("%w: END without BEGIN for input %d at %s", model.ErrMalformedInputStream, ev.inputID, pos)
				}
				delete(m.active, ev.inputID)
			}

			next, ok, nerr := m.cursors[ev.inputID].pull(ev.inputID)
			if nerr != nil {
				return addrcodec.Address{}, addrcodec.Address{}, nil, false, nerr
			}
			if ok {
				heap.Push(&m.h, next)
			}
		}

		m.position = pos
		m.havePosition = true

		if shouldEmit {
			return emitBegin, emitEnd, emitPayloads, true, nil
		}
	}

	if len(m.active) != 0 {
		return addrcodec.Address{}, addrcodec.Address{}, nil, false,
			fmt.Errorf("%w: input exhausted with %d range(s) still open", model.ErrMalformedInputStream, len(m.active))
	}

	m.done = true
	return addrcodec.Address{}, addrcodec.Address{}, nil, false, nil
}
