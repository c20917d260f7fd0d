package merger

import "github.com/wbolster/whipdb/pkg/addrcodec"

// Range is a single input range, used by SliceReader and by callers that
// already hold their ranges in memory.
type Range[T any] struct {
	Begin, End addrcodec.Address
	Payload    T
}

// SliceReader adapts an in-memory slice of ranges to the Reader
// interface, for tests and for small snapshot sources.
type SliceReader[T any] struct {
	ranges []Range[T]
	pos    int
}

func NewSliceReader[T any](ranges []Range[T]) *SliceReader[T] {
	return &SliceReader[T]{ranges: ranges}
}

func (s *SliceReader[T]) Next() (begin, end addrcodec.Address, payload T, ok bool, err error) {
	if s.pos >= len(s.ranges) {
		var zero T
		return addrcodec.Address{}, addrcodec.Address{}, zero, false, nil
	}
	r := s.ranges[s.pos]
	s.pos++
	return r.Begin, r.End, r.Payload, true, nil
}
