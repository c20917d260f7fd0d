package loader

import (
	"context"

	"github.com/wbolster/whipdb/pkg/addrcodec"
	"github.com/wbolster/whipdb/pkg/merger"
	"github.com/wbolster/whipdb/pkg/model"
	"github.com/wbolster/whipdb/pkg/util/workers"
)

// bufferedDrainSize bounds how many decoded ranges a drained snapshot
// reader can queue up ahead of the merge step consuming it.
const bufferedDrainSize = 256

type bufferedItem struct {
	begin, end addrcodec.Address
	infoset    model.Infoset
	err        error
}

// bufferedReader drains an inner reader on a pool worker, letting
// several snapshot readers decode concurrently while Next presents the
// same lazy, pull-based interface to the single-threaded merge step.
type bufferedReader struct {
	ch chan bufferedItem
}

// newBufferedReader submits a task to pool that pulls every item from
// inner into a buffered channel, then returns a reader over that
// channel.
func newBufferedReader(pool *workers.Pool, inner merger.Reader[model.Infoset], taskIndex int) *bufferedReader {
	ch := make(chan bufferedItem, bufferedDrainSize)
	pool.Submit(taskIndex, func(ctx context.Context) error {
		defer close(ch)
		for {
			begin, end, infoset, ok, err := inner.Next()
			if err != nil {
				select {
				case ch <- bufferedItem{err: err}:
				case <-ctx.Done():
				}
				return err
			}
			if !ok {
				return nil
			}
			select {
			case ch <- bufferedItem{begin: begin, end: end, infoset: infoset}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
	return &bufferedReader{ch: ch}
}

func (r *bufferedReader) Next() (begin, end addrcodec.Address, infoset model.Infoset, ok bool, err error) {
	item, open := <-r.ch
	if !open {
		return addrcodec.Address{}, addrcodec.Address{}, nil, false, nil
	}
	if item.err != nil {
		return addrcodec.Address{}, addrcodec.Address{}, nil, false, item.err
	}
	return item.begin, item.end, item.infoset, true, nil
}
