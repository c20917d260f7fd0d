// Package loader drives the range-merge engine over one or more
// snapshot readers plus the database's own existing records, writing
// the merged result back to the backing store.
//
// Grounded on the teacher's pkg/iporgdb/range.go (IterateRanges,
// checkOverlap's "rewrite vs. reuse" reasoning) and pkg/iporgdb/db.go
// (Put, WriteBatch, CompactDB), generalized from iporg's single-input
// "bulk build" flow to whip's N-snapshot merge-on-load.
package loader

import (
	"context"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb/iterator"

	"github.com/wbolster/whipdb/pkg/addrcodec"
	"github.com/wbolster/whipdb/pkg/history"
	"github.com/wbolster/whipdb/pkg/kv"
	"github.com/wbolster/whipdb/pkg/merger"
	"github.com/wbolster/whipdb/pkg/model"
	"github.com/wbolster/whipdb/pkg/recordcodec"
	"github.com/wbolster/whipdb/pkg/util/workers"
)

// batchFlushSize bounds how many pending writes accumulate before a
// WriteBatch call, trading memory for fewer round trips to the backing
// store.
const batchFlushSize = 1000

// CacheInvalidator is the subset of pkg/lookupcache.Cache the loader
// needs: the ability to drop every cached lookup result once a load has
// changed the keyspace.
type CacheInvalidator interface {
	Purge()
}

// Stats summarizes one completed Load call, passed to the progress
// callback and returned to the caller.
type Stats struct {
	RangesWritten int
	RangesReused  int
}

// Loader applies one or more snapshot streams to a backing store.
type Loader struct {
	store *kv.Store
}

// New builds a Loader writing into store.
func New(store *kv.Store) *Loader {
	return &Loader{store: store}
}

// mergeItem is the common payload type fed to the merger: each input
// range is either a freshly read infoset or a record already present in
// the backing store.
type mergeItem struct {
	infoset  *model.Infoset
	existing *existingRecord
}

type existingRecord struct {
	begin addrcodec.Address
	end   addrcodec.Address
	env   recordcodec.Envelope
	raw   []byte // owns env's borrowed slices
}

// infosetReaderAdapter lifts a merger.Reader[model.Infoset] (e.g. a
// pkg/reader.LineReader, possibly wrapped by bufferedReader) into the
// merge's common payload type.
type infosetReaderAdapter struct {
	inner merger.Reader[model.Infoset]
}

func (a infosetReaderAdapter) Next() (begin, end addrcodec.Address, payload mergeItem, ok bool, err error) {
	b, e, is, ok, err := a.inner.Next()
	if err != nil || !ok {
		return addrcodec.Address{}, addrcodec.Address{}, mergeItem{}, ok, err
	}
	return b, e, mergeItem{infoset: &is}, true, nil
}

// existingRecordsReader walks every record currently in the backing
// store in key order, the loader's counterpart to the teacher's
// IterateRanges.
type existingRecordsReader struct {
	iter iterator.Iterator
}

func newExistingRecordsReader(store *kv.Store) *existingRecordsReader {
	return &existingRecordsReader{iter: store.NewIterator(nil)}
}

func (r *existingRecordsReader) Close() {
	r.iter.Release()
}

func (r *existingRecordsReader) Next() (begin, end addrcodec.Address, payload mergeItem, ok bool, err error) {
	if !r.iter.Next() {
		if err := r.iter.Error(); err != nil {
			return addrcodec.Address{}, addrcodec.Address{}, mergeItem{}, false, err
		}
		return addrcodec.Address{}, addrcodec.Address{}, mergeItem{}, false, nil
	}

	var endKey [16]byte
	copy(endKey[:], r.iter.Key())

	raw := append([]byte(nil), r.iter.Value()...)
	env, err := recordcodec.Decode(raw)
	if err != nil {
		return addrcodec.Address{}, addrcodec.Address{}, mergeItem{}, false, err
	}

	rec := &existingRecord{
		begin: addrcodec.FromPacked(env.Begin),
		end:   addrcodec.FromPacked(endKey),
		env:   env,
		raw:   raw,
	}
	return rec.begin, rec.end, mergeItem{existing: rec}, true, nil
}

// Load merges snapshots with the store's existing records and writes
// the result back. progress, if non-nil, is invoked with running stats
// at most once per DefaultReportInterval, plus once more when all
// merged ranges have been written.
// cache, if non-nil, is purged once the load completes successfully.
func (l *Loader) Load(
	ctx context.Context,
	snapshots []merger.Reader[model.Infoset],
	cache CacheInvalidator,
	progress func(Stats),
) (Stats, error) {
	pool := workers.NewSnapshotDrainPool(ctx)
	defer pool.Stop()

	inputs := make([]merger.Reader[mergeItem], 0, len(snapshots)+1)
	for i, s := range snapshots {
		inputs = append(inputs, infosetReaderAdapter{inner: newBufferedReader(pool, s, i)})
	}

	existing := newExistingRecordsReader(l.store)
	defer existing.Close()
	inputs = append(inputs, existing)

	m := merger.New[mergeItem](inputs...)

	var stats Stats
	reporter := NewProgressReporter(func() {
		if progress != nil {
			progress(stats)
		}
	}, 0)

	var batch []kv.BatchOp
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := l.store.WriteBatch(batch); err != nil {
			return fmt.Errorf("writing batch: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		begin, end, payloads, ok, err := m.Next()
		if err != nil {
			return stats, fmt.Errorf("merging input ranges: %w", err)
		}
		if !ok {
			break
		}

		var existingRec *existingRecord
		var infosets []model.Infoset
		for _, p := range payloads {
			switch {
			case p.existing != nil:
				if existingRec != nil {
					return stats, fmt.Errorf("%w: multiple existing records cover one sub-range", model.ErrMalformedInputStream)
				}
				existingRec = p.existing
			case p.infoset != nil:
				infosets = append(infosets, *p.infoset)
			}
		}

		if len(infosets) == 0 && existingRec == nil {
			// No payload at all for this sub-range; nothing to write.
			reporter.Tick(false)
			continue
		}

		var latestBlob []byte
		var latestDatetime string
		var historyBlob []byte

		if len(infosets) == 0 {
			// Nothing new for this sub-range: reuse the existing record's
			// blobs verbatim, but still Put at this sub-range's end key.
			// Its key bounds may have shifted (e.g. it was split by an
			// overlapping snapshot elsewhere in its old range), and a
			// fragment not written here would disappear from the keyspace.
			latestBlob = existingRec.env.LatestBlob
			latestDatetime = existingRec.env.LatestDatetime
			historyBlob = existingRec.env.RawDiffChain()
			stats.RangesReused++
		} else if existingRec != nil {
			existingSeq, err := history.ExpandEnvelope(existingRec.env)
			if err != nil {
				return stats, fmt.Errorf("expanding existing history: %w", err)
			}
			combined := append(history.Reverse(existingSeq), infosets...)
			latest, reversedSeq, diffs, err := history.Build(combined)
			if err != nil {
				return stats, err
			}
			if history.SameSequence(reversedSeq, existingSeq) {
				latestBlob = existingRec.env.LatestBlob
				latestDatetime = existingRec.env.LatestDatetime
				historyBlob = existingRec.env.RawDiffChain()
				stats.RangesReused++
			} else {
				latestBlob, latestDatetime, historyBlob, err = history.Encode(latest, diffs)
				if err != nil {
					return stats, err
				}
				stats.RangesWritten++
			}
		} else {
			latest, _, diffs, err := history.Build(infosets)
			if err != nil {
				return stats, err
			}
			latestBlob, latestDatetime, historyBlob, err = history.Encode(latest, diffs)
			if err != nil {
				return stats, err
			}
			stats.RangesWritten++
		}

		key := end.Pack()
		raw := recordcodec.Encode(begin.Pack(), latestBlob, latestDatetime, historyBlob)
		batch = append(batch, kv.BatchOp{Key: append([]byte(nil), key[:]...), Value: raw})

		if len(batch) >= batchFlushSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
		reporter.Tick(false)
	}

	if err := flush(); err != nil {
		return stats, err
	}
	reporter.Tick(true)

	for _, r := range pool.Wait() {
		if r.Error != nil {
			return stats, fmt.Errorf("draining snapshot reader: %w", r.Error)
		}
	}

	err := workers.Retry(ctx, workers.DefaultRetryConfig(), l.store.CompactRange)
	if err != nil {
		return stats, fmt.Errorf("compacting after load: %w", err)
	}

	if cache != nil {
		cache.Purge()
	}

	return stats, nil
}
