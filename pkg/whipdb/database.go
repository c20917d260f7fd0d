// Package whipdb ties the backing store, the lookup dispatch, the LRU
// result cache, and the loader into the single handle external callers
// use, following the teacher's own *iporgdb.DB as the one exported
// entry point over its internal packages.
package whipdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/wbolster/whipdb/pkg/addrcodec"
	"github.com/wbolster/whipdb/pkg/kv"
	"github.com/wbolster/whipdb/pkg/loader"
	"github.com/wbolster/whipdb/pkg/lookup"
	"github.com/wbolster/whipdb/pkg/lookupcache"
	"github.com/wbolster/whipdb/pkg/merger"
	"github.com/wbolster/whipdb/pkg/model"
)

// DefaultCacheSize is the number of lookup results kept in the LRU
// cache when Open is called with cacheSize <= 0.
const DefaultCacheSize = 4096

// Database is a single whipdb handle: one backing store, one lookup
// cache, one loader. Per the single-threaded cooperative concurrency
// model, Load and Lookup serialize on the same handle.
type Database struct {
	mu     sync.Mutex
	store  *kv.Store
	cache  *lookupcache.Cache[lookup.Result]
	loader *loader.Loader
}

// Open opens or creates a database directory. cacheSize <= 0 uses
// DefaultCacheSize.
func Open(path string, cacheSize int) (*Database, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	store, err := kv.Open(path)
	if err != nil {
		return nil, err
	}
	cache, err := lookupcache.New[lookup.Result](cacheSize)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("building lookup cache: %w", err)
	}

	return &Database{
		store:  store,
		cache:  cache,
		loader: loader.New(store),
	}, nil
}

// Close releases the backing store.
func (d *Database) Close() error {
	return d.store.Close()
}

// Load applies one or more snapshot streams, merging them with the
// database's existing records. progress, if non-nil, receives
// periodic running totals.
func (d *Database) Load(ctx context.Context, snapshots []merger.Reader[model.Infoset], progress func(loader.Stats)) (loader.Stats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loader.Load(ctx, snapshots, d.cache, progress)
}

// Lookup resolves ipStr under query: "" means the latest version,
// "all" means the full history, anything else is passed through
// unparsed as a timestamp and compared with stored datetimes as a
// string. The second return value is false on a plain miss (no error).
func (d *Database) Lookup(ipStr, query string) (lookup.Result, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	addr, err := addrcodec.Parse(ipStr)
	if err != nil {
		return lookup.Result{}, false, err
	}

	mode, timestamp := classifyQuery(query)
	packed := addr.Pack()
	cacheKey := lookupcache.NewKey(packed, byte(mode), timestamp)

	if cached, ok := d.cache.Get(cacheKey); ok {
		return cached, true, nil
	}

	res, ok, err := lookup.Find(storeSeeker{d.store}, addr, mode, timestamp)
	if err != nil || !ok {
		return lookup.Result{}, false, err
	}

	d.cache.Add(cacheKey, res)
	return res, true, nil
}

func classifyQuery(query string) (lookup.Mode, string) {
	switch query {
	case "":
		return lookup.ModeLatest, ""
	case "all":
		return lookup.ModeAll, ""
	default:
		return lookup.ModeTimestamp, query
	}
}

// storeSeeker adapts *kv.Store to lookup.Seeker with a single forward
// iterator per call, matching the teacher's GetByIP: one fresh iterator
// per lookup rather than a long-lived cursor.
type storeSeeker struct {
	store *kv.Store
}

func (s storeSeeker) SeekRecord(key []byte) (endKey [16]byte, value []byte, ok bool, err error) {
	iter := s.store.NewIterator(nil)
	defer iter.Release()

	if !iter.Seek(key) {
		if err := iter.Error(); err != nil {
			return [16]byte{}, nil, false, err
		}
		return [16]byte{}, nil, false, nil
	}

	copy(endKey[:], iter.Key())
	value = append([]byte(nil), iter.Value()...)
	return endKey, value, true, nil
}
