package loader

import (
	"context"
	"os"
	"testing"

	"github.com/wbolster/whipdb/pkg/addrcodec"
	"github.com/wbolster/whipdb/pkg/attrcodec"
	"github.com/wbolster/whipdb/pkg/history"
	"github.com/wbolster/whipdb/pkg/kv"
	"github.com/wbolster/whipdb/pkg/merger"
	"github.com/wbolster/whipdb/pkg/model"
	"github.com/wbolster/whipdb/pkg/recordcodec"
)

func openStore(t *testing.T) *kv.Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "whipdb-loader-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	s, err := kv.Open(dir)
	if err != nil {
		t.Fatalf("kv.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addr(n uint64) addrcodec.Address { return addrcodec.FromUint128(0, n) }

func infoset(dt, org string) model.Infoset {
	return model.Infoset{model.DatetimeKey: model.FromString(dt), "org": model.FromString(org)}
}

func readBack(t *testing.T, store *kv.Store, endAddr addrcodec.Address) recordcodec.Envelope {
	t.Helper()
	endKey := endAddr.Pack()
	raw, err := store.Get(endKey[:])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if raw == nil {
		t.Fatalf("no record found for end address %s", endAddr)
	}
	env, err := recordcodec.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return env
}

func TestLoadWritesFreshRanges(t *testing.T) {
	store := openStore(t)
	l := New(store)

	snapshot := merger.NewSliceReader([]merger.Range[model.Infoset]{
		{Begin: addr(0), End: addr(10), Payload: infoset("2020-01-01T00:00:00", "A")},
		{Begin: addr(20), End: addr(30), Payload: infoset("2020-01-01T00:00:00", "B")},
	})

	stats, err := l.Load(context.Background(), []merger.Reader[model.Infoset]{snapshot}, nil, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stats.RangesWritten != 2 {
		t.Fatalf("got %d ranges written, want 2", stats.RangesWritten)
	}

	env := readBack(t, store, addr(10))
	is, err := attrcodec.Decode(env.LatestBlob)
	if err != nil {
		t.Fatalf("Decode latest: %v", err)
	}
	if is["org"].Str != "A" {
		t.Errorf("got org %q, want A", is["org"].Str)
	}
}

func TestLoadReingestExtendsHistory(t *testing.T) {
	store := openStore(t)
	l := New(store)

	first := merger.NewSliceReader([]merger.Range[model.Infoset]{
		{Begin: addr(0), End: addr(10), Payload: infoset("2020-01-01T00:00:00", "A")},
	})
	if _, err := l.Load(context.Background(), []merger.Reader[model.Infoset]{first}, nil, nil); err != nil {
		t.Fatalf("first Load: %v", err)
	}

	second := merger.NewSliceReader([]merger.Range[model.Infoset]{
		{Begin: addr(0), End: addr(10), Payload: infoset("2021-01-01T00:00:00", "B")},
	})
	stats, err := l.Load(context.Background(), []merger.Reader[model.Infoset]{second}, nil, nil)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if stats.RangesWritten != 1 {
		t.Fatalf("got %d ranges written, want 1 (history should have changed)", stats.RangesWritten)
	}

	env := readBack(t, store, addr(10))
	full, err := history.ExpandEnvelope(env)
	if err != nil {
		t.Fatalf("ExpandEnvelope: %v", err)
	}
	if len(full) != 2 {
		t.Fatalf("got %d historical versions, want 2: %+v", len(full), full)
	}
	if full[0]["org"].Str != "B" || full[1]["org"].Str != "A" {
		t.Errorf("got history [%q, %q], want [B, A]", full[0]["org"].Str, full[1]["org"].Str)
	}
}

func TestLoadReingestUnchangedReusesVerbatim(t *testing.T) {
	store := openStore(t)
	l := New(store)

	snap := func() merger.Reader[model.Infoset] {
		return merger.NewSliceReader([]merger.Range[model.Infoset]{
			{Begin: addr(0), End: addr(10), Payload: infoset("2020-01-01T00:00:00", "A")},
		})
	}
	if _, err := l.Load(context.Background(), []merger.Reader[model.Infoset]{snap()}, nil, nil); err != nil {
		t.Fatalf("first Load: %v", err)
	}

	before := readBack(t, store, addr(10))

	// Re-ingesting a later snapshot carrying the same attributes (a
	// re-check that found no change) is squashed into the existing,
	// older entry, so no new historical entry is introduced.
	reingest := merger.NewSliceReader([]merger.Range[model.Infoset]{
		{Begin: addr(0), End: addr(10), Payload: infoset("2020-06-01T00:00:00", "A")},
	})
	stats, err := l.Load(context.Background(), []merger.Reader[model.Infoset]{reingest}, nil, nil)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if stats.RangesWritten != 0 || stats.RangesReused != 1 {
		t.Fatalf("got stats %+v, want 0 written / 1 reused", stats)
	}

	after := readBack(t, store, addr(10))
	if string(after.LatestBlob) != string(before.LatestBlob) {
		t.Errorf("expected the latest blob to be reused verbatim")
	}
}

func TestLoadPurgesCache(t *testing.T) {
	store := openStore(t)
	l := New(store)

	snap := merger.NewSliceReader([]merger.Range[model.Infoset]{
		{Begin: addr(0), End: addr(10), Payload: infoset("2020-01-01T00:00:00", "A")},
	})

	purged := false
	cache := purgeTrackingCache(func() { purged = true })
	if _, err := l.Load(context.Background(), []merger.Reader[model.Infoset]{snap}, cache, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !purged {
		t.Error("expected the cache to be purged after a successful load")
	}
}

type purgeTrackingCache func()

func (p purgeTrackingCache) Purge() { p() }

func TestLoadOverlapSplitsExistingRecordWithoutLosingIt(t *testing.T) {
	store := openStore(t)
	l := New(store)

	first := merger.NewSliceReader([]merger.Range[model.Infoset]{
		{Begin: addr(0), End: addr(20), Payload: infoset("2020-01-01T00:00:00", "A")},
	})
	if _, err := l.Load(context.Background(), []merger.Reader[model.Infoset]{first}, nil, nil); err != nil {
		t.Fatalf("first Load: %v", err)
	}

	// Overlaps only the tail of the existing [0,20] range, splitting it
	// into an existing-only head fragment [0,9] and a combined-history
	// tail fragment [10,20].
	second := merger.NewSliceReader([]merger.Range[model.Infoset]{
		{Begin: addr(10), End: addr(20), Payload: infoset("2021-01-01T00:00:00", "B")},
	})
	if _, err := l.Load(context.Background(), []merger.Reader[model.Infoset]{second}, nil, nil); err != nil {
		t.Fatalf("second Load: %v", err)
	}

	headEnv := readBack(t, store, addr(9))
	headIs, err := attrcodec.Decode(headEnv.LatestBlob)
	if err != nil {
		t.Fatalf("Decode head: %v", err)
	}
	if headIs["org"].Str != "A" {
		t.Errorf("got head org %q, want A (the existing-only fragment must not be dropped)", headIs["org"].Str)
	}

	tailEnv := readBack(t, store, addr(20))
	tailIs, err := attrcodec.Decode(tailEnv.LatestBlob)
	if err != nil {
		t.Fatalf("Decode tail: %v", err)
	}
	if tailIs["org"].Str != "B" {
		t.Errorf("got tail org %q, want B", tailIs["org"].Str)
	}
}
