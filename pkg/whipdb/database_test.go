package whipdb

import (
	"context"
	"os"
	"testing"

	"github.com/wbolster/whipdb/pkg/addrcodec"
	"github.com/wbolster/whipdb/pkg/attrcodec"
	"github.com/wbolster/whipdb/pkg/merger"
	"github.com/wbolster/whipdb/pkg/model"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	dir, err := os.MkdirTemp("", "whipdb-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	db, err := Open(dir, 16)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func infoset(dt, org string) model.Infoset {
	return model.Infoset{model.DatetimeKey: model.FromString(dt), "org": model.FromString(org)}
}

func TestLookupAfterLoad(t *testing.T) {
	db := openTestDB(t)

	snap := merger.NewSliceReader([]merger.Range[model.Infoset]{
		{Begin: mustParse(t, "192.0.2.0"), End: mustParse(t, "192.0.2.255"), Payload: infoset("2020-01-01T00:00:00", "Example")},
	})
	if _, err := db.Load(context.Background(), []merger.Reader[model.Infoset]{snap}, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}

	res, ok, err := db.Lookup("192.0.2.100", "")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	is, err := attrcodec.Decode(res.Blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if is["org"].Str != "Example" {
		t.Errorf("got org %q, want Example", is["org"].Str)
	}

	if _, ok, err := db.Lookup("198.51.100.1", ""); err != nil || ok {
		t.Fatalf("expected a miss outside the loaded range, got ok=%v err=%v", ok, err)
	}
}

func TestLookupCacheServesRepeatedQueries(t *testing.T) {
	db := openTestDB(t)

	snap := merger.NewSliceReader([]merger.Range[model.Infoset]{
		{Begin: mustParse(t, "192.0.2.0"), End: mustParse(t, "192.0.2.255"), Payload: infoset("2020-01-01T00:00:00", "Example")},
	})
	if _, err := db.Load(context.Background(), []merger.Reader[model.Infoset]{snap}, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, _, err := db.Lookup("192.0.2.1", ""); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if db.cache.Len() != 1 {
		t.Fatalf("got %d cached entries, want 1", db.cache.Len())
	}

	if _, _, err := db.Lookup("192.0.2.1", ""); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if db.cache.Len() != 1 {
		t.Fatalf("got %d cached entries after repeat lookup, want still 1", db.cache.Len())
	}
}

func TestLoadInvalidatesCache(t *testing.T) {
	db := openTestDB(t)

	snap := merger.NewSliceReader([]merger.Range[model.Infoset]{
		{Begin: mustParse(t, "192.0.2.0"), End: mustParse(t, "192.0.2.255"), Payload: infoset("2020-01-01T00:00:00", "Example")},
	})
	if _, err := db.Load(context.Background(), []merger.Reader[model.Infoset]{snap}, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, _, err := db.Lookup("192.0.2.1", ""); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if db.cache.Len() == 0 {
		t.Fatal("expected a cache entry before the second load")
	}

	snap2 := merger.NewSliceReader([]merger.Range[model.Infoset]{
		{Begin: mustParse(t, "192.0.2.0"), End: mustParse(t, "192.0.2.255"), Payload: infoset("2021-01-01T00:00:00", "Updated")},
	})
	if _, err := db.Load(context.Background(), []merger.Reader[model.Infoset]{snap2}, nil); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if db.cache.Len() != 0 {
		t.Fatalf("got %d cached entries after load, want 0 (cache must be purged)", db.cache.Len())
	}
}

func mustParse(t *testing.T, s string) addrcodec.Address {
	t.Helper()
	a, err := addrcodec.Parse(s)
	if err != nil {
		t.Fatalf("parsing %q: %v", s, err)
	}
	return a
}
