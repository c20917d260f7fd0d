package recordcodec

import (
	"reflect"
	"testing"

	"github.com/wbolster/whipdb/pkg/model"
)

func TestDiffChainRoundTrip(t *testing.T) {
	diffs := []model.Patch{
		{
			Modifications: map[string]model.Value{
				"x":        model.FromInt(7),
				"datetime": model.FromString("2011-01-01T00:00:00"),
			},
			Deletions: []string{"y"},
		},
		{
			Modifications: map[string]model.Value{
				"datetime": model.FromString("2010-01-01T00:00:00"),
			},
			Deletions: nil,
		},
	}

	blob, err := EncodeDiffChain(diffs)
	if err != nil {
		t.Fatalf("EncodeDiffChain: %v", err)
	}
	got, err := DecodeDiffChain(blob)
	if err != nil {
		t.Fatalf("DecodeDiffChain: %v", err)
	}
	if !reflect.DeepEqual(got, diffs) {
		t.Errorf("got %+v, want %+v", got, diffs)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	var begin [16]byte
	begin[15] = 1

	latestBlob := []byte(`{"x":4,"datetime":"2013-01-01T00:00:00"}`)
	latestDatetime := "2013-01-01T00:00:00"
	diffs := []model.Patch{{Modifications: map[string]model.Value{"x": model.FromInt(1)}}}
	diffBlob, err := EncodeDiffChain(diffs)
	if err != nil {
		t.Fatalf("EncodeDiffChain: %v", err)
	}

	raw := Encode(begin, latestBlob, latestDatetime, diffBlob)

	env, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Begin != begin {
		t.Errorf("got begin %v, want %v", env.Begin, begin)
	}
	if string(env.LatestBlob) != string(latestBlob) {
		t.Errorf("got latest blob %q, want %q", env.LatestBlob, latestBlob)
	}
	if env.LatestDatetime != latestDatetime {
		t.Errorf("got datetime %q, want %q", env.LatestDatetime, latestDatetime)
	}

	gotDiffs, err := env.DiffChain()
	if err != nil {
		t.Fatalf("DiffChain: %v", err)
	}
	if !reflect.DeepEqual(gotDiffs, diffs) {
		t.Errorf("got diffs %+v, want %+v", gotDiffs, diffs)
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	if _, err := Decode([]byte{0, 1, 2}); err == nil {
		t.Fatal("expected error decoding a too-short envelope")
	}

	var begin [16]byte
	raw := Encode(begin, []byte("x"), "2020", nil)
	if _, err := Decode(raw[:len(raw)-1]); err == nil {
		t.Fatal("expected error decoding a truncated envelope")
	}
}

func TestEmptyDiffChain(t *testing.T) {
	blob, err := EncodeDiffChain(nil)
	if err != nil {
		t.Fatalf("EncodeDiffChain: %v", err)
	}
	got, err := DecodeDiffChain(blob)
	if err != nil {
		t.Fatalf("DecodeDiffChain: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}
