package diffcodec

import (
	"reflect"
	"testing"

	"github.com/wbolster/whipdb/pkg/model"
)

func infoset(pairs ...any) model.Infoset {
	if len(pairs)%2 != 0 {
		panic("odd number of arguments")
	}
	out := make(model.Infoset, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key := pairs[i].(string)
		switch v := pairs[i+1].(type) {
		case string:
			out[key] = model.FromString(v)
		case int:
			out[key] = model.FromInt(int64(v))
		case bool:
			out[key] = model.FromBool(v)
		default:
			panic("unsupported value type")
		}
	}
	return out
}

func TestDiffRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		a, b model.Infoset
	}{
		{"identical", infoset("a", 1, "b", 2), infoset("a", 1, "b", 2)},
		{"all deleted", infoset("a", 1, "b", 2), infoset()},
		{"one modified", infoset("a", 1, "b", 2, "c", 3, "d", 4), infoset("a", 1, "b", 2, "c", 3, "d", 5)},
		{"mixed add/delete", infoset("a", 1, "b", 2, "c", 3, "d", 4), infoset("a", 4, "b", 3, "c", 2)},
		{"keys renamed", infoset("a", 1, "b", 2, "c", 3, "d", 4), infoset("a", 1, "b", 2, "e", 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Diff(tt.a, tt.b)
			got := Apply(tt.a, p)
			if !reflect.DeepEqual(got, tt.b) {
				t.Errorf("Apply(a, Diff(a,b)) = %v, want %v", got, tt.b)
			}
			// a must be untouched by the copying Apply.
			if !reflect.DeepEqual(tt.a, infosetCopy(tt.a)) {
				t.Errorf("Apply mutated its input")
			}
		})
	}
}

func infosetCopy(i model.Infoset) model.Infoset { return i.Clone() }

func TestApplyInPlaceMutatesCaller(t *testing.T) {
	a := infoset("a", 1, "b", 2)
	want := infoset("a", 1, "b", 3)
	p := Diff(a, want)
	got := ApplyInPlace(a, p)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	// a has been mutated directly: same underlying map.
	if !reflect.DeepEqual(a, want) {
		t.Fatalf("ApplyInPlace did not mutate caller's map")
	}
}

func TestIncrementalRoundTrip(t *testing.T) {
	seq := []model.Infoset{
		infoset("x", 1, "datetime", "2010"),
		infoset("x", 2, "datetime", "2011"),
		infoset("x", 2, "datetime", "2012", "y", "added"),
		infoset("datetime", "2013"),
	}

	base, diffs := DiffIncremental(seq)
	if len(diffs) != len(seq)-1 {
		t.Fatalf("got %d diffs, want %d", len(diffs), len(seq)-1)
	}

	reconstructedTail := PatchIncremental(base, diffs, false)
	full := append([]model.Infoset{base}, reconstructedTail...)

	if len(full) != len(seq) {
		t.Fatalf("got %d infosets, want %d", len(full), len(seq))
	}
	for i := range seq {
		if !reflect.DeepEqual(full[i], seq[i]) {
			t.Errorf("index %d: got %v, want %v", i, full[i], seq[i])
		}
	}
}

func TestDiffIncrementalEmpty(t *testing.T) {
	base, diffs := DiffIncremental(nil)
	if base != nil || diffs != nil {
		t.Fatalf("expected nil, nil for empty sequence, got %v, %v", base, diffs)
	}
}
