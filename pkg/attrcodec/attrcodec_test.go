package attrcodec

import (
	"testing"

	"github.com/wbolster/whipdb/pkg/model"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := model.Infoset{
		"datetime": model.FromString("2013-01-01T00:00:00"),
		"x":        model.FromInt(4),
		"active":   model.FromBool(true),
		"score":    model.FromFloat(3.5),
		"note":     model.Null(),
	}

	blob, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(got) != len(in) {
		t.Fatalf("got %d attributes, want %d", len(got), len(in))
	}
	for k, v := range in {
		gv, ok := got[k]
		if !ok {
			t.Errorf("missing attribute %q", k)
			continue
		}
		if !gv.Equal(v) {
			t.Errorf("attribute %q: got %+v, want %+v", k, gv, v)
		}
	}
}

func TestIntegerDoesNotBecomeFloat(t *testing.T) {
	blob, err := Encode(model.Infoset{"x": model.FromInt(7), "datetime": model.FromString("2011")})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got["x"].Kind != model.KindInt || got["x"].Int != 7 {
		t.Errorf("got %+v, want integer 7", got["x"])
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Fatal("expected error decoding invalid JSON")
	}
}
