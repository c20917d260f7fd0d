// Package attrcodec is the attribute codec of spec §6: a byte-safe,
// deterministic encode/decode between an Infoset and UTF-8 JSON bytes.
//
// The teacher repo already reaches for encoding/json for its ad hoc
// metadata cache blobs (pkg/iporgdb/metadata.go's SetCache/GetCache);
// this package is the generalization of that same ambient choice to the
// full attribute codec contract, including round-trip-safe handling of
// integers vs floats via json.Decoder.UseNumber, which plain
// json.Unmarshal does not provide (it decodes every JSON number as
// float64, which would silently turn 7 into 7.0 on reencode).
package attrcodec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/wbolster/whipdb/pkg/model"
)

// Encode renders an infoset as UTF-8 JSON bytes.
func Encode(i model.Infoset) ([]byte, error) {
	m := make(map[string]interface{}, len(i))
	for k, v := range i {
		m[k] = toJSONValue(v)
	}
	return json.Marshal(m)
}

// Decode parses UTF-8 JSON bytes into an infoset.
func Decode(b []byte) (model.Infoset, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var m map[string]json.RawMessage
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding infoset: %w", err)
	}

	out := make(model.Infoset, len(m))
	for k, raw := range m {
		v, err := decodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding attribute %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func toJSONValue(v model.Value) interface{} {
	switch v.Kind {
	case model.KindNull:
		return nil
	case model.KindBool:
		return v.Bool
	case model.KindInt:
		return v.Int
	case model.KindFloat:
		return v.Float
	case model.KindString:
		return v.Str
	default:
		return nil
	}
}

func decodeValue(raw json.RawMessage) (model.Value, error) {
	s := bytes.TrimSpace(raw)
	switch {
	case string(s) == "null":
		return model.Null(), nil
	case string(s) == "true":
		return model.FromBool(true), nil
	case string(s) == "false":
		return model.FromBool(false), nil
	case len(s) > 0 && s[0] == '"':
		var str string
		if err := json.Unmarshal(s, &str); err != nil {
			return model.Value{}, err
		}
		return model.FromString(str), nil
	case len(s) > 0 && (s[0] == '-' || (s[0] >= '0' && s[0] <= '9')):
		var n json.Number
		if err := json.Unmarshal(s, &n); err != nil {
			return model.Value{}, err
		}
		if i, err := n.Int64(); err == nil {
			return model.FromInt(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return model.Value{}, err
		}
		return model.FromFloat(f), nil
	default:
		return model.Value{}, fmt.Errorf("unsupported JSON value: %s", s)
	}
}
