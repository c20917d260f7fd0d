// Package recordcodec serializes and deserializes a versioned range
// record: begin address, latest-infoset blob, latest timestamp, and an
// ordered reverse-diff chain.
//
// The envelope is self-delimiting and deliberately layered so the
// hottest query ("latest version for this IP") never touches the diff
// chain: the outer decode borrows directly into the byte slice it is
// given, without copying, and only a lookup for an older version pays
// the cost of unpacking the nested diff-chain blob. The callers in this
// repository (pkg/whipdb's storeSeeker and pkg/loader's
// existingRecordsReader) copy the value out of the KV iterator first and
// decode that copy, not the KV store's own slice.
//
// The on-disk byte layout generalizes whip's original packed record
// (original_source/whip/db.py's build_record: 4-byte IPv4 begin,
// 2-byte JSON length, JSON blob, 1-byte datetime length, datetime,
// trailing diff JSON) to the 16-byte unified address space and an
// explicit length prefix on the diff-chain blob, following the
// length-prefixed-field style already used for msgpack records in the
// teacher repo's pkg/iporgdb/db.go.
package recordcodec

import (
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wbolster/whipdb/pkg/model"
)

// wireDiff is the nested, per-diff wire shape used inside the history
// blob. Values are plain Go scalars rather than model.Value so that
// msgpack can (de)serialize them without a custom codec; the conversion
// to/from model.Value happens at the package boundary (toWireValue /
// fromWireValue).
type wireDiff struct {
	Modifications map[string]interface{} `msgpack:"m"`
	Deletions     []string                `msgpack:"d"`
}

func toWireValue(v model.Value) interface{} {
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

func fromWireValue(x interface{}) model.Value {
	switch v := x.(type) {
	case nil:
		return model.Null()
	case bool:
		return model.FromBool(v)
	case int64:
		return model.FromInt(v)
	case int:
		return model.FromInt(int64(v))
	case uint64:
		return model.FromInt(int64(v))
	case float32:
		return model.FromFloat(float64(v))
	case float64:
		return model.FromFloat(v)
	case string:
		return model.FromString(v)
	default:
		return model.Null()
	}
}

// EncodeDiffChain msgpack-encodes an ordered list of patches, the nested
// binary format stored inside a record's history blob.
func EncodeDiffChain(diffs []model.Patch) ([]byte, error) {
	wire := make([]wireDiff, len(diffs))
	for i, d := range diffs {
		mods := make(map[string]interface{}, len(d.Modifications))
		for k, v := range d.Modifications {
			mods[k] = toWireValue(v)
		}
		wire[i] = wireDiff{Modifications: mods, Deletions: d.Deletions}
	}
	return msgpack.Marshal(wire)
}

// DecodeDiffChain reverses EncodeDiffChain.
func DecodeDiffChain(b []byte) ([]model.Patch, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var wire []wireDiff
	if err := msgpack.Unmarshal(b, &wire); err != nil {
		return nil, fmt.Errorf("%w: diff chain: %v", model.ErrMalformedRecord, err)
	}
	out := make([]model.Patch, len(wire))
	for i, w := range wire {
		mods := make(map[string]model.Value, len(w.Modifications))
		for k, v := range w.Modifications {
			mods[k] = fromWireValue(v)
		}
		out[i] = model.Patch{Modifications: mods, Deletions: w.Deletions}
	}
	return out, nil
}

// Envelope is a borrowed, minimally-decoded view over a record's raw
// bytes. LatestBlob and the internal diff-chain bytes are subslices of
// the buffer passed to Decode; callers must not mutate or retain that
// buffer past the backing KV iterator's lifetime without copying it
// first.
type Envelope struct {
	Begin          [16]byte
	LatestBlob     []byte
	LatestDatetime string

	diffChainBlob []byte
}

// DiffChain lazily decodes the reverse-diff chain. Callers on the
// "latest" lookup path never call this.
func (e Envelope) DiffChain() ([]model.Patch, error) {
	return DecodeDiffChain(e.diffChainBlob)
}

// RawDiffChain returns the diff chain's undecoded msgpack bytes, letting
// a caller that already holds an unchanged chain (the loader's
// verbatim-reuse fast path) write it back out without a decode/re-encode
// round trip, which would otherwise risk producing different bytes for
// identical content since map key order is not guaranteed stable.
func (e Envelope) RawDiffChain() []byte {
	return e.diffChainBlob
}

// Encode assembles the self-delimiting binary envelope for one record.
func Encode(begin [16]byte, latestBlob []byte, latestDatetime string, diffChainBlob []byte) []byte {
	out := make([]byte, 0, 16+4+len(latestBlob)+2+len(latestDatetime)+4+len(diffChainBlob))
	out = append(out, begin[:]...)
	out = appendUint32Prefixed(out, latestBlob)
	out = appendUint16Prefixed(out, []byte(latestDatetime))
	out = appendUint32Prefixed(out, diffChainBlob)
	return out
}

// Decode parses the outer envelope without touching the nested diff
// chain. LatestBlob borrows into raw.
func Decode(raw []byte) (Envelope, error) {
	if len(raw) < 16 {
		return Envelope{}, fmt.Errorf("%w: envelope shorter than begin-address field", model.ErrMalformedRecord)
	}
	var env Envelope
	copy(env.Begin[:], raw[:16])
	rest := raw[16:]

	latestBlob, rest, err := readUint32Prefixed(rest)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: latest blob: %v", model.ErrMalformedRecord, err)
	}
	env.LatestBlob = latestBlob

	datetime, rest, err := readUint16Prefixed(rest)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: latest datetime: %v", model.ErrMalformedRecord, err)
	}
	env.LatestDatetime = string(datetime)

	diffChain, _, err := readUint32Prefixed(rest)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: diff chain blob: %v", model.ErrMalformedRecord, err)
	}
	env.diffChainBlob = diffChain

	return env, nil
}

func appendUint32Prefixed(out []byte, data []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	out = append(out, lenBuf[:]...)
	return append(out, data...)
}

func appendUint16Prefixed(out []byte, data []byte) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(data)))
	out = append(out, lenBuf[:]...)
	return append(out, data...)
}

func readUint32Prefixed(b []byte) (field, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, fmt.Errorf("truncated length prefix")
	}
	n := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint64(len(b)) < uint64(n) {
		return nil, nil, fmt.Errorf("truncated field: want %d bytes, have %d", n, len(b))
	}
	return b[:n], b[n:], nil
}

func readUint16Prefixed(b []byte) (field, rest []byte, err error) {
	if len(b) < 2 {
		return nil, nil, fmt.Errorf("truncated length prefix")
	}
	n := binary.BigEndian.Uint16(b[:2])
	b = b[2:]
	if uint64(len(b)) < uint64(n) {
		return nil, nil, fmt.Errorf("truncated field: want %d bytes, have %d", n, len(b))
	}
	return b[:n], b[n:], nil
}
