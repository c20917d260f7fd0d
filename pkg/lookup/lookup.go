// Package lookup implements the latest/timestamp/all-history dispatch
// over a single backing-store seek, generalizing the teacher's
// pkg/iporgdb/lookup.go GetByIP seek/prev algorithm.
//
// The teacher stored two key prefixes (one per IP version) keyed on
// each range's start address, so a lookup had to seek, check the
// version prefix, and sometimes step back one record with Prev. This
// repo's unified 128-bit key space is instead keyed on each range's
// end address, so a single Seek(packed(ip)) always lands on the
// record whose end is the first one >= ip — no prefix check, no Prev
// needed, matching the simplification the core design calls for.
package lookup

import (
	"fmt"

	"github.com/wbolster/whipdb/pkg/addrcodec"
	"github.com/wbolster/whipdb/pkg/attrcodec"
	"github.com/wbolster/whipdb/pkg/history"
	"github.com/wbolster/whipdb/pkg/model"
	"github.com/wbolster/whipdb/pkg/recordcodec"
)

// Mode selects which version of a range's infoset a lookup returns.
type Mode byte

const (
	// ModeLatest returns the most recent infoset.
	ModeLatest Mode = iota
	// ModeTimestamp returns the most recent infoset whose datetime is
	// less than or equal to the requested timestamp.
	ModeTimestamp
	// ModeAll returns every known infoset for the range, newest first.
	ModeAll
)

// Seeker is the one backing-store primitive the lookup algorithm needs:
// the record whose end-address key is the smallest one >= key.
type Seeker interface {
	SeekRecord(key []byte) (endKey [16]byte, value []byte, ok bool, err error)
}

// Result is one lookup hit. Blob is populated for ModeLatest and
// ModeTimestamp; History is populated for ModeAll, newest first. Both
// hold attribute-codec-encoded bytes, ready to write out as-is.
type Result struct {
	Begin   addrcodec.Address
	End     addrcodec.Address
	Blob    []byte
	History [][]byte
}

// Find looks up addr in s under the given mode. The second return value
// is false when no range covers addr, or — for ModeTimestamp — when no
// known version is old enough to qualify; per the host contract, that
// is a plain miss, not an error. Errors are reserved for malformed
// input or backing-store/record corruption.
func Find(s Seeker, addr addrcodec.Address, mode Mode, timestamp string) (Result, bool, error) {
	packed := addr.Pack()
	endKey, raw, ok, err := s.SeekRecord(packed[:])
	if err != nil {
		return Result{}, false, err
	}
	if !ok {
		return Result{}, false, nil
	}

	env, err := recordcodec.Decode(raw)
	if err != nil {
		return Result{}, false, err
	}

	begin := addrcodec.FromPacked(env.Begin)
	end := addrcodec.FromPacked(endKey)
	if addr.Less(begin) {
		// Landed on the next range over; addr falls in the gap before it.
		return Result{}, false, nil
	}

	res := Result{Begin: begin, End: end}

	switch mode {
	case ModeLatest:
		res.Blob = append([]byte(nil), env.LatestBlob...)
		return res, true, nil

	case ModeTimestamp:
		if env.LatestDatetime <= timestamp {
			res.Blob = append([]byte(nil), env.LatestBlob...)
			return res, true, nil
		}
		infosets, err := history.ExpandEnvelope(env)
		if err != nil {
			return Result{}, false, err
		}
		for _, is := range infosets {
			if is.Datetime() <= timestamp {
				blob, err := attrcodec.Encode(is)
				if err != nil {
					return Result{}, false, err
				}
				res.Blob = blob
				return res, true, nil
			}
		}
		return Result{}, false, nil

	case ModeAll:
		infosets, err := history.ExpandEnvelope(env)
		if err != nil {
			return Result{}, false, err
		}
		res.History = make([][]byte, 0, len(infosets))
		for _, is := range infosets {
			blob, err := attrcodec.Encode(is)
			if err != nil {
				return Result{}, false, err
			}
			res.History = append(res.History, blob)
		}
		return res, true, nil

	default:
		return Result{}, false, fmt.Errorf("%w: unknown lookup mode %d", model.ErrMalformedRecord, mode)
	}
}
