// Package history builds and replays the reverse-diff chain stored
// alongside each range's latest infoset.
//
// Grounded on original_source/whip/db.py's build_record: sort the
// infosets belonging to a range by datetime, squash consecutive
// duplicates (ignoring datetime) down to the points where an attribute
// actually changed, then store the newest infoset in full and every
// older one as a diff against its successor. Replaying a lookup for an
// older timestamp means walking that diff chain forward from the
// latest infoset, which keeps the hot "give me the latest" path from
// ever touching the chain at all.
package history

import (
	"sort"

	"github.com/wbolster/whipdb/pkg/attrcodec"
	"github.com/wbolster/whipdb/pkg/diffcodec"
	"github.com/wbolster/whipdb/pkg/model"
	"github.com/wbolster/whipdb/pkg/recordcodec"
)

// SortAscending returns a new slice of infosets ordered by ascending
// datetime. The sort is stable so that infosets sharing a timestamp
// keep their relative input order.
func SortAscending(infosets []model.Infoset) []model.Infoset {
	out := append([]model.Infoset(nil), infosets...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Datetime() < out[j].Datetime()
	})
	return out
}

// Squash collapses runs of consecutive infosets that are equal ignoring
// datetime, keeping the oldest (first) infoset of each run. sorted must
// already be ordered by ascending datetime.
func Squash(sorted []model.Infoset) []model.Infoset {
	if len(sorted) == 0 {
		return nil
	}
	out := make([]model.Infoset, 0, len(sorted))
	out = append(out, sorted[0])
	for _, cur := range sorted[1:] {
		if cur.EqualIgnoring(out[len(out)-1], model.DatetimeKey) {
			continue
		}
		out = append(out, cur)
	}
	return out
}

// Reverse returns a new slice with infosets in the opposite order.
func Reverse(infosets []model.Infoset) []model.Infoset {
	out := make([]model.Infoset, len(infosets))
	for i, v := range infosets {
		out[len(infosets)-1-i] = v
	}
	return out
}

// Build sorts, squashes, and reverses infosets, then computes the
// reverse-diff chain over the reversed (newest-first) sequence. latest
// is the most recent infoset; reversed is the full newest-first
// sequence (for fast-path comparisons); diffs holds Diff(reversed[i],
// reversed[i+1]) for each consecutive pair, i.e. the patch that turns
// a newer infoset into the next older one.
//
// infosets must be non-empty.
func Build(infosets []model.Infoset) (latest model.Infoset, reversed []model.Infoset, diffs []model.Patch, err error) {
	if len(infosets) == 0 {
		return nil, nil, nil, model.ErrMalformedRecord
	}
	squashed := Squash(SortAscending(infosets))
	reversed = Reverse(squashed)
	latest, diffs = diffcodec.DiffIncremental(reversed)
	return latest, reversed, diffs, nil
}

// Encode renders latest and its reverse-diff chain into the two blobs
// stored in a record: the latest infoset's attribute-codec bytes, its
// datetime, and the diff chain's nested binary encoding.
func Encode(latest model.Infoset, diffs []model.Patch) (latestBlob []byte, latestDatetime string, historyBlob []byte, err error) {
	latestBlob, err = attrcodec.Encode(latest)
	if err != nil {
		return nil, "", nil, err
	}
	historyBlob, err = recordcodec.EncodeDiffChain(diffs)
	if err != nil {
		return nil, "", nil, err
	}
	return latestBlob, latest.Datetime(), historyBlob, nil
}

// Expand reverses Encode: it decodes the latest infoset and replays the
// diff chain forward from it, returning the full newest-first sequence
// of infosets that Build would have produced.
func Expand(latestBlob []byte, historyBlob []byte) ([]model.Infoset, error) {
	latest, err := attrcodec.Decode(latestBlob)
	if err != nil {
		return nil, err
	}
	diffs, err := recordcodec.DecodeDiffChain(historyBlob)
	if err != nil {
		return nil, err
	}
	older := diffcodec.PatchIncremental(latest, diffs, false)
	out := make([]model.Infoset, 0, len(older)+1)
	out = append(out, latest)
	out = append(out, older...)
	return out, nil
}

// ExpandEnvelope is a convenience wrapper over Expand for a decoded
// record envelope.
func ExpandEnvelope(env recordcodec.Envelope) ([]model.Infoset, error) {
	diffs, err := env.DiffChain()
	if err != nil {
		return nil, err
	}
	latest, err := attrcodec.Decode(env.LatestBlob)
	if err != nil {
		return nil, err
	}
	older := diffcodec.PatchIncremental(latest, diffs, false)
	out := make([]model.Infoset, 0, len(older)+1)
	out = append(out, latest)
	out = append(out, older...)
	return out, nil
}

// SameSequence reports whether two newest-first infoset sequences are
// identical, including datetimes. The loader uses this to detect that a
// re-ingested snapshot contributed nothing new for a range, so the
// existing record's blobs can be reused verbatim instead of
// re-encoding them.
func SameSequence(a, b []model.Infoset) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].EqualIgnoring(b[i], "") {
			return false
		}
	}
	return true
}
