// Package diffcodec computes and applies shallow diffs between infosets,
// and provides incremental diff/patch chains over a sequence of infosets.
//
// Ported from whip's dict_diff / dict_patch / dict_diff_incremental /
// dict_patch_incremental (original_source/whip/util.py).
package diffcodec

import "github.com/wbolster/whipdb/pkg/model"

// Diff computes the patch that transforms a into b: Modifications holds
// every key present in b that is absent from a or whose value changed;
// Deletions holds every key present in a but absent from b. Comparison is
// shallow.
func Diff(a, b model.Infoset) model.Patch {
	mods := make(map[string]model.Value)
	for k, v := range b {
		if av, ok := a[k]; !ok || !av.Equal(v) {
			mods[k] = v
		}
	}

	var dels []string
	for k := range a {
		if _, ok := b[k]; !ok {
			dels = append(dels, k)
		}
	}

	return model.Patch{Modifications: mods, Deletions: dels}
}

// Apply returns a copy of d with p's modifications and deletions applied.
func Apply(d model.Infoset, p model.Patch) model.Infoset {
	return ApplyInPlace(d.Clone(), p)
}

// ApplyInPlace applies p's modifications and deletions directly to d,
// mutating and returning it. Callers must own d and must not retain any
// earlier version of it — this is the in-place optimization used by the
// history-replay hot path to avoid an O(n^2) series of copies along a
// diff chain.
func ApplyInPlace(d model.Infoset, p model.Patch) model.Infoset {
	for k, v := range p.Modifications {
		d[k] = v
	}
	for _, k := range p.Deletions {
		delete(d, k)
	}
	return d
}

// DiffIncremental splits a non-empty sequence into a base (the first
// element) and the chain of diffs between each consecutive pair:
// (seq[0], [Diff(seq[0],seq[1]), Diff(seq[1],seq[2]), ...]).
func DiffIncremental(seq []model.Infoset) (base model.Infoset, diffs []model.Patch) {
	if len(seq) == 0 {
		return nil, nil
	}
	base = seq[0]
	diffs = make([]model.Patch, 0, len(seq)-1)
	for i := 1; i < len(seq); i++ {
		diffs = append(diffs, Diff(seq[i-1], seq[i]))
	}
	return base, diffs
}

// PatchIncremental reconstructs the tail of the original sequence by
// applying each patch cumulatively to base, returning the reconstructed
// infosets in order (not including base itself). It is the inverse of
// DiffIncremental on the tail.
func PatchIncremental(base model.Infoset, diffs []model.Patch, inplace bool) []model.Infoset {
	out := make([]model.Infoset, 0, len(diffs))
	cur := base
	for _, p := range diffs {
		if inplace {
			cur = ApplyInPlace(cur, p)
		} else {
			cur = Apply(cur, p)
		}
		out = append(out, cur)
	}
	return out
}
