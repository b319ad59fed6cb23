package frames

import (
	"inkcast/internal/domain/transcript"
	"inkcast/internal/types"
)

// FilterPolicy holds the thresholds applied after classification.
type FilterPolicy struct {
	SkipCategories []string
	MinValue       int
	SponsorPadding int
}

// Filter applies the keep/drop policy to classified frames, in this order:
// sponsor range, excluded category, minimum value. Output preserves timestamp
// order. Kept count is always <= input count.
func Filter(in []types.Frame, ranges []types.SponsorRange, policy FilterPolicy) []types.Frame {
	skip := make(map[string]struct{}, len(policy.SkipCategories))
	for _, c := range policy.SkipCategories {
		skip[c] = struct{}{}
	}

	var kept []types.Frame
	for _, f := range in {
		if transcript.InSponsorRange(f.Seconds, ranges, policy.SponsorPadding) {
			continue
		}
		if _, excluded := skip[f.Category]; excluded {
			continue
		}
		if f.Value < policy.MinValue {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}
