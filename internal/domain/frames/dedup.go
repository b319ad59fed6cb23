package frames

import "inkcast/internal/types"

// Cluster groups near-duplicate frames. The representative is always the
// earliest-timestamp member; the rest are dropped before classification so
// classification cost scales with distinct content, not sample density.
type Cluster struct {
	Representative types.Frame
	Members        []types.Frame
}

// Dedup partitions timestamp-ordered frames into clusters of perceptual
// near-duplicates. Each frame joins the first existing cluster whose
// representative is within threshold Hamming distance, otherwise it founds a
// new cluster. Video content is temporally locally redundant, so comparing
// against representatives only (never all pairs) keeps the pass linear in
// practice while still catching slides that reappear later.
//
// Empty input yields empty output. Every frame lands in exactly one cluster.
func Dedup(in []types.Frame, threshold int) []Cluster {
	var clusters []Cluster
	for _, f := range in {
		placed := false
		for i := range clusters {
			if Distance(f.PHash, clusters[i].Representative.PHash) <= threshold {
				clusters[i].Members = append(clusters[i].Members, f)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, Cluster{Representative: f, Members: []types.Frame{f}})
		}
	}
	return clusters
}

// Representatives flattens clusters back to one frame each, preserving the
// original timestamp order (clusters are founded in timestamp order).
func Representatives(clusters []Cluster) []types.Frame {
	out := make([]types.Frame, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, c.Representative)
	}
	return out
}
