package fleettwin

import (
	"context"
	"time"
)

// DefaultThreshold is the similarity threshold used when the seed schema does
// not configure one. A descriptor must share at least half its capability
// surface with a class to be considered a match.
const DefaultThreshold = 0.5

// Similarity scores how alike two capability sets are as the Jaccard index of
// the sets: the size of their intersection over the size of their union, in
// [0,1]. Identical sets score 1; disjoint sets score 0.
//
// Two empty sets score 0, not 1. An empty descriptor describes nothing, so it
// is treated as matching nothing rather than matching every empty class.
func Similarity(a, b CapabilitySet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// Iterate the smaller set.
	if len(b) < len(a) {
		a, b = b, a
	}
	var inter int
	for aff := range a {
		if _, ok := b[aff]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// MatchAny configures a Matcher with a literal threshold of zero, so the
// best-scoring candidate always matches. A literal zero needs its own
// encoding because the Threshold field's zero value selects
// DefaultThreshold.
const MatchAny = -1

// A Matcher resolves a capability set against the known device classes.
type Matcher struct {
	// Threshold is the minimum similarity score for a class to count as a
	// match. Zero means DefaultThreshold; MatchAny means a literal zero.
	Threshold float64
}

func (m Matcher) threshold() float64 {
	switch {
	case m.Threshold == 0:
		return DefaultThreshold
	case m.Threshold < 0:
		return 0
	}
	return m.Threshold
}

// BestMatch scores the given capability set against every candidate class and
// returns the best-scoring one. The third return value reports whether the
// best score clears the matcher's threshold; when it does not, the returned
// class and score are still those of the best candidate, for diagnostics.
//
// Ties break deterministically on the lexicographically smallest class name,
// so repeated resolutions of one descriptor against one table always yield
// the same class.
func (m Matcher) BestMatch(ctx context.Context, caps CapabilitySet, classes []DeviceClass) (best DeviceClass, score float64, ok bool) {
	start := time.Now()
	defer func() { recordMatch(ctx, time.Since(start), ok) }()

	if len(classes) == 0 {
		return DeviceClass{}, 0, false
	}
	for i, c := range classes {
		s := Similarity(caps, c.Capabilities)
		if i == 0 || s > score || (s == score && c.Name < best.Name) {
			best, score = c, s
		}
	}
	return best, score, score >= m.threshold()
}
