// Package merge combines result lists from independent sources into
// one fairly ordered sequence.
package merge

// Interleave merges three lists round-robin: one element from primary,
// one from secondary, one from tertiary, repeated until all are
// exhausted. No source can starve the others near the head of the
// output, which matters because callers paginate and mostly read the
// first page.
//
// The merge is stable (order within each source is preserved) and
// length-preserving (len(out) == len(a)+len(b)+len(c)).
func Interleave[T any](primary, secondary, tertiary []T) []T {
	merged := make([]T, 0, len(primary)+len(secondary)+len(tertiary))

	var i, j, k int
	for i < len(primary) || j < len(secondary) || k < len(tertiary) {
		if i < len(primary) {
			merged = append(merged, primary[i])
			i++
		}
		if j < len(secondary) {
			merged = append(merged, secondary[j])
			j++
		}
		if k < len(tertiary) {
			merged = append(merged, tertiary[k])
			k++
		}
	}

	return merged
}
