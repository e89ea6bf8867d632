package merge

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestInterleave_RoundRobin(t *testing.T) {
	got := Interleave(
		[]string{"a1", "a2", "a3"},
		[]string{"b1", "b2"},
		[]string{"c1"},
	)

	assert.Equal(t, []string{"a1", "b1", "c1", "a2", "b2", "a3"}, got)
}

func TestInterleave_EmptySides(t *testing.T) {
	assert.Equal(t, []int{1, 2}, Interleave([]int{1, 2}, nil, nil))
	assert.Equal(t, []int{1, 2}, Interleave(nil, []int{1, 2}, nil))
	assert.Empty(t, Interleave[int](nil, nil, nil))
}

func TestProperty_InterleavePreservesLengthAndOrder(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("output length is the sum of input lengths", prop.ForAll(
		func(a, b, c []int) bool {
			return len(Interleave(a, b, c)) == len(a)+len(b)+len(c)
		},
		gen.SliceOf(gen.Int()),
		gen.SliceOf(gen.Int()),
		gen.SliceOf(gen.Int()),
	))

	properties.Property("relative order within each source is preserved", prop.ForAll(
		func(a, b, c []int) bool {
			// Tag elements with their source so subsequences can be
			// recovered from the merged output.
			type tagged struct {
				source int
				value  int
			}
			ta := make([]tagged, len(a))
			for i, v := range a {
				ta[i] = tagged{0, v}
			}
			tb := make([]tagged, len(b))
			for i, v := range b {
				tb[i] = tagged{1, v}
			}
			tc := make([]tagged, len(c))
			for i, v := range c {
				tc[i] = tagged{2, v}
			}

			merged := Interleave(ta, tb, tc)

			var backA, backB, backC []int
			for _, e := range merged {
				switch e.source {
				case 0:
					backA = append(backA, e.value)
				case 1:
					backB = append(backB, e.value)
				case 2:
					backC = append(backC, e.value)
				}
			}

			return equalInts(backA, a) && equalInts(backB, b) && equalInts(backC, c)
		},
		gen.SliceOf(gen.Int()),
		gen.SliceOf(gen.Int()),
		gen.SliceOf(gen.Int()),
	))

	properties.TestingRun(t)
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
