package cards

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRand struct {
	calls []int
}

// IntN always picks the last legal index, which leaves the slice untouched.
func (r *recordingRand) IntN(n int) int {
	r.calls = append(r.calls, n)
	return n - 1
}

func TestShuffleWalksBackwards(t *testing.T) {
	r := &recordingRand{}
	s := []string{"a", "b", "c", "d"}

	Shuffle(s, r)

	assert.Equal(t, []int{4, 3, 2}, r.calls)
	assert.Equal(t, []string{"a", "b", "c", "d"}, s)
}

func TestShuffleKeepsElements(t *testing.T) {
	s := make([]int, 52)
	for i := range s {
		s[i] = i
	}
	want := slices.Clone(s)

	Shuffle(s, NewRand(1))

	assert.NotEqual(t, want, s)
	slices.Sort(s)
	assert.Equal(t, want, s)
}

func TestShuffleTinySlices(t *testing.T) {
	r := &recordingRand{}

	Shuffle([]int{}, r)
	Shuffle([]int{7}, r)

	assert.Empty(t, r.calls)
}

func TestShuffleIsUniform(t *testing.T) {
	const trials = 24000

	rng := NewRand(7)
	perms := make(map[string]int)
	firstPos := make([]int, 4)

	for range trials {
		s := []int{0, 1, 2, 3}
		Shuffle(s, rng)
		perms[fmt.Sprint(s)]++
		firstPos[slices.Index(s, 0)]++
	}

	require.Len(t, perms, 24)
	for perm, n := range perms {
		assert.InDelta(t, trials/24, n, 200, "permutation %s", perm)
	}
	for pos, n := range firstPos {
		assert.InDelta(t, trials/4, n, 500, "position %d", pos)
	}
}

func TestNewRandIsDeterministic(t *testing.T) {
	a := []int{1, 2, 3, 4, 5, 6, 7, 8}
	b := slices.Clone(a)

	Shuffle(a, NewRand(99))
	Shuffle(b, NewRand(99))

	assert.Equal(t, a, b)
}
