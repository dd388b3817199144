package scoring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_InclusiveBoundaries(t *testing.T) {
	_, cfg := gad7()

	cases := []struct {
		score float64
		want  string
	}{
		{0, "minimal"},
		{4, "minimal"},
		{5, "mild"},
		{9, "mild"},
		{10, "moderate"},
		{14, "moderate"},
		{15, "severe"},
		{21, "severe"},
	}
	for _, c := range cases {
		r, err := Classify(c.score, cfg.Ranges)
		require.NoError(t, err, "score %v", c.score)
		assert.Equal(t, c.want, r.Label, "score %v", c.score)
	}
}

func TestClassify_UnboundedMax(t *testing.T) {
	ranges := []Range{{Min: 0, Max: f(9.9), Label: "low"}, {Min: 10, Label: "high"}}

	r, err := Classify(1e6, ranges)
	require.NoError(t, err)
	assert.Equal(t, "high", r.Label)
}

func TestClassify_Defects(t *testing.T) {
	ranges := []Range{
		{Min: 0, Max: f(4), Label: "low"},
		{Min: 4, Max: f(8), Label: "medium"},
		{Min: 10, Max: f(12), Label: "high"},
	}

	_, err := Classify(4, ranges)
	assert.ErrorIs(t, err, ErrAmbiguousRangeConfig)

	_, err = Classify(9, ranges)
	assert.ErrorIs(t, err, ErrScoreUnclassifiable)

	_, err = Classify(-0.1, ranges)
	assert.ErrorIs(t, err, ErrScoreUnclassifiable)

	_, err = Classify(1, nil)
	assert.ErrorIs(t, err, ErrScoreUnclassifiable)
}

// Every integer score in the attainable domain of a validated config lands
// in exactly one range.
func TestClassify_ValidConfigCoversDomain(t *testing.T) {
	q, cfg := gad7()
	lo, hi := AttainableBounds(q, cfg)
	require.Equal(t, 0.0, lo)
	require.Equal(t, 21.0, hi)

	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 100; iter++ {
		// cut [lo, hi] into integer ranges at random points
		var ranges []Range
		start := lo
		for start <= hi {
			end := start + float64(rng.Intn(6))
			if end >= hi {
				ranges = append(ranges, Range{Min: start, Label: "top"})
				break
			}
			ranges = append(ranges, Range{Min: start, Max: f(end), Label: "band"})
			start = end + 1
		}
		rng.Shuffle(len(ranges), func(i, j int) { ranges[i], ranges[j] = ranges[j], ranges[i] })

		cfg.Ranges = ranges
		require.NoError(t, ValidateConfig(q, cfg), "iteration %d", iter)
		for s := lo; s <= hi; s++ {
			_, err := Classify(s, ranges)
			require.NoError(t, err, "iteration %d score %v", iter, s)
		}
	}
}
