package kernel

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgt/internal/domain"
)

func randomSequence(r *rand.Rand, length, m int) []int {
	seq := make([]int, length)
	for i := range seq {
		seq[i] = r.Intn(m)
	}
	return seq
}

// closeRel compares with a relative tolerance, falling back to absolute near zero.
func closeRel(t *testing.T, want, got []float64, tol float64, label string) {
	t.Helper()
	require.Len(t, got, len(want), label)
	for k := range want {
		scale := math.Max(1, math.Abs(want[k]))
		if math.Abs(want[k]-got[k]) > tol*scale {
			t.Fatalf("%s[%d]: want %.17g, got %.17g", label, k, want[k], got[k])
		}
	}
}

func TestAccumulate_MatchesQuadratic(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	cases := []struct {
		length int
		m      int
		kappa  float64
	}{
		{2, 2, 1},
		{10, 3, 5},
		{50, 4, 0.1},
		{200, 6, 1},
		{300, 10, 0.01},
		{120, 26, 3},
	}

	for _, tc := range cases {
		seq := randomSequence(r, tc.length, tc.m)

		fast, err := Accumulate(seq, tc.m, tc.kappa)
		require.NoError(t, err)
		slow, err := AccumulateQuadratic(seq, tc.m, tc.kappa)
		require.NoError(t, err)

		closeRel(t, slow.W0, fast.W0, 1e-9, "W0")
		closeRel(t, slow.W1, fast.W1, 1e-9, "W1")
		closeRel(t, slow.Pairs, fast.Pairs, 0, "Pairs")
		assert.Equal(t, slow.Counts, fast.Counts)
		closeRel(t, RootMeanGapPhi(slow), RootMeanGapPhi(fast), 1e-9, "phi")
		closeRel(t, PowerMeanPhi(slow, false), PowerMeanPhi(fast, false), 1e-9, "power-mean")
	}
}

func TestAccumulate_HandComputed(t *testing.T) {
	// A A B with κ=1: A->A has one gap of 1, A->B has gaps 2 and 1.
	acc, err := Accumulate([]int{0, 0, 1}, 2, 1)
	require.NoError(t, err)

	e1, e2 := math.Exp(-1), math.Exp(-2)
	assert.InDelta(t, e1, acc.W0[0], 1e-15)
	assert.InDelta(t, e1, acc.W1[0], 1e-15)
	assert.InDelta(t, e1+e2, acc.W0[1], 1e-15)
	assert.InDelta(t, e1+2*e2, acc.W1[1], 1e-15)
	assert.Equal(t, 2.0, acc.Pairs[1])
	assert.Equal(t, []int{2, 1}, acc.Counts)

	// Nothing ever follows B.
	assert.Zero(t, acc.W0[2])
	assert.Zero(t, acc.W0[3])

	phi := RootMeanGapPhi(acc)
	assert.InDelta(t, 1.0, phi[0], 1e-12)
	assert.InDelta(t, 1.1264730007283774, phi[1], 1e-12)
	assert.Zero(t, phi[2])
}

func TestAccumulate_SingleSymbol(t *testing.T) {
	acc, err := Accumulate([]int{2}, 3, 1)
	require.NoError(t, err)
	for _, v := range RootMeanGapPhi(acc) {
		assert.Zero(t, v)
	}
	for _, v := range PowerMeanPhi(acc, false) {
		assert.Zero(t, v)
	}
	assert.Equal(t, 1, acc.Length)
}

func TestAccumulate_InvalidKappa(t *testing.T) {
	for _, kappa := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := Accumulate([]int{0, 1}, 2, kappa)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidParameter), "kappa=%v", kappa)

		var perr *domain.InvalidParameterError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "kappa", perr.Name)
	}
}

func TestAccumulate_InvalidInput(t *testing.T) {
	_, err := Accumulate(nil, 2, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = Accumulate([]int{0, 2}, 2, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	_, err = Accumulate([]int{0}, 0, 1)
	assert.ErrorIs(t, err, domain.ErrEmptyAlphabet)
}

func TestAccumulate_Deterministic(t *testing.T) {
	seq := randomSequence(rand.New(rand.NewSource(7)), 500, 8)
	first, err := Accumulate(seq, 8, 0.5)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Accumulate(seq, 8, 0.5)
		require.NoError(t, err)
		assert.Equal(t, first.W0, again.W0)
		assert.Equal(t, first.W1, again.W1)
	}
}

func TestPowerMeanPhi_PublishedExample(t *testing.T) {
	// Alphabet A B C D Z, sequence B B A C A C A A B A, κ=5.
	seq := []int{1, 1, 0, 2, 0, 2, 0, 0, 1, 0}
	acc, err := Accumulate(seq, 5, 5)
	require.NoError(t, err)

	want := []float64{0.233051, 0.279175, 0.339226, 0, 0, 0.261774, 0.295312, 0.102704, 0, 0}
	got := PowerMeanPhi(acc, false)
	for k, w := range want {
		assert.InDelta(t, w, got[k], 1e-6, "cell %d", k)
	}

	perLength := PowerMeanPhi(acc, true)
	assert.InDelta(t, 0.369361, perLength[0], 1e-6)
	assert.InDelta(t, 0.442463, perLength[1], 1e-6)
}

func TestParseStatistic(t *testing.T) {
	s, err := ParseStatistic("")
	require.NoError(t, err)
	assert.Equal(t, RootMeanGap, s)

	s, err = ParseStatistic("power-mean")
	require.NoError(t, err)
	assert.Equal(t, PowerMean, s)

	_, err = ParseStatistic("median")
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func BenchmarkAccumulate(b *testing.B) {
	seq := randomSequence(rand.New(rand.NewSource(1)), 10000, 50)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Accumulate(seq, 50, 1); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAccumulateQuadratic(b *testing.B) {
	seq := randomSequence(rand.New(rand.NewSource(1)), 2000, 50)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := AccumulateQuadratic(seq, 50, 1); err != nil {
			b.Fatal(err)
		}
	}
}
