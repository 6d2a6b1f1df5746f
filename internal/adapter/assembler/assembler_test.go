package assembler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"sgt/internal/adapter/alphabet"
	"sgt/internal/adapter/kernel"
	"sgt/internal/domain"
)

func accumulate(t *testing.T, idx *alphabet.Index, symbols []string, kappa float64) *kernel.Accumulation {
	t.Helper()
	enc, err := idx.Encode(symbols)
	require.NoError(t, err)
	acc, err := kernel.Accumulate(enc, idx.Len(), kappa)
	require.NoError(t, err)
	return acc
}

func TestAssemble_LengthInsensitiveIsPhi(t *testing.T) {
	idx, err := alphabet.New([]string{"A", "B", "C"})
	require.NoError(t, err)
	acc := accumulate(t, idx, []string{"B", "B", "A", "C", "A", "C", "A", "A", "B", "A"}, 1)

	emb, err := New(Options{Flatten: true}).Assemble("s1", idx, acc)
	require.NoError(t, err)

	assert.Equal(t, kernel.RootMeanGapPhi(acc), emb.Vector)
	assert.True(t, emb.Flattened())
	assert.Equal(t, 9, emb.Dim())
	assert.Equal(t, 10, emb.Length)
	assert.Equal(t, "s1", emb.SequenceID)
}

func TestAssemble_LengthSensitiveScalesRows(t *testing.T) {
	idx, err := alphabet.New([]string{"A", "B", "C"})
	require.NoError(t, err)
	seq := []string{"B", "B", "A", "C", "A", "C", "A", "A", "B", "A"}
	acc := accumulate(t, idx, seq, 2)

	plain, err := New(Options{Flatten: true}).Assemble("", idx, acc)
	require.NoError(t, err)
	scaled, err := New(Options{Flatten: true, LengthSensitive: true}).Assemble("", idx, acc)
	require.NoError(t, err)

	// N_A = 5, N_B = 3, N_C = 2 over L = 10.
	factors := []float64{0.5, 0.3, 0.2}
	for u := 0; u < 3; u++ {
		for v := 0; v < 3; v++ {
			assert.InDelta(t, plain.At(u, v)*factors[u], scaled.At(u, v), 1e-15)
		}
	}
}

func TestAssemble_RepetitionChangesOnlyLengthSensitive(t *testing.T) {
	// "A B" followed by a run of C's: doubling the run changes N_u/L but
	// leaves the A and B rows of Φ untouched.
	idx, err := alphabet.New([]string{"A", "B", "C"})
	require.NoError(t, err)
	short := accumulate(t, idx, []string{"A", "B", "C", "C"}, 1)
	long := accumulate(t, idx, []string{"A", "B", "C", "C", "C", "C"}, 1)

	insensitive := New(Options{Flatten: true})
	sensitive := New(Options{Flatten: true, LengthSensitive: true})

	s1, _ := insensitive.Assemble("", idx, short)
	s2, _ := insensitive.Assemble("", idx, long)
	l1, _ := sensitive.Assemble("", idx, short)
	l2, _ := sensitive.Assemble("", idx, long)

	assert.InDelta(t, s1.At(0, 1), s2.At(0, 1), 1e-15)
	// L grows from 4 to 6 while N_A stays 1.
	assert.InDelta(t, l1.At(0, 1)*4.0/6.0, l2.At(0, 1), 1e-15)
	assert.NotEqual(t, l1.At(0, 1), l2.At(0, 1))
}

func TestAssemble_MatrixForm(t *testing.T) {
	idx, err := alphabet.New([]string{"x", "y"})
	require.NoError(t, err)
	acc := accumulate(t, idx, []string{"x", "y", "x"}, 1)

	emb, err := New(Options{}).Assemble("m", idx, acc)
	require.NoError(t, err)
	require.NotNil(t, emb.Matrix)
	assert.Nil(t, emb.Vector)

	r, c := emb.Matrix.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, []string{"x", "y"}, emb.Alphabet)
	assert.Equal(t, kernel.RootMeanGapPhi(acc), emb.Values())
}

func TestAssemble_PowerMeanIgnoresRowScaling(t *testing.T) {
	idx, err := alphabet.New([]string{"A", "B", "C", "D", "Z"})
	require.NoError(t, err)
	acc := accumulate(t, idx, []string{"B", "B", "A", "C", "A", "C", "A", "A", "B", "A"}, 5)

	emb, err := New(Options{Flatten: true, LengthSensitive: true, Statistic: kernel.PowerMean}).Assemble("", idx, acc)
	require.NoError(t, err)

	want := []float64{0.233, 0.279, 0.339, 0, 0, 0.262}
	for k, w := range want {
		assert.InDelta(t, w, emb.Vector[k], 5e-4, "cell %d", k)
	}
}

func TestAssemble_AlphabetMismatch(t *testing.T) {
	small, _ := alphabet.New([]string{"A"})
	big, _ := alphabet.New([]string{"A", "B"})
	acc := accumulate(t, big, []string{"A", "B"}, 1)

	_, err := New(Options{}).Assemble("", small, acc)
	assert.Error(t, err)
}

func TestFlattenUnflatten_RoundTrip(t *testing.T) {
	m := mat.NewDense(3, 3, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	vec := Flatten(m)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, vec)

	back, err := Unflatten(vec, 3)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, back))

	// Unflatten copies, so mutating the vector leaves the matrix intact.
	vec[0] = 100
	assert.Equal(t, 1.0, back.At(0, 0))

	_, err = Unflatten([]float64{1, 2, 3}, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestFlatten_OrderSharedAcrossSequences(t *testing.T) {
	idx, err := alphabet.New([]string{"A", "B", "C"})
	require.NoError(t, err)
	asm := New(Options{})

	for _, seq := range [][]string{{"A", "B", "C"}, {"C", "C", "A", "B", "B"}} {
		emb, err := asm.Assemble("", idx, accumulate(t, idx, seq, 1))
		require.NoError(t, err)
		vec := Flatten(emb.Matrix)
		for u := 0; u < 3; u++ {
			for v := 0; v < 3; v++ {
				assert.Equal(t, emb.Matrix.At(u, v), vec[u*3+v])
			}
		}
	}
}

func TestFeatureNames(t *testing.T) {
	idx, err := alphabet.New([]string{"login", "pw"})
	require.NoError(t, err)
	assert.Equal(t, []string{"login->login", "login->pw", "pw->login", "pw->pw"}, FeatureNames(idx))
}
