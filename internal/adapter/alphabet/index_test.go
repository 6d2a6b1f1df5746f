package alphabet

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sgt/internal/domain"
)

func TestNew_KeepsOrder(t *testing.T) {
	idx, err := New([]string{"C", "A", "B"})
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, []string{"C", "A", "B"}, idx.Symbols())
	i, ok := idx.Lookup("A")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	assert.Equal(t, "B", idx.Symbol(2))
}

func TestNew_Empty(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, domain.ErrEmptyAlphabet)
}

func TestNew_Duplicate(t *testing.T) {
	_, err := New([]string{"A", "B", "A"})
	require.Error(t, err)

	var dup *domain.DuplicateAlphabetSymbolError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "A", dup.Symbol)
	assert.Equal(t, 0, dup.First)
	assert.Equal(t, 2, dup.Second)
	assert.ErrorIs(t, err, domain.ErrDuplicateAlphabetSymbol)
}

func TestInfer_Sorted(t *testing.T) {
	corpus := [][]string{{"B", "B", "A"}, {"C", "Z", "D"}}
	idx, err := Infer(corpus, OrderSorted)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D", "Z"}, idx.Symbols())

	again, err := Infer(corpus, OrderSorted)
	require.NoError(t, err)
	assert.True(t, idx.Equal(again))
}

func TestInfer_Insertion(t *testing.T) {
	corpus := [][]string{{"B", "B", "A"}, {"C", "A", "Z"}}
	idx, err := Infer(corpus, OrderInsertion)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C", "Z"}, idx.Symbols())
}

func TestInfer_EmptyCorpus(t *testing.T) {
	_, err := Infer(nil, OrderSorted)
	assert.ErrorIs(t, err, domain.ErrEmptyAlphabet)

	_, err = Infer([][]string{{}, {}}, OrderSorted)
	assert.ErrorIs(t, err, domain.ErrEmptyAlphabet)
}

func TestInfer_BadOrder(t *testing.T) {
	_, err := Infer([][]string{{"A"}}, Order("random"))
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestInferSequences(t *testing.T) {
	idx, err := InferSequences([]domain.Sequence{{ID: "1", Symbols: []string{"y", "x"}}}, OrderSorted)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, idx.Symbols())
}

func TestExtend_KeepsExistingIndices(t *testing.T) {
	base, err := New([]string{"A", "B", "C"})
	require.NoError(t, err)

	ext := base.Extend("Z", "A", "D")
	assert.Equal(t, []string{"A", "B", "C", "Z", "D"}, ext.Symbols())
	for i, s := range base.Symbols() {
		j, ok := ext.Lookup(s)
		require.True(t, ok)
		assert.Equal(t, i, j)
	}
	// The original is untouched.
	assert.Equal(t, 3, base.Len())
	assert.False(t, base.Equal(ext))
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("")
	require.NoError(t, err)
	assert.Equal(t, OrderSorted, o)

	o, err = ParseOrder("insertion")
	require.NoError(t, err)
	assert.Equal(t, OrderInsertion, o)

	_, err = ParseOrder("shuffled")
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	idx, err := New([]string{"A", "B", "C"})
	require.NoError(t, err)

	enc, err := idx.Encode([]string{"B", "B", "A", "C"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 0, 2}, enc)
}

func TestEncode_UnknownSymbol(t *testing.T) {
	idx, err := New([]string{"A", "B", "C"})
	require.NoError(t, err)

	enc, err := idx.Encode([]string{"A", "Z"})
	assert.Nil(t, enc)

	var unknown *domain.UnknownSymbolError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "Z", unknown.Symbol)
	assert.Equal(t, 1, unknown.Position)
	assert.ErrorIs(t, err, domain.ErrUnknownSymbol)

	// Encoding never grows the alphabet.
	assert.Equal(t, 3, idx.Len())
}

func TestIndex_ConcurrentReaders(t *testing.T) {
	idx, err := New([]string{"A", "B", "C"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if _, err := idx.Encode([]string{"C", "A", "B"}); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
