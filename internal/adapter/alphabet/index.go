// Package alphabet maps sequence symbols to dense integer indices.
//
// An Index is immutable once built and may be shared by any number of
// goroutines. Every embedding computed against the same Index shares one
// coordinate system.
package alphabet

import (
	"fmt"
	"sort"

	"sgt/internal/domain"
)

// Order selects how an inferred alphabet is laid out.
type Order string

const (
	// OrderSorted sorts symbols lexically.
	OrderSorted Order = "sorted"
	// OrderInsertion keeps symbols in first-seen corpus order.
	OrderInsertion Order = "insertion"
)

// ParseOrder converts a config string to an Order. Empty selects OrderSorted.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case "", OrderSorted:
		return OrderSorted, nil
	case OrderInsertion:
		return OrderInsertion, nil
	default:
		return "", &domain.InvalidParameterError{Name: "alphabet.order", Value: s, Reason: "must be sorted or insertion"}
	}
}

// Index is a bijection between symbols and [0, m).
type Index struct {
	symbols []string
	lookup  map[string]int
}

// New builds an Index from an explicit alphabet, keeping its order.
func New(symbols []string) (*Index, error) {
	if len(symbols) == 0 {
		return nil, &domain.EmptyAlphabetError{Source: "explicit alphabet"}
	}
	idx := &Index{
		symbols: make([]string, len(symbols)),
		lookup:  make(map[string]int, len(symbols)),
	}
	for i, s := range symbols {
		if first, dup := idx.lookup[s]; dup {
			return nil, &domain.DuplicateAlphabetSymbolError{Symbol: s, First: first, Second: i}
		}
		idx.lookup[s] = i
		idx.symbols[i] = s
	}
	return idx, nil
}

// Infer builds an Index from the union of symbols in corpus. Two calls on the
// same corpus always yield the same mapping.
func Infer(corpus [][]string, order Order) (*Index, error) {
	seen := make(map[string]struct{})
	var symbols []string
	for _, seq := range corpus {
		for _, s := range seq {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		return nil, &domain.EmptyAlphabetError{Source: fmt.Sprintf("no symbols in corpus of %d sequences", len(corpus))}
	}
	switch order {
	case OrderInsertion:
	case OrderSorted, "":
		sort.Strings(symbols)
	default:
		return nil, &domain.InvalidParameterError{Name: "alphabet.order", Value: order, Reason: "must be sorted or insertion"}
	}
	return New(symbols)
}

// InferSequences is Infer over domain sequences.
func InferSequences(corpus []domain.Sequence, order Order) (*Index, error) {
	raw := make([][]string, len(corpus))
	for i, seq := range corpus {
		raw[i] = seq.Symbols
	}
	return Infer(raw, order)
}

// Extend returns a new Index with the unseen symbols appended in the order
// given. Indices of existing symbols never change.
func (x *Index) Extend(symbols ...string) *Index {
	out := &Index{
		symbols: append([]string(nil), x.symbols...),
		lookup:  make(map[string]int, len(x.symbols)+len(symbols)),
	}
	for s, i := range x.lookup {
		out.lookup[s] = i
	}
	for _, s := range symbols {
		if _, ok := out.lookup[s]; ok {
			continue
		}
		out.lookup[s] = len(out.symbols)
		out.symbols = append(out.symbols, s)
	}
	return out
}

// Len returns m, the number of symbols.
func (x *Index) Len() int { return len(x.symbols) }

// Symbols returns a copy of the ordered symbols.
func (x *Index) Symbols() []string {
	return append([]string(nil), x.symbols...)
}

// Symbol returns the symbol at index i.
func (x *Index) Symbol(i int) string { return x.symbols[i] }

// Lookup returns the index of s.
func (x *Index) Lookup(s string) (int, bool) {
	i, ok := x.lookup[s]
	return i, ok
}

// Equal reports whether both indexes assign the same positions.
func (x *Index) Equal(other *Index) bool {
	if x == nil || other == nil {
		return x == other
	}
	if len(x.symbols) != len(other.symbols) {
		return false
	}
	for i, s := range x.symbols {
		if other.symbols[i] != s {
			return false
		}
	}
	return true
}
