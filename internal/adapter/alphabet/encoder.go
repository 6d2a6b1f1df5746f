package alphabet

import "sgt/internal/domain"

// Encode maps each symbol to its index. The alphabet is never extended: a
// symbol outside it yields *domain.UnknownSymbolError.
func (x *Index) Encode(symbols []string) ([]int, error) {
	out := make([]int, len(symbols))
	for pos, s := range symbols {
		i, ok := x.lookup[s]
		if !ok {
			return nil, &domain.UnknownSymbolError{Symbol: s, Position: pos}
		}
		out[pos] = i
	}
	return out, nil
}
