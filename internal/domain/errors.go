package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyAlphabet           = errors.New("empty alphabet")
	ErrUnknownSymbol           = errors.New("unknown symbol")
	ErrInvalidParameter        = errors.New("invalid parameter")
	ErrDuplicateAlphabetSymbol = errors.New("duplicate alphabet symbol")
	ErrNotFitted               = errors.New("transformer has no fixed alphabet; call Fit or FitTransform first")
)

// EmptyAlphabetError is returned when an alphabet would have zero symbols.
type EmptyAlphabetError struct {
	Source string
}

func (e *EmptyAlphabetError) Error() string {
	if e.Source == "" {
		return ErrEmptyAlphabet.Error()
	}
	return fmt.Sprintf("%s: %s", ErrEmptyAlphabet, e.Source)
}

func (e *EmptyAlphabetError) Is(target error) bool { return target == ErrEmptyAlphabet }

// UnknownSymbolError is returned when a sequence contains a symbol outside a fixed alphabet.
type UnknownSymbolError struct {
	Symbol   string
	Position int
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("%s %q at position %d", ErrUnknownSymbol, e.Symbol, e.Position)
}

func (e *UnknownSymbolError) Is(target error) bool { return target == ErrUnknownSymbol }

// InvalidParameterError reports a caller contract violation such as kappa <= 0.
type InvalidParameterError struct {
	Name   string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("%s %s=%v: %s", ErrInvalidParameter, e.Name, e.Value, e.Reason)
}

func (e *InvalidParameterError) Is(target error) bool { return target == ErrInvalidParameter }

// DuplicateAlphabetSymbolError is returned for an explicit alphabet with repeats.
type DuplicateAlphabetSymbolError struct {
	Symbol string
	First  int
	Second int
}

func (e *DuplicateAlphabetSymbolError) Error() string {
	return fmt.Sprintf("%s %q at positions %d and %d", ErrDuplicateAlphabetSymbol, e.Symbol, e.First, e.Second)
}

func (e *DuplicateAlphabetSymbolError) Is(target error) bool {
	return target == ErrDuplicateAlphabetSymbol
}

// ItemError attributes a failure to its original corpus position.
type ItemError struct {
	Index      int
	SequenceID string
	Err        error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("sequence %d (%s): %v", e.Index, e.SequenceID, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// BatchError lists every failed item of a batch. Successful siblings are
// still available on the BatchResult it came from.
type BatchError struct {
	Total    int
	Failures []ItemError
}

func (e *BatchError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d of %d sequences failed", len(e.Failures), e.Total)
	const maxListed = 5
	for i, f := range e.Failures {
		if i == maxListed {
			fmt.Fprintf(&sb, "; and %d more", len(e.Failures)-maxListed)
			break
		}
		sb.WriteString("; ")
		sb.WriteString(f.Error())
	}
	return sb.String()
}

// Unwrap exposes the item errors to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}
