// Package errs defines the sentinel errors shared across treebank packages.
//
// Callers match errors with errors.Is:
//
//	idx, err := set.Add(text, nil)
//	if errors.Is(err, errs.ErrUnterminatedQuote) { ... }
//
// Parse failures additionally carry the byte offset of the failure through
// the ParseError type, which unwraps to one of the parse-kind sentinels.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrUnterminatedQuote indicates a quoted label or attribute value with no
	// closing quote before end of input.
	ErrUnterminatedQuote = errors.New("unterminated quote")

	// ErrMissingEquals indicates an annotation attribute without a '=' between
	// name and value.
	ErrMissingEquals = errors.New("missing '=' in attribute")

	// ErrUnexpectedChar indicates a character that cannot start or continue the
	// current production, e.g. a missing ',' or ')' inside a subtree list.
	ErrUnexpectedChar = errors.New("unexpected character")

	// ErrExtraneousTrailing indicates leftover characters after the optional
	// final ';' of a tree.
	ErrExtraneousTrailing = errors.New("extraneous characters at tree end")

	// ErrBadNumber indicates a malformed branch length after ':'.
	ErrBadNumber = errors.New("malformed number")

	// ErrRange indicates a tree or node index out of bounds.
	ErrRange = errors.New("index out of range")

	// ErrInvalidArgument indicates a caller error such as a negative branch
	// length or an unsupported precision.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInternal indicates a broken internal invariant. It is reported, never
	// paired with undefined behaviour.
	ErrInternal = errors.New("internal error")
)

// ParseError reports a NEWICK parse failure at a byte offset of the input.
type ParseError struct {
	// Offset is the byte position in the input where parsing failed.
	Offset int

	// Kind is one of the parse sentinels above.
	Kind error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed parsing around %d: %v", e.Offset, e.Kind)
}

// Unwrap exposes the kind sentinel to errors.Is.
func (e *ParseError) Unwrap() error {
	return e.Kind
}

// NewParseError creates a ParseError for the given kind at offset.
func NewParseError(offset int, kind error) *ParseError {
	return &ParseError{Offset: offset, Kind: kind}
}
