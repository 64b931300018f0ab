package document

import "errors"

var (
	// ErrUnsupportedFormat is returned for file extensions the loader
	// does not understand.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrCorruptDocument is returned when the underlying parser cannot
	// extract any text from the file.
	ErrCorruptDocument = errors.New("corrupt document")

	// ErrEmptyDocument is returned when extraction succeeds but yields
	// zero non-whitespace characters.
	ErrEmptyDocument = errors.New("empty document")
)
