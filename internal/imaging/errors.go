package imaging

import (
	"errors"
	"fmt"
)

var (
	ErrDecodeFailed = errors.New("image decode failed")
	ErrEncodeFailed = errors.New("image encode failed")
	ErrSuperseded   = errors.New("normalization superseded by a newer upload")
)

// ImageError reports a normalization failure. Kind is ErrDecodeFailed or
// ErrEncodeFailed; errors.Is matches both Kind and the underlying cause.
type ImageError struct {
	Kind error
	Err  error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *ImageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func decodeError(err error) error {
	return &ImageError{Kind: ErrDecodeFailed, Err: err}
}

func encodeError(err error) error {
	return &ImageError{Kind: ErrEncodeFailed, Err: err}
}
