package encode

import (
	"errors"
	"fmt"
)

// ErrEncoderUnavailable means the external encoder binary was not found
// when the Encoder was built.
var ErrEncoderUnavailable = errors.New("external encoder unavailable")

// EncodeFailed is a non-zero exit (or timeout) of the external encoder.
type EncodeFailed struct {
	ExitCode int
	Stderr   string // tail of the encoder's stderr
	Err      error
}

func (e *EncodeFailed) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("encode failed (exit %d): %v: %s", e.ExitCode, e.Err, e.Stderr)
	}
	return fmt.Sprintf("encode failed (exit %d): %v", e.ExitCode, e.Err)
}

func (e *EncodeFailed) Unwrap() error { return e.Err }

// Error is returned when both the MP4 and GIF strategies failed.
type Error struct {
	Primary  error // MP4 attempt
	Fallback error // GIF attempt
}

func (e *Error) Error() string {
	return fmt.Sprintf("encode: mp4: %v; gif: %v", e.Primary, e.Fallback)
}

func (e *Error) Unwrap() []error { return []error{e.Primary, e.Fallback} }
