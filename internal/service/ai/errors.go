package ai

import (
	"github.com/pkg/errors"
)

const errorPrefix = "Error: "

// GenerationError covers every failure of the text-generation call: network,
// auth, quota and malformed responses alike. No failure is retried.
type GenerationError struct {
	Cause error
}

func newGenerationError(cause error) *GenerationError {
	return &GenerationError{Cause: cause}
}

func (e *GenerationError) Error() string {
	if e.Cause == nil {
		return "generation failed"
	}
	return e.Cause.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// IsGenerationError reports whether err came from the text-generation call.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}

// FormatError renders err the way it is shown in the transcript.
func FormatError(err error) string {
	if err == nil {
		return errorPrefix + "unknown error"
	}
	return errorPrefix + err.Error()
}
