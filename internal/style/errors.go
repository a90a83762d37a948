package style

import (
	"errors"
	"fmt"

	"github.com/easeaico/style-echo/internal/history"
	"github.com/easeaico/style-echo/internal/types"
)

// ErrProfileNotFound is wrapped in a ValidationError when a styleId has no
// retrievable profile.
var ErrProfileNotFound = errors.New("style profile not found")

// Stage names the provider call that failed.
type Stage string

const (
	// StageAnalyze covers embedding the input or a profile sample.
	StageAnalyze Stage = "analyze"
	// StageGenerate covers the generation call.
	StageGenerate Stage = "generate"
)

// UpstreamError reports an embedding or generation provider failure.
type UpstreamError struct {
	Stage Stage
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.UserMessage(), e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// UserMessage is the caller-facing text. The two stages have different
// remediation: check the profile, or retry later.
func (e *UpstreamError) UserMessage() string {
	if e.Stage == StageGenerate {
		return "could not generate text"
	}
	return "could not analyze style"
}

// Describe renders err for a caller. Provider details are included only
// when debug is set.
func Describe(err error, debug bool) string {
	if err == nil {
		return ""
	}

	var validation *types.ValidationError
	var upstream *UpstreamError
	var state *history.StateError
	switch {
	case errors.As(err, &validation):
		return validation.Error()
	case errors.As(err, &state):
		return "a session id is required"
	case errors.As(err, &upstream):
		msg := upstream.UserMessage()
		if upstream.Stage == StageGenerate {
			msg += "; please retry later"
		} else {
			msg += "; check the style profile"
		}
		if debug {
			msg += ": " + err.Error()
		}
		return msg
	}
	return err.Error()
}

func profileNotFound(id string, err error) *types.ValidationError {
	if err == nil {
		err = ErrProfileNotFound
	} else {
		err = fmt.Errorf("%w: %w", ErrProfileNotFound, err)
	}
	return &types.ValidationError{Field: "styleId", Reason: fmt.Sprintf("no style profile %q", id), Err: err}
}
