package video

import "errors"

// Job-level failures. Callers match these with errors.Is.
var (
	// ErrEmptyInput is returned before any work starts when neither image nor clip locators were supplied.
	ErrEmptyInput = errors.New("no image or clip sources supplied")

	// ErrEnvironmentUnavailable means ffmpeg/ffprobe cannot be run at all, so not even a placeholder can be produced.
	ErrEnvironmentUnavailable = errors.New("rendering toolkit unavailable")

	// ErrEncodingFailure wraps a failed final mux/encode. Scratch files are already removed when it is returned.
	ErrEncodingFailure = errors.New("final encode failed")

	// ErrNarrationUnreadable means the narration buffer was empty or its duration could not be probed.
	ErrNarrationUnreadable = errors.New("narration audio unreadable")
)

// errResourceUnavailable marks a single scene source that could not be fetched or rendered.
// It never leaves the resolver.
var errResourceUnavailable = errors.New("scene resource unavailable")
