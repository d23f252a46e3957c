package apperr

import "errors"

// Sentinel errors used across the studio server. Services return these (or
// wrap them with fmt.Errorf and %w) so that the API layer can map failures to
// HTTP responses with errors.Is without caring where they originated.
var (
	// ErrInvalidInput covers bad uploads, empty prompts and a missing source
	// image on an edit request. The request is never dispatched upstream.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout is a generation call that exceeded the transport deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrInvalidCredentials is an upstream rejection of the configured API key.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoPayload means the model response contained no part of the expected
	// payload type (image bytes, audio bytes, or conformant JSON text).
	ErrNoPayload = errors.New("no payload found in response")

	// ErrUpstream is any other network, auth or malformed-response failure.
	ErrUpstream = errors.New("upstream failure")

	// ErrSaveFailure covers gallery persistence failures. It never affects
	// generation state or navigation.
	ErrSaveFailure = errors.New("save failed")

	// ErrConfiguration is fatal at startup: a credential is absent or still
	// set to its documented placeholder.
	ErrConfiguration = errors.New("configuration missing")

	// ErrBusy rejects an action while another one is already pending on the
	// same surface.
	ErrBusy = errors.New("request already pending")

	// ErrNotFound is a missing resource (unknown session, empty result).
	ErrNotFound = errors.New("not found")
)

// UserMessage derives the user-visible text for an error. The lowest
// classifiable cause wins; everything unclassified collapses into a generic
// communication failure. No structured codes reach the user, only text.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "The request timed out. Please try again."
	case errors.Is(err, ErrInvalidCredentials):
		return "The provided API key is not valid. Please check your configuration."
	case errors.Is(err, ErrInvalidInput):
		return err.Error()
	case errors.Is(err, ErrSaveFailure):
		return "Could not save image to your gallery. Please try again."
	case errors.Is(err, ErrBusy):
		return "Another request is still running. Please wait for it to finish."
	default:
		return "Failed to communicate with the AI model."
	}
}
