package shared

import "fmt"

// Sentinel errors shared across commands. Callers wrap them with fmt.Errorf("%w: ...")
// and main maps them to exit codes with errors.Is.
var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// config.toml
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// sign-in and session
	ErrAuthFailed       = fmt.Errorf("sign-in failed")
	ErrNotAuthenticated = fmt.Errorf("not signed in")
	ErrTokenExpired     = fmt.Errorf("session token expired")
	ErrRefreshFailed    = fmt.Errorf("session refresh failed")

	// transcription backend
	ErrAPIRequest         = fmt.Errorf("backend request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// user input
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
