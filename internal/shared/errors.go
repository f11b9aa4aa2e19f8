package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Session errors
	ErrAuthRequired     = fmt.Errorf("authentication required")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrStorage          = fmt.Errorf("session storage failed")

	// Gateway errors. Every non-2xx response matches ErrRequestFailed plus one of the status classes.
	ErrRequestFailed = fmt.Errorf("request failed")
	ErrNetwork       = fmt.Errorf("network error")
	ErrTimeout       = fmt.Errorf("operation timed out")
	ErrValidation    = fmt.Errorf("rejected by server")
	ErrNotFound      = fmt.Errorf("not found")
	ErrServer        = fmt.Errorf("server error")

	// Bus errors
	ErrBusClosed = fmt.Errorf("event bus closed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
