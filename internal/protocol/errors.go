package protocol

import "fmt"

// ValidationError reports a malformed order payload. It is returned before
// any XML is produced, so a rejected payload never reaches the Inbox.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "protocol: invalid payload: " + e.Reason
	}
	return fmt.Sprintf("protocol: invalid payload: %s: %s", e.Field, e.Reason)
}

// ParseError reports response content that does not match any known
// instrument schema.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol: parse response: %s: %v", e.Reason, e.Err)
	}
	return "protocol: parse response: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }
