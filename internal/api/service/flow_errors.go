package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPromptRequired         = errors.New("prompt is required and must be a non-empty string")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
)

// AuthenticationRequiredError is returned before any outbound call when the
// caller's Storage API credentials are missing.
type AuthenticationRequiredError struct {
	Missing []string
}

func (e *AuthenticationRequiredError) Error() string {
	return fmt.Sprintf("authentication required: missing %s", strings.Join(e.Missing, ", "))
}

// ResponseParseError reports generation text that is not valid JSON even after
// repair. Tail keeps the end of the raw text for server-side diagnostics only.
type ResponseParseError struct {
	Tail string
	Err  error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("invalid JSON in AI response: %s", e.Err)
}

func (e *ResponseParseError) Unwrap() error {
	return e.Err
}

// InvalidStructureError reports a parsed answer missing required fields.
type InvalidStructureError struct {
	Missing []string
}

func (e *InvalidStructureError) Error() string {
	return fmt.Sprintf("Invalid flow configuration structure: missing %s", strings.Join(e.Missing, ", "))
}
