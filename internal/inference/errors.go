package inference

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// GatewayError indicates a transport or provider failure while calling the
// model endpoint. Calls are single-attempt; retrying is a caller decision.
type GatewayError struct {
	Provider   string
	StatusCode int // 0 when no HTTP status was available
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s gateway error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s gateway error: %v", e.Provider, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ExtractionError indicates model output did not contain parseable
// structured data of the expected shape. Snippet holds at most the first
// 200 characters of the raw text for diagnostics.
type ExtractionError struct {
	Shape   string // "object" or "array"
	Snippet string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("no valid JSON %s found in model output: %q", e.Shape, e.Snippet)
}

// ToolLoopExhaustedError indicates the tool-calling conversation exceeded
// its round budget without the model producing a final answer.
type ToolLoopExhaustedError struct {
	Rounds int
}

func (e *ToolLoopExhaustedError) Error() string {
	return fmt.Sprintf("tool loop exhausted after %d rounds", e.Rounds)
}

// ValidationError indicates a parsed structure is missing required keys or
// carries values outside their declared ranges or enums. Never auto-corrected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// ToolExecutionError indicates a single tool invocation failed. The tool
// loop serializes it back into the conversation rather than aborting.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// ErrorType returns the taxonomy name for an error, used in API responses.
// Wrapped errors are unwrapped before classification.
func ErrorType(err error) string {
	var (
		gatewayErr    *GatewayError
		extractionErr *ExtractionError
		exhaustedErr  *ToolLoopExhaustedError
		validationErr *ValidationError
		toolErr       *ToolExecutionError
	)
	switch {
	case errors.As(err, &gatewayErr):
		return "gateway_error"
	case errors.As(err, &extractionErr):
		return "extraction_error"
	case errors.As(err, &exhaustedErr):
		return "tool_loop_exhausted"
	case errors.As(err, &validationErr):
		return "validation_error"
	case errors.As(err, &toolErr):
		return "tool_execution_error"
	default:
		return "internal_error"
	}
}

// truncateForDiagnostics caps a snippet at 200 bytes, backing off to a rune
// boundary so the result stays valid UTF-8.
func truncateForDiagnostics(raw string) string {
	if len(raw) <= 200 {
		return raw
	}
	cut := 200
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut]
}
