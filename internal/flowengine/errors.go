package flowengine

import "fmt"

// Error is a typed engine error carrying the exact UPPER_SNAKE code token
// the HTTP layer must surface. The HTTP layer switches on Code(), never
// on Error() text.
type Error struct {
	code    string
	status  int
	message string
}

func (e *Error) Error() string { return e.message }

// Code returns the machine-readable error kind (e.g. "INPUT_MISSING").
func (e *Error) Code() string { return e.code }

// HTTPStatus returns the status code this error kind maps to.
func (e *Error) HTTPStatus() int { return e.status }

// ErrSlugNotFound: no published flow exists at the given slug.
func ErrSlugNotFound(slug string) *Error {
	return &Error{code: "FLOW_NOT_FOUND", status: 404, message: fmt.Sprintf("no published flow at slug %q", slug)}
}

// ErrInputMissing: a required flow input was absent from the caller payload.
func ErrInputMissing(name string) *Error {
	return &Error{code: "INPUT_MISSING", status: 400, message: fmt.Sprintf("Missing required input: %s", name)}
}

// ErrCycleDetected: the block graph is not a DAG.
func ErrCycleDetected(remaining []string) *Error {
	return &Error{code: "FLOW_INVALID", status: 400, message: fmt.Sprintf("flow graph has a cycle involving blocks: %v", remaining)}
}

// ErrBlockDefMissing: a block instance references a deleted/unknown definition.
func ErrBlockDefMissing(blockDefID string) *Error {
	return &Error{code: "BLOCK_NOT_FOUND", status: 500, message: fmt.Sprintf("block definition %q not found", blockDefID)}
}

// ErrUnsupportedBlockType: dispatch was attempted for a type with no handler.
func ErrUnsupportedBlockType(t string) *Error {
	return &Error{code: "UNSUPPORTED_BLOCK_TYPE", status: 500, message: fmt.Sprintf("unsupported block type %q", t)}
}

// ErrUpstreamTimeout: the dispatcher's deadline elapsed mid-call.
func ErrUpstreamTimeout() *Error {
	return &Error{code: "UPSTREAM_TIMEOUT", status: 500, message: "upstream request timed out"}
}

// ErrUpstreamHTTP: the upstream returned a non-2xx status after retries.
func ErrUpstreamHTTP(statusCode int) *Error {
	return &Error{code: "UPSTREAM_HTTP_ERROR", status: 500, message: fmt.Sprintf("upstream returned status %d", statusCode)}
}

// ErrFlowTimeout: the overall flow deadline was hit before the plan finished.
func ErrFlowTimeout() *Error {
	return &Error{code: "EXECUTION_ERROR", status: 500, message: "flow_timeout: overall execution deadline exceeded"}
}

// ErrUnsupportedMapping: an expression{} mapping was used under strict mode.
func ErrUnsupportedMapping(targetInput string) *Error {
	return &Error{code: "UNSUPPORTED_MAPPING", status: 400, message: fmt.Sprintf("expression mappings are not supported (target input %q)", targetInput)}
}

// ErrExecution wraps an unexpected internal failure as the generic
// EXECUTION_ERROR kind, the fallback assigned to anything not covered
// by a more specific code.
func ErrExecution(err error) *Error {
	return &Error{code: "EXECUTION_ERROR", status: 500, message: err.Error()}
}
