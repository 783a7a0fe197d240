package protocol

import (
	"errors"
	"fmt"
)

// ErrorCode is a JSON-RPC 2.0 error code.
type ErrorCode int

const (
	CodeParseError     ErrorCode = -32700
	CodeInvalidRequest ErrorCode = -32600
	CodeMethodNotFound ErrorCode = -32601
	CodeInvalidParams  ErrorCode = -32602
	CodeInternalError  ErrorCode = -32603
)

// String returns the snake_case name used in logs and the call journal.
func (c ErrorCode) String() string {
	switch c {
	case CodeParseError:
		return "parse_error"
	case CodeInvalidRequest:
		return "invalid_request"
	case CodeMethodNotFound:
		return "method_not_found"
	case CodeInvalidParams:
		return "invalid_params"
	case CodeInternalError:
		return "internal_error"
	default:
		return fmt.Sprintf("code_%d", int(c))
	}
}

// ToolError is a protocol-visible failure. It is created where the failure
// happens and travels unchanged to the transport.
type ToolError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// InvalidParams returns a ToolError with CodeInvalidParams.
func InvalidParams(format string, args ...any) *ToolError {
	return &ToolError{Code: CodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

// MethodNotFound returns a ToolError with CodeMethodNotFound.
func MethodNotFound(format string, args ...any) *ToolError {
	return &ToolError{Code: CodeMethodNotFound, Message: fmt.Sprintf(format, args...)}
}

// InternalError returns a ToolError with CodeInternalError.
func InternalError(format string, args ...any) *ToolError {
	return &ToolError{Code: CodeInternalError, Message: fmt.Sprintf(format, args...)}
}

// AsToolError converts err into a ToolError. Errors that are not already a
// ToolError become internal errors carrying the original message.
func AsToolError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return InternalError("%s", err.Error())
}
