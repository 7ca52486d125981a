package requests

// Error is a domain error with a stable code for logs.
type Error struct {
	code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Code returns the stable error code.
func (e *Error) Code() string { return e.code }

var (
	// ErrNotFound is returned when no request has the given id.
	ErrNotFound = &Error{code: "not_found", msg: "request not found"}
	// ErrUnauthorized is returned when the requester is not an operator.
	ErrUnauthorized = &Error{code: "unauthorized", msg: "requester is not allowed to change request status"}
	// ErrInvalidStatus is returned for an unknown status token.
	ErrInvalidStatus = &Error{code: "invalid_status", msg: "unknown request status"}
	// ErrStorageUnavailable wraps storage faults.
	ErrStorageUnavailable = &Error{code: "storage_unavailable", msg: "request storage unavailable"}
)
