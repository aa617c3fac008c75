package surety

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable rejection reason.
type Code string

const (
	CodeUnknown             Code = "UNKNOWN"
	CodeNotOperational      Code = "NOT_OPERATIONAL"
	CodeUnauthorized        Code = "UNAUTHORIZED"
	CodeCallerNotAirline    Code = "CALLER_NOT_AIRLINE"
	CodeInsufficientFunding Code = "INSUFFICIENT_FUNDING"
	CodeAlreadyRegistered   Code = "ALREADY_REGISTERED"
	CodeAlreadyVoted        Code = "ALREADY_VOTED"
	CodeOracleNotRegistered Code = "ORACLE_NOT_REGISTERED"
	CodeInsufficientFee     Code = "INSUFFICIENT_FEE"
	CodeIndexMismatch       Code = "INDEX_MISMATCH"
	CodeInvalidParameters   Code = "INVALID_PARAMETERS"
	CodeDuplicateResponse   Code = "DUPLICATE_RESPONSE"
	CodeFlightNotRegistered Code = "FLIGHT_NOT_REGISTERED"
	CodeAmountExceeded      Code = "AMOUNT_EXCEEDED"
	CodeRefundNotIssued     Code = "REFUND_NOT_ISSUED"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeNotFound            Code = "NOT_FOUND"
)

// HTTPStatus maps a rejection code to the status the API answers with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotOperational:
		return http.StatusServiceUnavailable
	case CodeUnauthorized, CodeCallerNotAirline, CodeOracleNotRegistered:
		return http.StatusForbidden
	case CodeFlightNotRegistered, CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyRegistered, CodeAlreadyVoted, CodeDuplicateResponse:
		return http.StatusConflict
	case CodeInvalidParameters, CodeIndexMismatch:
		return http.StatusBadRequest
	case CodeInsufficientFunding, CodeInsufficientFee, CodeAmountExceeded,
		CodeRefundNotIssued, CodeInsufficientBalance:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is a rejected transaction. The ledger is unchanged when one is returned.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Errorf builds a rejection with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the rejection code from err, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

var (
	ErrNotOperational      = &Error{Code: CodeNotOperational, Message: "ledger is not currently operational"}
	ErrUnauthorized        = &Error{Code: CodeUnauthorized, Message: "caller is not authorized"}
	ErrCallerNotAirline    = &Error{Code: CodeCallerNotAirline, Message: "caller is not a registered airline"}
	ErrInsufficientFunding = &Error{Code: CodeInsufficientFunding, Message: "caller has not submitted sufficient funding yet"}
	ErrAlreadyRegistered   = &Error{Code: CodeAlreadyRegistered, Message: "already registered"}
	ErrAlreadyVoted        = &Error{Code: CodeAlreadyVoted, Message: "caller has already voted for the candidate airline"}
	ErrOracleNotRegistered = &Error{Code: CodeOracleNotRegistered, Message: "caller is not a registered oracle"}
	ErrInsufficientFee     = &Error{Code: CodeInsufficientFee, Message: "insufficient registration fee"}
	ErrIndexMismatch       = &Error{Code: CodeIndexMismatch, Message: "oracle index mismatch"}
	ErrInvalidParameters   = &Error{Code: CodeInvalidParameters, Message: "invalid parameters"}
	ErrDuplicateResponse   = &Error{Code: CodeDuplicateResponse, Message: "oracle has already responded to this request"}
	ErrFlightNotRegistered = &Error{Code: CodeFlightNotRegistered, Message: "flight is not registered"}
	ErrAmountExceeded      = &Error{Code: CodeAmountExceeded, Message: "insurance amount exceeds the cap"}
	ErrRefundNotIssued     = &Error{Code: CodeRefundNotIssued, Message: "no refund has been issued yet"}
	ErrInsufficientBalance = &Error{Code: CodeInsufficientBalance, Message: "escrow balance cannot cover the refund"}
)
