package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeNetwork          Code = "NETWORK_FAILURE"
	CodeEmptyCart        Code = "EMPTY_CART"
	CodeMissingAddress   Code = "MISSING_ADDRESS"
	CodeCheckoutRejected Code = "CHECKOUT_REJECTED"
	CodeConflict         Code = "CONFLICT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeMethodNotAllowed Code = "METHOD_NOT_ALLOWED"
	CodeInternal         Code = "INTERNAL_ERROR"
)

type Metadata struct {
	HTTPStatus int
	Retryable  bool
	// PublicMessage is shown when the error carries no caller-facing message of its own.
	PublicMessage string
	// CallerFacing marks codes whose own message is safe to show to the shopper.
	CallerFacing   bool
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeUnauthenticated: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "please sign in to continue",
		CallerFacing:  true,
	},
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		CallerFacing:   true,
		DetailsAllowed: true,
	},
	CodeNetwork: {
		HTTPStatus:    http.StatusBadGateway,
		Retryable:     true,
		PublicMessage: "something went wrong, please try again",
	},
	CodeEmptyCart: {
		HTTPStatus:    http.StatusUnprocessableEntity,
		PublicMessage: "Your cart is empty, please add items before placing an order.",
		CallerFacing:  true,
	},
	CodeMissingAddress: {
		HTTPStatus:    http.StatusUnprocessableEntity,
		PublicMessage: "Please select a shipping address.",
		CallerFacing:  true,
	},
	CodeCheckoutRejected: {
		HTTPStatus:    http.StatusConflict,
		Retryable:     true,
		PublicMessage: "Can not checkout empty cart",
		CallerFacing:  true,
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "conflict detected",
		CallerFacing:  true,
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
		CallerFacing:  true,
	},
	CodeMethodNotAllowed: {
		HTTPStatus:    http.StatusMethodNotAllowed,
		PublicMessage: "method not allowed",
		CallerFacing:  true,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal error",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the outermost typed code, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// PublicMessage returns the single shopper-facing reason for err.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	typed := As(err)
	if typed == nil {
		return MetadataFor(CodeInternal).PublicMessage
	}
	meta := MetadataFor(typed.Code())
	if meta.CallerFacing && typed.Message() != "" {
		return typed.Message()
	}
	return meta.PublicMessage
}
