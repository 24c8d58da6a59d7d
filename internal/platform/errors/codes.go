// Package errors provides structured error handling with machine-readable codes.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Application errors
	CodeApplicationCompanyEmpty      Code = "APPLICATION_COMPANY_EMPTY"
	CodeApplicationJobTitleEmpty     Code = "APPLICATION_JOB_TITLE_EMPTY"
	CodeApplicationInvalidStage      Code = "APPLICATION_INVALID_STAGE"
	CodeApplicationInvalidTransition Code = "APPLICATION_INVALID_TRANSITION"
	CodeApplicationNoEditableFields  Code = "APPLICATION_NO_EDITABLE_FIELDS"

	// Intent errors
	CodeUnauthenticated     Code = "UNAUTHENTICATED"
	CodeDeleteNotRequested  Code = "DELETE_NOT_REQUESTED"
	CodeDeleteAlreadyQueued Code = "DELETE_ALREADY_QUEUED"

	// Identity errors
	CodeIdentityInvalidToken Code = "IDENTITY_INVALID_TOKEN"
	CodeIdentityNoSession    Code = "IDENTITY_NO_SESSION"

	// Storage errors
	CodeNotFound         Code = "NOT_FOUND"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeUnavailable      Code = "UNAVAILABLE"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeApplicationCompanyEmpty,
		CodeApplicationJobTitleEmpty,
		CodeApplicationInvalidStage,
		CodeApplicationNoEditableFields:
		return http.StatusBadRequest
	case CodeApplicationInvalidTransition,
		CodeDeleteNotRequested,
		CodeDeleteAlreadyQueued:
		return http.StatusConflict
	case CodeUnauthenticated,
		CodeIdentityInvalidToken,
		CodeIdentityNoSession:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
