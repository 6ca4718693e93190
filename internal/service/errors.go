package service

// errors.go — typed domain error taxonomy.
// Codes are stable, spelled the way callers see them in bulk failure rows and
// the API error envelope. Services return these instead of bare errors so the
// HTTP layer and the bulk coordinator can map outcomes without string parsing.

import (
	"errors"
	"strings"
)

// Domain error codes.
const (
	CodeValidation        = "ValidationError"
	CodeForbidden         = "Forbidden"
	CodeNotFound          = "NotFound"
	CodeInvalidTransition = "InvalidTransition"
	CodeNotPayable        = "InvoiceNotPayable"
	CodeOverpayment       = "OverpaymentRejected"
	CodeResubmissionLimit = "ResubmissionLimitExceeded"
	CodeConflict          = "Conflict"
)

// DomainError is a business-rule or validation failure that is safe to show
// to the caller verbatim.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string { return e.Message }

func domainErr(code, msg string) *DomainError {
	return &DomainError{Code: code, Message: msg}
}

// CodeOf extracts the domain code from err, or "" for infrastructure errors.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// translateTxError maps transaction-level failures onto the taxonomy.
// Serialization failures (SQLSTATE 40001) and lock timeouts (55P03) mean the
// operation lost a race and is safe to retry whole; domain errors pass
// through untouched.
func translateTxError(err error) error {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return err
	}
	msg := err.Error()
	if strings.Contains(msg, "40001") || strings.Contains(msg, "55P03") || strings.Contains(msg, "deadlock") {
		return domainErr(CodeConflict, "operation lost a concurrent race, retry")
	}
	return err
}
