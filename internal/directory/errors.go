package directory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ErrorCategory classifies directory failures.
type ErrorCategory string

const (
	ErrorCategoryConnection     ErrorCategory = "connection"
	ErrorCategoryAuthentication ErrorCategory = "authentication"
	ErrorCategoryPermission     ErrorCategory = "permission"
	ErrorCategoryNotFound       ErrorCategory = "not_found"
	ErrorCategoryValidation     ErrorCategory = "validation"
	ErrorCategoryModify         ErrorCategory = "modify"
	ErrorCategoryServer         ErrorCategory = "server"
	ErrorCategoryUnknown        ErrorCategory = "unknown"
)

// DirectoryError carries the context of a failed directory operation. All
// directory failures are fatal to the invocation; the category exists for
// reporting, not recovery.
type DirectoryError struct {
	Operation string        // The operation that failed
	Category  ErrorCategory // Error category
	LDAPCode  uint16        // LDAP result code, 0 if not an LDAP error
	Message   string        // Human-readable message
	ServerMsg string        // Server-provided diagnostic message
	DN        string        // DN involved in the operation
	Cause     error         // Underlying error
}

func (e *DirectoryError) Error() string {
	var parts []string

	if e.LDAPCode > 0 {
		parts = append(parts, fmt.Sprintf("LDAP %s failed (code %d)", e.Operation, e.LDAPCode))
	} else {
		parts = append(parts, fmt.Sprintf("LDAP %s failed", e.Operation))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.ServerMsg != "" && e.ServerMsg != e.Message {
		parts = append(parts, fmt.Sprintf("server: %s", e.ServerMsg))
	}

	if e.DN != "" {
		parts = append(parts, fmt.Sprintf("DN: %s", e.DN))
	}

	return strings.Join(parts, " - ")
}

func (e *DirectoryError) Unwrap() error {
	return e.Cause
}

// NewDirectoryError wraps err with operation context, extracting the result
// code and diagnostic message when err came from the LDAP library.
func NewDirectoryError(operation, dn string, err error) *DirectoryError {
	if err == nil {
		return nil
	}

	dirErr := &DirectoryError{
		Operation: operation,
		DN:        dn,
		Cause:     err,
	}

	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		dirErr.LDAPCode = ldapErr.ResultCode
		dirErr.Category = categorizeCode(ldapErr.ResultCode)
		dirErr.Message = ldap.LDAPResultCodeMap[ldapErr.ResultCode]
		if ldapErr.Err != nil {
			dirErr.ServerMsg = ldapErr.Err.Error()
		}
	} else {
		dirErr.Category = categorizeGenericError(err)
		dirErr.Message = err.Error()
	}

	return dirErr
}

// categorizeCode maps an LDAP result code to an error category.
func categorizeCode(code uint16) ErrorCategory {
	switch code {
	case ldap.LDAPResultInvalidCredentials,
		ldap.LDAPResultInappropriateAuthentication,
		ldap.LDAPResultAuthMethodNotSupported,
		ldap.LDAPResultStrongAuthRequired:
		return ErrorCategoryAuthentication

	case ldap.LDAPResultInsufficientAccessRights,
		ldap.LDAPResultUnwillingToPerform:
		return ErrorCategoryPermission

	case ldap.LDAPResultNoSuchObject,
		ldap.LDAPResultNoSuchAttribute,
		ldap.LDAPResultUndefinedAttributeType:
		return ErrorCategoryNotFound

	case ldap.LDAPResultInvalidAttributeSyntax,
		ldap.LDAPResultConstraintViolation,
		ldap.LDAPResultInvalidDNSyntax,
		ldap.LDAPResultNamingViolation:
		return ErrorCategoryValidation

	case ldap.LDAPResultAttributeOrValueExists,
		ldap.LDAPResultObjectClassViolation,
		ldap.LDAPResultObjectClassModsProhibited,
		ldap.LDAPResultNotAllowedOnRDN:
		return ErrorCategoryModify

	case ldap.LDAPResultServerDown,
		ldap.LDAPResultUnavailable,
		ldap.LDAPResultBusy,
		ldap.LDAPResultTimeLimitExceeded:
		return ErrorCategoryServer

	case ldap.LDAPResultConnectError,
		ldap.LDAPResultProtocolError:
		return ErrorCategoryConnection

	default:
		return ErrorCategoryUnknown
	}
}

// categorizeGenericError categorizes non-LDAP errors by message.
func categorizeGenericError(err error) ErrorCategory {
	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset") {
		return ErrorCategoryConnection
	}

	if strings.Contains(errStr, "authentication") ||
		strings.Contains(errStr, "credentials") ||
		strings.Contains(errStr, "password") ||
		strings.Contains(errStr, "tls") {
		return ErrorCategoryAuthentication
	}

	if strings.Contains(errStr, "permission") ||
		strings.Contains(errStr, "access") ||
		strings.Contains(errStr, "denied") {
		return ErrorCategoryPermission
	}

	return ErrorCategoryUnknown
}

// GetErrorCategory returns the category of an error.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryUnknown
	}

	var dirErr *DirectoryError
	if errors.As(err, &dirErr) {
		return dirErr.Category
	}

	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) {
		return categorizeCode(ldapErr.ResultCode)
	}

	return categorizeGenericError(err)
}

// IsNoSuchEntry reports whether err indicates the target entry does not
// exist. This module never creates entries, so the condition is fatal.
func IsNoSuchEntry(err error) bool {
	return hasLDAPCode(err, ldap.LDAPResultNoSuchObject)
}

// IsNoSuchAttribute reports whether err indicates the attribute (or a value
// of it) is absent. During a compare this is a normal planning signal, not a
// failure.
func IsNoSuchAttribute(err error) bool {
	return hasLDAPCode(err, ldap.LDAPResultNoSuchAttribute)
}

// IsAuthenticationError reports whether err indicates a rejected bind.
func IsAuthenticationError(err error) bool {
	return GetErrorCategory(err) == ErrorCategoryAuthentication
}

func hasLDAPCode(err error, code uint16) bool {
	if err == nil {
		return false
	}

	var dirErr *DirectoryError
	if errors.As(err, &dirErr) {
		return dirErr.LDAPCode == code
	}

	return ldap.IsErrorWithCode(err, code)
}
