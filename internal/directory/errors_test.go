package directory

import (
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
)

func TestNewDirectoryError(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		err       error
		wantNil   bool
		wantCode  uint16
	}{
		{
			name:      "nil error",
			operation: "search",
			err:       nil,
			wantNil:   true,
		},
		{
			name:      "ldap error carries result code",
			operation: "bind",
			err:       ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("bad password")),
			wantCode:  ldap.LDAPResultInvalidCredentials,
		},
		{
			name:      "generic error",
			operation: "connect",
			err:       errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewDirectoryError(tt.operation, "", tt.err)

			if tt.wantNil {
				if result != nil {
					t.Errorf("NewDirectoryError() = %v, want nil", result)
				}
				return
			}

			if result == nil {
				t.Fatal("NewDirectoryError() = nil, want non-nil")
			}

			if result.Operation != tt.operation {
				t.Errorf("Operation = %s, want %s", result.Operation, tt.operation)
			}

			if result.LDAPCode != tt.wantCode {
				t.Errorf("LDAPCode = %d, want %d", result.LDAPCode, tt.wantCode)
			}

			if !errors.Is(result, tt.err) {
				t.Error("wrapped error lost its cause")
			}
		})
	}
}

func TestDirectoryError_Error(t *testing.T) {
	tests := []struct {
		name   string
		dirErr *DirectoryError
		want   string
	}{
		{
			name: "basic error",
			dirErr: &DirectoryError{
				Operation: "search",
				Message:   "operation failed",
			},
			want: "LDAP search failed - operation failed",
		},
		{
			name: "error with code",
			dirErr: &DirectoryError{
				Operation: "bind",
				LDAPCode:  ldap.LDAPResultInvalidCredentials,
				Message:   "authentication failed",
			},
			want: "LDAP bind failed (code 49) - authentication failed",
		},
		{
			name: "error with server message",
			dirErr: &DirectoryError{
				Operation: "modify",
				Message:   "validation failed",
				ServerMsg: "attribute required",
			},
			want: "LDAP modify failed - validation failed - server: attribute required",
		},
		{
			name: "error with DN",
			dirErr: &DirectoryError{
				Operation: "modify",
				Message:   "access denied",
				DN:        "cn=config",
			},
			want: "LDAP modify failed - access denied - DN: cn=config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dirErr.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCategorizeCode(t *testing.T) {
	tests := []struct {
		name string
		code uint16
		want ErrorCategory
	}{
		{
			name: "authentication error",
			code: ldap.LDAPResultInvalidCredentials,
			want: ErrorCategoryAuthentication,
		},
		{
			name: "permission error",
			code: ldap.LDAPResultInsufficientAccessRights,
			want: ErrorCategoryPermission,
		},
		{
			name: "entry not found",
			code: ldap.LDAPResultNoSuchObject,
			want: ErrorCategoryNotFound,
		},
		{
			name: "attribute not found",
			code: ldap.LDAPResultNoSuchAttribute,
			want: ErrorCategoryNotFound,
		},
		{
			name: "validation error",
			code: ldap.LDAPResultInvalidAttributeSyntax,
			want: ErrorCategoryValidation,
		},
		{
			name: "modify conflict",
			code: ldap.LDAPResultAttributeOrValueExists,
			want: ErrorCategoryModify,
		},
		{
			name: "schema violation",
			code: ldap.LDAPResultObjectClassViolation,
			want: ErrorCategoryModify,
		},
		{
			name: "server error",
			code: ldap.LDAPResultBusy,
			want: ErrorCategoryServer,
		},
		{
			name: "connection error",
			code: ldap.LDAPResultConnectError,
			want: ErrorCategoryConnection,
		},
		{
			name: "unknown error",
			code: 9999,
			want: ErrorCategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := categorizeCode(tt.code); got != tt.want {
				t.Errorf("categorizeCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCategorizeGenericError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{
			name: "connection error",
			err:  errors.New("connection refused"),
			want: ErrorCategoryConnection,
		},
		{
			name: "timeout error",
			err:  errors.New("operation timeout"),
			want: ErrorCategoryConnection,
		},
		{
			name: "authentication error",
			err:  errors.New("invalid credentials"),
			want: ErrorCategoryAuthentication,
		},
		{
			name: "tls error",
			err:  errors.New("tls handshake failure"),
			want: ErrorCategoryAuthentication,
		},
		{
			name: "unknown error",
			err:  errors.New("something went wrong"),
			want: ErrorCategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := categorizeGenericError(tt.err); got != tt.want {
				t.Errorf("categorizeGenericError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsNoSuchEntry(t *testing.T) {
	rawErr := ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object"))

	if !IsNoSuchEntry(rawErr) {
		t.Error("IsNoSuchEntry() = false for raw ldap error, want true")
	}

	if !IsNoSuchEntry(NewDirectoryError("search", "cn=missing", rawErr)) {
		t.Error("IsNoSuchEntry() = false for wrapped error, want true")
	}

	if IsNoSuchEntry(errors.New("no such object")) {
		t.Error("IsNoSuchEntry() = true for plain error, want false")
	}

	if IsNoSuchEntry(nil) {
		t.Error("IsNoSuchEntry(nil) = true, want false")
	}
}

func TestIsNoSuchAttribute(t *testing.T) {
	rawErr := ldap.NewError(ldap.LDAPResultNoSuchAttribute, errors.New("no such attribute"))

	if !IsNoSuchAttribute(rawErr) {
		t.Error("IsNoSuchAttribute() = false for raw ldap error, want true")
	}

	if !IsNoSuchAttribute(NewDirectoryError("compare", "cn=config", rawErr)) {
		t.Error("IsNoSuchAttribute() = false for wrapped error, want true")
	}

	if IsNoSuchAttribute(ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object"))) {
		t.Error("IsNoSuchAttribute() = true for no-such-object, want false")
	}
}

func TestGetErrorCategory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{
			name: "nil error",
			err:  nil,
			want: ErrorCategoryUnknown,
		},
		{
			name: "wrapped directory error",
			err:  NewDirectoryError("bind", "", ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("bad password"))),
			want: ErrorCategoryAuthentication,
		},
		{
			name: "raw ldap error",
			err:  ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("gone")),
			want: ErrorCategoryNotFound,
		},
		{
			name: "generic error",
			err:  errors.New("connection refused"),
			want: ErrorCategoryConnection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCategory(tt.err); got != tt.want {
				t.Errorf("GetErrorCategory() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsAuthenticationError(t *testing.T) {
	authErr := NewDirectoryError("bind", "", ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("bad password")))

	if !IsAuthenticationError(authErr) {
		t.Error("IsAuthenticationError() = false, want true")
	}

	if IsAuthenticationError(errors.New("no such object")) {
		t.Error("IsAuthenticationError() = true for unrelated error, want false")
	}
}
