package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies business errors so the boundary layer can map them to a response status.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindValidation   ErrorKind = "validation"
	KindUnauthorized ErrorKind = "unauthorized"
	KindForbidden    ErrorKind = "forbidden"
)

// Error is an expected business failure. Two errors are equal for errors.Is when their codes match.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

const (
	CodeNotFound   = "ERR_NF"
	CodeValidation = "ERR_VALID"
	CodeUnauth     = "ERR_UNAUTH"
	CodeForbidden  = "ERR_FORBIDDEN"
)

func NewNotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: message}
}

func NewValidation(message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: message}
}

func NewUnauthorized(code, message string) *Error {
	if code == "" {
		code = CodeUnauth
	}
	return &Error{Kind: KindUnauthorized, Code: code, Message: message}
}

func NewForbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: message}
}

// Generic sentinels, one per kind.
var (
	ErrNotFound   = NewNotFound("resource not found")
	ErrValidation = NewValidation("validation failed")
	ErrForbidden  = NewForbidden("forbidden")
)

var (
	ErrUserExists            = &Error{Kind: KindValidation, Code: "USER_EXISTS", Message: "User already exists"}
	ErrInvalidCredentials    = &Error{Kind: KindUnauthorized, Code: "INVALID_CREDENTIALS", Message: "Invalid credentials"}
	ErrNotVerified           = &Error{Kind: KindForbidden, Code: "EMAIL_NOT_VERIFIED", Message: "please verify email before signing in"}
	ErrInvalidOrExpiredToken = &Error{Kind: KindValidation, Code: "INVALID_OR_EXPIRED_TOKEN", Message: "Invalid or expired token"}
	ErrSessionForbidden      = &Error{Kind: KindForbidden, Code: CodeForbidden, Message: "You can not perform this operation"}

	ErrDuplicateProjectName = &Error{Kind: KindValidation, Code: "DUPLICATE_PROJECT_NAME", Message: "You already have a project with this name"}
	ErrNewOwnerHasProject   = &Error{Kind: KindValidation, Code: "DUPLICATE_PROJECT_NAME", Message: "The new owner already has a project with this name"}
	ErrAlreadyMember        = &Error{Kind: KindValidation, Code: "ALREADY_MEMBER", Message: "User is already a member of this project"}
	ErrDuplicateTaskTitle   = &Error{Kind: KindValidation, Code: "DUPLICATE_TASK_TITLE", Message: "You already have a task with this name in this project"}
	ErrAssigneeNotMember    = &Error{Kind: KindValidation, Code: "ASSIGNEE_NOT_MEMBER", Message: "Assignee is not a member of this project"}

	ErrTokenMissing        = NewUnauthorized("TOKEN_MISSING", "Authentication required")
	ErrTokenExpired        = NewUnauthorized("TOKEN_EXPIRED", "Token expired")
	ErrTokenInvalid        = NewUnauthorized("TOKEN_INVALID", "Invalid token")
	ErrAuthFailed          = NewUnauthorized("AUTH_FAILED", "Authentication failed")
	ErrRefreshTokenMissing = NewUnauthorized("REFRESH_TOKEN_MISSING", "No token provided")
	ErrRefreshTokenExpired = NewUnauthorized("REFRESH_TOKEN_EXPIRED", "Token expired")
	ErrRefreshTokenInvalid = NewUnauthorized("REFRESH_TOKEN_INVALID", "Invalid token")
	ErrRefreshAuthFailed   = NewUnauthorized("REFRESH_AUTH_FAILED", "Authentication failed")
)

// KindOf reports the kind of a business error, or "" for infrastructure failures.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
