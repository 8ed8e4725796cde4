package domain

import "errors"

// Credential and account errors.
var (
	ErrPrincipalNotFound = errors.New("principal not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrAccountNotEnabled = errors.New("account not enabled")
	ErrBadCredentials    = errors.New("bad credentials")
	ErrInvalidInput      = errors.New("invalid input")
)

// Email-verification errors.
var (
	ErrCodeExpired     = errors.New("verification code expired")
	ErrCodeMismatch    = errors.New("invalid verification code")
	ErrAlreadyVerified = errors.New("account already verified")
)

// Token errors. Validation classifies every failure into exactly one of
// these; malformed input must never surface as anything but ErrTokenMalformed.
var (
	ErrTokenExpired    = errors.New("token expired")
	ErrBadSignature    = errors.New("invalid token signature")
	ErrTokenMalformed  = errors.New("malformed token")
	ErrSubjectMismatch = errors.New("token subject mismatch")
)

// OTP step-up errors.
var (
	ErrOtpInvalid  = errors.New("invalid or expired OTP")
	ErrOtpDispatch = errors.New("OTP dispatch failed")
)
