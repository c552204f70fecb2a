package errors

import "errors"

// Sentinels for domain errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrValidation  = errors.New("validation error")
	ErrUnavailable = errors.New("service unavailable")
)

// Sentinels for pipeline stage failures.
var (
	ErrMissingInput           = errors.New("missing input text")
	ErrMissingStorageConfig   = errors.New("missing storage configuration")
	ErrMissingTelephonyConfig = errors.New("missing telephony configuration")
	ErrUnsupportedFormat      = errors.New("unsupported audio format")
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrSynthesisFailed        = errors.New("synthesis failed")
	ErrStorageUploadFailed    = errors.New("storage upload failed")
	ErrDispatchFailed         = errors.New("call dispatch failed")
)

// Is reports whether err is one of the sentinels.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Wrap adds context to an error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.Join(errors.New(message), err)
}
