package storage

import (
	"errors"

	"classifieds_backend/platform/apperr"
)

// Sentinel errors for storage operations. Returned errors are *apperr.Error
// values whose chain contains one of these plus the backend cause.
var (
	ErrInvalidUpload      = errors.New("storage: invalid upload")
	ErrStorageUnavailable = errors.New("storage: bucket unavailable")
	ErrStorageWrite       = errors.New("storage: write failed")
	ErrStorageDelete      = errors.New("storage: delete failed")
	ErrStorageURL         = errors.New("storage: presigned url failed")
	ErrEndpointConfig     = errors.New("storage: invalid endpoint configuration")

	// ErrObjectNotFound is reported by backends for missing keys.
	ErrObjectNotFound = errors.New("storage: object not found")
)

func storageError(kind apperr.Kind, sentinel error, op, message string, cause error) *apperr.Error {
	err := sentinel
	if cause != nil {
		err = errors.Join(sentinel, cause)
	}
	return apperr.Wrap(kind, message, err).WithOp(op)
}

func invalidUpload(message string) *apperr.Error {
	return storageError(apperr.KindValidation, ErrInvalidUpload, "storage.Upload", message, nil)
}
