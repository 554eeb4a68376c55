// Package businessflow contains the blink generation use cases and the wallet session watcher
package businessflow

import (
	"errors"
	"fmt"

	"github.com/amirphl/avax-blinks/repository"
)

// Business flow error constants
var (
	// Composition errors
	ErrUnknownPlatform    = errors.New("unknown platform")
	ErrInvalidDestination = errors.New("destination must be a non-empty absolute URL")

	// Wallet errors
	ErrInvalidAddress       = errors.New("invalid wallet address")
	ErrWalletProviderAbsent = errors.New("no wallet provider available")

	// Storage errors, recovered inside the record store
	ErrPersistenceUnavailable = repository.ErrPersistenceUnavailable
	ErrMalformedStoredData    = repository.ErrMalformedStoredData
	ErrListingUnsupported     = repository.ErrListingUnsupported

	ErrClipboardWriteFailed = errors.New("clipboard write failed")
	ErrExportFailed         = errors.New("export failed")
)

// BusinessError carries a machine readable code alongside the wrapped cause
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsUnknownPlatform(err error) bool {
	return errors.Is(err, ErrUnknownPlatform)
}

func IsInvalidDestination(err error) bool {
	return errors.Is(err, ErrInvalidDestination)
}

func IsInvalidAddress(err error) bool {
	return errors.Is(err, ErrInvalidAddress)
}

func IsWalletProviderAbsent(err error) bool {
	return errors.Is(err, ErrWalletProviderAbsent)
}

func IsPersistenceUnavailable(err error) bool {
	return errors.Is(err, ErrPersistenceUnavailable)
}

func IsMalformedStoredData(err error) bool {
	return errors.Is(err, ErrMalformedStoredData)
}

func IsListingUnsupported(err error) bool {
	return errors.Is(err, ErrListingUnsupported)
}

func IsClipboardWriteFailed(err error) bool {
	return errors.Is(err, ErrClipboardWriteFailed)
}

func IsExportFailed(err error) bool {
	return errors.Is(err, ErrExportFailed)
}
