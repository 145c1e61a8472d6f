package sink

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// ErrorCode categorizes print failures.
type ErrorCode string

const (
	// ErrCodeDeviceNotFound means the transport candidate is missing.
	// Callers advance to the next fallback, then to simulation.
	ErrCodeDeviceNotFound ErrorCode = "DEVICE_NOT_FOUND"

	// ErrCodePermissionDenied is fatal for the attempt and surfaced to the
	// operator; never retried automatically.
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// ErrCodeDeviceBusy is transient: eligible for bounded retry on a
	// manual print, terminal for the automatic queue.
	ErrCodeDeviceBusy ErrorCode = "DEVICE_BUSY"

	// ErrCodeTimeout is transient, same policy as ErrCodeDeviceBusy.
	ErrCodeTimeout ErrorCode = "TIMEOUT"

	// ErrCodeWriteFailed is any other classified write failure.
	ErrCodeWriteFailed ErrorCode = "WRITE_FAILED"
)

// PrintError is the only error shape the sink surfaces to callers.
type PrintError struct {
	Code   ErrorCode
	Device string
	Err    error
}

func (e *PrintError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("%s: %v (device=%s)", e.Code, e.Err, e.Device)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *PrintError) Unwrap() error { return e.Err }

// Message is the user-readable form shown in notifications.
func (e *PrintError) Message() string {
	switch e.Code {
	case ErrCodeDeviceNotFound:
		return "Impressora nao encontrada"
	case ErrCodePermissionDenied:
		return "Sem permissao para acessar a impressora"
	case ErrCodeDeviceBusy:
		return "Impressora ocupada"
	case ErrCodeTimeout:
		return "Tempo esgotado ao imprimir"
	}
	return "Falha ao imprimir"
}

// Transient reports whether the failure is eligible for bounded retry on a
// manual print.
func (e *PrintError) Transient() bool {
	return e.Code == ErrCodeDeviceBusy || e.Code == ErrCodeTimeout
}

// CodeOf extracts the classification from a sink error, or ErrCodeWriteFailed
// for anything else.
func CodeOf(err error) ErrorCode {
	var pe *PrintError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrCodeWriteFailed
}

// classify wraps a raw device error into a PrintError with the right code.
func classify(device string, err error) *PrintError {
	code := ErrCodeWriteFailed
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENODEV), errors.Is(err, syscall.ENXIO):
		code = ErrCodeDeviceNotFound
	case errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		code = ErrCodePermissionDenied
	case errors.Is(err, syscall.EBUSY), errors.Is(err, syscall.EAGAIN):
		code = ErrCodeDeviceBusy
	case errors.Is(err, syscall.ETIMEDOUT):
		code = ErrCodeTimeout
	}
	return &PrintError{Code: code, Device: device, Err: err}
}
