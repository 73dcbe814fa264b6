package manager

import "fmt"

// Error kinds exposed to clients. Every manager error carries a stable
// machine-readable kind next to its human-readable message.
const (
	KindModelNotFound      = "model_not_found"
	KindDownloadFailed     = "download_failed"
	KindIncompatibleDevice = "incompatible_device"
	KindOutOfMemory        = "out_of_memory"
	KindLoadTimeout        = "load_timeout"
	KindInUse              = "in_use"
	KindUnknown            = "unknown"
)

// Kinder is implemented by all typed errors in this package (and by the
// session package) so the HTTP layer can map errors without type switches.
type Kinder interface {
	error
	Kind() string
}

type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }
func (e modelNotFoundError) Kind() string  { return KindModelNotFound }

// ErrModelNotFound returns an error for a model id absent from the registry.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether err indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

type downloadFailedError struct {
	id  string
	err error
}

func (e downloadFailedError) Error() string {
	return fmt.Sprintf("download failed for %s: %v", e.id, e.err)
}
func (e downloadFailedError) Kind() string  { return KindDownloadFailed }
func (e downloadFailedError) Unwrap() error { return e.err }

// ErrDownloadFailed wraps a weight-fetch failure.
func ErrDownloadFailed(id string, err error) error { return downloadFailedError{id: id, err: err} }

// IsDownloadFailed reports whether err indicates a weight-fetch failure.
func IsDownloadFailed(err error) bool {
	_, ok := err.(downloadFailedError)
	return ok
}

type incompatibleDeviceError struct {
	id  string
	err error
}

func (e incompatibleDeviceError) Error() string {
	return fmt.Sprintf("model %s cannot run on this build/device: %v", e.id, e.err)
}
func (e incompatibleDeviceError) Kind() string  { return KindIncompatibleDevice }
func (e incompatibleDeviceError) Unwrap() error { return e.err }

// ErrIncompatibleDevice wraps an instantiate failure caused by a missing
// backend or unsupported device.
func ErrIncompatibleDevice(id string, err error) error {
	return incompatibleDeviceError{id: id, err: err}
}

// IsIncompatibleDevice reports whether err indicates a backend/device mismatch.
func IsIncompatibleDevice(err error) bool {
	_, ok := err.(incompatibleDeviceError)
	return ok
}

type outOfMemoryError struct {
	id  string
	err error
}

func (e outOfMemoryError) Error() string {
	return fmt.Sprintf("out of memory loading %s: %v", e.id, e.err)
}
func (e outOfMemoryError) Kind() string  { return KindOutOfMemory }
func (e outOfMemoryError) Unwrap() error { return e.err }

// IsOutOfMemory reports whether err indicates an allocation failure during load.
func IsOutOfMemory(err error) bool {
	_, ok := err.(outOfMemoryError)
	return ok
}

type loadTimeoutError struct{ id string }

func (e loadTimeoutError) Error() string { return "timed out waiting for load of " + e.id }
func (e loadTimeoutError) Kind() string  { return KindLoadTimeout }

// ErrLoadTimeout returns an error for an acquire that gave up waiting.
func ErrLoadTimeout(id string) error { return loadTimeoutError{id: id} }

// IsLoadTimeout reports whether err indicates an acquire wait timeout.
func IsLoadTimeout(err error) bool {
	_, ok := err.(loadTimeoutError)
	return ok
}

type inUseError struct {
	id   string
	refs int
}

func (e inUseError) Error() string {
	return fmt.Sprintf("model %s is in use by %d holder(s)", e.id, e.refs)
}
func (e inUseError) Kind() string { return KindInUse }

// ErrInUse returns the unload-conflict error.
func ErrInUse(id string, refs int) error { return inUseError{id: id, refs: refs} }

// IsInUse reports whether err indicates an unload conflict.
func IsInUse(err error) bool {
	_, ok := err.(inUseError)
	return ok
}

type unknownLoadError struct {
	id  string
	err error
}

func (e unknownLoadError) Error() string {
	return fmt.Sprintf("load failed for %s: %v", e.id, e.err)
}
func (e unknownLoadError) Kind() string  { return KindUnknown }
func (e unknownLoadError) Unwrap() error { return e.err }
