package gpu

import "fmt"

// Result codes returned by device entry points. Values follow the Vulkan
// VkResult numbering so that logged codes can be looked up directly.
type Result int32

const (
	Success                   Result = 0
	NotReady                  Result = 1
	Timeout                   Result = 2
	ErrorOutOfHostMemory      Result = -1
	ErrorOutOfDeviceMemory    Result = -2
	ErrorInitializationFailed Result = -3
	ErrorDeviceLost           Result = -4
	ErrorMemoryMapFailed      Result = -5
	ErrorFeatureNotPresent    Result = -8
	ErrorTooManyObjects       Result = -10
	ErrorUnknown              Result = -13
	ErrorValidationFailed     Result = -1000011001
)

// Sentinel errors that can be matched with errors.Is against any CallError
// carrying the same result code.
var (
	ErrOutOfHostMemory   error = &CallError{Result: ErrorOutOfHostMemory}
	ErrOutOfDeviceMemory error = &CallError{Result: ErrorOutOfDeviceMemory}
	ErrDeviceLost        error = &CallError{Result: ErrorDeviceLost}
	ErrMemoryMapFailed   error = &CallError{Result: ErrorMemoryMapFailed}
	ErrValidationFailed  error = &CallError{Result: ErrorValidationFailed}
	ErrNotReady          error = &CallError{Result: NotReady}
)

// Implements Stringer.
func (r Result) String() string {
	switch r {
	case Success:
		return "SUCCESS"
	case NotReady:
		return "NOT_READY"
	case Timeout:
		return "TIMEOUT"
	case ErrorOutOfHostMemory:
		return "ERROR_OUT_OF_HOST_MEMORY"
	case ErrorOutOfDeviceMemory:
		return "ERROR_OUT_OF_DEVICE_MEMORY"
	case ErrorInitializationFailed:
		return "ERROR_INITIALIZATION_FAILED"
	case ErrorDeviceLost:
		return "ERROR_DEVICE_LOST"
	case ErrorMemoryMapFailed:
		return "ERROR_MEMORY_MAP_FAILED"
	case ErrorFeatureNotPresent:
		return "ERROR_FEATURE_NOT_PRESENT"
	case ErrorTooManyObjects:
		return "ERROR_TOO_MANY_OBJECTS"
	case ErrorUnknown:
		return "ERROR_UNKNOWN"
	case ErrorValidationFailed:
		return "ERROR_VALIDATION_FAILED"
	default:
		return fmt.Sprintf("unknown result code %d", int32(r))
	}
}

// Convert a result into an error for the named operation. Returns nil on Success.
func (r Result) Err(op string) error {
	if r == Success {
		return nil
	}
	return &CallError{Op: op, Result: r}
}

// A failed device call.
type CallError struct {
	// The device entry point that failed.
	Op string

	// The returned result code.
	Result Result
}

// Implements error.
func (e *CallError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("gpu: %s (code %d)", e.Result, int32(e.Result))
	}
	return fmt.Sprintf("gpu: %s failed: %s (code %d)", e.Op, e.Result, int32(e.Result))
}

// Match errors with the same result code. A target without an operation
// name matches any operation.
func (e *CallError) Is(target error) bool {
	t, ok := target.(*CallError)
	if !ok {
		return false
	}
	return t.Result == e.Result && (t.Op == "" || t.Op == e.Op)
}
