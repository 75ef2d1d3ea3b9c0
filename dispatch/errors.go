package dispatch

import (
	"fmt"

	"mosync/breaker"
)

// DeliveryError reports a failed attempt. It is never fatal to the caller.
type DeliveryError struct {
	Category   breaker.Category
	StatusCode int // 0 for transport errors
	Message    string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("delivery %s: status %d: %s", e.Category, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("delivery %s: %s", e.Category, e.Message)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Transport reports whether the failure happened before any response.
func (e *DeliveryError) Transport() bool { return e.StatusCode == 0 }

// classifyStatus maps a non-2xx status to a failure category.
func classifyStatus(code int) breaker.Category {
	switch code {
	case 405, 429:
		return breaker.CategoryRateLimited
	default:
		return breaker.CategoryOther
	}
}
