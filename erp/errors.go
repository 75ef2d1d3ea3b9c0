package erp

import "fmt"

// ReadError is returned for any failed ERP read: transport failure, non-2xx
// status, undecodable body or an error envelope.
type ReadError struct {
	Code       int // envelope error code, 0 if none
	StatusCode int // HTTP status, 0 for transport errors
	Message    string
	Err        error
}

func (e *ReadError) Error() string {
	switch {
	case e.Code != 0:
		return fmt.Sprintf("erp read: error %d: %s", e.Code, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("erp read: status %d: %s", e.StatusCode, e.Message)
	default:
		return "erp read: " + e.Message
	}
}

func (e *ReadError) Unwrap() error { return e.Err }
