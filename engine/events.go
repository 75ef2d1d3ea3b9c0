package engine

import (
	"mosync/breaker"
	"mosync/dispatch"
	"mosync/scheduler"
)

const (
	EventJobCompleted EventType = iota + 1
	EventJobFailed
	EventJobSkipped
	EventStatusRecorded
	EventDeliveryFailed
	EventBatchCompleted
	EventBreakerStateChanged
	EventERPConnected
	EventERPDisconnected
	EventMessagingConnected
	EventMessagingDisconnected
)

var eventNames = map[EventType]string{
	EventJobCompleted:          "job.completed",
	EventJobFailed:             "job.failed",
	EventJobSkipped:            "job.skipped",
	EventStatusRecorded:        "mo.status_recorded",
	EventDeliveryFailed:        "delivery.failed",
	EventBatchCompleted:        "delivery.batch_completed",
	EventBreakerStateChanged:   "breaker.state_changed",
	EventERPConnected:          "erp.connected",
	EventERPDisconnected:       "erp.disconnected",
	EventMessagingConnected:    "messaging.connected",
	EventMessagingDisconnected: "messaging.disconnected",
}

func (t EventType) String() string {
	if n, ok := eventNames[t]; ok {
		return n
	}
	return "unknown"
}

// --- Event payloads ---

type JobEvent struct {
	Result scheduler.Result `json:"result"`
	Error  string           `json:"error,omitempty"`
}

type StatusRecordedEvent struct {
	MONumber string           `json:"mo_number"`
	Status   string           `json:"status"`
	Endpoint string           `json:"endpoint,omitempty"`
	Outcome  dispatch.Outcome `json:"outcome"`
	Error    string           `json:"error,omitempty"`
}

type DeliveryFailedEvent struct {
	Endpoint   string `json:"endpoint"`
	Category   string `json:"category"`
	StatusCode int    `json:"status_code,omitempty"`
	Detail     string `json:"detail"`
}

type BatchCompletedEvent struct {
	Endpoint string                `json:"endpoint"`
	Summary  dispatch.BatchSummary `json:"summary"`
}

type BreakerStateChangedEvent struct {
	From breaker.State `json:"from"`
	To   breaker.State `json:"to"`
}

type ConnectionEvent struct {
	Detail string `json:"detail"`
}
