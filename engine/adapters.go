package engine

import "mosync/dispatch"

// dispatchEmitter bridges the dispatch package's emitter interface to the EventBus.
type dispatchEmitter struct {
	bus *EventBus
}

func (e *dispatchEmitter) EmitDeliveryFailed(endpoint, category string, statusCode int, detail string) {
	e.bus.Emit(Event{Type: EventDeliveryFailed, Payload: DeliveryFailedEvent{
		Endpoint:   endpoint,
		Category:   category,
		StatusCode: statusCode,
		Detail:     detail,
	}})
}

func (e *dispatchEmitter) EmitBatchCompleted(endpoint string, summary dispatch.BatchSummary) {
	e.bus.Emit(Event{Type: EventBatchCompleted, Payload: BatchCompletedEvent{
		Endpoint: endpoint,
		Summary:  summary,
	}})
}
