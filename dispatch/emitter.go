package dispatch

// Emitter is the interface adapters must satisfy to bridge delivery outcomes to the engine.
type Emitter interface {
	EmitDeliveryFailed(endpoint string, category string, statusCode int, detail string)
	EmitBatchCompleted(endpoint string, summary BatchSummary)
}

type nopEmitter struct{}

func (nopEmitter) EmitDeliveryFailed(string, string, int, string) {}
func (nopEmitter) EmitBatchCompleted(string, BatchSummary)         {}
