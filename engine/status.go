package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mosync/dispatch"
	"mosync/store"
)

// ErrInvalidStatus rejects a status update before anything is stored.
var ErrInvalidStatus = errors.New("invalid status update")

// StatusUpdate is an application-reported change of an order's status.
type StatusUpdate struct {
	MONumber  string
	Status    string
	SKU       string
	TargetQty *float64
}

// RecordStatus stores the latest status for an order and sends it to the
// status endpoint right away. Delivery failures are reported in the event
// and the returned error, but the status stays recorded for the periodic
// result sync.
func (e *Engine) RecordStatus(ctx context.Context, u StatusUpdate) (dispatch.Outcome, error) {
	if !dispatch.ValidStatus(u.Status) {
		return dispatch.Outcome{}, fmt.Errorf("%w: status %q", ErrInvalidStatus, u.Status)
	}
	if u.MONumber == "" {
		return dispatch.Outcome{}, fmt.Errorf("%w: mo number required", ErrInvalidStatus)
	}

	// fill SKU and quantity from the cache when the caller omitted them
	if u.SKU == "" || u.TargetQty == nil {
		if entry, err := e.cache.Get(ctx, u.MONumber); err == nil {
			if u.SKU == "" {
				u.SKU = entry.SKUName
			}
			if u.TargetQty == nil {
				u.TargetQty = entry.Quantity
			}
		}
	}

	err := e.db.UpsertMOStatus(ctx, &store.MOStatus{
		MONumber:  u.MONumber,
		Status:    u.Status,
		SKUName:   u.SKU,
		TargetQty: u.TargetQty,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return dispatch.Outcome{}, err
	}

	endpoint := e.Endpoints().Resolve(dispatch.Kind(u.Status))
	out, sendErr := e.dispatcher.Send(ctx, dispatch.StatusPayload{
		Status:          u.Status,
		ManufacturingID: u.MONumber,
		SKU:             u.SKU,
		TargetQty:       dispatch.TargetQty(u.TargetQty),
	}, endpoint)

	ev := StatusRecordedEvent{MONumber: u.MONumber, Status: u.Status, Endpoint: endpoint, Outcome: out}
	if sendErr != nil {
		ev.Error = sendErr.Error()
	}
	e.Events.Emit(Event{Type: EventStatusRecorded, Payload: ev})
	return out, sendErr
}
