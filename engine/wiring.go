package engine

import (
	"context"
	"time"

	"mosync/messaging"
	"mosync/scheduler"
	"mosync/store"
)

func (e *Engine) wireEventHandlers() {
	// Job results: audit
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(JobEvent)
		r := ev.Result
		err := e.db.AppendJobRun(context.Background(), &store.JobRun{
			RunID:     r.RunID.String(),
			Job:       r.Job,
			Trigger:   string(r.Trigger),
			StartedAt: r.StartedAt,
			Duration:  r.Duration,
			Skipped:   r.Skipped,
			Detail:    r.Detail,
			Error:     ev.Error,
		})
		if err != nil {
			e.logFn("engine: audit job %s: %v", r.Job, err)
		}
	}, EventJobCompleted, EventJobFailed, EventJobSkipped)

	// Breaker transitions: log
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(BreakerStateChangedEvent)
		e.logFn("engine: delivery circuit %s -> %s", ev.From, ev.To)
	}, EventBreakerStateChanged)

	// Connection changes: log
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ConnectionEvent)
		e.logFn("engine: %s: %s", evt.Type, ev.Detail)
	}, EventERPConnected, EventERPDisconnected, EventMessagingConnected, EventMessagingDisconnected)

	// Everything except per-item failures goes to the event topic. Emit
	// runs on the caller's goroutine (often a dispatch), so only enqueue.
	e.Events.Subscribe(func(evt Event) {
		if evt.Type == EventDeliveryFailed {
			return
		}
		e.enqueuePublish(evt)
	})
}

// observeJob turns scheduler results into events.
func (e *Engine) observeJob(r scheduler.Result) {
	ev := JobEvent{Result: r}
	typ := EventJobCompleted
	switch {
	case r.Skipped:
		typ = EventJobSkipped
		e.logFn("engine: job %s skipped (%s): previous run still in progress", r.Job, r.Trigger)
	case r.Err != nil:
		typ = EventJobFailed
		ev.Error = r.Err.Error()
		e.logFn("engine: job %s failed after %s: %v", r.Job, r.Duration.Round(time.Millisecond), r.Err)
	default:
		e.logFn("engine: job %s done in %s: %s", r.Job, r.Duration.Round(time.Millisecond), r.Detail)
	}
	e.Events.Emit(Event{Type: typ, Payload: ev})
}

// eventPublisher is the part of messaging.Client the engine publishes with.
type eventPublisher interface {
	Enabled() bool
	PublishEnvelope(ctx context.Context, env *messaging.Envelope) error
}

func (e *Engine) enqueuePublish(evt Event) {
	if e.publisher == nil || !e.publisher.Enabled() {
		return
	}
	select {
	case e.publishCh <- evt:
	default:
		e.logFn("engine: publish queue full, dropping %s", evt.Type)
	}
}

func (e *Engine) publishLoop() {
	for {
		select {
		case <-e.stopChan:
			return
		case evt := <-e.publishCh:
			e.publish(evt)
		}
	}
}

func (e *Engine) publish(evt Event) {
	env, err := messaging.NewEnvelope(evt.Type.String(), evt.Payload)
	if err != nil {
		e.logFn("engine: encode %s: %v", evt.Type, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.publisher.PublishEnvelope(ctx, env); err != nil {
		e.logFn("engine: publish %s: %v", evt.Type, err)
	}
}
