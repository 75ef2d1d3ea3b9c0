// Package jobs holds the periodic units of work: pulling orders from the
// ERP into the cache, evicting expired entries, and pushing cache views and
// recorded statuses downstream.
package jobs

import (
	"context"
	"log"
	"time"

	"mosync/dispatch"
	"mosync/erp"
	"mosync/store"
)

type LogFunc func(format string, args ...any)

// ProductionReader is the ERP read used by the synchronizer.
type ProductionReader interface {
	SearchProductions(ctx context.Context, domain erp.Domain, limit int, order string) ([]erp.Production, error)
}

// BatchSender delivers many payloads to one endpoint.
type BatchSender interface {
	SendBatched(ctx context.Context, items []any, endpoint string, batchSize int, delay time.Duration) dispatch.BatchSummary
}

// StatusLister reads recorded status events.
type StatusLister interface {
	ListMOStatusesSince(ctx context.Context, since time.Time) ([]*store.MOStatus, error)
}

// Delivery holds the batching parameters shared by the push jobs.
type Delivery struct {
	Endpoints dispatch.Endpoints
	BatchSize int
	Delay     time.Duration
}

// DeliveryFunc is consulted at the start of every run so configuration
// edits apply without a restart.
type DeliveryFunc func() Delivery

func StaticDelivery(d Delivery) DeliveryFunc {
	return func() Delivery { return d }
}

func defaultLog(l LogFunc) LogFunc {
	if l == nil {
		return log.Printf
	}
	return l
}
