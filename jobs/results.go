package jobs

import (
	"context"
	"fmt"
	"time"

	"mosync/dispatch"
)

// ResultSync re-sends every status recorded within the retention window,
// grouped by status to that status's endpoint.
type ResultSync struct {
	statuses  StatusLister
	sender    BatchSender
	delivery  DeliveryFunc
	retention time.Duration
	now       func() time.Time
	logFn     LogFunc
}

func NewResultSync(statuses StatusLister, sender BatchSender, delivery DeliveryFunc, retention time.Duration, logFn LogFunc) *ResultSync {
	return &ResultSync{
		statuses:  statuses,
		sender:    sender,
		delivery:  delivery,
		retention: retention,
		now:       time.Now,
		logFn:     defaultLog(logFn),
	}
}

func (r *ResultSync) RunOnce(ctx context.Context) (map[string]dispatch.BatchSummary, error) {
	recorded, err := r.statuses.ListMOStatusesSince(ctx, r.now().Add(-r.retention))
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}

	grouped := make(map[string][]any)
	for _, s := range recorded {
		if !dispatch.ValidStatus(s.Status) {
			continue
		}
		grouped[s.Status] = append(grouped[s.Status], dispatch.StatusPayload{
			Status:          s.Status,
			ManufacturingID: s.MONumber,
			SKU:             s.SKUName,
			TargetQty:       dispatch.TargetQty(s.TargetQty),
		})
	}

	d := r.delivery()
	out := make(map[string]dispatch.BatchSummary)
	for _, status := range []string{dispatch.StatusActive, dispatch.StatusCompleted} {
		items := grouped[status]
		if len(items) == 0 {
			continue
		}
		endpoint := d.Endpoints.Resolve(dispatch.Kind(status))
		sum := r.sender.SendBatched(ctx, items, endpoint, d.BatchSize, d.Delay)
		r.logFn("results: %s: %s", status, sum)
		out[status] = sum
	}
	return out, nil
}
