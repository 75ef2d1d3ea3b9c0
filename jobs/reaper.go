package jobs

import (
	"context"

	"mosync/mocache"
)

// Reaper evicts cache entries created before the retention window. It works
// purely on local data and never needs the ERP.
type Reaper struct {
	cache *mocache.Cache
	logFn LogFunc
}

func NewReaper(cache *mocache.Cache, logFn LogFunc) *Reaper {
	return &Reaper{cache: cache, logFn: defaultLog(logFn)}
}

func (r *Reaper) RunOnce(ctx context.Context) (int64, error) {
	cutoff := r.cache.Cutoff()
	n, err := r.cache.EvictOlderThan(ctx, cutoff, mocache.FieldSourceCreatedAt)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.logFn("reaper: evicted %d entries created before %s", n, cutoff.Format("2006-01-02 15:04"))
	}
	if err := r.cache.RepairMirror(ctx); err != nil {
		r.logFn("reaper: mirror still stale: %v", err)
	}
	return n, nil
}
