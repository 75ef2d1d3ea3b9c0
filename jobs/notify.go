package jobs

import (
	"context"
	"fmt"

	"mosync/dispatch"
	"mosync/mocache"
)

const DefaultListPageSize = 100

// ListNotifier sends the in-window cache view of a category to the list
// endpoint.
type ListNotifier struct {
	cache    *mocache.Cache
	sender   BatchSender
	delivery DeliveryFunc
	pageSize int
	logFn    LogFunc
}

func NewListNotifier(cache *mocache.Cache, sender BatchSender, delivery DeliveryFunc, pageSize int, logFn LogFunc) *ListNotifier {
	if pageSize <= 0 {
		pageSize = DefaultListPageSize
	}
	return &ListNotifier{cache: cache, sender: sender, delivery: delivery, pageSize: pageSize, logFn: defaultLog(logFn)}
}

// RunOnce delivers the category's entries. An unconfigured endpoint or an
// empty view is a successful no-op.
func (n *ListNotifier) RunOnce(ctx context.Context, category string) (dispatch.BatchSummary, error) {
	d := n.delivery()
	endpoint := d.Endpoints.Resolve(dispatch.KindList)
	if endpoint == "" {
		n.logFn("notify: list endpoint not configured, skipping")
		return dispatch.BatchSummary{}, nil
	}

	entries, err := n.cache.InWindow(ctx, category)
	if err != nil {
		return dispatch.BatchSummary{}, fmt.Errorf("read cache: %w", err)
	}
	if len(entries) == 0 {
		return dispatch.BatchSummary{}, nil
	}

	list := make([]dispatch.ListItem, len(entries))
	for i, e := range entries {
		list[i] = dispatch.ListItem{MO: e.MONumber, SKU: e.SKUName, TargetQty: dispatch.TargetQty(e.Quantity)}
	}
	pages := dispatch.PageList(list, n.pageSize)
	items := make([]any, len(pages))
	for i, p := range pages {
		items[i] = p
	}

	sum := n.sender.SendBatched(ctx, items, endpoint, d.BatchSize, d.Delay)
	n.logFn("notify: %s: %d orders in %d payloads: %s", category, len(entries), len(items), sum)
	return sum, nil
}
