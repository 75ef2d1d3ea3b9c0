package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"mosync/erp"
	"mosync/mocache"
)

const (
	DefaultReadLimit = 1000
	readOrder        = "create_date desc"
	unknownSKU       = "N/A"
)

// CategoryResult is the outcome of syncing one category.
type CategoryResult struct {
	Fetched  int   `json:"fetched"`
	Upserted int   `json:"upserted"`
	Failed   int   `json:"failed"`
	Err      error `json:"-"`
}

// SyncResult aggregates a synchronizer run.
type SyncResult struct {
	Updated     int                       `json:"updated"`
	PerCategory map[string]CategoryResult `json:"per_category"`
}

// Err joins the per-category read errors, nil when every category read.
func (r SyncResult) Err() error {
	var errs []error
	for _, name := range r.categories() {
		if err := r.PerCategory[name].Err; err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (r SyncResult) String() string {
	var parts []string
	for _, name := range r.categories() {
		c := r.PerCategory[name]
		if c.Err != nil {
			parts = append(parts, fmt.Sprintf("%s: error", name))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %d/%d", name, c.Upserted, c.Fetched))
	}
	return fmt.Sprintf("%d updated (%s)", r.Updated, strings.Join(parts, ", "))
}

func (r SyncResult) categories() []string {
	names := make([]string, 0, len(r.PerCategory))
	for name := range r.PerCategory {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Synchronizer pulls each category's recent orders from the ERP and
// upserts them into the cache.
type Synchronizer struct {
	reader ProductionReader
	cache  *mocache.Cache
	limit  int
	now    func() time.Time
	logFn  LogFunc
}

func NewSynchronizer(reader ProductionReader, cache *mocache.Cache, limit int, logFn LogFunc) *Synchronizer {
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	return &Synchronizer{reader: reader, cache: cache, limit: limit, now: time.Now, logFn: defaultLog(logFn)}
}

// RunOnce syncs every category. A failed read is recorded for that category
// and the rest continue.
func (s *Synchronizer) RunOnce(ctx context.Context, categories []string) SyncResult {
	res := SyncResult{PerCategory: make(map[string]CategoryResult, len(categories))}
	for _, cat := range categories {
		if ctx.Err() != nil {
			res.PerCategory[cat] = CategoryResult{Err: ctx.Err()}
			continue
		}
		cr := s.syncCategory(ctx, cat)
		if cr.Err != nil {
			s.logFn("sync: %s: %v", cat, cr.Err)
		} else {
			s.logFn("sync: %s: %d fetched, %d upserted", cat, cr.Fetched, cr.Upserted)
		}
		res.PerCategory[cat] = cr
		res.Updated += cr.Upserted
	}
	if err := s.cache.RepairMirror(ctx); err != nil {
		s.logFn("sync: mirror still stale: %v", err)
	}
	return res
}

func (s *Synchronizer) syncCategory(ctx context.Context, category string) CategoryResult {
	var patterns []any
	for _, p := range mocache.Patterns(category) {
		patterns = append(patterns, p)
	}
	domain := erp.And(
		erp.AnyOf("note", "ilike", patterns...),
		erp.Cond("create_date", ">=", erp.FormatDate(s.cache.Cutoff())),
	)

	records, err := s.reader.SearchProductions(ctx, domain, s.limit, readOrder)
	if err != nil {
		return CategoryResult{Err: err}
	}

	cr := CategoryResult{Fetched: len(records)}
	for _, rec := range records {
		if rec.Name == "" {
			cr.Failed++
			continue
		}
		if _, err := s.cache.Upsert(ctx, rec.Name, s.attrs(rec)); err != nil {
			s.logFn("sync: upsert %s: %v", rec.Name, err)
			cr.Failed++
			continue
		}
		cr.Upserted++
	}
	return cr
}

func (s *Synchronizer) attrs(p erp.Production) mocache.Attrs {
	created, ok := p.CreatedAt()
	if !ok {
		created = s.now()
	}
	sku := p.Product.Name
	if sku == "" {
		sku = unknownSKU
	}
	return mocache.Attrs{
		SKUName:         sku,
		Quantity:        p.Quantity.Ptr(),
		UoM:             p.UoM.Name,
		Note:            string(p.Note),
		SourceCreatedAt: created,
	}
}
