package erp

import "context"

// SearchRequest is a single remote read: ANDed filter, page size, ordering.
type SearchRequest struct {
	Model  string
	Domain Domain
	Fields []string
	Limit  int
	Order  string
}

// SearchRead runs search_read and decodes the records into out.
func (c *Client) SearchRead(ctx context.Context, req SearchRequest, out any) error {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	domain := req.Domain
	if domain == nil {
		domain = Domain{}
	}
	kwargs := map[string]any{"fields": req.Fields}
	if req.Limit > 0 {
		kwargs["limit"] = req.Limit
	}
	if req.Order != "" {
		kwargs["order"] = req.Order
	}
	return c.call(ctx, model, "search_read", []any{domain}, kwargs, out)
}

// SearchProductions reads manufacturing orders matching domain.
func (c *Client) SearchProductions(ctx context.Context, domain Domain, limit int, order string) ([]Production, error) {
	var out []Production
	err := c.SearchRead(ctx, SearchRequest{
		Model:  DefaultModel,
		Domain: domain,
		Fields: ProductionFields,
		Limit:  limit,
		Order:  order,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Ping performs a one-record read to verify URL and session.
func (c *Client) Ping(ctx context.Context) error {
	var out []struct {
		ID int64 `json:"id"`
	}
	return c.SearchRead(ctx, SearchRequest{
		Domain: Cond("id", ">", 0),
		Fields: []string{"id", "name"},
		Limit:  1,
	}, &out)
}
