package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"studia/internal/apperr"
	"studia/internal/backend"
)

const restPrefix = "/rest/v1/"

func filterParams(q backend.Query) url.Values {
	v := url.Values{}
	for _, f := range q.Filters {
		v.Add(f.Column, "eq."+fmt.Sprint(f.Value))
	}
	return v
}

func filterValues(q backend.Query) url.Values {
	v := filterParams(q)
	v.Set("select", "*")
	if q.Order != nil {
		dir := "desc"
		if q.Order.Ascending {
			dir = "asc"
		}
		v.Set("order", q.Order.Column+"."+dir)
	}
	return v
}

func (c *Client) tableRequest(ctx context.Context, op, method, table string) (request, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return request{}, err
	}
	return request{
		op:     op + " " + table,
		method: method,
		path:   restPrefix + url.PathEscape(table),
		token:  token,
	}, nil
}

func (c *Client) Select(ctx context.Context, table string, q backend.Query, dest any) error {
	r, err := c.tableRequest(ctx, "select", http.MethodGet, table)
	if err != nil {
		return err
	}
	r.query = filterValues(q)
	return c.do(ctx, r, dest)
}

func (c *Client) SelectOne(ctx context.Context, table string, q backend.Query, dest any) (bool, error) {
	r, err := c.tableRequest(ctx, "select", http.MethodGet, table)
	if err != nil {
		return false, err
	}
	r.query = filterValues(q)
	r.query.Set("limit", "1")

	var rows []json.RawMessage
	if err := c.do(ctx, r, &rows); err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(rows[0], dest); err != nil {
		return false, apperr.Backend(r.op, err)
	}
	return true, nil
}

func (c *Client) Insert(ctx context.Context, table string, row map[string]any, dest any) error {
	r, err := c.tableRequest(ctx, "insert", http.MethodPost, table)
	if err != nil {
		return err
	}
	r.body = row
	if dest == nil {
		r.headers = map[string]string{"Prefer": "return=minimal"}
		return c.do(ctx, r, nil)
	}
	r.headers = map[string]string{"Prefer": "return=representation"}

	var rows []json.RawMessage
	if err := c.do(ctx, r, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return apperr.New(apperr.ErrBackend, r.op, "The server did not return the new row.")
	}
	if err := json.Unmarshal(rows[0], dest); err != nil {
		return apperr.Backend(r.op, err)
	}
	return nil
}

func (c *Client) Update(ctx context.Context, table string, q backend.Query, fields map[string]any) error {
	if len(q.Filters) == 0 {
		return backend.ErrUnfiltered
	}
	if len(fields) == 0 {
		return nil
	}
	r, err := c.tableRequest(ctx, "update", http.MethodPatch, table)
	if err != nil {
		return err
	}
	r.query = filterParams(q)
	r.body = fields
	r.headers = map[string]string{"Prefer": "return=minimal"}
	return c.do(ctx, r, nil)
}

func (c *Client) Upsert(ctx context.Context, table string, row map[string]any, conflictKey string) error {
	r, err := c.tableRequest(ctx, "upsert", http.MethodPost, table)
	if err != nil {
		return err
	}
	if conflictKey != "" {
		r.query = url.Values{"on_conflict": {conflictKey}}
	}
	r.body = row
	r.headers = map[string]string{"Prefer": "resolution=merge-duplicates,return=minimal"}
	return c.do(ctx, r, nil)
}

// Delete of a missing row matches nothing, which the server reports as success.
func (c *Client) Delete(ctx context.Context, table string, q backend.Query) error {
	if len(q.Filters) == 0 {
		return backend.ErrUnfiltered
	}
	r, err := c.tableRequest(ctx, "delete", http.MethodDelete, table)
	if err != nil {
		return err
	}
	r.query = filterParams(q)
	return c.do(ctx, r, nil)
}
