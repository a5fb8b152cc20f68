package odata

import "context"

// Fetcher is the minimal capability Result needs to walk a next-link
// without importing internal/client (which itself depends on odata for
// Query/Result) — satisfied by *client.Client.
type Fetcher interface {
	FetchPage(ctx context.Context, url string) (*Result, error)
}

// Result is one page of a query response.
type Result struct {
	Records  []map[string]any
	NextLink string
	Error    error
}

// NextPage follows NextLink, returning (nil, nil) when there is no further
// page. $skip is never used — Dynamics link-driven pagination is mandatory.
func (r *Result) NextPage(ctx context.Context, f Fetcher) (*Result, error) {
	if r == nil || r.NextLink == "" {
		return nil, nil
	}
	return f.FetchPage(ctx, r.NextLink)
}
