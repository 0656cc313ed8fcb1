// Package content fetches blog documents from the headless CMS, either over
// its REST API or from a local fixtures directory.
package content

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("content: document not found")

// Source is anything that can answer document queries.
type Source interface {
	Search(ctx context.Context, q Query) (*SearchResult, error)
	ByUID(ctx context.Context, docType, uid string, opts QueryOptions) (*Document, error)
	ByID(ctx context.Context, id string, opts QueryOptions) (*Document, error)
}

// DefaultPageSize is used when a query does not set one.
const DefaultPageSize = 20

// maxListPages bounds ListAll so a misbehaving API cannot loop forever.
const maxListPages = 500

// ListAll walks every page of q and returns the concatenated results.
func ListAll(ctx context.Context, src Source, q Query) ([]Document, error) {
	if q.PageSize <= 0 {
		q.PageSize = 100
	}
	var docs []Document
	for page := 1; page <= maxListPages; page++ {
		q.Page = page
		res, err := src.Search(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("list %s page %d: %w", q.Type, page, err)
		}
		docs = append(docs, res.Results...)
		if !res.HasNext() || len(res.Results) == 0 {
			return docs, nil
		}
	}
	return docs, nil
}

// StatusError is returned for non-2xx API responses.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("content api: %s: status %d: %s", e.URL, e.Code, e.Body)
	}
	return fmt.Sprintf("content api: %s: status %d", e.URL, e.Code)
}

// Transient reports whether the request may succeed if retried.
func (e *StatusError) Transient() bool {
	return e.Code >= 500 || e.Code == 429
}
