// Offset/limit paging with RFC 8288 Link headers.
//
// Response bodies implement Pager to emit first/prev/next/last links;
// the transformer returned by [Links.Transformer] writes them.

package humastar

import "fmt"

// DefaultLimit is the page size when the client sends none.
const DefaultLimit = 50

// PageInput is embedded in list inputs to accept offset/limit query params.
type PageInput struct {
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Items to skip"`
	Limit  int `query:"limit" minimum:"1" maximum:"500" default:"50" doc:"Page size"`
}

// Pager is implemented by response bodies that carry pagination metadata.
type Pager interface {
	PaginationLinks(basePath string) []string
}

// PageBody is a generic paginated response envelope.
type PageBody[T any] struct {
	Total  int `json:"total" doc:"Total number of items"`
	Offset int `json:"offset" doc:"Current offset"`
	Limit  int `json:"limit" doc:"Page size"`
	Data   []T `json:"data" doc:"Items"`
}

// Paginate slices items according to in. Out-of-range offsets yield an
// empty page rather than an error.
func Paginate[T any](items []T, in PageInput) PageBody[T] {
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := max(in.Offset, 0)
	start := min(offset, len(items))
	end := min(start+limit, len(items))

	data := make([]T, end-start)
	copy(data, items[start:end])
	return PageBody[T]{Total: len(items), Offset: offset, Limit: limit, Data: data}
}

// PaginationLinks returns RFC 8288 Link header values for pagination rels.
func (p PageBody[T]) PaginationLinks(basePath string) []string {
	if p.Limit <= 0 {
		return nil
	}
	links := []string{fmt.Sprintf(`<%s?offset=0&limit=%d>; rel="first"`, basePath, p.Limit)}

	if p.Offset > 0 {
		prev := max(p.Offset-p.Limit, 0)
		links = append(links, fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="prev"`, basePath, prev, p.Limit))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="next"`, basePath, p.Offset+p.Limit, p.Limit))
	}

	lastOffset := max(((p.Total-1)/p.Limit)*p.Limit, 0)
	return append(links, fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="last"`, basePath, lastOffset, p.Limit))
}
