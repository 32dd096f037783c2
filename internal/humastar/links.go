package humastar

import (
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// EntryPoint is the path that links to every collection.
const EntryPoint = "/health"

// Links holds RFC 8288 link headers derived from an OpenAPI document,
// keyed by operation path. The zero value has no links.
type Links struct {
	mu     sync.RWMutex
	byPath map[string][]string
}

// Discover walks the OpenAPI spec and replaces the derived links. Operations
// tagged "editor" (Datastar SSE) are skipped.
func (l *Links) Discover(api huma.API) {
	oapi := api.OpenAPI()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byPath = map[string][]string{}

	var collections, items []string
	for p, pi := range oapi.Paths {
		if slices.Contains(primaryTags(pi), "editor") {
			continue
		}
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}
	// Map iteration order would otherwise leak into header order.
	sort.Strings(collections)
	sort.Strings(items)

	// item → parent collection
	for _, item := range items {
		parent := path.Dir(item)
		if _, ok := oapi.Paths[parent]; ok {
			l.add(item, parent, "collection")
			l.add(item, parent, "up")
			l.add(parent, item, "item")
		}
	}

	_, hasQuery := oapi.Paths["/api/v1/query"]
	for _, coll := range collections {
		if coll == EntryPoint {
			continue
		}
		l.add(coll, EntryPoint, "up")
		l.add(EntryPoint, coll, lastSegment(coll))
		if hasQuery && coll != "/api/v1/query" {
			l.add(coll, "/api/v1/query", "search")
		}
		pi := oapi.Paths[coll]
		if pi.Put != nil {
			l.add(coll, coll, "edit")
		}
		if pi.Post != nil {
			l.add(coll, coll, "create-form")
		}
	}

	l.add(EntryPoint, "/openapi.json", "describedby")
	l.add(EntryPoint, "/openapi.json", "service-desc")
	l.add(EntryPoint, "/docs", "service-doc")
	if hasQuery {
		l.add(EntryPoint, "/api/v1/query", "search")
	}

	// Document the relationships in the OpenAPI document too.
	for p, pi := range oapi.Paths {
		headers, ok := l.byPath[p]
		if !ok {
			continue
		}
		for _, op := range operationsOf(pi) {
			if op != nil {
				injectResponseLinks(op, headers)
			}
		}
	}
}

// For returns the link headers for an operation path.
func (l *Links) For(p string) []string {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.byPath[p]
}

// Transformer returns a Huma Transformer that writes the derived links plus
// self, pagination and action links taken from the response body.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}
		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}
		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}
		return v, nil
	}
}

func (l *Links) add(from, to, rel string) {
	val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
	if slices.Contains(l.byPath[from], val) {
		return
	}
	l.byPath[from] = append(l.byPath[from], val)
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}

func injectResponseLinks(op *huma.Operation, headers []string) {
	if op.Responses == nil {
		return
	}
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLinkHeader(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  fmt.Sprintf("Related: %s", rel),
		}
	}
}

// parseLinkHeader splits `<url>; rel="name"`.
func parseLinkHeader(h string) (rel, href string) {
	parts := strings.SplitN(h, ";", 2)
	if len(parts) < 2 {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(parts[0]), "<>")
	relPart := strings.TrimSpace(parts[1])
	if strings.HasPrefix(relPart, `rel="`) {
		rel = strings.Trim(relPart[4:], `"`)
	}
	return rel, href
}
