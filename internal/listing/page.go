// internal/listing/page.go
//
// Pager for the sorted listing.  Indices clamp rather than fail: an
// out-of-range request lands on the nearest valid page so stale links
// keep working after sites are removed.
package listing

import "github.com/yanizio/multisite/internal/enrich"

// DefaultPageSize matches the listing's fixed window.
const DefaultPageSize = 200

// Page is one display window over the sorted row set.  Items aliases the
// input slice; callers must not mutate it.
type Page struct {
	Items      []enrich.Row
	TotalCount int
	PageIndex  int // after clamping
	PageCount  int
	HasNext    bool
}

// Paginate slices rows into the pageIndex-th window of pageSize rows.
// pageIndex clamps to [0, PageCount-1]; a non-positive pageSize falls
// back to DefaultPageSize.
func Paginate(rows []enrich.Row, pageSize, pageIndex int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	total := len(rows)
	pageCount := (total + pageSize - 1) / pageSize

	if pageIndex < 0 {
		pageIndex = 0
	}
	if pageIndex >= pageCount {
		pageIndex = pageCount - 1
		if pageIndex < 0 {
			pageIndex = 0
		}
	}

	start := pageIndex * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page{
		Items:      rows[start:end],
		TotalCount: total,
		PageIndex:  pageIndex,
		PageCount:  pageCount,
		HasNext:    end < total,
	}
}
