// internal/listing/page_test.go
//
// Unit-tests for the pager: window sizes, clamping, and the empty set.
//
// Run: go test ./internal/listing -v

package listing

import (
	"testing"

	"github.com/yanizio/multisite/internal/enrich"
)

func makeRows(n int) []enrich.Row {
	rows := make([]enrich.Row, n)
	for i := range rows {
		rows[i] = row(uint64(i+1), "p")
	}
	return rows
}

func TestPaginateWindows(t *testing.T) {
	rows := makeRows(450)

	sizes := []int{200, 200, 50}
	for i, want := range sizes {
		p := Paginate(rows, 200, i)
		if len(p.Items) != want {
			t.Errorf("page %d: len = %d, want %d", i, len(p.Items), want)
		}
		if p.TotalCount != 450 || p.PageCount != 3 {
			t.Errorf("page %d: total/count = %d/%d", i, p.TotalCount, p.PageCount)
		}
		if p.HasNext != (i < 2) {
			t.Errorf("page %d: HasNext = %v", i, p.HasNext)
		}
	}

	// First item of page 1 is row 201.
	if p := Paginate(rows, 200, 1); p.Items[0].SiteID != 201 {
		t.Errorf("page 1 starts at site %d, want 201", p.Items[0].SiteID)
	}
}

func TestPaginateClamps(t *testing.T) {
	rows := makeRows(450)

	p := Paginate(rows, 200, 10)
	if p.PageIndex != 2 || len(p.Items) != 50 || p.HasNext {
		t.Errorf("over-range index: %+v", p)
	}

	p = Paginate(rows, 200, -3)
	if p.PageIndex != 0 || len(p.Items) != 200 {
		t.Errorf("negative index: %+v", p)
	}
}

func TestPaginateEmpty(t *testing.T) {
	p := Paginate(nil, 200, 5)
	if len(p.Items) != 0 || p.TotalCount != 0 || p.PageIndex != 0 || p.HasNext {
		t.Errorf("empty set: %+v", p)
	}
}

func TestPaginateDefaultsPageSize(t *testing.T) {
	rows := makeRows(250)
	p := Paginate(rows, 0, 0)
	if len(p.Items) != DefaultPageSize || !p.HasNext {
		t.Errorf("default page size: len = %d", len(p.Items))
	}
}

func TestPaginateExactMultiple(t *testing.T) {
	rows := makeRows(400)
	p := Paginate(rows, 200, 1)
	if len(p.Items) != 200 || p.HasNext || p.PageCount != 2 {
		t.Errorf("exact multiple: %+v", p)
	}
}
