// internal/listing/sort.go
//
// Sort engine for the site listing.
//
// Context
// -------
// The listing table is sortable by every visible column.  Each column
// needs its own comparison semantics (case-insensitive text, numeric,
// natural, date-parsed), so the engine keeps a static table mapping
// Field → comparator instead of ad hoc per-column closures.
//
// Two rules hold for every field:
//
//   - The sort is stable: rows with equal keys keep their input order,
//     which is the registry's default order (ascending site_path).
//   - Direction inverts the sign of the value comparison only.  Fields
//     with an absent state (legacy_path, last_admin_access,
//     last_content_edit) place absent rows at one fixed end regardless
//     of direction; the placement is applied before the comparator runs.
//
// An unknown or missing requested field falls back to the default
// (site_path ascending).
package listing

import (
	"sort"
	"strings"
	"time"

	"github.com/yanizio/multisite/internal/enrich"
)

// Field names a sortable listing column.  The strings double as the
// `sort` query-parameter values the web layer accepts.
type Field string

const (
	FieldPath            Field = "site_path"
	FieldLegacyPath      Field = "d7_site_path"
	FieldDisplayName     Field = "name"
	FieldPrimaryBaseURL  Field = "primary_base_url"
	FieldSiteID          Field = "site_id"
	FieldLegacyID        Field = "d7_site_id"
	FieldLastAdminAccess Field = "access"
	FieldLastContentTime Field = "last_edit"
	FieldStatus          Field = "installed"
)

// Direction of one sort request.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Request is one sort instruction from the web layer.
type Request struct {
	Field     Field
	Direction Direction
}

// DefaultRequest is the fallback for unknown or missing sort fields.
var DefaultRequest = Request{Field: FieldPath, Direction: Ascending}

// ParseRequest maps the `sort` and `order` query parameters onto a
// Request, falling back to the default for anything unrecognised.
func ParseRequest(field, order string) Request {
	req := Request{Field: Field(field)}
	if _, ok := comparators[req.Field]; !ok {
		return DefaultRequest
	}
	if strings.EqualFold(order, "desc") {
		req.Direction = Descending
	}
	return req
}

// comparator pairs an optional absence rank with a value comparison.
// rank returns 0 for rows that sort at the fixed near end and 1 for the
// far end; it is consulted before cmp and never inverted by direction.
type comparator struct {
	rank func(r *enrich.Row) int
	cmp  func(a, b *enrich.Row) int
}

var comparators = map[Field]comparator{
	FieldPath: {
		cmp: func(a, b *enrich.Row) int { return foldCompare(a.Path, b.Path) },
	},
	FieldLegacyPath: {
		// Rows without a legacy path sort after rows with one,
		// regardless of direction.
		rank: func(r *enrich.Row) int {
			if r.LegacyPath.Valid {
				return 0
			}
			return 1
		},
		cmp: func(a, b *enrich.Row) int {
			return foldCompare(a.LegacyPath.String, b.LegacyPath.String)
		},
	},
	FieldDisplayName: {
		// "unavailable" is compared as any other string value.
		cmp: func(a, b *enrich.Row) int { return foldCompare(a.DisplayName, b.DisplayName) },
	},
	FieldPrimaryBaseURL: {
		cmp: func(a, b *enrich.Row) int { return foldCompare(a.PrimaryBaseURL, b.PrimaryBaseURL) },
	},
	FieldSiteID: {
		cmp: func(a, b *enrich.Row) int { return compareUint(a.SiteID, b.SiteID) },
	},
	FieldLegacyID: {
		// Natural compare on the display text, so "Not set" sorts as
		// its literal text among the real values.
		cmp: func(a, b *enrich.Row) int {
			return naturalCompare(legacyIDText(a), legacyIDText(b))
		},
	},
	FieldLastAdminAccess: {
		// Never-accessed sorts before any real timestamp.
		rank: func(r *enrich.Row) int {
			if r.LastAdminAccess == 0 {
				return 0
			}
			return 1
		},
		cmp: func(a, b *enrich.Row) int {
			return compareInt(a.LastAdminAccess, b.LastAdminAccess)
		},
	},
	FieldLastContentTime: {
		// Absent or unparsable dates sort before any valid date.
		rank: func(r *enrich.Row) int {
			if _, ok := parseEditDate(r.LastContentEdit); !ok {
				return 0
			}
			return 1
		},
		cmp: func(a, b *enrich.Row) int {
			ta, _ := parseEditDate(a.LastContentEdit)
			tb, _ := parseEditDate(b.LastContentEdit)
			return compareInt(ta, tb)
		},
	},
	FieldStatus: {
		cmp: func(a, b *enrich.Row) int {
			return naturalCompare(a.Record.Status.Label(), b.Record.Status.Label())
		},
	},
}

// Sort orders rows in place per the request and returns the same slice.
// Unknown fields fall back to DefaultRequest.
func Sort(rows []enrich.Row, req Request) []enrich.Row {
	c, ok := comparators[req.Field]
	if !ok {
		req = DefaultRequest
		c = comparators[req.Field]
	}
	sign := 1
	if req.Direction == Descending {
		sign = -1
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := &rows[i], &rows[j]
		if c.rank != nil {
			// Absence placement is direction-invariant.  Two rows in
			// the same band fall through to cmp, which yields a tie on
			// the zero values and keeps input order.
			if ra, rb := c.rank(a), c.rank(b); ra != rb {
				return ra < rb
			}
		}
		return sign*c.cmp(a, b) < 0
	})
	return rows
}

func legacyIDText(r *enrich.Row) string {
	if r.LegacyID.Valid && r.LegacyID.String != "" {
		return r.LegacyID.String
	}
	return "Not set"
}

func parseEditDate(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, false
	}
	return t.Unix(), true
}

func foldCompare(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// naturalCompare orders strings the way a human reads mixed text and
// numbers: runs of digits compare by numeric value, everything else by
// byte.  "site9" < "site10", "v2" < "v10".
//
// Runs with a leading zero follow strnatcmp's fractional rule instead:
// digit by digit, left-aligned, so "007" < "07" < "7".
func naturalCompare(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			// Consume both digit runs.
			ia := i
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			jb := j
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			ra, rb := a[ia:i], b[jb:j]
			if ca == '0' || cb == '0' {
				// Fractional: first differing digit wins, and a run
				// that is a prefix of the other sorts first.  For
				// digit runs that is plain byte order.
				if c := strings.Compare(ra, rb); c != 0 {
					return c
				}
				continue
			}
			// Integer: the longer run is the bigger number; equal
			// lengths fall back to byte order.
			if len(ra) != len(rb) {
				return len(ra) - len(rb)
			}
			if c := strings.Compare(ra, rb); c != 0 {
				return c
			}
			continue
		}
		if ca != cb {
			return int(ca) - int(cb)
		}
		i++
		j++
	}
	return (len(a) - i) - (len(b) - j)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
