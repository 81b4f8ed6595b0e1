// Package query turns the listing parameters of the catalog (free-text search,
// price range token and page number) into a filter and a pagination window.
// It performs no I/O; stores decide how to evaluate the filter.
package query

import (
	"math"
	"strconv"
	"strings"
)

// PageSize is the fixed number of products per listing page.
const PageSize = 8

// MaxPage is the largest page whose offset fits in an int.
const MaxPage = math.MaxInt/PageSize + 1

// Parameter names as they appear in the query string.
const (
	ParamQuery = "query"
	ParamPrice = "price"
	ParamPage  = "page"
)

// Params holds the raw, unparsed listing parameters.
type Params struct {
	Query string
	Price string
	Page  string
}

// PriceRange bounds the product price. Max is nil for open ranges ("200+").
type PriceRange struct {
	Min float64
	Max *float64
}

// Filter is the predicate shared by the page query and the count query.
// The zero value matches every product.
type Filter struct {
	// Name is matched as a case-insensitive substring of the product name.
	Name  string
	Price *PriceRange
}

// Window selects one page of an ordered result.
type Window struct {
	Page   int
	Offset int
	Limit  int
}

// Query is the outcome of Build.
type Query struct {
	Filter Filter
	Window Window
	// Ignored names the parameters that were malformed and therefore dropped.
	Ignored []string
}

// Build parses p. It never fails: a malformed price token imposes no constraint
// and a malformed page selects the first page. Both are reported in Ignored.
func Build(p Params) Query {
	var q Query

	q.Filter.Name = strings.TrimSpace(p.Query)

	if token := strings.TrimSpace(p.Price); token != "" {
		if r, ok := ParsePriceRange(token); ok {
			q.Filter.Price = &r
		} else {
			q.Ignored = append(q.Ignored, ParamPrice)
		}
	}

	page, ok := parsePage(p.Page)
	if !ok {
		q.Ignored = append(q.Ignored, ParamPage)
	}
	q.Window = NewWindow(page)

	return q
}

// NewWindow returns the window for a 1-based page number, clamped to [1, MaxPage].
func NewWindow(page int) Window {
	page = max(1, min(page, MaxPage))
	return Window{
		Page:   page,
		Offset: (page - 1) * PageSize,
		Limit:  PageSize,
	}
}

// TotalPages is the number of pages needed to show total items.
func TotalPages(total int64) int {
	if total <= 0 {
		return 0
	}
	return int((total + PageSize - 1) / PageSize)
}

// ParsePriceRange parses a price filter token.
//
// Accepted forms: "min-max", "min+", "min" and "min-". Bounds must be finite and
// non-negative, and max must not be below min. Anything else reports false.
func ParsePriceRange(token string) (PriceRange, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return PriceRange{}, false
	}

	segments := strings.Split(token, "-")
	if len(segments) > 2 {
		return PriceRange{}, false
	}

	first := segments[0]
	if len(segments) == 1 {
		first = strings.TrimSuffix(first, "+")
	}
	minValue, ok := parseBound(first)
	if !ok {
		return PriceRange{}, false
	}
	r := PriceRange{Min: minValue}

	if len(segments) == 2 && strings.TrimSpace(segments[1]) != "" {
		maxValue, ok := parseBound(segments[1])
		if !ok || maxValue < minValue {
			return PriceRange{}, false
		}
		r.Max = &maxValue
	}
	return r, true
}

// Match evaluates the filter against a single product.
// Names are compared under Unicode simple case mapping; PostgreSQL's ILIKE follows the
// database collation and may differ on locale-specific mappings such as Turkish dotted I.
func (f Filter) Match(name string, price float64) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(f.Name)) {
		return false
	}
	if f.Price != nil {
		if price < f.Price.Min {
			return false
		}
		if f.Price.Max != nil && price > *f.Price.Max {
			return false
		}
	}
	return true
}

// IsZero reports whether the filter imposes no constraint.
func (f Filter) IsZero() bool {
	return f.Name == "" && f.Price == nil
}

func parseBound(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// parsePage returns the page number and whether the raw value was acceptable.
// An absent value is acceptable and means page 1. Pages beyond MaxPage are not.
func parsePage(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 || page > MaxPage {
		return 1, false
	}
	return page, true
}
