package collection

import (
	"slices"
	"sort"
	"strings"
	"sync"
)

// All is the filter selection that disables a dimension.
const All = "all"

// Searchable is implemented by records that can be matched by a Query.
type Searchable interface {
	// SearchFields returns the free-text fields matched by a search term.
	SearchFields() []string
	// FilterValue returns the record's value on a filter dimension and
	// false when the record has no such dimension.
	FilterValue(dimension string) (string, bool)
}

// Item is a record kind a View can be built over.
type Item[T any] interface {
	Record[T]
	Searchable
}

// Query is the search box, filter selections and sort key of a list screen.
type Query struct {
	Search  string            `json:"search,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
	// Sort names a key of the view's Sorters, prefixed with "-" for
	// descending order. Empty or unknown keys keep insertion order.
	Sort string `json:"sort,omitempty"`
}

// Where returns a copy of q with the dimension set to value.
func (q Query) Where(dimension, value string) Query {
	filters := make(map[string]string, len(q.Filters)+1)
	for k, v := range q.Filters {
		filters[k] = v
	}
	filters[dimension] = value
	q.Filters = filters
	return q
}

// key normalizes the query into a memoization key.
func (q Query) key() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(q.Search))
	b.WriteByte(0)
	for _, dim := range activeDimensions(q.Filters) {
		b.WriteString(dim)
		b.WriteByte('=')
		b.WriteString(q.Filters[dim])
		b.WriteByte(0)
	}
	b.WriteString(q.Sort)
	return b.String()
}

func activeDimensions(filters map[string]string) []string {
	dims := make([]string, 0, len(filters))
	for dim, value := range filters {
		if value != "" && value != All {
			dims = append(dims, dim)
		}
	}
	sort.Strings(dims)
	return dims
}

// Sorters maps sort keys to comparison funcs returning <0, 0 or >0.
type Sorters[T any] map[string]func(a, b T) int

// Apply returns the records matching both the search term and every active
// filter, in their original relative order unless a known sort key is given.
func Apply[T Searchable](records []T, q Query, sorters Sorters[T]) []T {
	matchAll := q.Search == ""
	term := strings.ToLower(q.Search)
	dims := activeDimensions(q.Filters)

	out := make([]T, 0, len(records))
	for _, r := range records {
		if !matchAll && !containsTerm(r.SearchFields(), term) {
			continue
		}
		if !matchesFilters(r, dims, q.Filters) {
			continue
		}
		out = append(out, r)
	}

	key, desc := strings.CutPrefix(q.Sort, "-")
	if cmp, ok := sorters[key]; ok && key != "" {
		slices.SortStableFunc(out, func(a, b T) int {
			if desc {
				return cmp(b, a)
			}
			return cmp(a, b)
		})
	}
	return out
}

func containsTerm(fields []string, term string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func matchesFilters(r Searchable, dims []string, filters map[string]string) bool {
	for _, dim := range dims {
		v, ok := r.FilterValue(dim)
		if !ok || v != filters[dim] {
			return false
		}
	}
	return true
}

// View is the live projection of a Store through a Query. Results are
// memoized on the store version and the normalized query.
type View[T Item[T]] struct {
	store   *Store[T]
	sorters Sorters[T]

	mu       sync.Mutex
	query    Query
	cached   []T
	cacheVer uint64
	cacheKey string
	cacheOK  bool
	computes int
	listener func([]T)

	unsubscribe func()
}

// NewView returns a view over store with an empty query.
func NewView[T Item[T]](store *Store[T], sorters Sorters[T]) *View[T] {
	v := &View[T]{store: store, sorters: sorters}
	v.unsubscribe = store.Subscribe(func(uint64) { v.changed() })
	return v
}

// SetQuery replaces the current query.
func (v *View[T]) SetQuery(q Query) {
	v.mu.Lock()
	v.query = q
	v.mu.Unlock()
	v.changed()
}

func (v *View[T]) Query() Query {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// Results returns the records currently matching the query.
func (v *View[T]) Results() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.resultsLocked())
}

// Watch registers fn to receive fresh results whenever the store or the
// query changes. Passing nil stops notifications.
func (v *View[T]) Watch(fn func(results []T)) {
	v.mu.Lock()
	v.listener = fn
	v.mu.Unlock()
}

// Close detaches the view from its store.
func (v *View[T]) Close() {
	v.mu.Lock()
	unsubscribe := v.unsubscribe
	v.unsubscribe = nil
	v.listener = nil
	v.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// recomputations reports how many times the result was actually derived.
func (v *View[T]) recomputations() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.computes
}

func (v *View[T]) changed() {
	v.mu.Lock()
	fn := v.listener
	var results []T
	if fn != nil {
		results = slices.Clone(v.resultsLocked())
	}
	v.mu.Unlock()
	if fn != nil {
		fn(results)
	}
}

func (v *View[T]) resultsLocked() []T {
	key := v.query.key()
	if v.cacheOK && v.cacheVer == v.store.Version() && v.cacheKey == key {
		return v.cached
	}
	records, version := v.store.Snapshot()
	v.cached = Apply(records, v.query, v.sorters)
	v.cacheVer = version
	v.cacheKey = key
	v.cacheOK = true
	v.computes++
	return v.cached
}
