package pipeline

import (
	"github.com/diagreg/diagreg/internal/domain/patient"
	"github.com/diagreg/diagreg/pkg/pagination"
)

// State is everything the user has chosen about the table view. It is a
// value: every action returns a new State instead of mutating the old one.
type State struct {
	Range       DateRange
	Term        string
	SearchField string
	Sort        SortConfig
	Page        int
}

// NewState is the view a session starts with.
func NewState() State {
	return State{Page: 1}
}

// WithRange changes the date filter and returns to page 1.
func (s State) WithRange(r DateRange) State {
	s.Range = r
	s.Page = 1
	return s
}

// WithSearch changes the search term and field and returns to page 1.
func (s State) WithSearch(term, field string) State {
	s.Term = term
	s.SearchField = field
	s.Page = 1
	return s
}

// WithSort replaces the sort order; the page is kept since the set is unchanged.
func (s State) WithSort(cfg SortConfig) State {
	s.Sort = cfg
	return s
}

// ToggleSort applies a column pick, see SortConfig.Toggle.
func (s State) ToggleSort(field string) State {
	s.Sort = s.Sort.Toggle(field)
	return s
}

// WithPage moves to page n of a view with totalPages pages. Out of range
// requests are rejected and s is returned unchanged.
func (s State) WithPage(n, totalPages int) (State, bool) {
	p, ok := pagination.Pager{Page: s.Page, TotalPages: totalPages}.Goto(n)
	if !ok {
		return s, false
	}
	s.Page = p.Page
	return s, true
}

// View is the result of running the pipeline for one State.
type View struct {
	State      State
	Filtered   []patient.Record
	Sorted     []patient.Record
	Items      []patient.Record
	Total      int
	TotalPages int
	Window     []int
	Stats      Stats
}

// Compute runs Filter, Search, Sort and pagination over records. Stats are
// taken from the date-filtered set only, so search does not affect the dashboard.
func Compute(records []patient.Record, s State) View {
	filtered := Filter(records, s.Range)
	searched := Search(filtered, s.Term, s.SearchField)
	sorted := Sort(searched, s.Sort)

	total := len(sorted)
	pages := pagination.TotalPages(total, pagination.PageSize)
	if s.Page < 1 {
		s.Page = 1
	}

	return View{
		State:      s,
		Filtered:   filtered,
		Sorted:     sorted,
		Items:      pagination.Slice(sorted, s.Page, pagination.PageSize),
		Total:      total,
		TotalPages: pages,
		Window:     pagination.Window(s.Page, pages, pagination.WindowSize),
		Stats:      Aggregate(filtered),
	}
}
