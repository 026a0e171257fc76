package catalog

import (
	"sort"
	"strconv"
	"strings"
)

// Known style fields.
const (
	FieldStyle           = "style"
	FieldMood            = "mood"
	FieldTempo           = "tempo_bpm"
	FieldInstrumentation = "instrumentation"
	FieldVocalStyle      = "vocal_style"
	FieldArtists         = "sample_artists"
	FieldDecade          = "decade_range"
	FieldProductionNotes = "production_notes"
	FieldPrompt          = "prompt"
)

// Columns lists the fields shown for a style, in display order.
var Columns = []string{
	FieldStyle, FieldDecade, FieldTempo, FieldMood, FieldInstrumentation,
	FieldVocalStyle, FieldArtists, FieldProductionNotes, FieldPrompt,
}

// Style is one catalog row. Values are kept exactly as read.
type Style map[string]string

func (s Style) Get(field string) string {
	return s[field]
}

func (s Style) Name() string {
	return s[FieldStyle]
}

// Catalog is the ordered sequence of styles loaded from one file.
type Catalog struct {
	Path   string
	Styles []Style
}

func (c *Catalog) Len() int {
	return len(c.Styles)
}

// Find returns the first style whose name matches, ignoring case.
func (c *Catalog) Find(name string) (Style, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	for _, s := range c.Styles {
		if strings.EqualFold(s.Name(), name) {
			return s, true
		}
	}
	return nil, false
}

// Filter holds case-insensitive substring predicates. Empty predicates are
// ignored and the rest must all match.
type Filter struct {
	Text    string
	Style   string
	Artists string
	Decade  string
	Tempo   string
}

func (f Filter) Match(s Style) bool {
	if t := norm(f.Text); t != "" {
		var found bool
		for _, v := range s {
			if strings.Contains(strings.ToLower(v), t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	checks := []struct {
		term  string
		field string
	}{
		{f.Style, FieldStyle},
		{f.Artists, FieldArtists},
		{f.Decade, FieldDecade},
		{f.Tempo, FieldTempo},
	}
	for _, c := range checks {
		t := norm(c.term)
		if t == "" {
			continue
		}
		if !strings.Contains(strings.ToLower(s.Get(c.field)), t) {
			return false
		}
	}
	return true
}

// Apply returns the styles matching the filter, in their original order.
func (f Filter) Apply(styles []Style) []Style {
	out := make([]Style, 0, len(styles))
	for _, s := range styles {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	return out
}

func norm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Order is a single column sort.
type Order struct {
	Column string
	Desc   bool
}

// Toggle selects a column. Selecting the current column again flips the
// direction, a new column starts ascending.
func (o *Order) Toggle(column string) {
	if o.Column == column {
		o.Desc = !o.Desc
		return
	}
	o.Column = column
	o.Desc = false
}

// Sort returns a sorted copy of styles. Descending order is the exact
// reverse of the ascending one.
func Sort(styles []Style, o Order) []Style {
	out := make([]Style, len(styles))
	copy(out, styles)
	if o.Column == "" {
		return out
	}
	less := lessFunc(o.Column, out)
	sort.SliceStable(out, less)
	if o.Desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func lessFunc(column string, s []Style) func(i, j int) bool {
	switch column {
	case FieldDecade:
		return func(i, j int) bool {
			return DecadeKey(s[i].Get(column)) < DecadeKey(s[j].Get(column))
		}
	case FieldTempo:
		return func(i, j int) bool {
			return TempoKey(s[i].Get(column)) < TempoKey(s[j].Get(column))
		}
	default:
		return func(i, j int) bool {
			return strings.ToLower(s[i].Get(column)) < strings.ToLower(s[j].Get(column))
		}
	}
}

// DecadeKey returns the start year of a range like "1980s-1990s".
// Values that can't be parsed return 9999 so they sort last.
func DecadeKey(v string) int {
	start := v
	if i := strings.Index(v, "-"); i >= 0 {
		start = v[:i]
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.ReplaceAll(start, "s", "")))
	if err != nil {
		return 9999
	}
	return n
}

// TempoKey returns the mean of a range like "90-120" or the value of a bare
// integer. Values that can't be parsed return 0 so they sort first.
func TempoKey(v string) float64 {
	if strings.Contains(v, "-") {
		parts := strings.Split(v, "-")
		var sum int
		for _, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return 0
			}
			sum += n
		}
		return float64(sum) / float64(len(parts))
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return float64(n)
}

// View is a filtered and sorted projection of a catalog.
type View struct {
	all    []Style
	filter Filter
	order  Order
	rows   []Style
}

func NewView(styles []Style) *View {
	v := &View{all: styles}
	v.refresh()
	return v
}

func (v *View) SetFilter(f Filter) {
	v.filter = f
	v.refresh()
}

func (v *View) Filter() Filter {
	return v.filter
}

// SortBy toggles the sort column and reorders the rows.
func (v *View) SortBy(column string) {
	v.order.Toggle(column)
	v.refresh()
}

func (v *View) Order() Order {
	return v.order
}

func (v *View) Rows() []Style {
	return v.rows
}

func (v *View) refresh() {
	v.rows = Sort(v.filter.Apply(v.all), v.order)
}
