// Package entry models bookmark entries as URL-keyed sets. It is the shared
// vocabulary between the Markdown document, the browser snapshot, and the
// reconciliation planner. Sets are immutable once built.
package entry

// Entry is a single bookmark record. Href is the identity key and is
// compared byte-wise; Title is free text.
type Entry struct {
	Title string `json:"title"`
	Href  string `json:"href"`
}

// Set is an ordered sequence of entries plus an href index for O(1) lookup.
// When the same href appears more than once in the input sequence, the later
// occurrence wins in the index. The sequence itself keeps every occurrence.
type Set struct {
	entries []Entry
	byHref  map[string]Entry
}

// NewSet builds a Set from entries. The input slice is copied, so callers
// may reuse it afterward.
func NewSet(entries []Entry) *Set {
	s := &Set{
		entries: make([]Entry, len(entries)),
		byHref:  make(map[string]Entry, len(entries)),
	}

	copy(s.entries, entries)

	for _, e := range s.entries {
		s.byHref[e.Href] = e
	}

	return s
}

// Len returns the number of distinct hrefs in the set.
func (s *Set) Len() int {
	return len(s.byHref)
}

// Entries returns a copy of the ordered sequence the set was built from.
func (s *Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)

	return out
}

// Lookup returns the entry indexed under href (the last occurrence).
func (s *Set) Lookup(href string) (Entry, bool) {
	e, ok := s.byHref[href]

	return e, ok
}

// Has reports whether href is present.
func (s *Set) Has(href string) bool {
	_, ok := s.byHref[href]

	return ok
}

// URLs returns the key set of the href index.
func (s *Set) URLs() map[string]struct{} {
	urls := make(map[string]struct{}, len(s.byHref))
	for href := range s.byHref {
		urls[href] = struct{}{}
	}

	return urls
}

// Difference returns the entries of s whose href is absent from other, in
// the order of s. Each href is emitted once, carrying its indexed (last)
// title, at the position of its first occurrence.
func (s *Set) Difference(other *Set) []Entry {
	var out []Entry

	seen := make(map[string]struct{})

	for _, e := range s.entries {
		if other != nil && other.Has(e.Href) {
			continue
		}

		if _, dup := seen[e.Href]; dup {
			continue
		}

		seen[e.Href] = struct{}{}
		out = append(out, s.byHref[e.Href])
	}

	return out
}

// Unique returns the deduplicated sequence: one entry per href, positioned
// at the first occurrence and carrying the last occurrence's title.
func (s *Set) Unique() []Entry {
	return s.Difference(nil)
}
