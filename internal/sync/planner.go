package sync

import (
	"github.com/osmoscraft/osmosync/internal/browser"
	"github.com/osmoscraft/osmosync/internal/entry"
)

// TitleUpdate renames one browser bookmark.
type TitleUpdate struct {
	ID    string
	Href  string
	Title string
}

// Projection is the browser-side half of a plan: the mutations that make
// the target folder match the document.
type Projection struct {
	Create []entry.Entry
	Update []TitleUpdate
	Remove []browser.Bookmark
}

// Empty reports whether the projection changes nothing.
func (p Projection) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Remove) == 0
}

// Plan is a full mutation plan. Import is applied to the document before
// Projection is computed, so a Plan built in one step is only accurate when
// the store commits the import verbatim; Session always re-derives the
// projection from the committed text.
type Plan struct {
	Import     []entry.Entry
	Projection Projection
}

// Empty reports whether the plan changes nothing on either side.
func (p Plan) Empty() bool {
	return len(p.Import) == 0 && p.Projection.Empty()
}

// PlanImport returns the browser entries whose href the document lacks, in
// browser order. Each href appears once.
func PlanImport(remote, browserEntries []entry.Entry) []entry.Entry {
	return entry.NewSet(browserEntries).Difference(entry.NewSet(remote))
}

// PlanProjection computes the browser mutations that make current match
// target. Creates follow document order and carry the last title the
// document gives an href. Every current bookmark whose title differs from
// the target title is renamed. Removals are planned only in ModeFolder and
// cover every current bookmark whose href the target lacks.
func PlanProjection(target []entry.Entry, current []browser.Bookmark, mode Mode) Projection {
	want := entry.NewSet(target)

	have := make(map[string]struct{}, len(current))
	for _, b := range current {
		have[b.URL] = struct{}{}
	}

	var p Projection

	for _, e := range want.Unique() {
		if _, ok := have[e.Href]; !ok {
			p.Create = append(p.Create, e)
		}
	}

	for _, b := range current {
		e, ok := want.Lookup(b.URL)
		if !ok {
			if mode == ModeFolder {
				p.Remove = append(p.Remove, b)
			}

			continue
		}

		if b.Title != e.Title {
			p.Update = append(p.Update, TitleUpdate{ID: b.ID, Href: b.URL, Title: e.Title})
		}
	}

	return p
}

// BuildPlan computes both halves of a plan against an unchanged document,
// assuming every imported entry lands in it. Session.Preview reports it; a
// run re-plans the projection from the committed text.
func BuildPlan(remote []entry.Entry, current []browser.Bookmark, mode Mode) Plan {
	imports := PlanImport(remote, browser.Entries(current))

	merged := make([]entry.Entry, 0, len(imports)+len(remote))
	merged = append(merged, imports...)
	merged = append(merged, remote...)

	return Plan{
		Import:     imports,
		Projection: PlanProjection(merged, current, mode),
	}
}
