package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osmoscraft/osmosync/internal/browser"
	"github.com/osmoscraft/osmosync/internal/entry"
)

func e(title, href string) entry.Entry {
	return entry.Entry{Title: title, Href: href}
}

func bm(id, title, url string) browser.Bookmark {
	return browser.Bookmark{ID: id, Title: title, URL: url}
}

func TestPlanImport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		remote  []entry.Entry
		browser []entry.Entry
		want    []entry.Entry
	}{
		{
			name:    "browser only entries in browser order",
			remote:  []entry.Entry{e("A", "http://a")},
			browser: []entry.Entry{e("C", "http://c"), e("A2", "http://a"), e("B", "http://b")},
			want:    []entry.Entry{e("C", "http://c"), e("B", "http://b")},
		},
		{
			name:    "empty browser imports nothing",
			remote:  []entry.Entry{e("A", "http://a")},
			browser: nil,
			want:    nil,
		},
		{
			name:    "empty remote imports everything",
			remote:  nil,
			browser: []entry.Entry{e("A", "http://a")},
			want:    []entry.Entry{e("A", "http://a")},
		},
		{
			name:    "duplicate browser href imported once",
			remote:  nil,
			browser: []entry.Entry{e("first", "http://x"), e("second", "http://x")},
			want:    []entry.Entry{e("second", "http://x")},
		},
		{
			name:    "title difference alone is not an import",
			remote:  []entry.Entry{e("Remote", "http://a")},
			browser: []entry.Entry{e("Browser", "http://a")},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, PlanImport(tt.remote, tt.browser))
		})
	}
}

func TestPlanProjection_FolderScenario(t *testing.T) {
	t.Parallel()

	got := PlanProjection(
		[]entry.Entry{e("Foo", "http://a")},
		[]browser.Bookmark{bm("10", "Bar", "http://a"), bm("11", "Baz", "http://b")},
		ModeFolder,
	)

	assert.Empty(t, got.Create)
	assert.Equal(t, []TitleUpdate{{ID: "10", Href: "http://a", Title: "Foo"}}, got.Update)
	assert.Equal(t, []browser.Bookmark{bm("11", "Baz", "http://b")}, got.Remove)
}

func TestPlanProjection_BarModeNeverRemoves(t *testing.T) {
	t.Parallel()

	got := PlanProjection(
		[]entry.Entry{e("Foo", "http://a")},
		[]browser.Bookmark{bm("10", "Foo", "http://a"), bm("11", "Mine", "http://mine")},
		ModeBar,
	)

	assert.True(t, got.Empty())
}

func TestPlanProjection_CreatesInDocumentOrder(t *testing.T) {
	t.Parallel()

	got := PlanProjection(
		[]entry.Entry{e("C", "http://c"), e("A", "http://a"), e("B", "http://b")},
		[]browser.Bookmark{bm("1", "A", "http://a")},
		ModeFolder,
	)

	assert.Equal(t, []entry.Entry{e("C", "http://c"), e("B", "http://b")}, got.Create)
	assert.Empty(t, got.Update)
	assert.Empty(t, got.Remove)
}

func TestPlanProjection_DuplicateHrefInDocument(t *testing.T) {
	t.Parallel()

	target := []entry.Entry{e("A", "http://x"), e("other", "http://o"), e("B", "http://x")}

	t.Run("absent from browser creates once with last title", func(t *testing.T) {
		t.Parallel()

		got := PlanProjection(target, nil, ModeFolder)
		assert.Equal(t, []entry.Entry{e("B", "http://x"), e("other", "http://o")}, got.Create)
	})

	t.Run("present in browser updates to last title", func(t *testing.T) {
		t.Parallel()

		got := PlanProjection(target, []browser.Bookmark{bm("7", "A", "http://x")}, ModeFolder)
		assert.Equal(t, []TitleUpdate{{ID: "7", Href: "http://x", Title: "B"}}, got.Update)
	})
}

func TestPlanProjection_IdenticalTitleIsNoop(t *testing.T) {
	t.Parallel()

	got := PlanProjection(
		[]entry.Entry{e("Same", "http://a")},
		[]browser.Bookmark{bm("1", "Same", "http://a")},
		ModeFolder,
	)

	assert.True(t, got.Empty())
}

func TestPlanProjection_TitleComparisonIsByteWise(t *testing.T) {
	t.Parallel()

	got := PlanProjection(
		[]entry.Entry{e("café", "http://a")},
		[]browser.Bookmark{bm("1", "café", "http://a")},
		ModeFolder,
	)

	assert.Len(t, got.Update, 1)
}

func TestPlanProjection_EmptyTargetRemovesEverythingInFolder(t *testing.T) {
	t.Parallel()

	current := []browser.Bookmark{bm("1", "A", "http://a"), bm("2", "B", "http://b")}

	assert.Equal(t, current, PlanProjection(nil, current, ModeFolder).Remove)
	assert.Empty(t, PlanProjection(nil, current, ModeBar).Remove)
}

func TestPlanProjection_DuplicateBrowserBookmarks(t *testing.T) {
	t.Parallel()

	current := []browser.Bookmark{bm("1", "old", "http://a"), bm("2", "new", "http://a"), bm("3", "x", "http://gone"), bm("4", "y", "http://gone")}

	got := PlanProjection([]entry.Entry{e("new", "http://a")}, current, ModeFolder)

	assert.Empty(t, got.Create)
	assert.Equal(t, []TitleUpdate{{ID: "1", Href: "http://a", Title: "new"}}, got.Update)
	assert.Equal(t, []browser.Bookmark{current[2], current[3]}, got.Remove)
}

func TestBuildPlan_ImportedEntriesAreNotRemoved(t *testing.T) {
	t.Parallel()

	current := []browser.Bookmark{bm("1", "Site", "http://a")}

	plan := BuildPlan(nil, current, ModeFolder)

	assert.Equal(t, []entry.Entry{e("Site", "http://a")}, plan.Import)
	assert.True(t, plan.Projection.Empty())
	assert.False(t, plan.Empty())
}

func TestBuildPlan_InSync(t *testing.T) {
	t.Parallel()

	plan := BuildPlan([]entry.Entry{e("A", "http://a")}, []browser.Bookmark{bm("1", "A", "http://a")}, ModeFolder)
	assert.True(t, plan.Empty())
}

func TestPlanFunctionsDoNotMutateInputs(t *testing.T) {
	t.Parallel()

	remote := []entry.Entry{e("A", "http://a"), e("B", "http://a")}
	current := []browser.Bookmark{bm("1", "Z", "http://z")}

	remoteCopy := append([]entry.Entry(nil), remote...)
	currentCopy := append([]browser.Bookmark(nil), current...)

	_ = PlanImport(remote, browser.Entries(current))
	_ = PlanProjection(remote, current, ModeFolder)

	assert.Equal(t, remoteCopy, remote)
	assert.Equal(t, currentCopy, current)
}
