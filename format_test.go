package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmoscraft/osmosync/internal/browser"
	"github.com/osmoscraft/osmosync/internal/entry"
	isync "github.com/osmoscraft/osmosync/internal/sync"
)

func TestFormatCounts(t *testing.T) {
	t.Parallel()

	got := formatCounts(isync.Counts{Imported: 1, Created: 2, Updated: 3, Removed: 4})
	assert.Equal(t, "1 imported, 2 created, 3 updated, 4 removed", got)
}

func TestPrintResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		res    isync.Result
		status string
		want   string
	}{
		{
			name:   "ok without message shows counts",
			res:    isync.Result{Status: isync.StatusOK, Counts: isync.Counts{Created: 2}},
			status: "OK",
			want:   "0 imported, 2 created, 0 updated, 0 removed",
		},
		{
			name:   "skipped shows reason",
			res:    isync.Result{Status: isync.StatusSkipped, Message: isync.MsgDisabled},
			status: "SKIPPED",
			want:   isync.MsgDisabled,
		},
		{
			name: "error keeps partial counts",
			res: isync.Result{
				Status:  isync.StatusError,
				Message: "boom",
				Counts:  isync.Counts{Removed: 1},
			},
			status: "ERROR",
			want:   "boom (0 imported, 0 created, 0 updated, 1 removed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			printResult(&buf, tt.res)

			assert.Contains(t, buf.String(), tt.status)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestPrintJSON_Indented(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, isync.Result{Status: isync.StatusOK}))

	assert.Contains(t, buf.String(), "\n  \"status\": \"ok\"")
}

func TestExamples_Dedents(t *testing.T) {
	t.Parallel()

	got := examples(`
		osmosync sync
		osmosync sync --local
	`)

	assert.Equal(t, "osmosync sync\nosmosync sync --local", got)
}

func TestFormatTime(t *testing.T) {
	now := time.Now()
	sameYear := time.Date(now.Year(), time.March, 15, 10, 30, 0, 0, time.UTC)
	diffYear := time.Date(2020, time.December, 25, 8, 0, 0, 0, time.UTC)

	t.Run("same year", func(t *testing.T) {
		result := formatTime(sameYear)
		assert.Contains(t, result, "Mar")
		assert.Contains(t, result, "15")
		assert.Contains(t, result, "10:30")
	})

	t.Run("different year", func(t *testing.T) {
		result := formatTime(diffYear)
		assert.Contains(t, result, "Dec")
		assert.Contains(t, result, "25")
		assert.Contains(t, result, "2020")
	})
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	headers := []string{"STARTED", "TRIGGER", "STATUS"}
	rows := [][]string{
		{"Jan 15 10:30", "timer", "ok"},
		{"Feb  1 09:00", "manual", "error"},
	}

	printTable(&buf, headers, rows)
	output := buf.String()

	assert.Contains(t, output, "STARTED  ")
	assert.Contains(t, output, "TRIGGER")
	assert.Contains(t, output, "manual   error")
	assert.NotContains(t, output, " \n")
}

func TestPlanActions_ApplyOrder(t *testing.T) {
	t.Parallel()

	plan := isync.Plan{
		Import: []entry.Entry{{Title: "I", Href: "http://i"}},
		Projection: isync.Projection{
			Create: []entry.Entry{{Title: "C", Href: "http://c"}},
			Update: []isync.TitleUpdate{{ID: "7", Href: "http://u", Title: "U"}},
			Remove: []browser.Bookmark{{ID: "8", Title: "R", URL: "http://r"}},
		},
	}

	assert.Equal(t, []planAction{
		{actionImport, "I", "http://i"},
		{actionCreate, "C", "http://c"},
		{actionRename, "U", "http://u"},
		{actionRemove, "R", "http://r"},
	}, planActions(plan))
}

func TestPrintPlan(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printPlan(&buf, nil)
	assert.Equal(t, isync.MsgInSync+"\n", buf.String())

	buf.Reset()
	printPlan(&buf, []planAction{{actionRemove, "Old", "http://old"}})
	assert.Equal(t, "ACTION  TITLE  URL\nremove  Old    http://old\n", buf.String())
}
