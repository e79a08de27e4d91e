package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/osmoscraft/osmosync/internal/config"
	isync "github.com/osmoscraft/osmosync/internal/sync"
)

// State labels for status output.
const (
	syncStateEnabled      = "enabled"
	syncStateDisabled     = "disabled"
	syncStateNotConnected = "not connected"
	daemonStateRunning    = "running"
	daemonStateStopped    = "not running"
	notSet                = "(not set)"
)

const defaultStatusRuns = 10

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the connection, schedule, daemon and recent syncs",
		Long: `Display the effective settings, whether a daemon is running, and the
most recent entries of the run history.`,
		RunE: runStatus,
	}

	cmd.Flags().Int("runs", defaultStatusRuns, "number of recent runs to show (0 hides them)")

	return cmd
}

// statusReport is the status command's output, also its JSON form.
type statusReport struct {
	ConfigPath      string      `json:"config_path"`
	State           string      `json:"state"`
	Owner           string      `json:"owner,omitempty"`
	Repo            string      `json:"repo,omitempty"`
	Filename        string      `json:"filename"`
	Branch          string      `json:"branch,omitempty"`
	TokenSource     string      `json:"token_source,omitempty"`
	Mode            string      `json:"mode"`
	FolderName      string      `json:"folder_name,omitempty"`
	IntervalMinutes int         `json:"interval_minutes"`
	BookmarksFile   string      `json:"bookmarks_file"`
	Daemon          string      `json:"daemon"`
	DaemonPID       int         `json:"daemon_pid,omitempty"`
	Runs            []statusRun `json:"runs"`
}

type statusRun struct {
	StartedAt time.Time    `json:"started_at"`
	Duration  string       `json:"duration"`
	Trigger   string       `json:"trigger"`
	Status    string       `json:"status"`
	Message   string       `json:"message,omitempty"`
	Counts    isync.Counts `json:"counts"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	limit, _ := cmd.Flags().GetInt("runs")

	report := buildStatusReport(cc.Resolved, cc.ConfigPath)
	report.DaemonPID, report.Daemon = daemonState(pidPath())

	if limit > 0 {
		runs, err := recentRuns(cmd.Context(), cc, limit)
		if err != nil {
			return err
		}

		report.Runs = runs
	}

	if cc.Flags.JSON {
		return printJSON(cmd.OutOrStdout(), report)
	}

	printStatusText(cmd.OutOrStdout(), report)

	return nil
}

func buildStatusReport(r *config.Resolved, configPath string) statusReport {
	report := statusReport{
		ConfigPath:      configPath,
		Owner:           r.Username,
		Repo:            r.Repo,
		Filename:        r.Filename,
		Branch:          r.Branch,
		TokenSource:     string(r.TokenSource),
		Mode:            string(r.Mode),
		IntervalMinutes: r.SyncIntervalMinutes,
		BookmarksFile:   r.BookmarksFile,
		Runs:            []statusRun{},
	}

	if r.Mode == isync.ModeFolder {
		report.FolderName = r.FolderName
	}

	switch {
	case !r.Target().Complete():
		report.State = syncStateNotConnected
	case r.SyncToBookmarksBar:
		report.State = syncStateEnabled
	default:
		report.State = syncStateDisabled
	}

	return report
}

// daemonState reports the daemon PID from the PID file if that process is
// alive. Unlike sendSIGHUP it leaves a stale file alone.
func daemonState(path string) (int, string) {
	pid, err := readPIDFile(path)
	if err != nil {
		return 0, daemonStateStopped
	}

	proc, err := os.FindProcess(pid)
	if err != nil || proc.Signal(syscall.Signal(0)) != nil {
		return 0, daemonStateStopped
	}

	return pid, daemonStateRunning
}

func recentRuns(ctx context.Context, cc *CLIContext, limit int) ([]statusRun, error) {
	runLog, err := isync.OpenRunLog(ctx, runLogPath(), cc.Logger)
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}
	defer runLog.Close()

	records, err := runLog.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}

	runs := make([]statusRun, 0, len(records))
	for _, rec := range records {
		runs = append(runs, statusRun{
			StartedAt: rec.StartedAt,
			Duration:  rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond).String(),
			Trigger:   string(rec.Trigger),
			Status:    string(rec.Status),
			Message:   rec.Message,
			Counts:    rec.Counts,
		})
	}

	return runs, nil
}

func printStatusText(w io.Writer, s statusReport) {
	repo := notSet
	if s.Owner != "" && s.Repo != "" {
		repo = s.Owner + "/" + s.Repo
	}

	doc := s.Filename
	if s.Branch != "" {
		doc += " @ " + s.Branch
	}

	token := notSet
	if s.TokenSource != "" {
		token = "from " + s.TokenSource
	}

	mode := s.Mode
	if s.FolderName != "" {
		mode = fmt.Sprintf("%s %q", s.Mode, s.FolderName)
	}

	timer := "off"
	if s.IntervalMinutes > 0 {
		timer = fmt.Sprintf("every %d min", s.IntervalMinutes)
	}

	daemon := s.Daemon
	if s.DaemonPID != 0 {
		daemon = fmt.Sprintf("%s (PID %d)", s.Daemon, s.DaemonPID)
	}

	state := colorSkipped.Sprint(s.State)
	if s.State == syncStateEnabled {
		state = colorOK.Sprint(s.State)
	}

	fmt.Fprintf(w, "Sync:       %s\n", state)
	fmt.Fprintf(w, "Repository: %s\n", repo)
	fmt.Fprintf(w, "Document:   %s\n", doc)
	fmt.Fprintf(w, "Token:      %s\n", token)
	fmt.Fprintf(w, "Mode:       %s\n", mode)
	fmt.Fprintf(w, "Timer:      %s\n", timer)
	fmt.Fprintf(w, "Bookmarks:  %s\n", s.BookmarksFile)
	fmt.Fprintf(w, "Daemon:     %s\n", daemon)
	fmt.Fprintf(w, "Config:     %s\n", s.ConfigPath)

	if len(s.Runs) == 0 {
		return
	}

	fmt.Fprintln(w)
	colorHeading.Fprintln(w, "Recent runs")

	rows := make([][]string, 0, len(s.Runs))
	for _, run := range s.Runs {
		rows = append(rows, []string{
			formatTime(run.StartedAt),
			run.Trigger,
			run.Status,
			fmt.Sprintf("+%d ~%d -%d <%d",
				run.Counts.Created, run.Counts.Updated, run.Counts.Removed, run.Counts.Imported),
			run.Message,
		})
	}

	printTable(w, []string{"STARTED", "TRIGGER", "STATUS", "CHANGES", "MESSAGE"}, rows)
}
