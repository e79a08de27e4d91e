package main

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/osmoscraft/osmosync/internal/config"
	"github.com/osmoscraft/osmosync/internal/daemon"
	isync "github.com/osmoscraft/osmosync/internal/sync"
)

const notifyTimeout = 10 * time.Second

func newEnableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Turn bookmark sync on and sync immediately",
		Long: `Set sync_to_bookmarks_bar = true in the config file, tell a running
daemon to reload its settings, and run a sync right away.`,
		Example: examples(`
			osmosync enable
			osmosync enable --no-sync
		`),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			noSync, _ := cmd.Flags().GetBool("no-sync")

			return runToggle(cmd, true, !noSync)
		},
	}

	cmd.Flags().Bool("no-sync", false, "only change the setting, do not sync now")

	return cmd
}

func newDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Turn bookmark sync off",
		Long: `Set sync_to_bookmarks_bar = false in the config file and tell a running
daemon to reload its settings. The daemon keeps running but skips every
sync until sync is enabled again.`,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runToggle(cmd, false, false)
		},
	}
}

func runToggle(cmd *cobra.Command, enabled, syncNow bool) error {
	cc := mustCLIContext(cmd.Context())

	if err := config.SetKey(cc.ConfigPath, "sync_to_bookmarks_bar", strconv.FormatBool(enabled)); err != nil {
		return err
	}

	if enabled {
		cc.Statusf("Bookmarks sync enabled\n")
	} else {
		cc.Statusf("Bookmarks sync disabled\n")
	}

	if err := cc.loadConfig(); err != nil {
		return err
	}

	notifyDaemon(cmd.Context(), cc, cc.Resolved.ControlAddr)

	if !syncNow {
		return nil
	}

	res, err := syncOnce(shutdownContext(cmd.Context(), cc.Logger), cc, false, nil)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cmd.OutOrStdout(), res)
	}

	printResult(cmd.OutOrStdout(), res)

	if res.Status == isync.StatusError {
		return errSyncFailed
	}

	return nil
}

// notifyDaemon asks a running daemon to reload its settings, first through
// the control endpoint and then by SIGHUP. Not finding a daemon is not an
// error; the change applies on its next start.
func notifyDaemon(ctx context.Context, cc *CLIContext, addr string) {
	if addr != "" {
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()

		_, err := daemon.SendControl(ctx, addr, daemon.Message{Type: daemon.MsgSettingsChanged})
		if err == nil {
			cc.Statusf("Notified running daemon to reload settings\n")

			return
		}

		if !errors.Is(err, daemon.ErrNoDaemon) {
			cc.Statusf("Note: daemon could not reload settings: %v\n", err)

			return
		}
	}

	if err := sendSIGHUP(pidPath()); err != nil {
		cc.Statusf("Note: %v, changes take effect on next daemon start\n", err)

		return
	}

	cc.Statusf("Notified running daemon to reload settings\n")
}
