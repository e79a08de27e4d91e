package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osmoscraft/osmosync/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "init",
		Short:       "Write a commented config file with every default",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE:        runConfigInit,
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		RunE:  runConfigShow,
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one key in the config file",
		Long: `Set one key in the config file, keeping its comments and layout. The
file is created from the default template if it does not exist. A running
daemon is told to reload.`,
		Example: examples(`
			osmosync config set bookmarks_sync_interval_minutes 15
			osmosync config set bookmarks_sync_mode bar
		`),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		Args:        cobra.ExactArgs(2),
		RunE:        runConfigSet,
	}
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if err := config.CreateConfig(cc.ConfigPath); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%s already exists (use 'osmosync config set' to change it)", cc.ConfigPath)
		}

		return err
	}

	cc.Statusf("Wrote %s\n", cc.ConfigPath)

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if cc.Flags.JSON {
		return printJSON(cmd.OutOrStdout(), config.EffectiveValues(cc.Resolved))
	}

	return config.RenderEffective(cc.Resolved, cc.ConfigPath, cmd.OutOrStdout())
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	key, value := args[0], args[1]

	if err := config.SetKey(cc.ConfigPath, key, value); err != nil {
		return err
	}

	cc.Statusf("Set %s in %s\n", key, cc.ConfigPath)

	cfg, err := config.Load(cc.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	notifyDaemon(cmd.Context(), cc, cfg.ControlAddr)

	return nil
}
