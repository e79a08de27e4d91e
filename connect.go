package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/osmoscraft/osmosync/internal/config"
	"github.com/osmoscraft/osmosync/internal/tokenfile"
)

const verifyTimeout = 30 * time.Second

// connectFlags maps connect's flags to the config keys they set.
var connectFlags = []struct{ flag, key string }{
	{"username", "username"},
	{"repo", "repo"},
	{"filename", "filename"},
	{"branch", "branch"},
}

func newConnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a GitHub repository and save the access token",
		Long: `Check that the access token can read the document in the given repository,
then save the connection settings to the config file and the token to the
token file (readable only by you).

The token is taken from --token, then OSMOSYNC_TOKEN, then standard input.
A document that does not exist yet is fine as long as the repository is
reachable; the first import creates it.`,
		Example: examples(`
			osmosync connect --username octocat --repo notes
			echo "$TOKEN" | osmosync connect --username octocat --repo notes --filename links.md
		`),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE:        runConnect,
	}

	cmd.Flags().String("token", "", "GitHub personal access token")
	cmd.Flags().String("username", "", "repository owner")
	cmd.Flags().String("repo", "", "repository name")
	cmd.Flags().String("filename", "", "path of the Markdown document in the repository")
	cmd.Flags().String("branch", "", "branch to read and commit (default: the repository's default branch)")

	return cmd
}

func newDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "disconnect",
		Short:       "Remove the saved access token",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE:        runDisconnect,
	}
}

func runConnect(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	logger := cc.Logger

	cfg, err := config.LoadOrDefault(cc.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	changed := map[string]string{}

	for _, f := range connectFlags {
		if cmd.Flags().Changed(f.flag) {
			v, _ := cmd.Flags().GetString(f.flag)
			changed[f.key] = v
		}
	}

	applyConnectFlags(cfg, changed)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = cc.Env.Token
	}

	if token == "" {
		if token, err = promptToken(os.Stdin); err != nil {
			return err
		}
	}

	r, err := config.Resolve(cfg, cc.Env, cc.CLI, cc.TokenPath)
	if err != nil {
		return err
	}

	// Verify the candidate token, not whatever is stored today.
	r.Token = token

	target := r.Target()
	if !target.Complete() {
		return fmt.Errorf("username and repo are required (pass --username and --repo)")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
	defer cancel()

	logger.Info("verifying connection",
		slog.String("owner", target.Owner),
		slog.String("repo", target.Repo),
		slog.String("path", target.Path),
	)

	if err := newContentStore(r, logger).Verify(ctx, target); err != nil {
		return fmt.Errorf("connecting to %s/%s: %w", target.Owner, target.Repo, err)
	}

	for _, f := range connectFlags {
		if v, ok := changed[f.key]; ok {
			if err := config.SetKey(cc.ConfigPath, f.key, v); err != nil {
				return err
			}
		}
	}

	tok := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
	meta := map[string]string{
		tokenfile.MetaOwner:      target.Owner,
		tokenfile.MetaRepo:       target.Repo,
		tokenfile.MetaVerifiedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if err := tokenfile.Save(cc.TokenPath, tok, meta); err != nil {
		return err
	}

	cc.Statusf("Connected to %s/%s (%s)\n", target.Owner, target.Repo, target.Path)

	if cfg.AccessToken != "" {
		cc.Statusf("Note: access_token in %s takes precedence over the saved token\n", cc.ConfigPath)
	}

	notifyDaemon(cmd.Context(), cc, cfg.ControlAddr)

	return nil
}

func applyConnectFlags(cfg *config.Config, changed map[string]string) {
	for key, v := range changed {
		switch key {
		case "username":
			cfg.Username = v
		case "repo":
			cfg.Repo = v
		case "filename":
			cfg.Filename = v
		case "branch":
			cfg.Branch = v
		}
	}
}

// promptToken reads one line from in. A prompt is shown only when in is a
// terminal.
func promptToken(in *os.File) (string, error) {
	if isatty.IsTerminal(in.Fd()) {
		fmt.Fprint(os.Stderr, "GitHub access token: ")
	}

	return readToken(in)
}

func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading token: %w", err)
	}

	token := strings.TrimSpace(line)
	if token == "" {
		return "", fmt.Errorf("no access token given (use --token, OSMOSYNC_TOKEN or standard input)")
	}

	return token, nil
}

func runDisconnect(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if err := tokenfile.Remove(cc.TokenPath); err != nil {
		return err
	}

	cc.Statusf("Removed saved token %s\n", cc.TokenPath)

	cfg, err := config.LoadOrDefault(cc.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.AccessToken != "" {
		cc.Statusf("Note: access_token is still set in %s\n", cc.ConfigPath)
	}

	notifyDaemon(cmd.Context(), cc, cfg.ControlAddr)

	return nil
}
