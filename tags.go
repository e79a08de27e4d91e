package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/osmoscraft/osmosync/internal/markdown"
)

const fetchTimeout = 30 * time.Second

func newTagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List the tags used in the bookmark document",
		Long: `Print the distinct #tags written after links in the Markdown document,
sorted. The document is fetched from GitHub unless --markdown-file is given.`,
		Example: examples(`
			osmosync tags
			osmosync tags --markdown-file ./README.md --json
		`),
		RunE: runTags,
	}

	cmd.Flags().String("markdown-file", "", "read this file instead of fetching the document")

	return cmd
}

func runTags(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	mdPath, _ := cmd.Flags().GetString("markdown-file")

	var text string

	if mdPath != "" {
		data, err := os.ReadFile(mdPath)
		if err != nil {
			return fmt.Errorf("reading markdown file: %w", err)
		}

		text = string(data)
	} else {
		ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout)
		defer cancel()

		var err error

		text, err = newContentStore(cc.Resolved, cc.Logger).GetContent(ctx, cc.Resolved.Target())
		if err != nil {
			return fmt.Errorf("fetching document: %w", err)
		}
	}

	tags := markdown.UniqueTags(text)

	if cc.Flags.JSON {
		return printJSON(cmd.OutOrStdout(), tags)
	}

	for _, tag := range tags {
		fmt.Fprintln(cmd.OutOrStdout(), "#"+tag)
	}

	return nil
}
