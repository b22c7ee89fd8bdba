package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"dwcli/internal/tree"
)

func runList(ctx context.Context, cmd *cobra.Command, dirPath string) error {
	recursive, _ := cmd.Flags().GetBool("recursive")
	includeFiles, _ := cmd.Flags().GetBool("includeFiles")
	if dirPath == "" {
		dirPath = "/"
	}

	client, err := newGateway()
	if err != nil {
		return err
	}

	logger.Debug().Str("path", dirPath).Bool("recursive", recursive).Bool("include_files", includeFiles).Msg("listing directory")

	node, err := tree.NewClient(client).List(ctx, dirPath, recursive, includeFiles)
	if err != nil {
		return err
	}
	return tree.Print(os.Stdout, *node)
}
