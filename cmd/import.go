package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"dwcli/internal/importer"
	"dwcli/pkg/utils"
)

func runImport(ctx context.Context, cmd *cobra.Command, localPath, destination string) error {
	recursive, _ := cmd.Flags().GetBool("recursive")
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	createEmpty, _ := cmd.Flags().GetBool("createEmpty")

	client, err := newGateway()
	if err != nil {
		return err
	}

	if isVerbose(cmd) {
		logger.Debug().
			Str("path", localPath).
			Str("destination", destination).
			Bool("recursive", recursive).
			Bool("overwrite", overwrite).
			Msg("starting import")
	}

	summary, err := importer.NewEngine(client, os.Stderr, logger).Import(ctx, localPath, destination, importer.Options{
		Recursive:   recursive,
		Overwrite:   overwrite,
		CreateEmpty: createEmpty,
	})
	if err != nil {
		return err
	}
	return utils.PrintJSON(summary)
}
