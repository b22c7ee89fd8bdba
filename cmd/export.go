package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dwcli/internal/export"
	"dwcli/pkg/utils"
)

func runExport(ctx context.Context, cmd *cobra.Command, dirPath, outPath string) error {
	raw, _ := cmd.Flags().GetBool("raw")
	includeLogs, _ := cmd.Flags().GetBool("include-logs")
	asFile, _ := cmd.Flags().GetBool("asFile")
	asDirectory, _ := cmd.Flags().GetBool("asDirectory")
	skipConfirm, _ := cmd.Flags().GetBool("confirm")

	client, err := newGateway()
	if err != nil {
		return err
	}
	engine := export.NewEngine(client, os.Stderr, logger)

	if dirPath != "" {
		req := export.ResolveRequest(dirPath, asFile, asDirectory, raw, includeLogs)
		logger.Debug().Interface("request", req).Msg("resolved export request")

		result, err := engine.Export(ctx, req, outPath)
		if err != nil {
			return err
		}
		return utils.PrintJSON(result)
	}

	if !skipConfirm {
		fmt.Fprintf(os.Stderr, "Full export operation summary:\n")
		fmt.Fprintf(os.Stderr, "  Host: %s\n", cfg.Host)
		fmt.Fprintf(os.Stderr, "  Destination: %s\n", outPath)
		fmt.Fprintf(os.Stderr, "  Raw: %t\n", raw)

		ok, err := confirm(os.Stdin, os.Stderr, "Are you sure you want a full export of files?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "Export cancelled.")
			return nil
		}
	}

	fmt.Fprintln(os.Stderr, "Full export is starting")
	summary, err := engine.ExportAll(ctx, outPath, raw, includeLogs)
	if summary != nil {
		if printErr := utils.PrintJSON(summary); printErr != nil {
			return printErr
		}
	}
	return err
}
