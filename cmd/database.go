package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"dwcli/internal/export"
	"dwcli/pkg/utils"
)

var databaseCmd = &cobra.Command{
	Use:   "database [path]",
	Short: "Export the solution database",
	Long: `Export the solution database as a .bacpac file into the directory [path].

The file name is taken from the response. The user behind the API key needs
database permissions, otherwise the backend answers without an attachment.`,
	Example: `  # Export the database into the current directory
  dw database --export

  # Export into a backup directory
  dw database ./backup --export`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDatabase,
}

func runDatabase(cmd *cobra.Command, args []string) error {
	exportDB, _ := cmd.Flags().GetBool("export")
	if !exportDB {
		return cmd.Help()
	}

	outPath := "."
	if len(args) > 0 {
		outPath = args[0]
	}

	client, err := newGateway()
	if err != nil {
		return fail("database", err)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	result, err := export.NewEngine(client, os.Stderr, logger).ExportDatabase(ctx, outPath)
	if err != nil {
		return fail("database", err)
	}
	if err := utils.PrintJSON(result); err != nil {
		return fail("database", err)
	}
	return nil
}

func init() {
	databaseCmd.Flags().BoolP("export", "e", false, "Exports the solution database to a .bacpac file at [path]")
	databaseCmd.Flags().Int("timeout", 0, "Timeout in seconds for the operation (default: no limit)")
}
