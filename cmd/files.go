package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files [dirPath] [outPath]",
	Short: "List, export or import files",
	Long: `List, export or import files in the solution's file storage.

With --list the directory at [dirPath] is printed as a tree.
With --export the directory or file at [dirPath] is downloaded to [outPath] and
unpacked; without [dirPath] every top-level directory is exported, followed by the
files in the storage root as Base.zip.
With --import the local file, pattern or directory at [dirPath] is uploaded to the
remote directory [outPath].

The system/log directory and cache.net are left out of exports unless
--include-logs is set.`,
	Example: `  # Print the whole storage with files
  dw files / --list --recursive --includeFiles

  # Export a directory and unpack it into ./backup
  dw files Images ./backup --export

  # Export a single file
  dw files Images/logo.png . --export

  # Export everything without prompting
  dw files --export --confirm

  # Import a tree, overwriting existing files
  dw files ./site /Files --import --recursive --overwrite

  # Import the first file matching a pattern
  dw files "./reports/report-*.pdf" /Files/Reports --import`,
	Args: cobra.MaximumNArgs(2),
	RunE: runFiles,
}

func runFiles(cmd *cobra.Command, args []string) error {
	list, _ := cmd.Flags().GetBool("list")
	export, _ := cmd.Flags().GetBool("export")
	imp, _ := cmd.Flags().GetBool("import")

	dirPath, outPath := "", "."
	if len(args) > 0 {
		dirPath = args[0]
	}
	if len(args) > 1 {
		outPath = args[1]
	}

	if !list && !export && !imp {
		return cmd.Help()
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if list {
		if err := runList(ctx, cmd, dirPath); err != nil {
			return fail("files --list", err)
		}
	}
	if export {
		if err := runExport(ctx, cmd, dirPath, outPath); err != nil {
			return fail("files --export", err)
		}
	}
	if imp {
		if dirPath == "" || len(args) < 2 {
			return fail("files --import", errors.New("import requires both [dirPath] and [outPath]"))
		}
		if err := runImport(ctx, cmd, dirPath, outPath); err != nil {
			return fail("files --import", err)
		}
	}
	return nil
}

// commandContext is cancelled on interrupt and, when --timeout is set, after
// that many seconds.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	timeout, _ := cmd.Flags().GetInt("timeout")
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	return ctx, func() {
		cancel()
		stop()
	}
}

func init() {
	filesCmd.Flags().BoolP("list", "l", false, "Lists all directories and files")
	filesCmd.Flags().BoolP("export", "e", false, "Exports the directory or file at [dirPath] to [outPath]")
	filesCmd.Flags().BoolP("import", "i", false, "Imports the file or directory at [dirPath] to [outPath]")
	filesCmd.Flags().BoolP("recursive", "r", false, "Used with list and import, handles all directories recursively")
	filesCmd.Flags().BoolP("includeFiles", "f", false, "Used with list, includes files in the tree")
	filesCmd.Flags().BoolP("overwrite", "o", false, "Used with import, overwrites existing files at the destination")
	filesCmd.Flags().Bool("createEmpty", false, "Used with import, creates files even if they are empty")
	filesCmd.Flags().Bool("raw", false, "Used with export, keeps the zip file instead of unpacking it")
	filesCmd.Flags().Bool("include-logs", false, "Used with export, includes system/log and cache.net, NOT RECOMMENDED")
	filesCmd.Flags().Bool("asFile", false, "Treats [dirPath] as a single file, even if it has no extension")
	filesCmd.Flags().Bool("asDirectory", false, "Treats [dirPath] as a directory, even if its name contains a dot")
	filesCmd.Flags().Bool("confirm", false, "Skip the confirmation prompt for a full export")
	filesCmd.Flags().Int("timeout", 0, "Timeout in seconds for the operation (default: no limit)")

	filesCmd.MarkFlagsMutuallyExclusive("asFile", "asDirectory")
	filesCmd.MarkFlagsMutuallyExclusive("export", "import")
}
