package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"dwcli/config"
	"dwcli/internal/gateway"
	"dwcli/internal/logging"
	"dwcli/pkg/utils"
)

var (
	cfg    *config.Config
	logger = logging.NewDefault()
)

var rootCmd = &cobra.Command{
	Use:   "dw",
	Short: "Dynamicweb file transfer tool",
	Long: `dw is a command-line tool for moving files between a local machine and a
Dynamicweb solution through its admin API.

It lists the remote file storage, exports directories as archives and unpacks them
locally, imports local files and trees, and exports the solution database.
Configuration is loaded from .env file or environment variables`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: applyGlobalFlags,
}

func Execute(config *config.Config) error {
	cfg = config
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(databaseCmd)
	rootCmd.AddCommand(loginCmd)

	rootCmd.PersistentFlags().String("host", "", "Override DW_HOST from config")
	rootCmd.PersistentFlags().String("protocol", "", "Override DW_PROTOCOL from config (http or https)")
	rootCmd.PersistentFlags().String("api-key", "", "Override DW_API_KEY from config")
	rootCmd.PersistentFlags().Bool("insecure", false, "Skip TLS certificate verification")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
}

// applyGlobalFlags folds the persistent flags into cfg before any command runs.
func applyGlobalFlags(cmd *cobra.Command, args []string) error {
	logging.SetVerbose(isVerbose(cmd))

	if cfg == nil {
		cfg = &config.Config{Protocol: "https"}
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Host = host
	}
	if protocol, _ := cmd.Flags().GetString("protocol"); protocol != "" {
		cfg.Protocol = strings.ToLower(protocol)
	}
	if apiKey, _ := cmd.Flags().GetString("api-key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	if insecure, _ := cmd.Flags().GetBool("insecure"); insecure {
		cfg.Insecure = true
	}
	return nil
}

func isVerbose(cmd *cobra.Command) bool {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return verbose
}

func newGateway() (*gateway.Client, error) {
	cred, err := cfg.Credential()
	if err != nil {
		return nil, err
	}
	return gateway.New(cred, gateway.Options{
		RetryMax:    cfg.RetryMax,
		Insecure:    cfg.Insecure,
		ProgressOut: os.Stderr,
		Logger:      logger,
	})
}

// fail prints err as the JSON error envelope and hands it back to cobra.
func fail(command string, err error) error {
	utils.PrintError(err, command)
	return err
}

// confirm asks question on out and reads the answer from in. Only y and yes
// are accepted.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s (y/N): ", question)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	return slices.Contains([]string{"y", "yes"}, strings.ToLower(strings.TrimSpace(response))), nil
}
