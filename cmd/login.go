package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"dwcli/internal/auth"
	"dwcli/pkg/utils"
)

type loginResult struct {
	Host     string `json:"host"`
	Username string `json:"username"`
	APIKey   string `json:"api_key"`
	Hint     string `json:"hint"`
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Fetch an API key for the configured host",
	Long: `Log in with a username and password and create an API key for the CLI.

The key is printed; store it in DW_API_KEY (or .env) to use it for the other
commands. The password is read without echo when stdin is a terminal.`,
	Example: `  # Log in interactively
  dw login --host mysolution.example.com

  # Provide the username up front
  dw login --username admin`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	methodFlag, _ := cmd.Flags().GetString("method")
	username, _ := cmd.Flags().GetString("username")

	method, err := auth.ParseMethod(methodFlag)
	if err != nil {
		return fail("login", err)
	}

	reader := bufio.NewReader(os.Stdin)
	if username == "" {
		if username, err = prompt(reader, os.Stderr, "Username: "); err != nil {
			return fail("login", err)
		}
	}
	password, err := readPassword(reader, os.Stderr)
	if err != nil {
		return fail("login", err)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	env := auth.Environment{Protocol: cfg.Protocol, Host: cfg.Host, Insecure: cfg.Insecure}
	apiKey, err := auth.New(logger).Authenticate(ctx, method, auth.Credentials{Username: username, Password: password}, env)
	if err != nil {
		return fail("login", err)
	}

	if err := utils.PrintJSON(loginResult{
		Host:     cfg.Host,
		Username: username,
		APIKey:   apiKey,
		Hint:     "export DW_API_KEY=" + apiKey,
	}); err != nil {
		return fail("login", err)
	}
	return nil
}

func prompt(reader *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	value := strings.TrimSpace(line)
	if value == "" {
		return "", fmt.Errorf("%s is required", strings.TrimSuffix(strings.TrimSpace(label), ":"))
	}
	return value, nil
}

func readPassword(reader *bufio.Reader, out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(reader, out, "Password: ")
	}

	fmt.Fprint(out, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

func init() {
	loginCmd.Flags().StringP("username", "u", "", "Username to log in with (prompted when empty)")
	loginCmd.Flags().String("method", string(auth.MethodNormal), "Authentication method: normal, mfa, totp or link")
	loginCmd.Flags().Int("timeout", 0, "Timeout in seconds for the operation (default: no limit)")
}
