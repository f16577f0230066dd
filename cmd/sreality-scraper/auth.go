package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nik-panekin/s-reality-scraper/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the TOR control-port password",
	Long: `Manage the TOR control-port password used for identity rotation.

The password is stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation (fallback)

Storing it here keeps the secret out of config files and environment
variables.`,
}

// authSetCmd represents the auth set command
var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the control password securely",
	Example: `  # Interactive, hidden input
  sreality-scraper auth set`,
	Args: cobra.NoArgs,
	Run:  runAuthSet,
}

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where the control password is stored",
	Args:  cobra.NoArgs,
	Run:   runAuthStatus,
}

// authRemoveCmd represents the auth remove command
var authRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the stored control password",
	Args:  cobra.NoArgs,
	Run:   runAuthRemove,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRemoveCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) {
	fmt.Print("TOR control password: ")
	password, err := readSecret()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to read password:", err)
		os.Exit(1)
	}
	if password == "" {
		fmt.Fprintln(os.Stderr, "Password must not be empty")
		os.Exit(1)
	}

	store, err := openSecretStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := store.Store(password); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to store password:", err)
		os.Exit(1)
	}
	fmt.Println("Control password stored.")
}

func runAuthStatus(cmd *cobra.Command, args []string) {
	if store, err := auth.NewKeyringStore(); err == nil && store.Exists() {
		fmt.Println("Control password: stored in the system keychain")
		return
	}

	// The encrypted file can be checked without the passphrase
	if probe, err := auth.NewEncryptedFileStore("probe"); err == nil && probe.Exists() {
		fmt.Println("Control password: stored in an encrypted file")
		return
	}

	fmt.Println("Control password: not stored")
	fmt.Println("Use 'sreality-scraper auth set' to store it.")
}

func runAuthRemove(cmd *cobra.Command, args []string) {
	removed := false

	if store, err := auth.NewKeyringStore(); err == nil {
		switch err := store.Delete(); {
		case err == nil:
			removed = true
		case !errors.Is(err, auth.ErrNotFound):
			fmt.Fprintln(os.Stderr, "Failed to remove from keychain:", err)
			os.Exit(1)
		}
	}

	// Deleting the file does not need the real passphrase
	if probe, err := auth.NewEncryptedFileStore("probe"); err == nil {
		switch err := probe.Delete(); {
		case err == nil:
			removed = true
		case !errors.Is(err, auth.ErrNotFound):
			fmt.Fprintln(os.Stderr, "Failed to remove encrypted file:", err)
			os.Exit(1)
		}
	}

	if removed {
		fmt.Println("Control password removed.")
	} else {
		fmt.Println("No stored control password found.")
	}
}

// openSecretStore returns the keychain store when available, otherwise the
// encrypted-file fallback, prompting for its passphrase.
func openSecretStore() (auth.SecretStore, error) {
	if store, err := auth.NewKeyringStore(); err == nil {
		return store, nil
	}

	fmt.Println("System keychain unavailable, falling back to an encrypted file.")
	fmt.Print("File passphrase: ")
	passphrase, err := readSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}

	store, err := auth.NewEncryptedFileStore(passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted store: %w", err)
	}
	return store, nil
}

// readSecret reads a line from stdin without echoing when possible.
func readSecret() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(secret), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
