package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tsarna/gamestream/pkg/gamestream"
	"github.com/tsarna/gamestream/pkg/gamestream/credentials"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the stored bearer token",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store the bearer token (read from stdin when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := commandStore(cmd)
		if err != nil {
			return err
		}

		var token string
		if len(args) == 1 {
			token = args[0]
		} else if token, err = readToken(cmd.InOrStdin()); err != nil {
			return err
		}
		return setToken(store, token, cmd.OutOrStdout())
	},
}

var showRaw bool

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored token's subject and expiry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := commandStore(cmd)
		if err != nil {
			return err
		}
		return showToken(store, showRaw, time.Now(), cmd.OutOrStdout())
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := commandStore(cmd)
		if err != nil {
			return err
		}
		if err := store.Delete(gamestream.DefaultCredentialKey); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Token removed from %s\n", store.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenSetCmd, tokenShowCmd, tokenClearCmd)

	tokenShowCmd.Flags().BoolVar(&showRaw, "raw", false, "print the token itself")
}

func commandStore(cmd *cobra.Command) (*credentials.FileStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return tokenStore(cfg)
}

func readToken(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return line, nil
}

func setToken(store *credentials.FileStore, token string, out io.Writer) error {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return errors.New("token must not be empty")
	}
	if err := store.Set(gamestream.DefaultCredentialKey, token); err != nil {
		return err
	}
	fmt.Fprintf(out, "Token saved to %s\n", store.Path())
	return nil
}

func showToken(store *credentials.FileStore, raw bool, now time.Time, out io.Writer) error {
	token, err := store.Get(gamestream.DefaultCredentialKey)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			return fmt.Errorf("no token stored in %s", store.Path())
		}
		return err
	}

	if raw {
		fmt.Fprintln(out, token)
		return nil
	}

	fmt.Fprintf(out, "file:    %s\n", store.Path())
	info, err := credentials.InspectToken(token)
	if err != nil {
		fmt.Fprintf(out, "format:  opaque (%d characters)\n", len(token))
		return nil
	}

	if info.Subject != "" {
		fmt.Fprintf(out, "subject: %s\n", info.Subject)
	}
	if info.Issuer != "" {
		fmt.Fprintf(out, "issuer:  %s\n", info.Issuer)
	}
	switch {
	case info.ExpiresAt.IsZero():
		fmt.Fprintln(out, "expires: never")
	case info.Expired(now):
		fmt.Fprintf(out, "expires: %s (expired)\n", info.ExpiresAt.UTC().Format(time.RFC3339))
	default:
		fmt.Fprintf(out, "expires: %s (in %s)\n", info.ExpiresAt.UTC().Format(time.RFC3339), info.ExpiresAt.Sub(now).Round(time.Second))
	}
	return nil
}
