package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivegate/internal/credential"
	"github.com/tonimelisma/drivegate/internal/server"
)

// redacted replaces the private key when a token is opened for inspection.
const redacted = "[redacted]"

var errNoKey = fmt.Errorf("no Fernet key: pass --key or set %s", server.KeyEnv)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Create and inspect bearer tokens",
	}

	cmd.AddCommand(newTokenKeygenCmd())
	cmd.AddCommand(newTokenSealCmd())
	cmd.AddCommand(newTokenOpenCmd())

	return cmd
}

func newTokenKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a new Fernet key for " + server.KeyEnv,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := credential.GenerateKey()
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)

			return err
		},
	}
}

func newTokenSealCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seal <service-account.json>",
		Short: "Seal a service-account key file into a bearer token",
		Args:  cobra.ExactArgs(1),
		RunE:  runTokenSeal,
	}

	cmd.Flags().String("key", "", "Fernet key (default $"+server.KeyEnv+")")

	return cmd
}

func runTokenSeal(cmd *cobra.Command, args []string) error {
	key, err := fernetKey(cmd)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading key file: %w", err)
	}

	bundle, err := credential.BundleFromServiceAccount(data)
	if err != nil {
		return err
	}

	token, err := credential.Encrypt(bundle, key)
	if err != nil {
		return err
	}

	bootstrapLogger().Info("sealed token",
		slog.String("client_email", bundle.ClientEmail),
		slog.String("project_id", bundle.ProjectID),
	)

	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)

	return err
}

func newTokenOpenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open <token>",
		Short: "Decrypt a bearer token and print its bundle (private key redacted)",
		Args:  cobra.ExactArgs(1),
		RunE:  runTokenOpen,
	}

	cmd.Flags().String("key", "", "Fernet key (default $"+server.KeyEnv+")")

	return cmd
}

func runTokenOpen(cmd *cobra.Command, args []string) error {
	key, err := fernetKey(cmd)
	if err != nil {
		return err
	}

	bundle, err := credential.Decrypt(args[0], key)
	if err != nil {
		return err
	}

	if bundle.PrivateKey != "" {
		bundle.PrivateKey = redacted
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	return enc.Encode(bundle)
}

// fernetKey returns --key if given, else the environment key.
func fernetKey(cmd *cobra.Command) (string, error) {
	key, err := cmd.Flags().GetString("key")
	if err != nil {
		return "", err
	}

	if key == "" {
		key = os.Getenv(server.KeyEnv)
	}

	if key == "" {
		return "", errNoKey
	}

	return key, nil
}
