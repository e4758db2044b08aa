package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/paindiary/internal/config"
	"github.com/terraincognita07/paindiary/internal/security"
	"golang.org/x/crypto/bcrypt"
)

type HashPassphraseOptions struct {
	*RootOptions
	Cost int
}

func NewHashPassphraseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HashPassphraseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hash-passphrase",
		Short: "Print a bcrypt hash for PASSPHRASE_HASH",
		Long: `Read a passphrase (twice, without echo on a terminal) and print its
bcrypt hash for the PASSPHRASE_HASH setting. Piped input is read once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHashPassphrase(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.Cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func runHashPassphrase(cmd *cobra.Command, opts *HashPassphraseOptions) error {
	if opts.Cost < bcrypt.MinCost || opts.Cost > bcrypt.MaxCost {
		return NewExitError(ExitCommandError, fmt.Sprintf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	prompt := newPassphrasePrompt(cmd.InOrStdin(), cmd.ErrOrStderr())
	passphrase, err := prompt.readConfirmed()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read passphrase", err)
	}
	if err := security.ValidatePassphraseStrength(passphrase); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("passphrase must be at least %d characters and mix letters with digits or symbols", security.MinPassphraseLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), opts.Cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return NewExitError(ExitCommandError, "passphrase must be at most 72 bytes")
		}
		return WrapExitError(ExitFailure, "hashing failed", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(hash))
	return nil
}

type GenerateSecretOptions struct {
	*RootOptions
	Length int
}

func NewGenerateSecretCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateSecretOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate-secret",
		Short: "Print a random value for SECRET_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Length < config.MinSecretLength {
				return NewExitError(ExitCommandError, fmt.Sprintf("length must be at least %d", config.MinSecretLength))
			}
			secret, err := security.GenerateSecretKey(opts.Length)
			if err != nil {
				return WrapExitError(ExitFailure, "generating secret failed", err)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), secret+"\n")
			return err
		},
	}
	cmd.Flags().IntVar(&opts.Length, "length", 48, "secret length in characters")
	return cmd
}
