package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/igamenovoer/my-litellm-proxy/pkg/cli"
	"github.com/igamenovoer/my-litellm-proxy/pkg/security/auth"
)

var keysFlags struct {
	alias    string
	models   []string
	ttl      time.Duration
	rpm      int
	parallel int
	generate bool
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage client API keys",
	Long: `Mint virtual keys and hash keys for general_settings.keys.

Virtual keys are JWTs signed with general_settings.master_key. The gateway
accepts them without any config change, and rotating the master key revokes
all of them.`,
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Mint a virtual key signed by the master key",
	Long: `Mint a virtual key signed by the master key.

Examples:
  # Key for team-a limited to two models, valid for 30 days
  llmproxy keys generate --alias team-a --models gpt-4,gpt-4o-mini --ttl 720h

  # Key without expiry for every model, at most 60 requests per minute
  llmproxy keys generate --alias batch-jobs --rpm-limit 60`,
	Args: cobra.NoArgs,
	RunE: generateVirtualKey,
}

var keysHashCmd = &cobra.Command{
	Use:   "hash [key]",
	Short: "Print the bcrypt hash of a key for key_hash",
	Long: `Print the bcrypt hash of a key, for use as key_hash in general_settings.keys.

The key is read from the argument or, when absent, from the first line of
stdin. With --generate a new random key is created and printed with its hash.

Examples:
  llmproxy keys hash sk-my-team-key
  echo -n "$TEAM_KEY" | llmproxy keys hash
  llmproxy keys hash --generate`,
	Args: cobra.MaximumNArgs(1),
	RunE: hashKey,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysGenerateCmd, keysHashCmd)

	keysGenerateCmd.Flags().StringVar(&keysFlags.alias, "alias", "", "key alias recorded in logs and the audit log (required)")
	keysGenerateCmd.Flags().StringSliceVar(&keysFlags.models, "models", nil, "models the key may use (default: all)")
	keysGenerateCmd.Flags().DurationVar(&keysFlags.ttl, "ttl", 0, "key lifetime, e.g. 720h (default: no expiry)")
	keysGenerateCmd.Flags().IntVar(&keysFlags.rpm, "rpm-limit", 0, "requests per minute (default: unlimited)")
	keysGenerateCmd.Flags().IntVar(&keysFlags.parallel, "max-parallel-requests", 0, "requests in flight (default: unlimited)")
	_ = keysGenerateCmd.MarkFlagRequired("alias")

	keysHashCmd.Flags().BoolVar(&keysFlags.generate, "generate", false, "generate a random key and hash it")
}

func generateVirtualKey(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.GeneralSettings.MasterKey == "" {
		return cli.NewConfigError("general_settings.master_key",
			errors.New("a master key is required to sign virtual keys"))
	}

	if keysFlags.rpm < 0 || keysFlags.parallel < 0 {
		return errors.New("--rpm-limit and --max-parallel-requests must not be negative")
	}
	key, err := auth.IssueVirtualKey(cfg.GeneralSettings.MasterKey, keysFlags.alias, keysFlags.models, keysFlags.ttl,
		auth.WithRPMLimit(keysFlags.rpm), auth.WithMaxParallelRequests(keysFlags.parallel))
	if err != nil {
		return cli.NewCommandError("keys generate", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, key)
	if verbose {
		models := "all"
		if len(keysFlags.models) > 0 {
			models = strings.Join(keysFlags.models, ", ")
		}
		expires := "never"
		if keysFlags.ttl > 0 {
			expires = time.Now().Add(keysFlags.ttl).UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "alias: %s\nmodels: %s\nexpires: %s\n", keysFlags.alias, models, expires)
	}
	return nil
}

func hashKey(cmd *cobra.Command, args []string) error {
	var key string
	switch {
	case keysFlags.generate:
		if len(args) > 0 {
			return errors.New("--generate takes no key argument")
		}
		generated, err := auth.GenerateKey()
		if err != nil {
			return cli.NewCommandError("keys hash", err)
		}
		key = generated
	case len(args) == 1:
		key = args[0]
	default:
		line, err := readLine(cmd.InOrStdin())
		if err != nil {
			return cli.NewCommandError("keys hash", err)
		}
		key = line
	}

	hash, err := auth.HashKey(key)
	if err != nil {
		return cli.NewCommandError("keys hash", err)
	}

	out := cmd.OutOrStdout()
	if keysFlags.generate {
		fmt.Fprintf(out, "key:      %s\nkey_hash: %s\n", key, hash)
		return nil
	}
	fmt.Fprintln(out, hash)
	return nil
}

func readLine(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no key given on stdin")
	}
	return strings.TrimSpace(sc.Text()), nil
}
