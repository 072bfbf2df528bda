// Package app provides the commands of the osb-git-store CLI.
package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/osb-git-store/internal/lifecycle"
	"github.com/stacklok/osb-git-store/internal/versions"
)

// EnvPrefix is the prefix of environment variables overriding flags,
// e.g. OSB_GIT_STORE_LOCAL_PATH for --local-path
const EnvPrefix = "OSB_GIT_STORE"

// Viper keys shared by the commands
const (
	keyConfig    = "config"
	keyDebug     = "debug"
	keyLogLevel  = "log-level"
	keyLocalPath = "local-path"
	keyRemote    = "remote"
	keyBranch    = "branch"
	keyTimeout   = "timeout"
	keyRetries   = "retries"
)

// NewRootCmd creates the root command of the CLI
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:               "osb-git-store",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Git-backed state store for an open service broker",
		Long: `osb-git-store keeps the records of service instances and bindings as YAML
files in a git repository shared with the pipeline that provisions them.

Every change is committed and pushed; concurrent writers are reconciled by
fast-forwarding, or rebasing local commits when histories diverged.`,
		PersistentPreRun: func(*cobra.Command, []string) {
			setLogLevel(v.GetString(keyLogLevel), v.GetBool(keyDebug))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String(keyConfig, "", "Path to configuration file (YAML format)")
	flags.Bool(keyDebug, false, "Enable debug logging")
	flags.String(keyLogLevel, "", "Log level: debug, info, warn or error (default info)")
	flags.String(keyLocalPath, "", "Working copy directory (overrides repository.localPath)")
	flags.String(keyRemote, "", "Remote repository URL (overrides repository.remote)")
	flags.String(keyBranch, "", "Branch to synchronize (overrides repository.branch)")
	flags.String(keyTimeout, "", "Timeout of each network call, e.g. 30s (overrides repository.timeout)")
	flags.Uint(keyRetries, lifecycle.DefaultRetryPolicy.MaxTries,
		"Attempts of an operation failing with a retryable error such as a rejected push")
	cobra.CheckErr(v.BindPFlags(flags))

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGitCmd(v))
	rootCmd.AddCommand(newInstanceCmd(v))
	rootCmd.AddCommand(newBindingCmd(v))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}

			if format == "json" {
				return printJSON(cmd, info)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "osb-git-store %s\n  commit: %s\n  built:  %s\n  go:     %s\n  platform: %s\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return err
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output as JSON: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
	return err
}
