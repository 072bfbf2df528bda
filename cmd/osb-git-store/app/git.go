package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/osb-git-store/internal/config"
	"github.com/stacklok/osb-git-store/internal/lifecycle"
)

const (
	defaultPushMessage = "Commit changes"
	pushMessagePrefix  = "OSB Git Store CLI"
	defaultAuthorName  = "OSB Git Store CLI"
	defaultAuthorEmail = "osb-git-store@localhost"
)

func newGitCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "git",
		Short: "Synchronize the working copy with its remote",
		Long: `Synchronize the working copy outside of store operations, using the same
fast-forward then rebase policy and the same push retry as the store itself.`,
	}
	cmd.AddCommand(newGitPullCmd(v), newGitPushCmd(v))
	return cmd
}

func newGitPullCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Fast-forward the working copy, rebasing local commits if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnvironment(cmd.Context(), v, func(env *environment) error {
				_, err := lifecycle.WithRetry(cmd.Context(), env.retry, func(ctx context.Context) (struct{}, error) {
					unlock, err := env.repo.Lock(ctx)
					if err != nil {
						return struct{}{}, err
					}
					defer unlock()
					return struct{}{}, env.repo.Pull(ctx)
				})
				return err
			})
		},
	}
}

func newGitPushCmd(v *viper.Viper) *cobra.Command {
	var name, email, message string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Commit all changes in the working copy and push them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			cfg.Repository.Author = &config.AuthorConfig{Name: name, Email: email}

			ctx := cmd.Context()
			env, err := openEnvironment(ctx, v, cfg)
			if err != nil {
				return err
			}
			defer env.close(ctx)

			commitMessage := fmt.Sprintf("%s: %s", pushMessagePrefix, message)
			_, err = lifecycle.WithRetry(ctx, env.retry, func(ctx context.Context) (struct{}, error) {
				unlock, err := env.repo.Lock(ctx)
				if err != nil {
					return struct{}{}, err
				}
				defer unlock()

				if err := env.repo.Commit(ctx, commitMessage); err != nil {
					return struct{}{}, err
				}
				return struct{}{}, env.repo.Push(ctx)
			})
			if err != nil {
				return err
			}

			slog.InfoContext(ctx, "Pushed working copy", "path", env.repo.Root())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", defaultAuthorName, "Author name of the commit")
	cmd.Flags().StringVar(&email, "email", defaultAuthorEmail, "Author email of the commit")
	cmd.Flags().StringVarP(&message, "message", "m", defaultPushMessage, "Commit message")
	return cmd
}
