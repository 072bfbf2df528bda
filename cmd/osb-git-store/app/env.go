package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/stacklok/osb-git-store/internal/config"
	"github.com/stacklok/osb-git-store/internal/git"
	"github.com/stacklok/osb-git-store/internal/lifecycle"
	"github.com/stacklok/osb-git-store/internal/store"
	"github.com/stacklok/osb-git-store/internal/telemetry"
	"github.com/stacklok/osb-git-store/internal/versions"
)

const telemetryShutdownTimeout = 5 * time.Second

// loadConfig reads --config when given and applies flag and environment overrides
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg := &config.Config{}
	if path := v.GetString(keyConfig); path != "" {
		loaded, err := config.LoadConfig(config.WithConfigPath(path))
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	overrides := []struct {
		key    string
		target *string
	}{
		{keyLocalPath, &cfg.Repository.LocalPath},
		{keyRemote, &cfg.Repository.Remote},
		{keyBranch, &cfg.Repository.Branch},
		{keyTimeout, &cfg.Repository.Timeout},
	}
	for _, o := range overrides {
		if value := v.GetString(o.key); value != "" {
			*o.target = value
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// environment holds what a command needs to operate on the store
type environment struct {
	repo        git.Repository
	coordinator *lifecycle.Coordinator
	telemetry   *telemetry.Telemetry
	retry       lifecycle.RetryPolicy
}

// openEnvironment sets up telemetry and opens the working copy described by cfg.
// The caller must call close.
func openEnvironment(ctx context.Context, v *viper.Viper, cfg *config.Config) (*environment, error) {
	tel, err := telemetry.New(ctx, cfg.Telemetry, versions.GetVersionInfo().Version)
	if err != nil {
		return nil, err
	}
	env := &environment{
		telemetry: tel,
		retry:     lifecycle.DefaultRetryPolicy,
	}
	env.retry.MaxTries = v.GetUint(keyRetries)

	repoMetrics, err := telemetry.NewRepositoryMetrics(tel.MeterProvider())
	if err != nil {
		env.close(ctx)
		return nil, fmt.Errorf("failed to create repository metrics: %w", err)
	}
	opMetrics, err := telemetry.NewOperationMetrics(tel.MeterProvider())
	if err != nil {
		env.close(ctx)
		return nil, fmt.Errorf("failed to create operation metrics: %w", err)
	}

	gitCfg, err := cfg.GitConfig()
	if err != nil {
		env.close(ctx)
		return nil, err
	}

	repo, err := git.Open(ctx, gitCfg, git.WithMetrics(repoMetrics))
	if err != nil {
		env.close(ctx)
		return nil, fmt.Errorf("failed to open working copy: %w", err)
	}
	env.repo = repo

	records := store.New(repo.Root(), store.WithTempDir(git.ScratchDir(repo.Root())))
	env.coordinator = lifecycle.New(repo, records,
		lifecycle.WithCommitMessagePrefix(cfg.CommitMessagePrefix),
		lifecycle.WithTracerProvider(tel.TracerProvider()),
		lifecycle.WithMetrics(opMetrics),
	)
	return env, nil
}

// close flushes telemetry, even when ctx was cancelled
func (e *environment) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryShutdownTimeout)
	defer cancel()

	if err := e.telemetry.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to shutdown telemetry", "error", err)
	}
}

// withEnvironment loads the configuration, opens the store and runs fn
func withEnvironment(ctx context.Context, v *viper.Viper, fn func(*environment) error) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx, v, cfg)
	if err != nil {
		return err
	}
	defer env.close(ctx)
	return fn(env)
}
