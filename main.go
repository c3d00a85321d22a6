package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"secureshare/config"
	"secureshare/models"
	"secureshare/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "secureshare",
		Short:         "Ephemeral, access-controlled file sharing",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file to load before reading the environment")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, err
		}
		if err := cfg.ValidateConfig(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(
		newServeCmd(loadConfig),
		newSweepCmd(loadConfig),
		newIssueTokenCmd(loadConfig),
	)
	return root
}

func newServeCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the in-process expiry sweeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			app, err := NewApplication(cmd.Context(), cfg, cfg.NewLogger())
			if err != nil {
				return err
			}
			return app.Start()
		},
	}
}

func newSweepCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Deactivate expired files once and exit",
		Long: `Run a single expiry sweep against the configured metadata store.
Intended for external schedulers such as cron or Kubernetes CronJobs.
Requires METADATA_DRIVER=mongo; the blob store is not opened.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			job, closeStore, err := openExpiryJob(ctx, cfg, cfg.NewLogger())
			if err != nil {
				return err
			}
			defer closeStore()

			count, err := job.ExpirySweep(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deactivated %d expired file(s)\n", count)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "maximum duration of the sweep")
	return cmd
}

func newIssueTokenCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var (
		userID string
		admin  bool
	)

	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Mint a principal token for local development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			role := "user"
			if admin {
				role = models.RoleAdmin
			}

			token, err := utils.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL).GenerateAccessToken(userID, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to embed in the token")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
