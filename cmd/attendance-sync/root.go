package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

const (
	startTimeout = 30 * time.Second
	stopTimeout  = 30 * time.Second
)

var (
	envFile    string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "attendance-sync",
	Short: "Forward access-control attendance swipes to the HR/ERP service",
	Long: `Reads transaction tables from access-control terminals, turns card swipes
into attendance events and uploads the recent ones to the ERP.

Devices are configured with IP_CODES ("ip:origin,ip:origin"), the ERP with
ERP_BASE_URL, ERP_LOGIN and ERP_PASSWORD. Settings are read from the
environment and from a .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnv(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load settings from this file instead of searching for .env")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	rootCmd.AddCommand(runCmd, serveCmd, fetchCmd, historyCmd)
}

// bindFlag makes a command flag override the environment variable key.
func bindFlag(cmd *cobra.Command, key, flag string) error {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		return fmt.Errorf("failed to bind --%s: %w", flag, err)
	}
	return nil
}

// withApp starts an fx app that populates targets, calls fn and stops the app.
func withApp(ctx context.Context, fn func(ctx context.Context) error, targets ...interface{}) error {
	app := newApp(fx.Populate(targets...))
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	runErr := fn(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}
