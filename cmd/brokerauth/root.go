package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jrsteele09/go-broker-auth/auth"
	"github.com/jrsteele09/go-broker-auth/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const refreshTokenEnvVar = "BROKER_REFRESH_TOKEN"

type rootOptions struct {
	envFiles    []string
	logLevel    string
	headless    bool
	screenshots bool
	printTokens bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "brokerauth",
		Short:         "Unattended OAuth2 authorization for the brokerage API",
		Long:          "Drives the brokerage consent screens in a headless browser, captures the authorization code on a local TLS callback and verifies the resulting tokens.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuthorize(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringSliceVar(&opts.envFiles, "env-file", []string{config.DefaultEnvFile}, "dotenv files to load before reading the environment")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error); overrides LOG_LEVEL")
	flags.BoolVar(&opts.headless, "headless", true, "run the browser headless; overrides BROWSER_HEADLESS")
	flags.BoolVar(&opts.screenshots, "screenshots", false, "save a screenshot at every consent step; overrides SCREENSHOTS_ENABLED")
	flags.BoolVar(&opts.printTokens, "print-tokens", false, "write the final token pair as JSON to stdout")

	rootCmd.AddCommand(newAuthorizeCmd(opts))
	rootCmd.AddCommand(newRefreshCmd(opts))
	return rootCmd
}

func newAuthorizeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "authorize",
		Short: "Run the full authorization code flow and verify the tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuthorize(cmd, opts)
		},
	}
}

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	var refreshToken string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Exchange a refresh token for a new pair and verify it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if refreshToken == "" {
				refreshToken = os.Getenv(refreshTokenEnvVar)
			}
			return runRefresh(cmd, opts, refreshToken)
		},
	}
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "refresh token to exchange (defaults to "+refreshTokenEnvVar+")")
	return cmd
}

// applyFlagOverrides exports explicitly set flags as environment variables so config.Load sees them.
func applyFlagOverrides(cmd *cobra.Command, opts *rootOptions) error {
	overrides := map[string]string{}
	if cmd.Flags().Changed("headless") {
		overrides["BROWSER_HEADLESS"] = strconv.FormatBool(opts.headless)
	}
	if cmd.Flags().Changed("screenshots") {
		overrides["SCREENSHOTS_ENABLED"] = strconv.FormatBool(opts.screenshots)
	}
	if opts.logLevel != "" {
		overrides["LOG_LEVEL"] = opts.logLevel
	}
	for k, v := range overrides {
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}
	return nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func runAuthorize(cmd *cobra.Command, opts *rootOptions) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd)
	defer stop()

	svc, err := a.authorizationService()
	if err != nil {
		return err
	}
	result, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	a.report(result)
	return a.printTokens(cmd, result, opts.printTokens)
}

func runRefresh(cmd *cobra.Command, opts *rootOptions, refreshToken string) error {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd)
	defer stop()

	svc, err := a.refreshService()
	if err != nil {
		return err
	}
	result, err := svc.Refresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	a.report(result)
	return a.printTokens(cmd, result, opts.printTokens)
}

func (a *app) printTokens(cmd *cobra.Command, result *auth.Result, enabled bool) error {
	if !enabled || result.FinalTokens.IsZero() {
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result.FinalTokens); err != nil {
		log.Err(err).Msg("Failed to write tokens")
		return err
	}
	return nil
}
