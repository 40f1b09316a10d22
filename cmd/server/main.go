package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnshRaj112/moodlog-backend/internal/app"
	"github.com/AnshRaj112/moodlog-backend/internal/config"
	"github.com/AnshRaj112/moodlog-backend/internal/logger"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "moodlog",
		Short:         "Mood journal API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve(cmd.Context())
			},
		},
		verifyTokenCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "moodlog %s\n", app.BuildVersion())
			},
		},
	)

	return cmd
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	a, err := app.New(startCtx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(ctx)
}

// verifyTokenCmd checks a token against the configured identity provider and
// prints its claims. Useful when a client reports unexpected 401s.
func verifyTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-token <token>",
		Short: "Verify a bearer token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logger.New(cfg.Log)

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Auth.FetchTimeout+5*time.Second)
			defer cancel()

			claims, err := app.NewVerifierOnly(cfg, log).Verify(ctx, "Bearer "+args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(claims)
		},
	}
}

