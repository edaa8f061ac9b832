package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/learnhub-backend/internal/app"
	"github.com/yungbote/learnhub-backend/internal/jobs/reconcile"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
	"github.com/yungbote/learnhub-backend/internal/services"
)

var (
	configDir string
	userFlag  string
	dryRun    bool
)

var rootCmd = &cobra.Command{
	Use:   "badge_reconcile",
	Short: "Award badges missing from completed enrollments",
	Long: `Scan completed enrollments and repair missing badges:

  - courses with completed enrollments but no course badge get one
  - users with a completed enrollment but no user badge are awarded it

The sweep takes the same lock as the scheduled run, so it is safe to run
next to live servers.`,
	SilenceUsage: true,
	RunE:         runSweep,
}

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint an access token for a user (operator tooling)",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

var (
	tokenRole string
	tokenTTL  time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding app.env")
	rootCmd.Flags().StringVar(&userFlag, "user", "", "limit the sweep to one user id")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "count repairs without writing")

	tokenCmd.Flags().StringVar(&tokenRole, "role", "", "role claim, e.g. admin")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSweep(cmd *cobra.Command, _ []string) error {
	opts := services.SweepOptions{DryRun: dryRun}
	if s := strings.TrimSpace(userFlag); s != "" {
		id, err := uuid.Parse(s)
		if err != nil || id == uuid.Nil {
			return fmt.Errorf("invalid --user %q", s)
		}
		opts.UserID = &id
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, configDir)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer application.Close()

	report, err := application.Services.Scheduler.RunOnce(ctx, opts)
	if errors.Is(err, reconcile.ErrSkipped) {
		return fmt.Errorf("another sweep holds the lock; try again later")
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d repairs failed", len(report.Failures))
	}
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	userID, err := uuid.Parse(strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	cfg, err := app.LoadConfig(configDir)
	if err != nil {
		return err
	}
	auth := services.NewAuthService(logger.NewNop(), cfg.JWTSecretKey, cfg.JWTIssuer)
	tok, err := auth.IssueAccessToken(userID, tokenRole, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
