// Package sweep implements the sweep command: liveness checks and ghost
// rescoring over stored postings.
package sweep

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jobradar/jobradar/cmd/common"
	"github.com/jobradar/jobradar/internal/fetch"
	"github.com/jobradar/jobradar/internal/liveness"
)

// Command returns the sweep command.
func Command(opts *common.Options) *cobra.Command {
	var daemon bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a liveness sweep over stored postings",
		Long: `Checks whether stored postings are still open, updates their
liveness status and trust score, and recomputes ghost-job scores. With
--daemon the sweep repeats on the configured cron schedule.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.Build(opts)
			if err != nil {
				return err
			}
			defer deps.Close()

			sweeper := buildSweeper(deps)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !daemon {
				_, sweepErr := sweeper.Sweep(ctx)
				return sweepErr
			}

			schedule := deps.Cfg.Liveness.SweepSchedule
			c := cron.New()
			if _, addErr := c.AddFunc(schedule, func() {
				if _, sweepErr := sweeper.Sweep(ctx); sweepErr != nil &&
					!errors.Is(sweepErr, liveness.ErrSweepInProgress) {
					deps.Log.Error("scheduled sweep failed", "error", sweepErr)
				}
			}); addErr != nil {
				return fmt.Errorf("invalid sweep schedule %q: %w", schedule, addErr)
			}

			deps.Log.Info("sweep daemon started", "schedule", schedule)
			c.Start()
			<-ctx.Done()

			stopCtx := c.Stop()
			<-stopCtx.Done()
			deps.Log.Info("sweep daemon stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&daemon, "daemon", false, "run sweeps on the configured cron schedule")
	return cmd
}

// buildSweeper assembles the checker, scorer, and sweeper from config.
func buildSweeper(deps *common.Deps) *liveness.Sweeper {
	client := fetch.NewClient(deps.Limiter(), deps.Log, deps.RequestTimeout())

	checker := liveness.NewChecker(client, liveness.CheckerConfig{
		MissThreshold: deps.Cfg.Liveness.MissThreshold,
	}, deps.Log)

	scorer := liveness.NewGhostScorer(liveness.GhostConfig{
		SuspiciousAt: deps.Cfg.Liveness.GhostSuspiciousAt,
		LikelyAt:     deps.Cfg.Liveness.GhostLikelyAt,
	})

	return liveness.NewSweeper(
		deps.Postings,
		deps.Checks,
		checker,
		scorer,
		deps.Notifier,
		liveness.SweeperConfig{
			CheckInterval: deps.Cfg.Liveness.CheckInterval,
			MaxConcurrent: deps.Cfg.Liveness.MaxConcurrent,
			BatchLimit:    deps.Cfg.Liveness.BatchLimit,
		},
		deps.Log,
	)
}
