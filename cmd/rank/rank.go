// Package rank implements the rank command: an on-demand ranking request
// for one candidate.
package rank

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jobradar/jobradar/cmd/common"
	"github.com/jobradar/jobradar/internal/match"
)

// Command returns the rank command.
func Command(opts *common.Options) *cobra.Command {
	var (
		candidateID string
		location    string
		remoteOnly  bool
		minSalary   float64
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank stored postings for a candidate",
		RunE: func(cmd *cobra.Command, args []string) error {
			if candidateID == "" {
				return errors.New("--candidate is required")
			}

			deps, err := common.Build(opts)
			if err != nil {
				return err
			}
			defer deps.Close()

			ctx := cmd.Context()
			candidate, err := deps.Candidates.GetProfile(ctx, candidateID)
			if err != nil {
				return fmt.Errorf("load candidate %s: %w", candidateID, err)
			}

			pool, err := deps.Postings.ListRankable(ctx, deps.Cfg.Liveness.GhostLikelyAt, poolLimit(limit))
			if err != nil {
				return fmt.Errorf("load posting pool: %w", err)
			}

			var cache match.Cache = match.NewLRUCache(deps.Cfg.Match.CacheTTL, deps.Cfg.Match.CacheEntries)
			if deps.Redis != nil {
				cache = match.NewRedisCache(deps.Redis, deps.Cfg.Match.CacheTTL, deps.Log)
			}

			ranker := match.NewRanker(match.Config{
				RecencyHalfLifeDays: deps.Cfg.Match.RecencyHalfLifeDays,
				GhostSuspiciousAt:   deps.Cfg.Liveness.GhostSuspiciousAt,
				GhostLikelyAt:       deps.Cfg.Liveness.GhostLikelyAt,
			}, cache, deps.Log)

			results := ranker.Rank(ctx, candidate, pool, match.Filters{
				Location:   location,
				RemoteOnly: remoteOnly,
				MinSalary:  minSalary,
				Limit:      resultLimit(limit, deps.Cfg.Match.Limit),
			})

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}

	cmd.Flags().StringVar(&candidateID, "candidate", "", "candidate profile ID (required)")
	cmd.Flags().StringVar(&location, "location", "", "filter by location")
	cmd.Flags().BoolVar(&remoteOnly, "remote", false, "only remote postings")
	cmd.Flags().Float64Var(&minSalary, "min-salary", 0, "minimum yearly salary")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (default from config)")
	return cmd
}

// poolLimit sizes the candidate pool query generously relative to the
// requested result count.
func poolLimit(limit int) int {
	const poolFactor = 20
	if limit <= 0 {
		return 1000
	}
	return limit * poolFactor
}

func resultLimit(requested, configured int) int {
	if requested > 0 {
		return requested
	}
	return configured
}
