package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"libcirc/internal/library/ledger"
	"libcirc/internal/library/stats"
)

func newStatsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Statistics snapshots",
	}
	cmd.AddCommand(newStatsRefreshCommand(root))
	return cmd
}

func newStatsRefreshCommand(root *rootOptions) *cobra.Command {
	var (
		period string
		ref    string
	)
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Recompute book usage and one period of user stats",
		Example: `  libcirc stats refresh
  libcirc stats refresh --period quarterly --ref 2026-04`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if period != string(stats.Monthly) && period != string(stats.Quarterly) {
				return fmt.Errorf("--period must be monthly or quarterly, got %q", period)
			}
			if _, ok := stats.ParseReference(ref); ref != "" && !ok {
				return fmt.Errorf("--ref must be YYYY-MM or YYYY-MM-DD, got %q", ref)
			}

			cfg, conn, logger, err := root.bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			app := NewApp(cfg, conn, logger, ledger.RealClock{})
			now := app.Ledger.Now()
			if err := app.Stats.RefreshBookUsage(cmd.Context(), now); err != nil {
				return err
			}
			p := stats.PeriodFor(period, ref, now)
			if err := app.Stats.RefreshUserBorrow(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "refreshed book usage and user stats for %s (%s .. %s)\n",
				p.Label, p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", string(stats.Monthly), "monthly or quarterly")
	cmd.Flags().StringVar(&ref, "ref", "", "reference date YYYY-MM or YYYY-MM-DD (default today)")
	return cmd
}
