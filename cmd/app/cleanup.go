package main

import (
	"fmt"

	"DemandCast/internal/di"
	models "DemandCast/internal/domain/models"

	"github.com/spf13/cobra"
)

func newCleanupCmd(root *rootOptions) *cobra.Command {
	req := models.CleanupRequest{}
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove old cached models",
		Long: `Remove cached models older than --max-age-days, then keep at most
--max-count of the most recently used. Zero values fall back to config.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.MaxAgeDays < 0 || req.MaxCount < 0 {
				return fmt.Errorf("--max-age-days and --max-count must not be negative")
			}
			cfg, err := root.load()
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}

			job, cleanup, err := di.InitializeCleanup(cfg)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			defer cleanup()

			res, err := job.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
	cmd.Flags().IntVar(&req.MaxAgeDays, "max-age-days", 0, "remove models unused for this many days")
	cmd.Flags().IntVar(&req.MaxCount, "max-count", 0, "keep at most this many models")
	return cmd
}
