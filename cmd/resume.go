package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/moviegraph-crawler/internal/app"
)

func newResumeCmd() *cobra.Command {
	var req app.ResumeRequest
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Continue a crawl from its checkpoint",
		Long: `Resume restores the frontier, identity registry and counters from a
checkpoint and continues the crawl, appending to the existing tables.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := resolveSession(cmd.Context())
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), s, s.cfg, func(a crawlApp) error {
				res, err := a.Resume(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&req.Checkpoint, "checkpoint", "",
		"checkpoint location: path, file://, gs://bucket/object or redis://host/key")
	cmd.Flags().IntVar(&req.MaxSteps, "max-steps", 0, "pause after this many steps (0 = no limit)")
	return cmd
}
