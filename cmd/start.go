package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/moviegraph-crawler/internal/app"
)

func newStartCmd() *cobra.Command {
	var (
		req     app.StartRequest
		storage string
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a fresh crawl from a seed movie",
		Long: `Start registers the seed movie and crawls until the frontier is exhausted,
the step limit is reached or the process is interrupted. Output tables in
the storage dir are recreated.`,
		Example: "  moviegraph start --seed https://www.filmweb.pl/film/Rejs-1970-1 --storage ./rejs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := resolveSession(cmd.Context())
			if err != nil {
				return err
			}
			cfg := s.cfg.WithStorageDir(storage)
			return withApp(cmd.Context(), s, cfg, func(a crawlApp) error {
				res, err := a.Start(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&req.Seed, "seed", "", "URL of the seed movie page")
	cmd.Flags().StringVar(&storage, "storage", "", "storage dir for tables and the default checkpoint")
	cmd.Flags().IntVar(&req.MaxSteps, "max-steps", 0, "pause after this many steps (0 = no limit)")
	cmd.Flags().BoolVar(&req.Force, "force", false, "overwrite an existing checkpoint")
	_ = cmd.MarkFlagRequired("seed")
	return cmd
}
