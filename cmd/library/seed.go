package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelfmark/library-api/internal/core/service"
	"github.com/shelfmark/library-api/pkg/logger"
)

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo accounts, books and default settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			be, err := openBackend(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer be.Close()

			wrote, err := service.NewSeeder(be.store, logger.Component("seeder")).Seed(cmd.Context())
			if err != nil {
				return err
			}
			if wrote {
				fmt.Fprintln(cmd.OutOrStdout(), "catalog seeded")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "catalog already seeded, nothing to do")
			}
			return nil
		},
	}
}
